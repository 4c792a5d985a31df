package extract

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/smartfarm/advisor/internal/domain"
	"github.com/smartfarm/advisor/internal/metrics"
)

func TestExtractParsesFencedJSON(t *testing.T) {
	raw := "```json\n{\"disease\":\"Leaf Blight\",\"confidence\":88,\"severity\":\"severe\"}\n```"

	result := Extract(raw, ShapeDisease)
	if result.Path != PathParsed {
		t.Fatalf("expected parsed path, got %q", result.Path)
	}
	info := Disease(result)
	if info.Disease != "Leaf Blight" || info.Confidence != 88 || info.Severity != domain.SeveritySevere {
		t.Fatalf("unexpected disease info %+v", info)
	}
}

func TestExtractFindsObjectInsideProse(t *testing.T) {
	raw := "Here is the analysis you asked for: {\"recommendation\": \"wait\", \"risks\": [\"flooding\"]} Let me know."

	result := Extract(raw, ShapeAdvisory)
	if result.Path != PathParsed {
		t.Fatalf("expected parsed path, got %q", result.Path)
	}
	advice := WeatherAdvice(result)
	if advice.Recommendation != "wait" {
		t.Fatalf("expected recommendation wait, got %q", advice.Recommendation)
	}
	if diff := cmp.Diff([]string{"flooding"}, advice.Risks); diff != "" {
		t.Fatalf("unexpected risks (-want +got):\n%s", diff)
	}
}

func TestExtractRepairsTrailingComma(t *testing.T) {
	result := Extract(`{"disease": "Rust",`, ShapeDisease)
	if result.Path != PathParsed {
		t.Fatalf("expected repaired object to parse, got %q", result.Path)
	}
	if got := Disease(result).Disease; got != "Rust" {
		t.Fatalf("expected Rust, got %q", got)
	}
}

func TestExtractRecoversFieldsFromTruncatedJSON(t *testing.T) {
	raw := `{"disease": "Rust", "confidence": 90, "severity": "mild", "symptoms": ["orange pust`

	result := Extract(raw, ShapeDisease)
	if result.Path != PathFields {
		t.Fatalf("expected field recovery path, got %q", result.Path)
	}
	want := domain.DiseaseInfo{
		Disease:      "Rust",
		Confidence:   90,
		Severity:     domain.SeverityMild,
		AffectedArea: "10-20%",
		Symptoms:     []string{"Visible damage on plant", "Requires closer inspection"},
	}
	if diff := cmp.Diff(want, Disease(result)); diff != "" {
		t.Fatalf("unexpected disease info (-want +got):\n%s", diff)
	}
}

func TestExtractFieldRecoveryDefaultsConfidence(t *testing.T) {
	result := Extract(`{"disease": "Mosaic Virus", "confidence":`, ShapeDisease)
	if result.Path != PathFields {
		t.Fatalf("expected field recovery path, got %q", result.Path)
	}
	info := Disease(result)
	if info.Confidence != 70 || info.Severity != domain.SeverityModerate {
		t.Fatalf("expected defaults confidence 70 and moderate, got %+v", info)
	}
}

func TestExtractKeywordDefaults(t *testing.T) {
	disease := Extract("The plant shows a disease with yellow symptoms", ShapeDisease)
	if disease.Path != PathDiseaseDefault {
		t.Fatalf("expected disease default path, got %q", disease.Path)
	}
	if info := Disease(disease); info.Confidence != 60 || info.Disease != "Disease detected - analysis incomplete" {
		t.Fatalf("unexpected disease default %+v", info)
	}

	treatment := Extract("Recommended Treatment: spray early", ShapeTreatment)
	if treatment.Path != PathTreatmentDefault {
		t.Fatalf("expected treatment default path, got %q", treatment.Path)
	}
	plan := Treatment(treatment)
	if diff := cmp.Diff([]string{"Isolate affected plants", "Consult agricultural extension officer"}, plan.Immediate); diff != "" {
		t.Fatalf("unexpected immediate actions (-want +got):\n%s", diff)
	}
	if plan.Timeline != "Varies depending on condition" {
		t.Fatalf("unexpected timeline %q", plan.Timeline)
	}
}

func TestExtractGenericFallback(t *testing.T) {
	for _, raw := range []string{"", "   \n\t", "completely unrelated text", "[1, 2, 3]"} {
		result := Extract(raw, ShapeAdvisory)
		if !result.Failed() {
			t.Fatalf("expected generic path for %q, got %q", raw, result.Path)
		}
		if result.Fields["error"] != "Failed to parse response" {
			t.Fatalf("expected error marker for %q, got %+v", raw, result.Fields)
		}
	}

	long := strings.Repeat("x", 500)
	result := Extract(long, ShapeDisease)
	if got := result.Fields["rawText"].(string); len(got) != rawTextPreviewLen {
		t.Fatalf("expected raw text preview of %d chars, got %d", rawTextPreviewLen, len(got))
	}
}

func TestExtractRecordsPathMetric(t *testing.T) {
	metrics.ResetForTests()

	Extract(`{"disease":"Rust"}`, ShapeDisease)
	Extract("nothing useful", ShapeTreatment)

	output := metrics.PrometheusText()
	for _, substring := range []string{
		`advisor_extraction_total{shape="disease",path="parsed"} 1`,
		`advisor_extraction_total{shape="treatment",path="generic"} 1`,
	} {
		if !strings.Contains(output, substring) {
			t.Fatalf("expected metrics output to contain %q\noutput:\n%s", substring, output)
		}
	}
}
