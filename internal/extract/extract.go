// Package extract recovers structured fields from model output that is
// usually, but not reliably, a JSON object.
package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/smartfarm/advisor/internal/logx"
	"github.com/smartfarm/advisor/internal/metrics"
)

// Shape names the payload a caller expects. It labels logs and metrics and
// selects the typed decoder; the recovery steps are the same for every shape.
type Shape string

const (
	ShapeDisease   Shape = "disease"
	ShapeTreatment Shape = "treatment"
	ShapeAdvisory  Shape = "advisory"
)

// Path records which recovery step produced the fields.
type Path string

const (
	PathParsed           Path = "parsed"
	PathFields           Path = "fields"
	PathDiseaseDefault   Path = "disease_default"
	PathTreatmentDefault Path = "treatment_default"
	PathGeneric          Path = "generic"
)

const rawTextPreviewLen = 200

type Result struct {
	Shape  Shape
	Path   Path
	Fields map[string]any
}

// Failed reports whether nothing usable was recovered.
func (r Result) Failed() bool {
	return r.Path == PathGeneric
}

var (
	jsonFencePattern  = regexp.MustCompile("```json\n?")
	fencePattern      = regexp.MustCompile("```\n?")
	braceSpanPattern  = regexp.MustCompile(`\{[\s\S]*\}`)
	danglingPattern   = regexp.MustCompile(`[:,]\s*$`)
	diseasePattern    = regexp.MustCompile(`"disease":\s*"([^"]+)"`)
	confidencePattern = regexp.MustCompile(`"confidence":\s*(\d+)`)
	severityPattern   = regexp.MustCompile(`"severity":\s*"([^"]+)"`)
)

// Extract never fails: when the text cannot be parsed it falls back to
// field recovery, then keyword defaults, then a generic error object.
func Extract(raw string, shape Shape) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logx.Error().Interface("panic", recovered).Str("shape", string(shape)).Msg("extractor panic recovered")
			result = genericResult(raw, shape)
		}
		metrics.RecordExtraction(string(shape), string(result.Path))
		if result.Path != PathParsed {
			logx.Warn().
				Str("component", "extract").
				Str("shape", string(shape)).
				Str("path", string(result.Path)).
				Str("raw_preview", preview(raw)).
				Msg("structured response not parsed, using recovery path")
		}
	}()

	if fields, ok := parseObject(raw); ok {
		return Result{Shape: shape, Path: PathParsed, Fields: fields}
	}
	if fields, ok := recoverFields(raw); ok {
		return Result{Shape: shape, Path: PathFields, Fields: fields}
	}

	lowered := strings.ToLower(raw)
	switch {
	case strings.Contains(lowered, "disease") || strings.Contains(lowered, "symptom"):
		return Result{Shape: shape, Path: PathDiseaseDefault, Fields: diseaseDefault()}
	case strings.Contains(lowered, "treatment") || strings.Contains(lowered, "action"):
		return Result{Shape: shape, Path: PathTreatmentDefault, Fields: treatmentDefault()}
	}
	return genericResult(raw, shape)
}

func parseObject(raw string) (map[string]any, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}

	cleaned := jsonFencePattern.ReplaceAllString(raw, "")
	cleaned = fencePattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	if span := braceSpanPattern.FindString(cleaned); span != "" {
		cleaned = span
	}

	if strings.HasSuffix(cleaned, ":") || strings.HasSuffix(cleaned, ",") {
		cleaned = danglingPattern.ReplaceAllString(cleaned, "") + "}"
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func recoverFields(raw string) (map[string]any, bool) {
	diseaseMatch := diseasePattern.FindStringSubmatch(raw)
	if diseaseMatch == nil {
		return nil, false
	}

	confidence := 70
	if match := confidencePattern.FindStringSubmatch(raw); match != nil {
		if parsed, err := strconv.Atoi(match[1]); err == nil {
			confidence = parsed
		}
	}
	severity := "moderate"
	if match := severityPattern.FindStringSubmatch(raw); match != nil {
		severity = match[1]
	}

	return map[string]any{
		"disease":      diseaseMatch[1],
		"confidence":   float64(confidence),
		"severity":     severity,
		"affectedArea": "10-20%",
		"symptoms":     []any{"Visible damage on plant", "Requires closer inspection"},
	}, true
}

func diseaseDefault() map[string]any {
	return map[string]any{
		"disease":      "Disease detected - analysis incomplete",
		"confidence":   float64(60),
		"severity":     "moderate",
		"affectedArea": "Unknown",
		"symptoms":     []any{"Consult agricultural officer for detailed diagnosis"},
	}
}

func treatmentDefault() map[string]any {
	return map[string]any{
		"immediate":     []any{"Isolate affected plants", "Consult agricultural extension officer"},
		"preventive":    []any{"Monitor crops regularly", "Maintain good field hygiene"},
		"organic":       []any{"Use organic compost", "Practice crop rotation"},
		"estimatedLoss": "Cannot estimate without proper diagnosis",
		"timeline":      "Varies depending on condition",
	}
}

func genericResult(raw string, shape Shape) Result {
	return Result{
		Shape: shape,
		Path:  PathGeneric,
		Fields: map[string]any{
			"error":   "Failed to parse response",
			"rawText": preview(raw),
		},
	}
}

func preview(raw string) string {
	runes := []rune(raw)
	if len(runes) > rawTextPreviewLen {
		return string(runes[:rawTextPreviewLen])
	}
	return raw
}
