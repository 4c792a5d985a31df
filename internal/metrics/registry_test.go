package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestPrometheusTextContainsAdvisorSeries(t *testing.T) {
	ResetForTests()

	RecordProviderCall("mock", "analyze", "success", "none", 25*time.Millisecond)
	RecordProviderCall("gemini", "chat", "error", "timeout", 10*time.Millisecond)
	RecordExtraction("disease", "fields")
	RecordExtraction("disease", "fields")
	RecordStageFallback("disease_detection", "treat", "empty_text")
	RecordQueueDelivery("delivered", 3)
	RecordQueueDelivery("failed", 0)

	output := PrometheusText()

	expectedSubstrings := []string{
		"# HELP advisor_provider_requests_total",
		"advisor_provider_requests_total{provider=\"mock\",operation=\"analyze\",status=\"success\",error_category=\"none\"} 1",
		"advisor_provider_requests_total{provider=\"gemini\",operation=\"chat\",status=\"error\",error_category=\"timeout\"} 1",
		"# HELP advisor_provider_request_duration_seconds",
		"advisor_extraction_total{shape=\"disease\",path=\"fields\"} 2",
		"advisor_stage_fallback_total{flow=\"disease_detection\",stage=\"treat\",reason=\"empty_text\"} 1",
		"advisor_queue_deliveries_total{outcome=\"delivered\"} 3",
	}

	for _, substring := range expectedSubstrings {
		if !strings.Contains(output, substring) {
			t.Fatalf("expected metrics output to contain %q\noutput:\n%s", substring, output)
		}
	}
	if strings.Contains(output, "outcome=\"failed\"") {
		t.Fatalf("expected zero-count outcome to be skipped\noutput:\n%s", output)
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	ResetForTests()

	RecordProviderCall("mock", "chat", "success", "none", 20*time.Millisecond)
	RecordProviderCall("mock", "chat", "success", "none", 2*time.Second)

	output := PrometheusText()
	for _, substring := range []string{
		`advisor_provider_request_duration_seconds_bucket{error_category="none",operation="chat",provider="mock",status="success",le="0.025"} 1`,
		`advisor_provider_request_duration_seconds_bucket{error_category="none",operation="chat",provider="mock",status="success",le="2.5"} 2`,
		`advisor_provider_request_duration_seconds_count{error_category="none",operation="chat",provider="mock",status="success"} 2`,
	} {
		if !strings.Contains(output, substring) {
			t.Fatalf("expected metrics output to contain %q\noutput:\n%s", substring, output)
		}
	}
}
