package extract

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/smartfarm/advisor/internal/domain"
)

const maxSymptoms = 3

// Disease decodes a disease payload. Missing values stay zero so callers
// can apply their own defaults.
func Disease(r Result) domain.DiseaseInfo {
	info := domain.DiseaseInfo{
		Disease:      stringField(r.Fields, "disease"),
		Confidence:   clampConfidence(intField(r.Fields, "confidence")),
		AffectedArea: stringField(r.Fields, "affectedArea"),
		Symptoms:     stringsField(r.Fields, "symptoms"),
	}
	if raw := stringField(r.Fields, "severity"); raw != "" {
		info.Severity = domain.ParseSeverity(raw)
	}
	if len(info.Symptoms) > maxSymptoms {
		info.Symptoms = info.Symptoms[:maxSymptoms]
	}
	return info
}

func Treatment(r Result) domain.TreatmentPlan {
	return domain.TreatmentPlan{
		Immediate:     stringsField(r.Fields, "immediate"),
		Preventive:    stringsField(r.Fields, "preventive"),
		Organic:       stringsField(r.Fields, "organic"),
		EstimatedLoss: stringField(r.Fields, "estimatedLoss"),
		Timeline:      stringField(r.Fields, "timeline"),
	}
}

func WeatherAdvice(r Result) domain.WeatherAdvice {
	return domain.WeatherAdvice{
		Recommendation: stringField(r.Fields, "recommendation"),
		OptimalTiming:  stringField(r.Fields, "optimalTiming"),
		Risks:          stringsField(r.Fields, "risks"),
		Reasoning:      stringField(r.Fields, "reasoning"),
	}
}

func stringField(fields map[string]any, key string) string {
	switch value := fields[key].(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case json.Number:
		return value.String()
	case bool:
		return strconv.FormatBool(value)
	}
	return ""
}

func intField(fields map[string]any, key string) int {
	switch value := fields[key].(type) {
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return 0
		}
		return int(math.Round(value))
	case int:
		return value
	case json.Number:
		if parsed, err := value.Float64(); err == nil {
			return int(math.Round(parsed))
		}
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(value), "%")
		if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int(math.Round(parsed))
		}
	}
	return 0
}

// stringsField accepts a list of strings or a single string.
func stringsField(fields map[string]any, key string) []string {
	switch value := fields[key].(type) {
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if text, ok := item.(string); ok && strings.TrimSpace(text) != "" {
				out = append(out, strings.TrimSpace(text))
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []string:
		return append([]string(nil), value...)
	case string:
		if strings.TrimSpace(value) != "" {
			return []string{strings.TrimSpace(value)}
		}
	}
	return nil
}

func clampConfidence(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
