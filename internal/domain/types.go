package domain

import "strings"

type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// ParseSeverity normalizes casing and maps anything unrecognized to moderate.
func ParseSeverity(raw string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(raw))) {
	case SeverityMild:
		return SeverityMild
	case SeveritySevere:
		return SeveritySevere
	default:
		return SeverityModerate
	}
}

type DiseaseInfo struct {
	Disease      string   `json:"disease"`
	Confidence   int      `json:"confidence"`
	Severity     Severity `json:"severity"`
	AffectedArea string   `json:"affectedArea"`
	Symptoms     []string `json:"symptoms"`
}

type TreatmentPlan struct {
	Immediate     []string `json:"immediate"`
	Preventive    []string `json:"preventive"`
	Organic       []string `json:"organic"`
	EstimatedLoss string   `json:"estimatedLoss"`
	Timeline      string   `json:"timeline"`
}

type Treatment struct {
	Immediate  []string `json:"immediate"`
	Preventive []string `json:"preventive"`
	Organic    []string `json:"organic"`
}

type AdvisoryResult struct {
	Disease       string    `json:"disease"`
	Confidence    int       `json:"confidence"`
	Severity      Severity  `json:"severity"`
	AffectedArea  string    `json:"affectedArea,omitempty"`
	Symptoms      []string  `json:"symptoms,omitempty"`
	Treatment     Treatment `json:"treatment"`
	EstimatedLoss string    `json:"estimatedLoss"`
	Timeline      string    `json:"timeline"`
	LocalizedText string    `json:"localizedText"`
	Language      string    `json:"language"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type FarmerProfile struct {
	FarmSize string   `json:"farmSize,omitempty"`
	Crops    []string `json:"crops,omitempty"`
	Location string   `json:"location,omitempty"`
}

type ChatRequest struct {
	Message       string         `json:"message"`
	History       []ChatTurn     `json:"history,omitempty"`
	FarmerProfile *FarmerProfile `json:"farmerProfile,omitempty"`
	Language      string         `json:"language,omitempty"`
}

type ChatResponse struct {
	Response          string   `json:"response"`
	FollowUpQuestions []string `json:"followUpQuestions"`
}

type WeatherAdvisoryRequest struct {
	Location *Location `json:"location"`
	CropType string    `json:"cropType,omitempty"`
	Activity string    `json:"activity"`
}

type WeatherAdvice struct {
	Recommendation string   `json:"recommendation"`
	OptimalTiming  string   `json:"optimalTiming"`
	Risks          []string `json:"risks"`
	Reasoning      string   `json:"reasoning"`
}

type WeatherAdvisory struct {
	WeatherAdvice
	WeatherSummary string `json:"weatherSummary"`
}

type CurrentConditions struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Conditions  string  `json:"conditions"`
	Rainfall    float64 `json:"rainfall"`
}

type ForecastDay struct {
	Date        string  `json:"date"`
	Temperature float64 `json:"temp"`
	Rainfall    float64 `json:"rainfall"`
	Conditions  string  `json:"conditions"`
}

type Forecast struct {
	Current  CurrentConditions `json:"current"`
	Forecast []ForecastDay     `json:"forecast"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type Capabilities struct {
	Provider   string     `json:"provider"`
	Languages  []Language `json:"languages"`
	Activities []string   `json:"activities"`
}

type APIErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}
