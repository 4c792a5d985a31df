package advisory

import (
	"fmt"
	"strings"

	"github.com/smartfarm/advisor/internal/domain"
	"github.com/smartfarm/advisor/internal/llm"
)

var (
	analyzeConfig   = generation(0.2, 2048)
	treatConfig     = generation(0.3, 800)
	translateConfig = generation(0.3, 0)
	weatherConfig   = generation(0.3, 0)
	chatConfig      = llm.GenerationConfig{Temperature: 0.7, MaxOutputTokens: 1024, TopK: 40, TopP: 0.95}
)

func generation(temperature float32, maxOutputTokens int) llm.GenerationConfig {
	return llm.GenerationConfig{Temperature: temperature, MaxOutputTokens: maxOutputTokens}
}

func analyzePrompt(cropType string) string {
	return fmt.Sprintf(`Analyze this %s image for diseases. Return ONLY valid JSON:
{
  "disease": "disease name or No disease detected",
  "confidence": 85,
  "severity": "mild",
  "affectedArea": "10%%",
  "symptoms": ["symptom1", "symptom2", "symptom3"]
}

Use severity: mild, moderate, or severe.
Keep symptoms list to 3 items max.`, orDefault(cropType, "crop"))
}

func treatmentPrompt(disease string, severity domain.Severity, cropType string) string {
	return fmt.Sprintf(`You are an agricultural extension officer in Africa helping farmers treat crop diseases.

Disease: %s
Severity: %s
Crop: %s

Provide treatment recommendations. Return ONLY this JSON structure with no other text:
{
  "immediate": ["Specific action 1", "Specific action 2", "Specific action 3"],
  "preventive": ["Prevention step 1", "Prevention step 2", "Prevention step 3"],
  "organic": ["Organic method 1", "Organic method 2", "Organic method 3"],
  "estimatedLoss": "XX-XX%% if untreated within X weeks",
  "timeline": "X-X weeks"
}

Make recommendations practical for smallholder farmers in Africa.
Focus on locally available, affordable solutions.`, disease, severity, orDefault(cropType, "General crop"))
}

// translationInstructions is sent as its own part, followed by the text.
func translationInstructions(language domain.Language) string {
	return fmt.Sprintf(`You are an expert agricultural translator.
Translate the following agricultural advice to %[1]s (%[2]s).

IMPORTANT: Your response should be ONLY the translated text, with no additional explanations or formatting.

Guidelines:
- Use simple, farmer-friendly language
- Use relevant agricultural terms in %[1]s
- Be clear and direct
- Keep the translation natural and conversational

Text to translate:`, language.Name, language.Code)
}

func weatherPrompt(forecastJSON string, activity string, cropType string) string {
	return fmt.Sprintf(`You are a climate-smart agriculture advisor.

Weather Forecast:
%s

Activity: %s
Crop: %s

Provide practical timing advice in JSON format:
{
  "recommendation": "clear yes/no/wait recommendation",
  "optimalTiming": "specific dates or timeframe",
  "risks": ["weather-related risks to consider"],
  "reasoning": "why this timing is best"
}

Consider:
- Rainfall patterns
- Temperature
- Soil moisture needs
- Activity-specific requirements`, forecastJSON, activity, orDefault(cropType, "general farming"))
}

func chatPrompt(req domain.ChatRequest) string {
	var builder strings.Builder
	builder.WriteString("You are an agricultural advisor in Africa helping smallholder farmers.\n\n")
	builder.WriteString(farmerContext(req.FarmerProfile))

	if conversation := recentConversation(req.History); conversation != "" {
		builder.WriteString("\nRecent conversation:\n")
		builder.WriteString(conversation)
		builder.WriteString("\n\n")
	}

	builder.WriteString("\nFarmer asks: ")
	builder.WriteString(req.Message)
	builder.WriteString("\n\nProvide practical farming advice in 2-3 short sentences. Be direct and actionable.")
	return builder.String()
}

func farmerContext(profile *domain.FarmerProfile) string {
	if profile == nil {
		return ""
	}
	crops := "mixed crops"
	if len(profile.Crops) > 0 {
		crops = strings.Join(profile.Crops, ", ")
	}
	return fmt.Sprintf(
		"Farmer: %s farm, grows %s, %s. ",
		orDefault(profile.FarmSize, "small-scale"),
		crops,
		orDefault(profile.Location, "East Africa"),
	)
}

const maxHistoryTurns = 3

func recentConversation(history []domain.ChatTurn) string {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		speaker := "Advisor"
		if turn.Role == "user" {
			speaker = "Farmer"
		}
		lines = append(lines, speaker+": "+turn.Text)
	}
	return strings.Join(lines, "\n")
}

func orDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
