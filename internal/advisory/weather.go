package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smartfarm/advisor/internal/domain"
	"github.com/smartfarm/advisor/internal/extract"
	"github.com/smartfarm/advisor/internal/llm"
	"github.com/smartfarm/advisor/internal/metrics"
	"github.com/smartfarm/advisor/internal/weather"
)

const flowWeather = "weather_advisory"

var supportedActivities = []string{"planting", "fertilizing", "spraying", "harvesting"}

func SupportedActivities() []string {
	return append([]string(nil), supportedActivities...)
}

func IsSupportedActivity(activity string) bool {
	for _, supported := range supportedActivities {
		if supported == activity {
			return true
		}
	}
	return false
}

// WeatherAdvisory times a farm activity against the forecast for a location.
func (p *Pipeline) WeatherAdvisory(ctx context.Context, req domain.WeatherAdvisoryRequest) (domain.WeatherAdvisory, error) {
	activity := strings.ToLower(strings.TrimSpace(req.Activity))
	if req.Location == nil || activity == "" {
		return domain.WeatherAdvisory{}, ErrLocationActivityRequired
	}
	if !IsSupportedActivity(activity) {
		return domain.WeatherAdvisory{}, fmt.Errorf("%w: %s", ErrUnsupportedActivity, req.Activity)
	}

	forecast, err := p.forecasts.Forecast(ctx, *req.Location)
	if err != nil {
		return domain.WeatherAdvisory{}, fmt.Errorf("fetch forecast: %w", err)
	}
	forecastJSON, err := json.MarshalIndent(forecast, "", "  ")
	if err != nil {
		return domain.WeatherAdvisory{}, fmt.Errorf("encode forecast: %w", err)
	}

	result, err := p.generator.Generate(ctx, llm.Prompt{
		Operation: llm.OperationWeather,
		Parts:     []llm.Part{llm.TextPart(weatherPrompt(string(forecastJSON), activity, req.CropType))},
	}, weatherConfig)
	if err != nil {
		return domain.WeatherAdvisory{}, err
	}

	extracted := extract.Extract(result.Text(), extract.ShapeAdvisory)
	if extracted.Path != extract.PathParsed {
		metrics.RecordStageFallback(flowWeather, "advise", string(extracted.Path))
	}
	advice := extract.WeatherAdvice(extracted)
	if advice.Recommendation == "" {
		advice.Recommendation = "Unable to generate a recommendation. Check local conditions before proceeding."
	}
	if advice.OptimalTiming == "" {
		advice.OptimalTiming = "Not determined"
	}
	if advice.Risks == nil {
		advice.Risks = []string{}
	}

	return domain.WeatherAdvisory{
		WeatherAdvice:  advice,
		WeatherSummary: weather.FormatSummary(forecast),
	}, nil
}
