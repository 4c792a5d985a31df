package weather

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartfarm/advisor/internal/domain"
)

// Source supplies a forecast for a location.
type Source interface {
	Forecast(ctx context.Context, location domain.Location) (domain.Forecast, error)
}

// StubSource returns the same fixed forecast for every location.
type StubSource struct{}

func NewStubSource() StubSource {
	return StubSource{}
}

func (StubSource) Forecast(ctx context.Context, _ domain.Location) (domain.Forecast, error) {
	if err := ctx.Err(); err != nil {
		return domain.Forecast{}, err
	}
	return domain.Forecast{
		Current: domain.CurrentConditions{
			Temperature: 25,
			Humidity:    70,
			Conditions:  "partly cloudy",
			Rainfall:    0,
		},
		Forecast: []domain.ForecastDay{
			{Date: "2024-11-16", Temperature: 26, Rainfall: 10, Conditions: "light rain"},
			{Date: "2024-11-17", Temperature: 24, Rainfall: 40, Conditions: "moderate rain"},
			{Date: "2024-11-18", Temperature: 27, Rainfall: 5, Conditions: "mostly sunny"},
		},
	}, nil
}

// FormatSummary renders a one-line human summary of the forecast.
func FormatSummary(forecast domain.Forecast) string {
	days := make([]string, 0, len(forecast.Forecast))
	for _, day := range forecast.Forecast {
		days = append(days, fmt.Sprintf("%s: %s°C, %smm rain", day.Date, formatNumber(day.Temperature), formatNumber(day.Rainfall)))
	}
	return fmt.Sprintf(
		"Current: %s°C, %s. Next %d days: %s",
		formatNumber(forecast.Current.Temperature),
		forecast.Current.Conditions,
		len(forecast.Forecast),
		strings.Join(days, "; "),
	)
}

func formatNumber(value float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", value), "0"), ".")
}
