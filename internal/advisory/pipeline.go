// Package advisory runs the model-backed flows: disease detection,
// farmer chat and weather-timed activity advice.
package advisory

import (
	"errors"

	"github.com/smartfarm/advisor/internal/llm"
	"github.com/smartfarm/advisor/internal/weather"
)

var (
	ErrMissingImage             = errors.New("no image provided")
	ErrLocationActivityRequired = errors.New("location and activity required")
	ErrUnsupportedActivity      = errors.New("unsupported activity")
)

// Pipeline holds the collaborators shared by every flow. It is safe for
// concurrent use when its generator and forecast source are.
type Pipeline struct {
	generator llm.Generator
	forecasts weather.Source
}

// New builds a Pipeline. A nil forecast source uses the stub forecast.
func New(generator llm.Generator, forecasts weather.Source) *Pipeline {
	if forecasts == nil {
		forecasts = weather.NewStubSource()
	}
	return &Pipeline{generator: generator, forecasts: forecasts}
}

func (p *Pipeline) Provider() string {
	return p.generator.Name()
}
