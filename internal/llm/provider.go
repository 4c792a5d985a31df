package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/smartfarm/advisor/internal/config"
	"github.com/smartfarm/advisor/internal/logx"
)

var ErrEmptyPrompt = errors.New("prompt has no parts")

// Operation names label provider calls in logs and metrics.
const (
	OperationAnalyze   = "analyze"
	OperationTreat     = "treat"
	OperationTranslate = "translate"
	OperationChat      = "chat"
	OperationWeather   = "weather"
)

type FinishReason string

const (
	FinishComplete  FinishReason = "COMPLETE"
	FinishMaxTokens FinishReason = "MAX_TOKENS"
	FinishSafety    FinishReason = "SAFETY"
	FinishOther     FinishReason = "OTHER"
)

// Part is either text or inline media (bytes plus MIME type).
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func MediaPart(data []byte, mimeType string) Part {
	return Part{Data: data, MIMEType: mimeType}
}

func (p Part) IsMedia() bool {
	return len(p.Data) > 0
}

type Prompt struct {
	Operation string
	Parts     []Part
}

// Text joins the text parts, skipping media.
func (p Prompt) Text() string {
	texts := make([]string, 0, len(p.Parts))
	for _, part := range p.Parts {
		if !part.IsMedia() && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func (p Prompt) validate() error {
	for _, part := range p.Parts {
		if part.IsMedia() || strings.TrimSpace(part.Text) != "" {
			return nil
		}
	}
	return ErrEmptyPrompt
}

type GenerationConfig struct {
	Temperature     float32
	MaxOutputTokens int
	TopK            int
	TopP            float32
}

// CallResult is the outcome of one model call. The text is read through
// Text, which is the only accessor providers and callers use.
type CallResult struct {
	text         string
	finishReason FinishReason
}

func NewCallResult(text string, finishReason FinishReason) CallResult {
	if finishReason == "" {
		finishReason = FinishComplete
	}
	return CallResult{text: text, finishReason: finishReason}
}

func (r CallResult) Text() string {
	return r.text
}

func (r CallResult) FinishReason() FinishReason {
	return r.finishReason
}

// Generator is the hosted model collaborator.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt, cfg GenerationConfig) (CallResult, error)
}

// NewProviderFromConfig selects the provider named by cfg.Provider and
// falls back to the mock provider when it cannot be constructed.
func NewProviderFromConfig(ctx context.Context, cfg config.LLMConfig) Generator {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "openai":
		generator, err := NewOpenAIProvider(cfg)
		if err == nil {
			return generator
		}
		logx.Warn().Err(err).Str("provider", provider).Msg("falling back to mock provider")
	case "gemini":
		generator, err := NewGeminiProvider(ctx, cfg)
		if err == nil {
			return generator
		}
		logx.Warn().Err(err).Str("provider", provider).Msg("falling back to mock provider")
	case "", "mock":
	default:
		logx.Warn().Str("provider", provider).Msg("unknown provider, using mock provider")
	}
	return NewMockProvider()
}
