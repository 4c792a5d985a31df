package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/smartfarm/advisor/internal/config"
)

func TestNewProviderFromConfigDefaultsToMock(t *testing.T) {
	provider := NewProviderFromConfig(context.Background(), config.LLMConfig{})
	if provider.Name() != "mock" {
		t.Fatalf("expected mock provider, got %q", provider.Name())
	}
}

func TestNewProviderFromConfigSelectsOpenAI(t *testing.T) {
	provider := NewProviderFromConfig(context.Background(), config.LLMConfig{
		Provider:     "openai",
		OpenAIAPIKey: "test-openai-key",
		OpenAIModel:  "gpt-4o-mini",
	})
	if provider.Name() != "openai" {
		t.Fatalf("expected openai provider, got %q", provider.Name())
	}
}

func TestNewProviderFromConfigSelectsGemini(t *testing.T) {
	provider := NewProviderFromConfig(context.Background(), config.LLMConfig{
		Provider:     "gemini",
		GeminiAPIKey: "test-gemini-key",
		GeminiModel:  "gemini-2.5-flash",
	})
	if provider.Name() != "gemini" {
		t.Fatalf("expected gemini provider, got %q", provider.Name())
	}
}

func TestNewProviderFromConfigGeminiMissingKeyFallsBackToMock(t *testing.T) {
	provider := NewProviderFromConfig(context.Background(), config.LLMConfig{Provider: "gemini"})
	if provider.Name() != "mock" {
		t.Fatalf("expected fallback mock provider, got %q", provider.Name())
	}
}

func TestMockProviderReplaysScriptThenCannedContent(t *testing.T) {
	failure := errors.New("boom")
	mock := NewScriptedMockProvider(
		MockResponse{Text: "first", FinishReason: FinishMaxTokens},
		MockResponse{Err: failure},
	)
	prompt := Prompt{Operation: OperationChat, Parts: []Part{TextPart("hello")}}

	first, err := mock.Generate(context.Background(), prompt, GenerationConfig{Temperature: 0.7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Text() != "first" || first.FinishReason() != FinishMaxTokens {
		t.Fatalf("unexpected first result: %q %q", first.Text(), first.FinishReason())
	}

	if _, err := mock.Generate(context.Background(), prompt, GenerationConfig{}); !errors.Is(err, failure) {
		t.Fatalf("expected scripted error, got %v", err)
	}

	canned, err := mock.Generate(context.Background(), prompt, GenerationConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canned.Text() == "" || canned.FinishReason() != FinishComplete {
		t.Fatalf("expected canned chat content, got %q %q", canned.Text(), canned.FinishReason())
	}

	calls := mock.Calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 recorded calls, got %d", len(calls))
	}
	if calls[0].Config.Temperature != 0.7 {
		t.Fatalf("expected recorded temperature 0.7, got %v", calls[0].Config.Temperature)
	}
}

func TestMockProviderRejectsEmptyPrompt(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), Prompt{Parts: []Part{TextPart("  ")}}, GenerationConfig{})
	if !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
	if mock.CallCount() != 0 {
		t.Fatalf("expected empty prompt to not be recorded, got %d calls", mock.CallCount())
	}
}

func TestCallResultDefaultsFinishReason(t *testing.T) {
	result := NewCallResult("text", "")
	if result.FinishReason() != FinishComplete {
		t.Fatalf("expected COMPLETE, got %q", result.FinishReason())
	}
}
