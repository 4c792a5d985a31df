package llm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

type fakeChatCompleter struct {
	requests []openai.ChatCompletionRequest
	errs     []error
	response openai.ChatCompletionResponse
}

func (f *fakeChatCompleter) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	call := len(f.requests)
	f.requests = append(f.requests, request)
	if call < len(f.errs) && f.errs[call] != nil {
		return openai.ChatCompletionResponse{}, f.errs[call]
	}
	return f.response, nil
}

func TestOpenAIProviderBuildsVisionMessage(t *testing.T) {
	fake := &fakeChatCompleter{response: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Content: "partial"},
			FinishReason: openai.FinishReasonLength,
		}},
	}}
	provider := &OpenAIProvider{model: "gpt-test", client: fake, policy: runtimePolicy{timeout: time.Second}}

	result, err := provider.Generate(context.Background(), Prompt{
		Operation: OperationAnalyze,
		Parts:     []Part{TextPart("Analyze"), MediaPart([]byte("png-bytes"), "image/png")},
	}, GenerationConfig{Temperature: 0.2, MaxOutputTokens: 2048})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text() != "partial" || result.FinishReason() != FinishMaxTokens {
		t.Fatalf("unexpected result %q %q", result.Text(), result.FinishReason())
	}

	message := fake.requests[0].Messages[0]
	if len(message.MultiContent) != 2 {
		t.Fatalf("expected multi-content message, got %+v", message)
	}
	imagePart := message.MultiContent[1]
	if imagePart.ImageURL == nil || !strings.HasPrefix(imagePart.ImageURL.URL, "data:image/png;base64,") {
		t.Fatalf("expected data URL image part, got %+v", imagePart)
	}
	if fake.requests[0].MaxTokens != 2048 {
		t.Fatalf("expected max tokens 2048, got %d", fake.requests[0].MaxTokens)
	}
}

func TestOpenAIProviderRetriesServerErrors(t *testing.T) {
	fake := &fakeChatCompleter{
		errs: []error{&openai.APIError{HTTPStatusCode: 503, Message: "overloaded"}},
		response: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}, FinishReason: openai.FinishReasonStop}},
		},
	}
	provider := &OpenAIProvider{model: "gpt-test", client: fake, policy: runtimePolicy{timeout: time.Second, maxRetries: 1}}

	result, err := provider.Generate(context.Background(), Prompt{Operation: OperationChat, Parts: []Part{TextPart("hi")}}, GenerationConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text() != "ok" {
		t.Fatalf("expected ok, got %q", result.Text())
	}
	if len(fake.requests) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(fake.requests))
	}
	if fake.requests[0].Messages[0].Content != "hi" {
		t.Fatalf("expected plain text content for text-only prompt, got %+v", fake.requests[0].Messages[0])
	}
}

func TestOpenAIProviderDoesNotRetryBadRequest(t *testing.T) {
	fake := &fakeChatCompleter{errs: []error{&openai.APIError{HTTPStatusCode: 400, Message: "bad"}}}
	provider := &OpenAIProvider{model: "gpt-test", client: fake, policy: runtimePolicy{timeout: time.Second, maxRetries: 3}}

	if _, err := provider.Generate(context.Background(), Prompt{Operation: OperationChat, Parts: []Part{TextPart("hi")}}, GenerationConfig{}); err == nil {
		t.Fatalf("expected error")
	}
	if len(fake.requests) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(fake.requests))
	}
}
