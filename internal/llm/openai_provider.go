package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/smartfarm/advisor/internal/config"
)

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type OpenAIProvider struct {
	model  string
	client chatCompleter
	policy runtimePolicy
}

func NewOpenAIProvider(cfg config.LLMConfig) (*OpenAIProvider, error) {
	apiKey := strings.TrimSpace(cfg.OpenAIAPIKey)
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.OpenAIModel)
	if model == "" {
		model = "gpt-4o-mini"
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(cfg.OpenAIBaseURL); baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	return &OpenAIProvider{
		model:  model,
		client: openai.NewClientWithConfig(clientCfg),
		policy: runtimePolicyFromConfig(cfg),
	}, nil
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}

func (o *OpenAIProvider) Generate(ctx context.Context, prompt Prompt, cfg GenerationConfig) (CallResult, error) {
	return observeProviderOperation(ctx, o.Name(), prompt.Operation, func() (CallResult, error) {
		if err := prompt.validate(); err != nil {
			return CallResult{}, err
		}
		request := openai.ChatCompletionRequest{
			Model:       o.model,
			Messages:    []openai.ChatCompletionMessage{openAIMessage(prompt)},
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxOutputTokens,
			TopP:        cfg.TopP,
		}

		return o.policy.run(ctx, func(attemptCtx context.Context) (CallResult, error) {
			response, err := o.client.CreateChatCompletion(attemptCtx, request)
			if err != nil {
				return CallResult{}, openAIError(err)
			}
			if len(response.Choices) == 0 {
				return NewCallResult("", FinishOther), nil
			}
			choice := response.Choices[0]
			return NewCallResult(choice.Message.Content, openAIFinishReason(choice.FinishReason)), nil
		})
	})
}

func openAIMessage(prompt Prompt) openai.ChatCompletionMessage {
	hasMedia := false
	for _, part := range prompt.Parts {
		if part.IsMedia() {
			hasMedia = true
			break
		}
	}
	if !hasMedia {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt.Text()}
	}

	parts := make([]openai.ChatMessagePart, 0, len(prompt.Parts))
	for _, part := range prompt.Parts {
		if part.IsMedia() {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:" + part.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(part.Data),
					Detail: openai.ImageURLDetailAuto,
				},
			})
			continue
		}
		if part.Text != "" {
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: part.Text})
		}
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}

func openAIFinishReason(reason openai.FinishReason) FinishReason {
	switch reason {
	case openai.FinishReasonStop, "":
		return FinishComplete
	case openai.FinishReasonLength:
		return FinishMaxTokens
	case openai.FinishReasonContentFilter:
		return FinishSafety
	default:
		return FinishOther
	}
}

// openAIError converts client errors carrying an HTTP status into
// providerHTTPError so the runtime policy can classify them.
func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &providerHTTPError{provider: "openai", statusCode: apiErr.HTTPStatusCode, message: apiErr.Message}
	}
	var requestErr *openai.RequestError
	if errors.As(err, &requestErr) && requestErr.HTTPStatusCode > 0 {
		return &providerHTTPError{provider: "openai", statusCode: requestErr.HTTPStatusCode, message: requestErr.Error()}
	}
	return err
}
