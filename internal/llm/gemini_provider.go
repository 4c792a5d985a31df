package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smartfarm/advisor/internal/config"
	"google.golang.org/genai"
)

type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiProvider struct {
	model  string
	models geminiModels
	policy runtimePolicy
}

func NewGeminiProvider(ctx context.Context, cfg config.LLMConfig) (*GeminiProvider, error) {
	apiKey := strings.TrimSpace(cfg.GeminiKey())
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY (or GOOGLE_API_KEY) is required")
	}

	model := strings.TrimSpace(cfg.GeminiModel)
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}

	return &GeminiProvider{
		model:  model,
		models: client.Models,
		policy: runtimePolicyFromConfig(cfg),
	}, nil
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt Prompt, cfg GenerationConfig) (CallResult, error) {
	return observeProviderOperation(ctx, g.Name(), prompt.Operation, func() (CallResult, error) {
		if err := prompt.validate(); err != nil {
			return CallResult{}, err
		}
		contents := []*genai.Content{genai.NewContentFromParts(geminiParts(prompt), genai.RoleUser)}
		genCfg := geminiConfig(cfg)

		return g.policy.run(ctx, func(attemptCtx context.Context) (CallResult, error) {
			response, err := g.models.GenerateContent(attemptCtx, g.model, contents, genCfg)
			if err != nil {
				return CallResult{}, err
			}
			return geminiResult(response), nil
		})
	})
}

func geminiParts(prompt Prompt) []*genai.Part {
	parts := make([]*genai.Part, 0, len(prompt.Parts))
	for _, part := range prompt.Parts {
		if part.IsMedia() {
			parts = append(parts, genai.NewPartFromBytes(part.Data, part.MIMEType))
			continue
		}
		if part.Text != "" {
			parts = append(parts, genai.NewPartFromText(part.Text))
		}
	}
	return parts
}

func geminiConfig(cfg GenerationConfig) *genai.GenerateContentConfig {
	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(cfg.Temperature),
	}
	if cfg.MaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}
	if cfg.TopK > 0 {
		genCfg.TopK = genai.Ptr(float32(cfg.TopK))
	}
	if cfg.TopP > 0 {
		genCfg.TopP = genai.Ptr(cfg.TopP)
	}
	return genCfg
}

func geminiResult(response *genai.GenerateContentResponse) CallResult {
	if response == nil {
		return NewCallResult("", FinishOther)
	}
	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		return NewCallResult("", FinishSafety)
	}
	if len(response.Candidates) == 0 {
		return NewCallResult("", FinishOther)
	}
	return NewCallResult(response.Text(), geminiFinishReason(response.Candidates[0].FinishReason))
}

func geminiFinishReason(reason genai.FinishReason) FinishReason {
	switch reason {
	case genai.FinishReasonStop, "":
		return FinishComplete
	case genai.FinishReasonMaxTokens:
		return FinishMaxTokens
	case genai.FinishReasonSafety,
		genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent,
		genai.FinishReasonSPII:
		return FinishSafety
	default:
		return FinishOther
	}
}
