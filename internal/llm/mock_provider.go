package llm

import (
	"context"
	"sync"
)

// MockResponse is one scripted reply. Err, when set, is returned instead.
type MockResponse struct {
	Text         string
	FinishReason FinishReason
	Err          error
}

// MockCall records what a caller sent to the mock.
type MockCall struct {
	Prompt Prompt
	Config GenerationConfig
}

// MockProvider replays scripted responses in order and then falls back to
// canned content keyed by operation, so the server stays usable without
// credentials.
type MockProvider struct {
	mu     sync.Mutex
	script []MockResponse
	calls  []MockCall
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func NewScriptedMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{script: append([]MockResponse(nil), responses...)}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Generate(ctx context.Context, prompt Prompt, cfg GenerationConfig) (CallResult, error) {
	return observeProviderOperation(ctx, m.Name(), prompt.Operation, func() (CallResult, error) {
		if err := prompt.validate(); err != nil {
			return CallResult{}, err
		}

		m.mu.Lock()
		m.calls = append(m.calls, MockCall{Prompt: prompt, Config: cfg})
		var next *MockResponse
		if len(m.script) > 0 {
			next = &m.script[0]
			m.script = m.script[1:]
		}
		m.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return CallResult{}, err
		}
		if next != nil {
			if next.Err != nil {
				return CallResult{}, next.Err
			}
			return NewCallResult(next.Text, next.FinishReason), nil
		}
		return NewCallResult(cannedResponse(prompt), FinishComplete), nil
	})
}

func (m *MockProvider) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func cannedResponse(prompt Prompt) string {
	switch prompt.Operation {
	case OperationAnalyze:
		return "```json\n" + `{"disease": "Leaf Spot", "confidence": 72, "severity": "moderate", "affectedArea": "10-20%", "symptoms": ["Brown lesions on leaves", "Yellowing around spots"]}` + "\n```"
	case OperationTreat:
		return `{"immediate": ["Remove infected leaves", "Avoid overhead watering"], "preventive": ["Rotate crops each season", "Space plants for airflow"], "organic": ["Spray neem oil weekly"], "estimatedLoss": "10-15%", "timeline": "2-3 weeks"}`
	case OperationTranslate:
		return lastText(prompt)
	case OperationWeather:
		return `{"recommendation": "Proceed after the light rain clears", "optimalTiming": "Early morning within the next 2 days", "risks": ["Heavy rain may wash away inputs"], "reasoning": "Rainfall is moderate mid-week and drier afterwards."}`
	default:
		return "Plant at the start of the rains and keep the field weeded. Mulch to hold soil moisture."
	}
}

func lastText(prompt Prompt) string {
	for i := len(prompt.Parts) - 1; i >= 0; i-- {
		if !prompt.Parts[i].IsMedia() && prompt.Parts[i].Text != "" {
			return prompt.Parts[i].Text
		}
	}
	return ""
}
