package advisory

import (
	"context"
	"strings"

	"github.com/smartfarm/advisor/internal/domain"
	"github.com/smartfarm/advisor/internal/llm"
	"github.com/smartfarm/advisor/internal/logx"
	"github.com/smartfarm/advisor/internal/metrics"
	"github.com/smartfarm/advisor/internal/middleware"
)

const flowChat = "chat"

const (
	maxTokensReply = "Your question requires a detailed answer. Could you make it more specific? For example, ask about a particular crop or farming activity."
	safetyReply    = "I cannot provide advice on that topic due to safety guidelines. Please ask about farming practices, crops, or agricultural techniques."
	emptyReply     = "I apologize, I could not generate a response. Please try rephrasing your question or ask something more specific about farming."
	errorReply     = `I apologize, but I encountered an error processing your question. Please try asking again, perhaps in a simpler way. For example: "When should I plant maize?" or "How do I control pests?"`
)

var errorFollowUps = []string{
	"What are the best crops for my region?",
	"How can I improve my soil?",
	"What should I do about pests?",
}

// Chat answers a farmer question. It never fails: model errors become a
// fixed apology with generic follow-up questions.
func (p *Pipeline) Chat(ctx context.Context, req domain.ChatRequest) domain.ChatResponse {
	result, err := p.generator.Generate(ctx, llm.Prompt{
		Operation: llm.OperationChat,
		Parts:     []llm.Part{llm.TextPart(chatPrompt(req))},
	}, chatConfig)
	if err != nil {
		metrics.RecordStageFallback(flowChat, "reply", "call_error")
		logx.Error().
			Err(err).
			Str("request_id", middleware.GetRequestIDFromContext(ctx)).
			Str("component", "advisory").
			Msg("chat generation failed")
		return domain.ChatResponse{
			Response:          errorReply,
			FollowUpQuestions: append([]string(nil), errorFollowUps...),
		}
	}

	reply := result.Text()
	if strings.TrimSpace(reply) == "" {
		reply = emptyReplyFor(result.FinishReason())
		metrics.RecordStageFallback(flowChat, "reply", strings.ToLower(string(result.FinishReason())))
		logx.Warn().
			Str("request_id", middleware.GetRequestIDFromContext(ctx)).
			Str("finish_reason", string(result.FinishReason())).
			Msg("empty chat response from model")
	}

	return domain.ChatResponse{
		Response:          reply,
		FollowUpQuestions: FollowUpQuestions(req.Message),
	}
}

func emptyReplyFor(reason llm.FinishReason) string {
	switch reason {
	case llm.FinishMaxTokens:
		return maxTokensReply
	case llm.FinishSafety:
		return safetyReply
	default:
		return emptyReply
	}
}

var followUpTable = []struct {
	keywords  []string
	questions []string
}{
	{
		keywords:  []string{"plant", "seed"},
		questions: []string{"What seed variety should I use?", "How should I prepare my land?", "When is the best time to plant?"},
	},
	{
		keywords:  []string{"fertilizer", "manure"},
		questions: []string{"How much fertilizer do I need?", "What organic alternatives exist?", "When should I apply fertilizer?"},
	},
	{
		keywords:  []string{"pest", "disease"},
		questions: []string{"How do I identify this pest?", "What organic treatments work?", "How can I prevent this problem?"},
	},
	{
		keywords:  []string{"water", "irrigation"},
		questions: []string{"How much water do my crops need?", "What irrigation method is best?", "How often should I water?"},
	},
	{
		keywords:  []string{"harvest", "sell"},
		questions: []string{"When should I harvest?", "How do I store my harvest?", "Where can I get better prices?"},
	},
}

var defaultFollowUps = []string{
	"What are the best crops for my region?",
	"How can I improve my yield?",
	"What should I watch out for?",
}

// FollowUpQuestions picks suggestions from the first keyword group the
// message mentions.
func FollowUpQuestions(message string) []string {
	lowered := strings.ToLower(message)
	for _, entry := range followUpTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return append([]string(nil), entry.questions...)
			}
		}
	}
	return append([]string(nil), defaultFollowUps...)
}
