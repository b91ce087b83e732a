package qa

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/member-qa/pkg/anthropic"
)

const llmSystemPrompt = `You answer questions about members using only the member messages you are given.
Each message line has the form "<member>: <message> (Date: <yyyy-mm-dd>)".
Reply with a short, literal answer taken from the messages, in one sentence at most.
If the messages do not answer the question, reply with exactly UNKNOWN.`

// LLMStrategy asks a Claude model to answer from the context.
type LLMStrategy struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewLLMStrategy creates the strategy. Empty model and non-positive
// maxTokens use defaults.
func NewLLMStrategy(client anthropic.Client, model string, maxTokens int64) *LLMStrategy {
	if model == "" {
		model = anthropic.DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &LLMStrategy{client: client, model: model, maxTokens: maxTokens}
}

// Name implements Strategy.
func (s *LLMStrategy) Name() string { return "anthropic" }

// TryAnswer implements Strategy.
func (s *LLMStrategy) TryAnswer(ctx context.Context, question, qaContext string) (string, bool) {
	temp := 0.0
	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    llmSystemPrompt,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: fmt.Sprintf("Messages:\n%s\n\nQuestion: %s", qaContext, question),
		}},
		Temperature: &temp,
	})
	if err != nil {
		zap.L().Warn("qa: anthropic unavailable, falling back", zap.Error(err))
		return "", false
	}
	resp.Usage.LogCost(s.model)

	text := strings.TrimSpace(resp.Text())
	if text == "" || strings.EqualFold(strings.Trim(text, "."), "unknown") {
		return "", false
	}
	return text, true
}
