package qa

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Strategy is one way of producing an answer from a question and context.
// TryAnswer reports false when the strategy has no usable answer; it never
// returns an error, failures are logged and declined.
type Strategy interface {
	Name() string
	TryAnswer(ctx context.Context, question, qaContext string) (string, bool)
}

// Chain tries its strategies in order and returns the first answer. The
// rule-based strategy always runs last, so Answer never returns "".
type Chain struct {
	strategies []Strategy
}

// NewChain builds a chain from strategies, ordered by preference.
func NewChain(strategies ...Strategy) *Chain {
	var kept []Strategy
	for _, s := range strategies {
		if s == nil {
			continue
		}
		if _, ok := s.(SimpleStrategy); ok {
			continue
		}
		kept = append(kept, s)
	}
	return &Chain{strategies: append(kept, SimpleStrategy{})}
}

// Names lists the strategies in the order they are tried.
func (c *Chain) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Answer runs the chain.
func (c *Chain) Answer(ctx context.Context, question, qaContext string) string {
	for _, s := range c.strategies {
		ans, ok := s.TryAnswer(ctx, question, qaContext)
		if ok && strings.TrimSpace(ans) != "" {
			zap.L().Debug("qa: answered", zap.String("strategy", s.Name()))
			return ans
		}
		zap.L().Debug("qa: strategy declined", zap.String("strategy", s.Name()))
	}
	return AnswerSimple(question, qaContext)
}
