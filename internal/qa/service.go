package qa

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/member-qa/internal/model"
)

// Canned answers for requests that cannot reach extraction.
const (
	NoMessagesAnswer = "No member messages are currently available."
	NoContextAnswer  = "I couldn't find any relevant information to answer your question."
)

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = eris.New("Question cannot be empty")

// FeedProvider supplies the message feed.
type FeedProvider interface {
	Messages(ctx context.Context) ([]model.Message, error)
}

// Service answers questions over the feed.
type Service struct {
	feed    FeedProvider
	chain   *Chain
	context ContextOptions
}

// NewService wires the feed and the strategy chain. A nil chain answers with
// the rule-based strategy only.
func NewService(feed FeedProvider, chain *Chain, opts ContextOptions) *Service {
	if chain == nil {
		chain = NewChain()
	}
	return &Service{feed: feed, chain: chain, context: opts.withDefaults()}
}

// Ask answers question. It returns ErrEmptyQuestion without touching the
// feed for a blank question, and the feed's error if it cannot be loaded.
// Every other outcome is an answer.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	start := time.Now()
	messages, err := s.feed.Messages(ctx)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return NoMessagesAnswer, nil
	}

	qaContext := BuildContext(question, messages, s.context)
	if qaContext == "" {
		return NoContextAnswer, nil
	}

	answer := s.chain.Answer(ctx, question, qaContext)
	zap.L().Info("qa: question answered",
		zap.Int("feed_size", len(messages)),
		zap.Int("context_len", len(qaContext)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return answer, nil
}
