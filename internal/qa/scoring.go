package qa

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/member-qa/internal/resilience"
	"github.com/sells-group/member-qa/pkg/huggingface"
	"github.com/sells-group/member-qa/pkg/localmodel"
)

// LowConfidencePrefix introduces an answer accepted below the main threshold.
const LowConfidencePrefix = "I found some information, but the confidence is low: "

// Prediction is a scored answer candidate.
type Prediction struct {
	Answer string
	Score  float64
}

// Scorer produces a scored answer for a question over a context.
type Scorer interface {
	Score(ctx context.Context, question, qaContext string) (*Prediction, error)
}

// Thresholds decides which predictions are accepted. A prediction scoring
// above MinScore is returned as-is. With DisclaimLowConfidence set, one
// scoring above LowScore is returned behind LowConfidencePrefix.
type Thresholds struct {
	MinScore              float64
	LowScore              float64
	DisclaimLowConfidence bool
}

// ScoringStrategy adapts a Scorer to the Strategy interface.
type ScoringStrategy struct {
	name       string
	scorer     Scorer
	thresholds Thresholds
}

// NewScoringStrategy creates a strategy named name around scorer.
func NewScoringStrategy(name string, scorer Scorer, th Thresholds) *ScoringStrategy {
	return &ScoringStrategy{name: name, scorer: scorer, thresholds: th}
}

// Name implements Strategy.
func (s *ScoringStrategy) Name() string { return s.name }

// TryAnswer implements Strategy.
func (s *ScoringStrategy) TryAnswer(ctx context.Context, question, qaContext string) (string, bool) {
	if s.scorer == nil {
		return "", false
	}

	p, err := s.scorer.Score(ctx, question, qaContext)
	if err != nil {
		zap.L().Warn("qa: scoring unavailable, falling back",
			zap.String("strategy", s.name),
			zap.Error(err),
		)
		return "", false
	}
	if p == nil {
		return "", false
	}

	answer := strings.TrimSpace(p.Answer)
	if answer == "" {
		return "", false
	}
	if p.Score > s.thresholds.MinScore {
		return answer, true
	}
	if s.thresholds.DisclaimLowConfidence && p.Score > s.thresholds.LowScore {
		return LowConfidencePrefix + answer, true
	}

	zap.L().Debug("qa: prediction below threshold",
		zap.String("strategy", s.name),
		zap.Float64("score", p.Score),
		zap.Float64("min_score", s.thresholds.MinScore),
	)
	return "", false
}

// HuggingFaceScorer scores with the remote Inference API. Repeated transient
// failures open the breaker, after which calls are skipped until it resets.
type HuggingFaceScorer struct {
	Client  huggingface.Client
	Breaker *resilience.CircuitBreaker
}

// Score implements Scorer.
func (h *HuggingFaceScorer) Score(ctx context.Context, question, qaContext string) (*Prediction, error) {
	call := func(ctx context.Context) (*huggingface.Answer, error) {
		return h.Client.Answer(ctx, question, qaContext)
	}

	var (
		ans *huggingface.Answer
		err error
	)
	if h.Breaker != nil {
		ans, err = resilience.ExecuteVal(ctx, h.Breaker, call)
	} else {
		ans, err = call(ctx)
	}
	if err != nil || ans == nil {
		return nil, err
	}
	return &Prediction{Answer: ans.Text, Score: ans.Score}, nil
}

// LocalScorer scores with a locally served model.
type LocalScorer struct {
	Client localmodel.Client
}

// Score implements Scorer.
func (l *LocalScorer) Score(ctx context.Context, question, qaContext string) (*Prediction, error) {
	ans, err := l.Client.Answer(ctx, question, qaContext)
	if err != nil || ans == nil {
		return nil, err
	}
	return &Prediction{Answer: ans.Text, Score: ans.Score}, nil
}
