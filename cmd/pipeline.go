package main

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/member-qa/internal/config"
	"github.com/sells-group/member-qa/internal/feed"
	"github.com/sells-group/member-qa/internal/fetcher"
	"github.com/sells-group/member-qa/internal/qa"
	"github.com/sells-group/member-qa/internal/resilience"
	"github.com/sells-group/member-qa/pkg/anthropic"
	"github.com/sells-group/member-qa/pkg/huggingface"
	"github.com/sells-group/member-qa/pkg/localmodel"
)

// qaEnv holds the wired question-answering pipeline.
type qaEnv struct {
	Cache   *feed.Cache
	Chain   *qa.Chain
	Service *qa.Service
}

// newFeedSource returns the HTTP message source for c. A positive
// feed.rate_limit_qps caps requests to the feed host.
func newFeedSource(c *config.Config) *feed.HTTPSource {
	opts := fetcher.HTTPOptions{
		Timeout: time.Duration(c.Feed.TimeoutSecs) * time.Second,
	}
	if c.Feed.RateLimitQPS > 0 {
		if u, err := url.Parse(c.Feed.URL); err == nil && u.Host != "" {
			opts.RateLimiters = map[string]*rate.Limiter{
				u.Host: rate.NewLimiter(rate.Limit(c.Feed.RateLimitQPS), 1),
			}
		}
	}
	return feed.NewHTTPSource(c.Feed.URL, fetcher.NewHTTPFetcher(opts))
}

// newAnthropicClient returns a Claude client that never retries and gives up
// after anthropic.timeout_secs.
func newAnthropicClient(c *config.Config, opts ...option.RequestOption) anthropic.Client {
	timeout := time.Duration(c.Anthropic.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	return anthropic.NewClient(c.Anthropic.Key, append(base, opts...)...)
}

// newScoringBreaker returns the breaker guarding the hosted inference API.
// Only transient upstream failures count; a caller giving up does not.
func newScoringBreaker(c *config.Config) *resilience.CircuitBreaker {
	cfg := resilience.FromCircuitConfig(c.Breaker.FailureThreshold, c.Breaker.ResetTimeoutSecs)
	cfg.ShouldTrip = func(err error) bool {
		return !errors.Is(err, context.Canceled) && resilience.IsTransient(err)
	}
	cfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("huggingface circuit breaker state change",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return resilience.NewCircuitBreaker(cfg)
}

// buildStrategies returns the answering strategies enabled by c, in the
// order they are tried. The rule-based strategy is added by the chain.
func buildStrategies(c *config.Config) []qa.Strategy {
	var strategies []qa.Strategy

	if c.ModelScoringEnabled() {
		if c.Local.BaseURL != "" {
			client, err := localmodel.New(localmodel.Config{
				BaseURL: c.Local.BaseURL,
				Model:   c.Local.Model,
				Token:   c.Local.Token,
				Timeout: time.Duration(c.HuggingFace.TimeoutSecs) * time.Second,
			})
			if err != nil {
				zap.L().Warn("local model unavailable, skipping", zap.Error(err))
			} else {
				strategies = append(strategies, qa.NewScoringStrategy("local", &qa.LocalScorer{Client: client}, qa.Thresholds{
					MinScore:              c.Local.MinScore,
					LowScore:              c.Local.LowScore,
					DisclaimLowConfidence: c.Local.DisclaimLowConfidence,
				}))
			}
		}

		hf := huggingface.NewClient(c.HuggingFace.Key,
			huggingface.WithBaseURL(c.HuggingFace.BaseURL),
			huggingface.WithModel(c.HuggingFace.Model),
			huggingface.WithTimeout(time.Duration(c.HuggingFace.TimeoutSecs)*time.Second),
			huggingface.WithMinScore(c.HuggingFace.MinScore),
		)
		strategies = append(strategies, qa.NewScoringStrategy("huggingface", &qa.HuggingFaceScorer{
			Client:  hf,
			Breaker: newScoringBreaker(c),
		}, qa.Thresholds{MinScore: c.HuggingFace.MinScore}))
	} else {
		zap.L().Debug("MEMBERQA_HUGGINGFACE_KEY not set, model scoring disabled")
	}

	if c.Anthropic.Key != "" {
		strategies = append(strategies, qa.NewLLMStrategy(
			newAnthropicClient(c),
			c.Anthropic.Model,
			c.Anthropic.MaxTokens,
		))
	}

	return strategies
}

// buildPipeline wires the feed cache, strategies and service from c.
func buildPipeline(c *config.Config) *qaEnv {
	cache := feed.NewCache(newFeedSource(c))
	chain := qa.NewChain(buildStrategies(c)...)
	svc := qa.NewService(cache, chain, qa.ContextOptions{
		MaxLength:   c.Context.MaxLength,
		MaxMessages: c.Context.MaxMessages,
	})

	zap.L().Info("qa pipeline ready", zap.Strings("strategies", chain.Names()))
	return &qaEnv{Cache: cache, Chain: chain, Service: svc}
}
