// Package huggingface provides a client for extractive question answering on
// the Hugging Face Inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/member-qa/internal/resilience"
)

const (
	defaultBaseURL = "https://api-inference.huggingface.co"
	// DefaultModel is a SQuAD2-tuned extractive QA model.
	DefaultModel = "deepset/roberta-base-squad2"
)

// ErrNoAnswer is returned when every endpoint and payload variant responded
// without a usable answer.
var ErrNoAnswer = eris.New("huggingface: no answer in any response")

// Client defines the question-answering operations.
type Client interface {
	// Answer extracts an answer span for question from context.
	Answer(ctx context.Context, question, context string) (*Answer, error)
}

// Answer is an extracted answer and the model's confidence.
type Answer struct {
	Text  string  `json:"answer"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// QAInputs is the question/context pair sent to the model.
type QAInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type wrappedPayload struct {
	Inputs QAInputs `json:"inputs"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL. Empty keeps the default.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithModel sets the model repository id.
func WithModel(model string) Option {
	return func(c *httpClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient sets a custom HTTP client. Nil keeps the default.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout. It applies to a copy of the HTTP
// client, so a client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMinScore makes Answer keep trying the remaining endpoint and payload
// variants while answers score at or below min. The best answer seen is
// returned if none clears it.
func WithMinScore(minScore float64) Option {
	return func(c *httpClient) {
		c.minScore = minScore
	}
}

type httpClient struct {
	apiKey   string
	baseURL  string
	model    string
	minScore float64
	timeout  time.Duration
	http     *http.Client
}

// NewClient creates a new Inference API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		model:    DefaultModel,
		minScore: -1,
	}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.http == nil:
		timeout := c.timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		c.http = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	case c.timeout > 0:
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

func (c *httpClient) endpoints() []string {
	return []string{
		fmt.Sprintf("%s/models/%s", c.baseURL, c.model),
		fmt.Sprintf("%s/pipeline/question-answering/%s", c.baseURL, c.model),
	}
}

// Answer tries each endpoint with the flat payload and then the
// inputs-wrapped payload, returning the first well-formed answer that scores
// above the minimum score.
func (c *httpClient) Answer(ctx context.Context, question, qaContext string) (*Answer, error) {
	inputs := QAInputs{Question: question, Context: qaContext}
	payloads := []any{inputs, wrappedPayload{Inputs: inputs}}

	var (
		best    *Answer
		lastErr error
	)
	for _, endpoint := range c.endpoints() {
		for _, payload := range payloads {
			body, status, err := c.post(ctx, endpoint, payload)
			if err != nil {
				if ctx.Err() != nil {
					return nil, eris.Wrap(ctx.Err(), "huggingface: answer")
				}
				lastErr = err
				continue
			}
			if status != http.StatusOK {
				err := eris.Errorf("huggingface: status %d from %s: %s", status, endpoint, truncate(body, 200))
				if resilience.IsTransientHTTPStatus(status) {
					lastErr = resilience.NewTransientError(err, status)
				} else {
					lastErr = err
				}
				continue
			}
			ans, ok := ParseAnswer(body)
			if !ok {
				zap.L().Debug("huggingface: response without answer",
					zap.String("endpoint", endpoint),
					zap.String("body", truncate(body, 200)),
				)
				continue
			}
			if ans.Score > c.minScore {
				return ans, nil
			}
			if best == nil || ans.Score > best.Score {
				best = ans
			}
		}
	}

	if best != nil {
		return best, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoAnswer
}

func (c *httpClient) post(ctx context.Context, endpoint string, payload any) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, eris.Wrap(err, "huggingface: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, 0, eris.Wrap(err, "huggingface: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "huggingface: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "huggingface: read response body")
	}
	return body, resp.StatusCode, nil
}

// ParseAnswer extracts an answer from any of the response shapes the
// Inference API produces: a flat object with "answer" (and optional "score",
// default 1.0), an object with "text" and no "error", or a list whose first
// element carries "answer".
func ParseAnswer(body []byte) (*Answer, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		return answerFromObject(obj)
	}

	var list []map[string]json.RawMessage
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
		if _, ok := list[0]["answer"]; ok {
			return answerFromObject(list[0])
		}
	}
	return nil, false
}

func answerFromObject(obj map[string]json.RawMessage) (*Answer, bool) {
	if raw, ok := obj["answer"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil || text == "" {
			return nil, false
		}
		ans := &Answer{Text: text, Score: 1.0}
		if s, ok := obj["score"]; ok {
			_ = json.Unmarshal(s, &ans.Score)
		}
		if v, ok := obj["start"]; ok {
			_ = json.Unmarshal(v, &ans.Start)
		}
		if v, ok := obj["end"]; ok {
			_ = json.Unmarshal(v, &ans.End)
		}
		return ans, true
	}

	if _, hasErr := obj["error"]; hasErr {
		return nil, false
	}
	if raw, ok := obj["text"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil || text == "" {
			return nil, false
		}
		return &Answer{Text: text, Score: 1.0}, true
	}
	return nil, false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
