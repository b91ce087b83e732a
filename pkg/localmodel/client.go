// Package localmodel answers questions with a locally served model behind an
// OpenAI-compatible API (llama.cpp server, Ollama, vLLM).
package localmodel

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Unknown is the reply the model is instructed to give when the context does
// not contain the answer.
const Unknown = "UNKNOWN"

// Client defines the local question-answering operation.
type Client interface {
	Answer(ctx context.Context, question, qaContext string) (*Answer, error)
}

// Answer is the model's reply. Generative models expose no span confidence,
// so Score is 1 for an answer and 0 when the model declined.
type Answer struct {
	Text  string
	Score float64
}

// Config configures the local model endpoint.
type Config struct {
	BaseURL   string
	Model     string
	Token     string
	MaxTokens int
	Timeout   time.Duration
}

type client struct {
	llm       llms.Model
	maxTokens int
}

// New creates a client for the OpenAI-compatible server at cfg.BaseURL.
func New(cfg Config) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, eris.New("localmodel: base url is required")
	}
	token := cfg.Token
	if token == "" {
		// Local servers ignore the key, but the client refuses to start without one.
		token = "local"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	opts := []openai.Option{
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, eris.Wrap(err, "localmodel: create client")
	}
	return newWithModel(llm, cfg.MaxTokens), nil
}

func newWithModel(llm llms.Model, maxTokens int) *client {
	if maxTokens <= 0 {
		maxTokens = 64
	}
	return &client{llm: llm, maxTokens: maxTokens}
}

func (c *client) Answer(ctx context.Context, question, qaContext string) (*Answer, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, BuildPrompt(question, qaContext),
		llms.WithTemperature(0),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return nil, eris.Wrap(err, "localmodel: generate")
	}

	text := CleanAnswer(out)
	if text == "" || strings.EqualFold(text, Unknown) {
		return &Answer{}, nil
	}
	return &Answer{Text: text, Score: 1}, nil
}

// BuildPrompt asks for the shortest literal answer found in the context.
func BuildPrompt(question, qaContext string) string {
	return fmt.Sprintf(`Answer the question using only the member messages below.
Reply with the shortest phrase from the messages that answers it, with no explanation.
If the messages do not contain the answer, reply with %s.

Messages:
%s

Question: %s
Answer:`, Unknown, qaContext, question)
}

// CleanAnswer strips whitespace, wrapping quotes and an "Answer:" prefix.
func CleanAnswer(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if len(s) >= 7 && strings.EqualFold(s[:7], "answer:") {
		s = strings.TrimSpace(s[7:])
	}
	s = strings.Trim(s, "\"'`")
	return strings.TrimSpace(s)
}
