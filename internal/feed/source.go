// Package feed fetches the member message feed and keeps it for the
// lifetime of the process.
package feed

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/member-qa/internal/fetcher"
	"github.com/sells-group/member-qa/internal/model"
)

// DefaultURL is the public messages API.
const DefaultURL = "https://november7-730026606190.europe-west1.run.app/messages"

// Source returns the full message feed.
type Source interface {
	Fetch(ctx context.Context) ([]model.Message, error)
}

// HTTPSource reads the feed from the messages API.
type HTTPSource struct {
	url     string
	fetcher fetcher.Fetcher
}

// NewHTTPSource creates a Source backed by GET url.
func NewHTTPSource(url string, f fetcher.Fetcher) *HTTPSource {
	if url == "" {
		url = DefaultURL
	}
	return &HTTPSource{url: url, fetcher: f}
}

// Fetch downloads and decodes the message page.
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.Message, error) {
	page, err := fetcher.GetJSON[model.MessagePage](ctx, s.fetcher, s.url)
	if err != nil {
		return nil, eris.Wrap(err, "feed: fetch messages")
	}
	if page.Items == nil {
		return []model.Message{}, nil
	}
	return page.Items, nil
}
