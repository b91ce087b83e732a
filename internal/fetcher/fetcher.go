// Package fetcher downloads remote documents over HTTP.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body. Non-2xx
	// responses are returned as errors.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
