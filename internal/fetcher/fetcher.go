// Package fetcher downloads remote JSON documents for the market data
// clients and parses tabular research files.
package fetcher

import (
	"context"
	"io"
	"net/http"
)

// Getter fetches a URL and returns the response body of a successful
// request. Implementations own throttling and retries.
type Getter interface {
	Get(ctx context.Context, url string, header http.Header) (io.ReadCloser, error)
}
