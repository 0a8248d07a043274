// Package fetcher downloads source documents with per-host rate limiting
// and retries, and reads indicator workbooks.
package fetcher

import (
	"context"
)

// Page is a fetched document held in memory.
type Page struct {
	URL         string
	ContentType string
	Body        []byte
}

// Fetcher defines the interface for downloading remote documents.
type Fetcher interface {
	// Fetch returns the body and declared content type of url.
	Fetch(ctx context.Context, url string) (*Page, error)

	// DownloadToFile writes the body of url to path and returns bytes
	// written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}
