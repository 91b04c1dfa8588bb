// Package fetch provides functionality for fetching crate archives from a
// registry.
package fetch

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/cratedl/cratedl/internal/layout"
)

const (
	// DefaultRegistry is the public crates.io registry.
	DefaultRegistry = "https://crates.io"
)

// Doer issues a single HTTP request. Satisfied by *http.Client; tests
// substitute a stub so the download loop runs without network access.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError reports a non-success HTTP status for a download URL.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Fetcher downloads crate archives from a registry or mirror.
type Fetcher struct {
	// BaseURL is the registry base URL.
	BaseURL string
	// Layout determines how download paths are constructed.
	Layout layout.Layout
	// Client issues the HTTP requests.
	Client Doer
	// Verbose enables verbose output.
	Verbose bool
}

// NewFetcher creates a Fetcher for the given registry base URL.
func NewFetcher(baseURL string, lay layout.Layout) *Fetcher {
	return &Fetcher{
		BaseURL: baseURL,
		Layout:  lay,
		Client:  &http.Client{},
	}
}

// URL constructs the download URL for a package.
func (f *Fetcher) URL(name, version string) string {
	return strings.TrimSuffix(f.BaseURL, "/") + f.Layout.URLPath(name, version)
}

// Fetch issues a single GET for a crate archive. No retries are made.
// On success it returns the response body and the content length (-1 when
// unknown); the caller must close the body. A non-2xx status yields a
// *StatusError.
func (f *Fetcher) Fetch(name, version string) (io.ReadCloser, int64, error) {
	downloadURL := f.URL(name, version)

	if f.Verbose {
		fmt.Fprintf(os.Stderr, "Downloading %s@%s from %s\n", name, version, downloadURL)
	}

	req, err := http.NewRequest(http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching crate: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, 0, &StatusError{URL: downloadURL, Code: resp.StatusCode}
	}

	return resp.Body, resp.ContentLength, nil
}
