// Package fetch downloads a project's documentation catalog (index.txt).
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DefaultTimeout is the default timeout for catalog requests.
const DefaultTimeout = 60 * time.Second

// IndexFile is the catalog file name under a project root.
const IndexFile = "index.txt"

// ErrEmptyIndex is returned when the catalog exists but has no content.
var ErrEmptyIndex = errors.New("empty documentation index")

// ProjectRoot normalizes a documentation root so it ends with a slash.
func ProjectRoot(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}

// IndexURL returns the catalog URL for a documentation root.
func IndexURL(root string) string {
	return ProjectRoot(root) + IndexFile
}

// Fetcher retrieves catalogs over HTTP.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the request timeout. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultTimeout,
		userAgent: "doclink/0.1.0",
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}
	return f
}

// FetchIndex downloads the catalog of the documentation root.
func (f *Fetcher) FetchIndex(ctx context.Context, root string) ([]byte, error) {
	return f.Fetch(ctx, IndexURL(root))
}

// Fetch downloads a catalog from url. zstd-compressed responses, signalled by
// Content-Encoding or a .zst suffix, are decompressed.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data []byte
	if resp.Header.Get("Content-Encoding") == "zstd" || strings.HasSuffix(url, ".zst") {
		data, err = decompress(resp.Body)
	} else {
		data, err = io.ReadAll(resp.Body)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%s: %w", url, ErrEmptyIndex)
	}
	return data, nil
}

func decompress(r io.Reader) ([]byte, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decompressing index: %w", err)
	}
	return data, nil
}
