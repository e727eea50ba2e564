// Package data provides fetching, loading and in-memory storage of playlist
// catalogs.
package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/maypok86/otter/v2"
	"github.com/savid/iptv-catalog/internal/metrics"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

const (
	defaultTimeout = 2 * time.Minute
	maxBodySize    = 100 * 1024 * 1024 // 100MB for large VOD playlists
	maxCachedLists = 64
)

// StatusError is returned when the upstream answers with a non-200 status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	// Timeout bounds a single request. Zero uses the default.
	Timeout time.Duration
	// CacheTTL keeps successful responses for reuse. Zero disables caching.
	CacheTTL time.Duration
	// RateLimit caps outbound requests per second. Zero disables limiting.
	RateLimit int
}

// Fetcher retrieves playlist text from remote URLs.
type Fetcher struct {
	log        logrus.FieldLogger
	httpClient *http.Client
	limiter    ratelimit.Limiter
	cache      *otter.Cache[string, string]
}

// NewFetcher creates a new playlist fetcher.
func NewFetcher(log logrus.FieldLogger, opts FetcherOptions) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	f := &Fetcher{
		log: log.WithField("component", "fetcher"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: ratelimit.NewUnlimited(),
	}

	if opts.RateLimit > 0 {
		f.limiter = ratelimit.New(opts.RateLimit)
	}

	if opts.CacheTTL > 0 {
		f.cache = otter.Must(&otter.Options[string, string]{
			MaximumSize:      maxCachedLists,
			ExpiryCalculator: otter.ExpiryWriting[string, string](opts.CacheTTL),
		})
	}

	return f
}

// Fetch returns the body of url as text. Non-200 responses are reported as
// *StatusError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.cache != nil {
		if text, ok := f.cache.GetIfPresent(url); ok {
			f.log.WithField("size", len(text)).Debug("Serving playlist from cache")

			return text, nil
		}
	}

	f.limiter.Take()

	start := time.Now()
	data, err := f.fetch(ctx, url)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		return "", err
	}

	text := string(data)

	if f.cache != nil {
		f.cache.Set(url, text)
	}

	return text, nil
}

// Invalidate drops any cached response for url.
func (f *Fetcher) Invalidate(url string) {
	if f.cache != nil {
		f.cache.Invalidate(url)
	}
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Accept gzip encoding
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var reader io.Reader = resp.Body

	// Handle gzip encoding
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gzReader, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", gzErr)
		}
		defer gzReader.Close()

		reader = gzReader
	}

	limitedReader := io.LimitReader(reader, maxBodySize)

	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	f.log.WithField("size", len(data)).Debug("Fetched data")

	return data, nil
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError

	return errors.As(err, &statusErr) && statusErr.Code == code
}
