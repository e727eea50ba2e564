package data

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const fetcherPlaylist = `#EXTM3U
#EXTINF:-1 group-title="News",CNN
http://stream.example.com/cnn
`

func newTestFetcher(t *testing.T, opts FetcherOptions) *Fetcher {
	t.Helper()

	log, _ := test.NewNullLogger()

	return NewFetcher(log, opts)
}

func TestFetch_Plain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "gzip", r.Header.Get("Accept-Encoding"))
		_, _ = w.Write([]byte(fetcherPlaylist))
	}))
	defer srv.Close()

	text, err := newTestFetcher(t, FetcherOptions{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, fetcherPlaylist, text)
}

func TestFetch_Gzip(t *testing.T) {
	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(fetcherPlaylist))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	text, err := newTestFetcher(t, FetcherOptions{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, fetcherPlaylist, text)
}

func TestFetch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, FetcherOptions{}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	require.True(t, IsStatus(err, http.StatusForbidden))
	require.False(t, IsStatus(err, http.StatusNotFound))
	require.Contains(t, err.Error(), "403")
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestFetcher(t, FetcherOptions{Timeout: time.Second}).Fetch(context.Background(), url)
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}

func TestFetch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(fetcherPlaylist))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher(t, FetcherOptions{}).Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFetch_Cache(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(fetcherPlaylist))
	}))
	defer srv.Close()

	fetcher := newTestFetcher(t, FetcherOptions{CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		text, err := fetcher.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		require.Equal(t, fetcherPlaylist, text)
	}

	require.Equal(t, int32(1), hits.Load())

	fetcher.Invalidate(srv.URL)

	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}

func TestFetch_NoCacheByDefault(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(fetcherPlaylist))
	}))
	defer srv.Close()

	fetcher := newTestFetcher(t, FetcherOptions{RateLimit: 100})

	for i := 0; i < 2; i++ {
		_, err := fetcher.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}

	require.Equal(t, int32(2), hits.Load())
}
