package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/savid/iptv-catalog/internal/catalog"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	mu      sync.Mutex
	records []catalog.Record
	err     error
	calls   int
}

func (s *stubLoader) Load(_ context.Context, _ string) ([]catalog.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	return s.records, s.err
}

func (s *stubLoader) set(records []catalog.Record, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = records
	s.err = err
}

func (s *stubLoader) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

func TestReload(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := NewStore()
	loader := &stubLoader{records: storeFixture()}

	var persisted []catalog.Record

	sink := func(records []catalog.Record) error {
		persisted = records

		return nil
	}

	refresher := NewRefresher(log, loader, store, "http://example.com/list.m3u", time.Hour, sink)

	count, err := refresher.Reload(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.Equal(t, storeFixture(), persisted)

	records, ok := store.Records()
	require.True(t, ok)
	require.Len(t, records, 4)
}

func TestReload_KeepsPreviousCatalog(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := NewStore()
	loader := &stubLoader{records: storeFixture()}

	refresher := NewRefresher(log, loader, store, "http://example.com/list.m3u", time.Hour, nil)

	_, err := refresher.Reload(context.Background())
	require.NoError(t, err)

	loader.set([]catalog.Record{}, nil)

	count, err := refresher.Reload(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)

	records, _ := store.Records()
	require.Len(t, records, 4)

	loader.set([]catalog.Record{}, errors.New("boom"))

	_, err = refresher.Reload(context.Background())
	require.Error(t, err)

	records, _ = store.Records()
	require.Len(t, records, 4)
}

func TestReload_StreamFallback(t *testing.T) {
	fallback := []catalog.Record{catalog.StreamFallback("http://example.com/live.m3u8")}
	fallbackErr := fmt.Errorf("%w: %w", ErrStreamFallback, errors.New("connection refused"))

	t.Run("keeps loaded catalog", func(t *testing.T) {
		log, _ := test.NewNullLogger()
		store := NewStore()
		loader := &stubLoader{records: storeFixture()}

		var persisted []catalog.Record

		refresher := NewRefresher(log, loader, store, "http://example.com/live.m3u8", time.Hour,
			func(records []catalog.Record) error {
				persisted = records

				return nil
			})

		_, err := refresher.Reload(context.Background())
		require.NoError(t, err)

		loader.set(fallback, fallbackErr)

		count, err := refresher.Reload(context.Background())
		require.ErrorIs(t, err, ErrStreamFallback)
		require.Zero(t, count)

		records, _ := store.Records()
		require.Equal(t, storeFixture(), records)
		require.Equal(t, storeFixture(), persisted)
	})

	t.Run("used when nothing is loaded", func(t *testing.T) {
		log, _ := test.NewNullLogger()
		store := NewStore()
		loader := &stubLoader{records: fallback, err: fallbackErr}

		persisted := false

		refresher := NewRefresher(log, loader, store, "http://example.com/live.m3u8", time.Hour,
			func([]catalog.Record) error {
				persisted = true

				return nil
			})

		count, err := refresher.Reload(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, count)
		require.False(t, persisted)

		records, ok := store.Records()
		require.True(t, ok)
		require.Equal(t, fallback, records)
	})
}

func TestReload_MediaURLUpstreamFailure(t *testing.T) {
	var failing atomic.Bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		_, _ = w.Write([]byte(`#EXTM3U
#EXTINF:-1 group-title="News",CNN
http://stream.example.com/cnn
#EXTINF:-1 group-title="News",BBC
http://stream.example.com/bbc
`))
	}))
	defer srv.Close()

	log, _ := test.NewNullLogger()
	store := NewStore()
	loader := NewLoader(log, NewFetcher(log, FetcherOptions{}))

	var persisted []catalog.Record

	refresher := NewRefresher(log, loader, store, srv.URL+"/playlist.m3u8", time.Hour,
		func(records []catalog.Record) error {
			persisted = records

			return nil
		})

	count, err := refresher.Reload(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, count)

	failing.Store(true)

	_, err = refresher.Reload(context.Background())
	require.ErrorIs(t, err, ErrStreamFallback)
	require.True(t, IsStatus(err, http.StatusBadGateway))

	records, _ := store.Records()
	require.Len(t, records, 2)
	require.Len(t, persisted, 2)
}

func TestReloadNow_BypassesFetchCache(t *testing.T) {
	var entries atomic.Int32

	entries.Store(1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		body := "#EXTM3U\n"
		for i := range int(entries.Load()) {
			body += fmt.Sprintf("#EXTINF:-1 group-title=\"News\",Channel %d\nhttp://stream.example.com/%d\n", i, i)
		}

		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	log, _ := test.NewNullLogger()
	store := NewStore()
	loader := NewLoader(log, NewFetcher(log, FetcherOptions{CacheTTL: 5 * time.Minute, RateLimit: 5}))
	refresher := NewRefresher(log, loader, store, srv.URL+"/list.m3u", time.Hour, nil)

	count, err := refresher.Reload(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)

	entries.Store(2)

	// Scheduled reloads may be answered from the cache.
	count, err = refresher.Reload(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = refresher.ReloadNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, count)

	records, _ := store.Records()
	require.Len(t, records, 2)
}

func TestReload_SinkErrorIgnored(t *testing.T) {
	log, hook := test.NewNullLogger()
	store := NewStore()
	loader := &stubLoader{records: storeFixture()}

	refresher := NewRefresher(log, loader, store, "http://example.com/list.m3u", time.Hour, func([]catalog.Record) error {
		return errors.New("disk full")
	})

	count, err := refresher.Reload(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.True(t, store.HasData())
	require.Equal(t, "Failed to persist catalog", hook.LastEntry().Message)
}

func TestRefresherStartStop(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := NewStore()
	loader := &stubLoader{records: storeFixture()}

	refresher := NewRefresher(log, loader, store, "http://example.com/list.m3u", 10*time.Millisecond, nil)

	require.NoError(t, refresher.Start(context.Background()))
	require.NoError(t, refresher.Start(context.Background()))

	require.Eventually(t, func() bool {
		return loader.callCount() > 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, refresher.Stop())
	require.True(t, store.HasData())

	calls := loader.callCount()

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, calls, loader.callCount())

	require.NoError(t, refresher.Stop())
}
