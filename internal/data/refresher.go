package data

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/savid/iptv-catalog/internal/catalog"
	"github.com/sirupsen/logrus"
)

// RecordLoader produces the catalog for a playlist URL.
type RecordLoader interface {
	Load(ctx context.Context, playlistURL string) ([]catalog.Record, error)
}

// Sink receives every successfully loaded catalog, e.g. for persistence.
type Sink func(records []catalog.Record) error

// Refresher periodically reloads the catalog into a Store.
type Refresher struct {
	log      logrus.FieldLogger
	loader   RecordLoader
	store    *Store
	url      string
	interval time.Duration
	sink     Sink

	reloadMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRefresher creates a new data refresher. sink may be nil.
func NewRefresher(
	log logrus.FieldLogger,
	loader RecordLoader,
	store *Store,
	playlistURL string,
	interval time.Duration,
	sink Sink,
) *Refresher {
	return &Refresher{
		log:      log.WithField("component", "refresher"),
		loader:   loader,
		store:    store,
		url:      playlistURL,
		interval: interval,
		sink:     sink,
	}
}

// Reload loads the catalog once. An empty result or a failed fetch leaves the
// store untouched so a temporarily broken upstream does not wipe a working
// catalog. A direct stream fallback is only used while no catalog is loaded,
// and is never passed to the sink.
func (r *Refresher) Reload(ctx context.Context) (int, error) {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	records, err := r.loader.Load(ctx, r.url)

	fallback := errors.Is(err, ErrStreamFallback)
	if err != nil && (!fallback || r.hasCatalog()) {
		return 0, err
	}

	if len(records) == 0 {
		r.log.Warn("Playlist has no content, keeping previous catalog")

		return 0, nil
	}

	r.store.Set(records)

	if fallback {
		r.log.WithError(err).Warn("Serving playlist URL as a direct stream")

		return len(records), nil
	}

	if r.sink != nil {
		if err := r.sink(records); err != nil {
			r.log.WithError(err).Warn("Failed to persist catalog")
		}
	}

	return len(records), nil
}

// ReloadNow drops any cached playlist response and reloads the catalog from
// upstream.
func (r *Refresher) ReloadNow(ctx context.Context) (int, error) {
	if inv, ok := r.loader.(Invalidator); ok {
		inv.Invalidate(r.url)
	}

	return r.Reload(ctx)
}

func (r *Refresher) hasCatalog() bool {
	records, ok := r.store.Records()

	return ok && len(records) > 0
}

// Start begins the refresh loop.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return nil // Already running
	}

	refreshCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.run(refreshCtx, r.done)

	r.log.WithField("interval", r.interval).Info("Data refresher started")

	return nil
}

// Stop stops the refresh loop.
func (r *Refresher) Stop() error {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()

		if done != nil {
			<-done
		}
	}

	r.log.Info("Data refresher stopped")

	return nil
}

func (r *Refresher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	r.log.Info("Refreshing data")

	count, err := r.Reload(ctx)
	if err != nil {
		r.log.WithError(err).Error("Failed to refresh data")

		return
	}

	r.log.WithField("records", count).Info("Data refreshed successfully")
}
