package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/savid/iptv-catalog/internal/catalog"
	"github.com/savid/iptv-catalog/internal/config"
	"github.com/savid/iptv-catalog/internal/data"
	"github.com/savid/iptv-catalog/internal/quality"
	"github.com/savid/iptv-catalog/internal/state"
	"github.com/sirupsen/logrus"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 30 * time.Second
	statusInterval  = 10 * time.Minute
)

// Server provides the HTTP server with lifecycle management.
type Server struct {
	log       logrus.FieldLogger
	cfg       *config.Config
	store     *data.Store
	refresher *data.Refresher
	server    *http.Server

	preferences *state.Preferences
	favorites   *state.Favorites
	history     *state.History
	playlists   *state.PlaylistCache

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewServer creates a new server instance. cfg must already be validated.
func NewServer(log logrus.FieldLogger, cfg *config.Config) *Server {
	defaultQuality, err := quality.Parse(cfg.Quality)
	if err != nil {
		defaultQuality = quality.Auto
	}

	s := &Server{
		log:         log.WithField("component", "server"),
		cfg:         cfg,
		store:       data.NewStore(),
		preferences: state.NewPreferences(cfg.StateDir, defaultQuality),
		favorites:   state.NewFavorites(cfg.StateDir),
		history:     state.NewHistory(cfg.StateDir),
		playlists:   state.NewPlaylistCache(cfg.StateDir),
	}

	fetcher := data.NewFetcher(log, data.FetcherOptions{
		Timeout:   cfg.FetchTimeout,
		CacheTTL:  cfg.CacheTTL,
		RateLimit: cfg.RateLimit,
	})
	loader := data.NewLoader(log, fetcher)

	s.refresher = data.NewRefresher(
		log,
		loader,
		s.store,
		cfg.Source.PlaylistURL(),
		cfg.RefreshInterval,
		func(records []catalog.Record) error {
			return s.playlists.Store(cfg.Source, records)
		},
	)

	return s
}

// Start starts the server.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New("server already running")
	}

	// Create cancellable context
	serverCtx, cancel := context.WithCancel(ctx)

	s.loadState()

	// Fetch initial data
	s.log.Info("Fetching initial catalog")

	if _, err := s.refresher.Reload(serverCtx); err != nil {
		if !s.store.HasData() {
			cancel()

			return fmt.Errorf("failed to fetch initial catalog: %w", err)
		}

		s.log.WithError(err).Warn("Initial fetch failed, serving cached catalog")
	}

	if !s.store.HasData() {
		s.store.Set([]catalog.Record{})
	}

	// Start data refresher
	if err := s.refresher.Start(serverCtx); err != nil {
		cancel()

		return fmt.Errorf("failed to start refresher: %w", err)
	}

	s.cancel = cancel
	s.done = make(chan struct{})

	// Start status logger
	go s.startStatusLogger(serverCtx)

	// Create routes
	routes := NewRoutes(s.log, s.store, s.refresher, s.preferences, s.favorites, s.history)

	// Create HTTP server
	s.server = &http.Server{
		Addr:         s.cfg.ListenAddr(),
		Handler:      routes.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	// Start HTTP server
	go s.run(serverCtx, s.done)

	s.log.WithField("addr", s.cfg.ListenAddr()).Info("Server started")

	return nil
}

// Stop stops the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	// Cancel context
	cancel()

	// Wait for server to stop
	if done != nil {
		<-done
	}

	// Stop refresher
	if err := s.refresher.Stop(); err != nil {
		s.log.WithError(err).Warn("Failed to stop refresher")
	}

	s.log.Info("Server stopped")

	return nil
}

// loadState reads the persisted stores and warms the catalog from the
// playlist cache. A store that cannot be read starts empty.
func (s *Server) loadState() {
	loaders := []struct {
		name string
		load func() error
	}{
		{name: "preferences", load: s.preferences.Load},
		{name: "favorites", load: s.favorites.Load},
		{name: "history", load: s.history.Load},
		{name: "playlist", load: s.playlists.Load},
	}

	for _, l := range loaders {
		if err := l.load(); err != nil {
			s.log.WithError(err).WithField("store", l.name).Warn("Failed to load state, starting empty")
		}
	}

	snapshot, ok := s.playlists.Snapshot(s.cfg.Source)
	if !ok || len(snapshot.Records) == 0 {
		return
	}

	s.store.Set(snapshot.Records)

	s.log.WithFields(logrus.Fields{
		"records":  len(snapshot.Records),
		"saved_at": snapshot.SavedAt,
	}).Info("Warmed catalog from playlist cache")
}

func (s *Server) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		s.log.Info("Shutting down server")
	case err := <-errCh:
		if err != nil {
			s.log.WithError(err).Error("Server error")
		}

		return
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.WithError(err).Warn("Server shutdown error")
	}
}

// startStatusLogger logs a catalog summary periodically.
func (s *Server) startStatusLogger(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	// Log immediately on start
	s.logCatalogStatus()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logCatalogStatus()
		}
	}
}

func (s *Server) logCatalogStatus() {
	records, ok := s.store.Records()
	if !ok || len(records) == 0 {
		s.log.Warn("No catalog data available for status")

		return
	}

	split := catalog.SplitByType(records)

	s.log.WithFields(logrus.Fields{
		"live":       len(split.Live),
		"movies":     len(split.Movies),
		"series":     len(split.Series),
		"categories": len(s.store.Categories()),
		"last_sync":  s.store.LastSync().Format(time.RFC3339),
	}).Info("Catalog status")
}
