// Package server provides the HTTP server and routing.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/savid/iptv-catalog/internal/catalog"
	"github.com/savid/iptv-catalog/internal/data"
	"github.com/savid/iptv-catalog/internal/m3u"
	"github.com/savid/iptv-catalog/internal/quality"
	"github.com/savid/iptv-catalog/internal/state"
	"github.com/sirupsen/logrus"
)

const maxRequestBody = 64 * 1024

// Reloader triggers an immediate catalog reload that bypasses any cached
// upstream response.
type Reloader interface {
	ReloadNow(ctx context.Context) (int, error)
}

// categoryEntry caches a resolved category name for one catalog sync.
type categoryEntry struct {
	name     string
	syncedAt time.Time
}

// Routes sets up all HTTP routes.
type Routes struct {
	log         logrus.FieldLogger
	store       *data.Store
	reloader    Reloader
	preferences *state.Preferences
	favorites   *state.Favorites
	history     *state.History

	// Resolved slugs of the current catalog. Unknown slugs are never cached
	// and the map is cleared when the catalog is replaced.
	categories   *xsync.MapOf[string, categoryEntry]
	categoryMu   sync.Mutex
	categorySync time.Time
}

// NewRoutes creates a new routes instance.
func NewRoutes(
	log logrus.FieldLogger,
	store *data.Store,
	reloader Reloader,
	preferences *state.Preferences,
	favorites *state.Favorites,
	history *state.History,
) *Routes {
	return &Routes{
		log:         log.WithField("component", "routes"),
		store:       store,
		reloader:    reloader,
		preferences: preferences,
		favorites:   favorites,
		history:     history,
		categories:  xsync.NewMapOf[string, categoryEntry](),
	}
}

// Handler returns the main HTTP handler with all routes.
func (r *Routes) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", r.handleHealth).Methods(http.MethodGet)

	// Catalog
	router.HandleFunc("/content", r.handleContent).Methods(http.MethodGet)
	router.HandleFunc("/content/{id}", r.handleContentByID).Methods(http.MethodGet)
	router.HandleFunc("/content/{id}/stream", r.handleStream).Methods(http.MethodGet)
	router.HandleFunc("/categories", r.handleCategories).Methods(http.MethodGet)
	router.HandleFunc("/categories/{slug}", r.handleCategory).Methods(http.MethodGet)
	router.HandleFunc("/playlist.m3u", r.handlePlaylist).Methods(http.MethodGet)
	router.HandleFunc("/reload", r.handleReload).Methods(http.MethodPost)

	// User state
	router.HandleFunc("/preferences/quality", r.handleGetQuality).Methods(http.MethodGet)
	router.HandleFunc("/preferences/quality", r.handleSetQuality).Methods(http.MethodPut)
	router.HandleFunc("/favorites", r.handleFavorites).Methods(http.MethodGet)
	router.HandleFunc("/favorites/{id}", r.handleAddFavorite).Methods(http.MethodPut)
	router.HandleFunc("/favorites/{id}", r.handleRemoveFavorite).Methods(http.MethodDelete)
	router.HandleFunc("/favorites/{id}/toggle", r.handleToggleFavorite).Methods(http.MethodPost)
	router.HandleFunc("/history", r.handleHistory).Methods(http.MethodGet)
	router.HandleFunc("/history", r.handleSaveProgress).Methods(http.MethodPost)
	router.HandleFunc("/history", r.handleClearHistory).Methods(http.MethodDelete)
	router.HandleFunc("/history/{id}", r.handleProgress).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Wrap with logging middleware
	return r.loggingMiddleware(router)
}

func (r *Routes) handleHealth(w http.ResponseWriter, _ *http.Request) {
	records, _ := r.store.Records()

	status := struct {
		Status   string `json:"status"`
		HasData  bool   `json:"hasData"`
		LastSync string `json:"lastSync"`
		Records  int    `json:"records"`
	}{
		Status:   "ok",
		HasData:  r.store.HasData(),
		LastSync: r.store.LastSync().UTC().Format(time.RFC3339),
		Records:  len(records),
	}

	r.writeJSON(w, http.StatusOK, status)
}

func (r *Routes) handleContent(w http.ResponseWriter, req *http.Request) {
	records, ok := r.store.Records()
	if !ok {
		http.Error(w, "No catalog available", http.StatusServiceUnavailable)

		return
	}

	query := req.URL.Query()

	if raw := query.Get("type"); raw != "" {
		t, err := catalog.ParseType(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}

		records = catalog.FilterByType(records, t)
	}

	if category := query.Get("category"); category != "" {
		records = catalog.FilterByCategory(records, category)
	}

	records = catalog.Search(records, query.Get("q"))

	r.writeJSON(w, http.StatusOK, records)
}

func (r *Routes) handleContentByID(w http.ResponseWriter, req *http.Request) {
	record, ok := r.store.Find(mux.Vars(req)["id"])
	if !ok {
		http.NotFound(w, req)

		return
	}

	r.writeJSON(w, http.StatusOK, record)
}

func (r *Routes) handleStream(w http.ResponseWriter, req *http.Request) {
	record, ok := r.store.Find(mux.Vars(req)["id"])
	if !ok {
		http.NotFound(w, req)

		return
	}

	q := r.preferences.Quality()

	if raw := req.URL.Query().Get("quality"); raw != "" {
		parsed, err := quality.Parse(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}

		q = parsed
	}

	r.writeJSON(w, http.StatusOK, struct {
		ID      string          `json:"id"`
		Quality quality.Quality `json:"quality"`
		URL     string          `json:"url"`
	}{
		ID:      record.ID,
		Quality: q,
		URL:     quality.Rewrite(record.URL, q),
	})
}

func (r *Routes) handleCategories(w http.ResponseWriter, req *http.Request) {
	categories := r.store.Categories()

	if raw := req.URL.Query().Get("type"); raw != "" {
		t, err := catalog.ParseType(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}

		filtered := make([]catalog.Category, 0, len(categories))

		for _, c := range categories {
			if c.Type == t {
				filtered = append(filtered, c)
			}
		}

		categories = filtered
	}

	r.writeJSON(w, http.StatusOK, categories)
}

func (r *Routes) handleCategory(w http.ResponseWriter, req *http.Request) {
	slug := mux.Vars(req)["slug"]

	name, ok := r.categoryName(slug)
	if !ok {
		http.NotFound(w, req)

		return
	}

	records, _ := r.store.ByCategorySlug(slug)

	r.writeJSON(w, http.StatusOK, struct {
		Name    string           `json:"name"`
		Slug    string           `json:"slug"`
		Records []catalog.Record `json:"records"`
	}{
		Name:    name,
		Slug:    slug,
		Records: records,
	})
}

// categoryName resolves slug to a category name of the current catalog.
func (r *Routes) categoryName(slug string) (string, bool) {
	syncedAt := r.syncCategories()

	if entry, ok := r.categories.Load(slug); ok && entry.syncedAt.Equal(syncedAt) {
		return entry.name, true
	}

	for _, c := range r.store.Categories() {
		if c.Slug != slug {
			continue
		}

		r.log.WithFields(logrus.Fields{
			"category": c.Name,
			"slug":     slug,
		}).Debug("Resolved category slug")

		r.categories.Store(slug, categoryEntry{name: c.Name, syncedAt: syncedAt})

		return c.Name, true
	}

	return "", false
}

// syncCategories clears the slug cache when the catalog has been replaced
// since the last lookup and returns the current sync time.
func (r *Routes) syncCategories() time.Time {
	syncedAt := r.store.LastSync()

	r.categoryMu.Lock()
	defer r.categoryMu.Unlock()

	if !r.categorySync.Equal(syncedAt) {
		r.categories.Clear()
		r.categorySync = syncedAt
	}

	return syncedAt
}

func (r *Routes) handlePlaylist(w http.ResponseWriter, req *http.Request) {
	records, ok := r.store.Records()
	if !ok {
		http.Error(w, "No catalog available", http.StatusServiceUnavailable)

		return
	}

	if raw := req.URL.Query().Get("type"); raw != "" {
		t, err := catalog.ParseType(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}

		records = catalog.FilterByType(records, t)
	}

	encoded := m3u.Encode(catalog.ToEntries(records))

	w.Header().Set("Content-Type", "application/x-mpegurl")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(encoded)); err != nil {
		r.log.WithError(err).Error("Failed to write M3U response")
	}
}

func (r *Routes) handleReload(w http.ResponseWriter, req *http.Request) {
	count, err := r.reloader.ReloadNow(req.Context())
	if err != nil {
		r.log.WithError(err).Warn("Manual reload failed")
		http.Error(w, err.Error(), http.StatusBadGateway)

		return
	}

	r.writeJSON(w, http.StatusOK, struct {
		Records int `json:"records"`
	}{Records: count})
}

type qualityBody struct {
	Quality string `json:"quality"`
}

func (r *Routes) handleGetQuality(w http.ResponseWriter, _ *http.Request) {
	r.writeJSON(w, http.StatusOK, qualityBody{Quality: r.preferences.Quality().String()})
}

func (r *Routes) handleSetQuality(w http.ResponseWriter, req *http.Request) {
	var body qualityBody

	if err := decodeBody(req, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	q, err := quality.Parse(body.Quality)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	if err := r.preferences.SetQuality(q); err != nil {
		r.serverError(w, "Failed to save quality preference", err)

		return
	}

	r.writeJSON(w, http.StatusOK, qualityBody{Quality: q.String()})
}

func (r *Routes) handleFavorites(w http.ResponseWriter, _ *http.Request) {
	r.writeJSON(w, http.StatusOK, r.favorites.List())
}

func (r *Routes) handleAddFavorite(w http.ResponseWriter, req *http.Request) {
	record, ok := r.store.Find(mux.Vars(req)["id"])
	if !ok {
		http.NotFound(w, req)

		return
	}

	if err := r.favorites.Add(record.ID, record.Type()); err != nil {
		r.serverError(w, "Failed to save favorite", err)

		return
	}

	r.writeJSON(w, http.StatusOK, r.favorites.List())
}

func (r *Routes) handleRemoveFavorite(w http.ResponseWriter, req *http.Request) {
	if err := r.favorites.Remove(mux.Vars(req)["id"]); err != nil {
		r.serverError(w, "Failed to remove favorite", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (r *Routes) handleToggleFavorite(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	record, ok := r.store.Find(id)
	if !ok && !r.favorites.IsFavorite(id) {
		http.NotFound(w, req)

		return
	}

	favorite, err := r.favorites.Toggle(id, record.Type())
	if err != nil {
		r.serverError(w, "Failed to save favorite", err)

		return
	}

	r.writeJSON(w, http.StatusOK, struct {
		ContentID string `json:"contentId"`
		Favorite  bool   `json:"favorite"`
	}{
		ContentID: id,
		Favorite:  favorite,
	})
}

func (r *Routes) handleHistory(w http.ResponseWriter, _ *http.Request) {
	r.writeJSON(w, http.StatusOK, r.history.List())
}

func (r *Routes) handleSaveProgress(w http.ResponseWriter, req *http.Request) {
	var progress state.Progress

	if err := decodeBody(req, &progress); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	if strings.TrimSpace(progress.ContentID) == "" {
		http.Error(w, "contentId is required", http.StatusBadRequest)

		return
	}

	if progress.ContentType == "" {
		if record, ok := r.store.Find(progress.ContentID); ok {
			progress.ContentType = record.Type()
		}
	}

	if progress.ContentType != "" {
		if _, err := catalog.ParseType(string(progress.ContentType)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}
	}

	item, err := r.history.SaveProgress(progress)
	if err != nil {
		r.serverError(w, "Failed to save progress", err)

		return
	}

	r.writeJSON(w, http.StatusOK, item)
}

func (r *Routes) handleProgress(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	r.writeJSON(w, http.StatusOK, struct {
		ContentID string  `json:"contentId"`
		Progress  float64 `json:"progress"`
	}{
		ContentID: id,
		Progress:  r.history.Position(id),
	})
}

func (r *Routes) handleClearHistory(w http.ResponseWriter, _ *http.Request) {
	if err := r.history.Clear(); err != nil {
		r.serverError(w, "Failed to clear history", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (r *Routes) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		r.log.WithError(err).Error("Failed to write JSON response")
	}
}

func (r *Routes) serverError(w http.ResponseWriter, msg string, err error) {
	r.log.WithError(err).Error(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}

func decodeBody(req *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(req.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}

		return err
	}

	return nil
}

func (r *Routes) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.log.WithFields(logrus.Fields{
			"method": req.Method,
			"path":   req.URL.Path,
			"remote": req.RemoteAddr,
		}).Info("HTTP request")

		next.ServeHTTP(w, req)
	})
}
