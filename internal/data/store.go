package data

import (
	"sync"
	"time"

	"github.com/savid/iptv-catalog/internal/catalog"
	"github.com/savid/iptv-catalog/internal/metrics"
)

// Store provides thread-safe storage for the current catalog.
type Store struct {
	mu sync.RWMutex

	records  []catalog.Record
	lastSync time.Time
}

// NewStore creates a new data store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the catalog.
func (s *Store) Set(records []catalog.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = records
	s.lastSync = time.Now()

	split := catalog.SplitByType(records)
	metrics.Records.WithLabelValues(string(catalog.TypeLive)).Set(float64(len(split.Live)))
	metrics.Records.WithLabelValues(string(catalog.TypeMovie)).Set(float64(len(split.Movies)))
	metrics.Records.WithLabelValues(string(catalog.TypeSeries)).Set(float64(len(split.Series)))
}

// Records returns the catalog.
func (s *Store) Records() ([]catalog.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.records == nil {
		return nil, false
	}

	return s.records, true
}

// Find returns the record with the given id.
func (s *Store) Find(id string) (catalog.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return catalog.Find(s.records, id)
}

// ByType returns the records of one content type.
func (s *Store) ByType(t catalog.Type) ([]catalog.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.records == nil {
		return nil, false
	}

	return catalog.FilterByType(s.records, t), true
}

// Categories returns the category summaries of the catalog.
func (s *Store) Categories() []catalog.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return catalog.Categories(s.records)
}

// ByCategorySlug returns the records whose category matches slug.
func (s *Store) ByCategorySlug(slug string) ([]catalog.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.records == nil {
		return nil, false
	}

	return catalog.FilterByCategorySlug(s.records, slug), true
}

// LastSync returns the last sync time.
func (s *Store) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastSync
}

// HasData returns true if a catalog has been loaded.
func (s *Store) HasData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.records != nil
}
