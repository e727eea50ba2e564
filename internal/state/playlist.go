package state

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/savid/iptv-catalog/internal/catalog"
	"github.com/savid/iptv-catalog/internal/config"
)

// Snapshot is a persisted catalog together with the source it came from.
type Snapshot struct {
	Source  config.Source    `json:"source"`
	Records []catalog.Record `json:"records"`
	SavedAt time.Time        `json:"savedAt"`
}

// PlaylistCache keeps the last loaded catalog on disk so it can be served
// before the upstream answers.
type PlaylistCache struct {
	path string
	now  func() time.Time

	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewPlaylistCache creates a playlist cache in dir.
func NewPlaylistCache(dir string) *PlaylistCache {
	return &PlaylistCache{
		path: filepath.Join(dir, playlistFile),
		now:  time.Now,
	}
}

// Load reads the stored snapshot.
func (c *PlaylistCache) Load() error {
	var stored Snapshot

	found, err := readJSON(c.path, &stored)
	if err != nil || !found {
		return err
	}

	if stored.Records == nil {
		stored.Records = []catalog.Record{}
	}

	c.mu.Lock()
	c.snapshot = &stored
	c.mu.Unlock()

	return nil
}

// Save writes the current snapshot, if any.
func (c *PlaylistCache) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil {
		return nil
	}

	return writeJSON(c.path, c.snapshot)
}

// Snapshot returns the stored snapshot for source. Snapshots taken from a
// different source are not returned.
func (c *PlaylistCache) Snapshot(source config.Source) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil || c.snapshot.Source != source {
		return Snapshot{}, false
	}

	return *c.snapshot, true
}

// Store replaces the snapshot and persists it.
func (c *PlaylistCache) Store(source config.Source, records []catalog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := &Snapshot{
		Source:  source,
		Records: records,
		SavedAt: c.now(),
	}

	if err := writeJSON(c.path, snapshot); err != nil {
		return err
	}

	c.snapshot = snapshot

	return nil
}

// Clear drops the snapshot and its file.
func (c *PlaylistCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := removeFile(c.path); err != nil {
		return err
	}

	c.snapshot = nil

	return nil
}
