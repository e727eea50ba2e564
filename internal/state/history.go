package state

import (
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/savid/iptv-catalog/internal/catalog"
)

// MaxHistoryItems bounds the watch history.
const MaxHistoryItems = 50

// Progress is what a client reports after watching some content.
type Progress struct {
	ContentID   string       `json:"contentId"`
	ContentType catalog.Type `json:"contentType"`
	Title       string       `json:"title"`
	Thumbnail   string       `json:"thumbnail,omitempty"`
	// Position and Duration are in seconds.
	Position float64 `json:"progress"`
	Duration float64 `json:"duration"`
}

// HistoryItem is one watch history entry.
type HistoryItem struct {
	ID string `json:"id"`
	Progress
	LastWatchedAt time.Time `json:"lastWatchedAt"`
}

// History is the watch history, most recently watched first.
type History struct {
	path string
	now  func() time.Time

	mu    sync.RWMutex
	items []HistoryItem
}

// NewHistory creates a watch history store in dir.
func NewHistory(dir string) *History {
	return &History{
		path:  filepath.Join(dir, historyFile),
		now:   time.Now,
		items: []HistoryItem{},
	}
}

// Load reads the stored history.
func (h *History) Load() error {
	var stored []HistoryItem

	found, err := readJSON(h.path, &stored)
	if err != nil || !found {
		return err
	}

	if stored == nil {
		stored = []HistoryItem{}
	}

	if len(stored) > MaxHistoryItems {
		stored = stored[:MaxHistoryItems]
	}

	h.mu.Lock()
	h.items = stored
	h.mu.Unlock()

	return nil
}

// Save writes the current history.
func (h *History) Save() error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return writeJSON(h.path, h.items)
}

// List returns a copy of the history, most recent first.
func (h *History) List() []HistoryItem {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return slices.Clone(h.items)
}

// Position returns the saved position of contentID in seconds, or zero.
func (h *History) Position(contentID string) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, item := range h.items {
		if item.ContentID == contentID {
			return item.Position
		}
	}

	return 0
}

// SaveProgress records p as the most recent entry, replacing any earlier
// entry for the same content.
func (h *History) SaveProgress(p Progress) (HistoryItem, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	item := HistoryItem{
		ID:            uuid.NewString(),
		Progress:      p,
		LastWatchedAt: h.now(),
	}

	items := make([]HistoryItem, 0, len(h.items)+1)
	items = append(items, item)

	for _, existing := range h.items {
		if existing.ContentID != p.ContentID {
			items = append(items, existing)
		}
	}

	if len(items) > MaxHistoryItems {
		items = items[:MaxHistoryItems]
	}

	if err := writeJSON(h.path, items); err != nil {
		return HistoryItem{}, err
	}

	h.items = items

	return item, nil
}

// Clear drops the history and its file.
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := removeFile(h.path); err != nil {
		return err
	}

	h.items = []HistoryItem{}

	return nil
}
