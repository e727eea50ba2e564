package state

import (
	"path/filepath"
	"sync"

	"github.com/savid/iptv-catalog/internal/quality"
)

// Preferences holds the playback quality preference.
type Preferences struct {
	path string

	mu      sync.RWMutex
	quality quality.Quality
}

type preferencesFileData struct {
	Quality string `json:"quality"`
}

// NewPreferences creates a preferences store in dir. def is used until a
// stored preference is loaded.
func NewPreferences(dir string, def quality.Quality) *Preferences {
	return &Preferences{
		path:    filepath.Join(dir, preferencesFile),
		quality: def,
	}
}

// Load reads the stored preference. Unknown stored values are ignored.
func (p *Preferences) Load() error {
	var stored preferencesFileData

	found, err := readJSON(p.path, &stored)
	if err != nil || !found {
		return err
	}

	q, err := quality.Parse(stored.Quality)
	if err != nil {
		return nil
	}

	p.mu.Lock()
	p.quality = q
	p.mu.Unlock()

	return nil
}

// Save writes the current preference.
func (p *Preferences) Save() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return writeJSON(p.path, preferencesFileData{Quality: p.quality.String()})
}

// Quality returns the preferred quality.
func (p *Preferences) Quality() quality.Quality {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.quality
}

// SetQuality persists and then applies the preferred quality.
func (p *Preferences) SetQuality(q quality.Quality) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := writeJSON(p.path, preferencesFileData{Quality: q.String()}); err != nil {
		return err
	}

	p.quality = q

	return nil
}
