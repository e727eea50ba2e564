package state

import (
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/savid/iptv-catalog/internal/catalog"
)

// Favorite marks one catalog record as a favorite.
type Favorite struct {
	ID          string       `json:"id"`
	ContentID   string       `json:"contentId"`
	ContentType catalog.Type `json:"contentType"`
	AddedAt     time.Time    `json:"addedAt"`
}

// Favorites is the set of favorite records, in the order they were added.
type Favorites struct {
	path string
	now  func() time.Time

	mu        sync.RWMutex
	favorites []Favorite
}

// NewFavorites creates a favorites store in dir.
func NewFavorites(dir string) *Favorites {
	return &Favorites{
		path:      filepath.Join(dir, favoritesFile),
		now:       time.Now,
		favorites: []Favorite{},
	}
}

// Load reads the stored favorites.
func (f *Favorites) Load() error {
	var stored []Favorite

	found, err := readJSON(f.path, &stored)
	if err != nil || !found {
		return err
	}

	if stored == nil {
		stored = []Favorite{}
	}

	f.mu.Lock()
	f.favorites = stored
	f.mu.Unlock()

	return nil
}

// Save writes the current favorites.
func (f *Favorites) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return writeJSON(f.path, f.favorites)
}

// List returns a copy of the favorites.
func (f *Favorites) List() []Favorite {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return slices.Clone(f.favorites)
}

// IsFavorite reports whether contentID is a favorite.
func (f *Favorites) IsFavorite(contentID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.indexOf(contentID) >= 0
}

// Add marks contentID as a favorite. Adding an existing favorite is a no-op.
func (f *Favorites) Add(contentID string, t catalog.Type) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.indexOf(contentID) >= 0 {
		return nil
	}

	return f.add(contentID, t)
}

// Remove unmarks contentID.
func (f *Favorites) Remove(contentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexOf(contentID)
	if i < 0 {
		return nil
	}

	return f.remove(i)
}

// Toggle flips the favorite state of contentID and reports the new state.
// On error the state is left as it was.
func (f *Favorites) Toggle(contentID string, t catalog.Type) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if i := f.indexOf(contentID); i >= 0 {
		if err := f.remove(i); err != nil {
			return true, err
		}

		return false, nil
	}

	if err := f.add(contentID, t); err != nil {
		return false, err
	}

	return true, nil
}

// add and remove persist the changed list before replacing it in memory.
// The caller holds f.mu.
func (f *Favorites) add(contentID string, t catalog.Type) error {
	favorites := append(slices.Clone(f.favorites), Favorite{
		ID:          uuid.NewString(),
		ContentID:   contentID,
		ContentType: t,
		AddedAt:     f.now(),
	})

	return f.replace(favorites)
}

func (f *Favorites) remove(i int) error {
	return f.replace(slices.Delete(slices.Clone(f.favorites), i, i+1))
}

func (f *Favorites) replace(favorites []Favorite) error {
	if err := writeJSON(f.path, favorites); err != nil {
		return err
	}

	f.favorites = favorites

	return nil
}

func (f *Favorites) indexOf(contentID string) int {
	return slices.IndexFunc(f.favorites, func(fav Favorite) bool {
		return fav.ContentID == contentID
	})
}
