package search

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"staffdesk/internal/utils"
)

// SavedSearch is a named, persisted set of filter rows. It is
// immutable once loaded except through explicit Rename or Delete;
// UseCount and LastUsed are bumped by Load, not by listing.
type SavedSearch struct {
	Name      string     `json:"name"`
	Filters   []Filter   `json:"filters"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	UseCount  int        `json:"use_count"`
}

// Store persists saved searches as a JSON array document.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewStore creates a Store backed by the given file path. The file is
// created on first save.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// load reads the store document. A missing file yields an empty store.
// A corrupt document degrades to empty rather than failing startup;
// the damage is logged, not raised.
func (s *Store) load() []SavedSearch {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			utils.GetLogger().Warn("failed to read saved searches from %s: %v", s.path, err)
		}
		return nil
	}

	var searches []SavedSearch
	if err := json.Unmarshal(data, &searches); err != nil {
		utils.GetLogger().Warn("saved search store %s is corrupt, starting empty: %v", s.path, err)
		return nil
	}
	return searches
}

// persist writes the store document, creating parent directories as needed.
func (s *Store) persist(searches []SavedSearch) error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create saved search directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(searches, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode saved searches: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write saved searches: %w", err)
	}
	return nil
}

// Save adds a saved search, replacing any existing search with the
// same name. The replacement keeps a fresh CreatedAt and zeroed usage.
func (s *Store) Save(name string, filters []Filter) error {
	if name == "" {
		return fmt.Errorf("saved search name cannot be empty")
	}
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	searches := s.load()
	entry := SavedSearch{
		Name:      name,
		Filters:   filters,
		CreatedAt: s.now().UTC(),
	}

	replaced := false
	for i := range searches {
		if searches[i].Name == name {
			searches[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		searches = append(searches, entry)
	}
	return s.persist(searches)
}

// List returns all saved searches sorted by name.
func (s *Store) List() []SavedSearch {
	s.mu.Lock()
	defer s.mu.Unlock()

	searches := s.load()
	sort.Slice(searches, func(i, j int) bool {
		return searches[i].Name < searches[j].Name
	})
	return searches
}

// Load returns the named search's filters and, as a side effect,
// increments its use count and stamps last-used.
func (s *Store) Load(name string) ([]Filter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	searches := s.load()
	for i := range searches {
		if searches[i].Name == name {
			used := s.now().UTC()
			searches[i].UseCount++
			searches[i].LastUsed = &used
			if err := s.persist(searches); err != nil {
				return nil, err
			}
			return searches[i].Filters, nil
		}
	}
	return nil, utils.ErrSavedSearchNotFound(name)
}

// Rename changes a saved search's name, preserving its filters and usage.
func (s *Store) Rename(oldName, newName string) error {
	if newName == "" {
		return fmt.Errorf("saved search name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	searches := s.load()
	for _, existing := range searches {
		if existing.Name == newName {
			return fmt.Errorf("saved search already exists: %s", newName)
		}
	}
	for i := range searches {
		if searches[i].Name == oldName {
			searches[i].Name = newName
			return s.persist(searches)
		}
	}
	return utils.ErrSavedSearchNotFound(oldName)
}

// Delete removes a saved search by name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	searches := s.load()
	for i := range searches {
		if searches[i].Name == name {
			searches = append(searches[:i], searches[i+1:]...)
			return s.persist(searches)
		}
	}
	return utils.ErrSavedSearchNotFound(name)
}
