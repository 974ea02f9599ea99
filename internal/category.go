package internal

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed categories.json
var starterCategories []byte

// CategoryStore manages the user's category definitions, persisted as a JSON
// file in the config directory. A fresh install starts from the embedded
// starter set.
type CategoryStore struct {
	path       string
	categories []Category
}

// NewCategoryStore loads categories from configDir/categories.json, seeding
// the file from the starter set when it does not exist.
func NewCategoryStore(configDir string) (*CategoryStore, error) {
	s := &CategoryStore{path: filepath.Join(configDir, "categories.json")}

	if !FileExists(s.path) {
		if err := json.Unmarshal(starterCategories, &s.categories); err != nil {
			return nil, fmt.Errorf("parsing starter categories: %w", err)
		}
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading categories: %w", err)
	}
	if err := json.Unmarshal(data, &s.categories); err != nil {
		return nil, fmt.Errorf("parsing categories file %s: %w", s.path, err)
	}
	return s, nil
}

func (s *CategoryStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(s.categories, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing categories: %w", err)
	}
	return nil
}

// All returns the categories sorted by name.
func (s *CategoryStore) All() []Category {
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get looks up a category by ID. A missing category is ordinary control
// flow, not an error.
func (s *CategoryStore) Get(id CategoryID) (Category, bool) {
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// Resolve accepts either a category ID or a case-insensitive name.
func (s *CategoryStore) Resolve(idOrName string) (Category, bool) {
	if c, ok := s.Get(CategoryID(idOrName)); ok {
		return c, true
	}
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, idOrName) {
			return c, true
		}
	}
	return Category{}, false
}

// Add inserts a new category and persists the store.
func (s *CategoryStore) Add(c Category) error {
	if c.ID == "" || c.Name == "" {
		return fmt.Errorf("category needs both an id and a name")
	}
	if _, exists := s.Get(c.ID); exists {
		return fmt.Errorf("category %s already exists", c.ID)
	}
	s.categories = append(s.categories, c)
	return s.save()
}

// Update replaces an existing category and persists the store.
func (s *CategoryStore) Update(c Category) error {
	for i, existing := range s.categories {
		if existing.ID == c.ID {
			s.categories[i] = c
			return s.save()
		}
	}
	return fmt.Errorf("category %s not found", c.ID)
}

// Remove deletes a category by ID and persists the store.
func (s *CategoryStore) Remove(id CategoryID) error {
	for i, c := range s.categories {
		if c.ID == id {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			return s.save()
		}
	}
	return fmt.Errorf("category %s not found", id)
}
