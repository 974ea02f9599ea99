package internal

import (
	"sort"
	"strings"
	"testing"
)

func TestNewCategoryStoreSeedsStarterSet(t *testing.T) {
	dir := t.TempDir()

	store, err := NewCategoryStore(dir)
	if err != nil {
		t.Fatalf("NewCategoryStore: %v", err)
	}
	if len(store.All()) == 0 {
		t.Fatal("fresh store has no starter categories")
	}
	if _, ok := store.Get("programming"); !ok {
		t.Error("starter set missing the programming category")
	}

	// A second store over the same directory reads the seeded file.
	again, err := NewCategoryStore(dir)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	if len(again.All()) != len(store.All()) {
		t.Errorf("reopened store has %d categories; want %d", len(again.All()), len(store.All()))
	}
}

func TestCategoryStoreAddPersists(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCategoryStore(dir)
	if err != nil {
		t.Fatalf("NewCategoryStore: %v", err)
	}

	added := Category{ID: "rust", Name: "Rust", Description: "Systems programming in Rust"}
	if err := store.Add(added); err != nil {
		t.Fatalf("Add: %v", err)
	}

	reopened, err := NewCategoryStore(dir)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	got, ok := reopened.Get("rust")
	if !ok {
		t.Fatal("added category not persisted")
	}
	if got.Description != added.Description {
		t.Errorf("Description = %q; want %q", got.Description, added.Description)
	}
}

func TestCategoryStoreAddValidation(t *testing.T) {
	store, err := NewCategoryStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewCategoryStore: %v", err)
	}

	if err := store.Add(Category{Name: "No ID"}); err == nil {
		t.Error("category without ID accepted")
	}
	if err := store.Add(Category{ID: "no-name"}); err == nil {
		t.Error("category without name accepted")
	}
	if err := store.Add(Category{ID: "programming", Name: "Duplicate"}); err == nil {
		t.Error("duplicate ID accepted")
	}
}

func TestCategoryStoreResolve(t *testing.T) {
	store, err := NewCategoryStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewCategoryStore: %v", err)
	}

	byID, ok := store.Resolve("programming")
	if !ok {
		t.Fatal("Resolve by ID failed")
	}

	byName, ok := store.Resolve(byID.Name)
	if !ok || byName.ID != byID.ID {
		t.Error("Resolve by exact name failed")
	}

	mixed, ok := store.Resolve(strings.ToUpper(byID.Name))
	if !ok || mixed.ID != byID.ID {
		t.Error("Resolve is not case-insensitive on names")
	}

	if _, ok := store.Resolve("does-not-exist"); ok {
		t.Error("Resolve found a nonexistent category")
	}
}

func TestCategoryStoreRemove(t *testing.T) {
	store, err := NewCategoryStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewCategoryStore: %v", err)
	}

	if err := store.Remove("programming"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := store.Get("programming"); ok {
		t.Error("removed category still present")
	}
	if err := store.Remove("programming"); err == nil {
		t.Error("removing a missing category succeeded")
	}
}

func TestCategoryStoreAllSortedByName(t *testing.T) {
	store, err := NewCategoryStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewCategoryStore: %v", err)
	}

	all := store.All()
	if !sort.SliceIsSorted(all, func(i, j int) bool { return all[i].Name < all[j].Name }) {
		t.Error("All() not sorted by name")
	}
}
