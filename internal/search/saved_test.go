package search

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "searches.json"))
}

// TestStoreSaveAndList verifies the JSON round trip and name ordering
func TestStoreSaveAndList(t *testing.T) {
	store := newTestStore(t)

	filters := []Filter{
		{Field: "last_name", Operator: "contains", Value: "ng", FieldType: FieldTypeText},
		{Field: "status", Operator: "equals", Value: "active", FieldType: FieldTypeChoice},
	}
	if err := store.Save("engineers", filters); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Save("active-only", filters[1:]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	searches := store.List()
	if len(searches) != 2 {
		t.Fatalf("expected 2 saved searches, got %d", len(searches))
	}
	if searches[0].Name != "active-only" || searches[1].Name != "engineers" {
		t.Errorf("expected name-sorted listing, got %s, %s", searches[0].Name, searches[1].Name)
	}
	if len(searches[1].Filters) != 2 {
		t.Errorf("expected 2 filter rows, got %d", len(searches[1].Filters))
	}
	if searches[1].Filters[0].Operator != "contains" {
		t.Errorf("unexpected operator after round trip: %s", searches[1].Filters[0].Operator)
	}
	if searches[0].CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
	if searches[0].UseCount != 0 || searches[0].LastUsed != nil {
		t.Error("expected fresh search to have zero usage")
	}
}

// TestStoreSaveValidatesFilters verifies bad operators are rejected on save
func TestStoreSaveValidatesFilters(t *testing.T) {
	store := newTestStore(t)
	err := store.Save("bad", []Filter{
		{Field: "salary", Operator: "contains", Value: "5", FieldType: FieldTypeNumber},
	})
	if err == nil {
		t.Error("expected error for invalid operator")
	}
	if err := store.Save("", nil); err == nil {
		t.Error("expected error for empty name")
	}
}

// TestStoreLoadBumpsUsage verifies Load updates use_count and last_used
func TestStoreLoadBumpsUsage(t *testing.T) {
	store := newTestStore(t)
	fixed := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	if err := store.Save("mine", []Filter{{Field: QuickSearchField, Value: "a"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	filters, err := store.Load("mine")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filters) != 1 {
		t.Fatalf("expected 1 filter row, got %d", len(filters))
	}
	if _, err := store.Load("mine"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	searches := store.List()
	if searches[0].UseCount != 2 {
		t.Errorf("expected use_count 2, got %d", searches[0].UseCount)
	}
	if searches[0].LastUsed == nil || !searches[0].LastUsed.Equal(fixed) {
		t.Errorf("expected last_used %v, got %v", fixed, searches[0].LastUsed)
	}

	if _, err := store.Load("missing"); err == nil {
		t.Error("expected error for unknown saved search")
	}
}

// TestStoreRenameAndDelete verifies explicit mutation paths
func TestStoreRenameAndDelete(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("old", []Filter{{Field: QuickSearchField, Value: "x"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Save("taken", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Rename("old", "taken"); err == nil {
		t.Error("expected error renaming onto an existing name")
	}
	if err := store.Rename("old", "new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Rename("old", "other"); err == nil {
		t.Error("expected error renaming a missing search")
	}

	if err := store.Delete("new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete("new"); err == nil {
		t.Error("expected error deleting a missing search")
	}
	if got := len(store.List()); got != 1 {
		t.Errorf("expected 1 remaining search, got %d", got)
	}
}

// TestStoreCorruptDocumentDegradesToEmpty verifies startup is never
// blocked by a damaged store file.
func TestStoreCorruptDocumentDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searches.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write corrupt store: %v", err)
	}

	store := NewStore(path)
	if got := len(store.List()); got != 0 {
		t.Errorf("expected empty store for corrupt document, got %d entries", got)
	}

	// Saving over the corrupt file recovers it.
	if err := store.Save("fresh", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(store.List()); got != 1 {
		t.Errorf("expected 1 search after recovery, got %d", got)
	}
}

// TestStoreDocumentFormat verifies the on-disk JSON shape
func TestStoreDocumentFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searches.json")
	store := NewStore(path)
	if err := store.Save("mine", []Filter{
		{Field: "department", Operator: "equals", Value: "Eng", FieldType: FieldTypeChoice},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read store: %v", err)
	}

	var doc []map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("store is not a JSON array: %v", err)
	}
	entry := doc[0]
	for _, key := range []string{"name", "filters", "created_at", "use_count"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("expected key %q in document", key)
		}
	}
	if _, ok := entry["last_used"]; ok {
		t.Error("expected last_used omitted for unused search")
	}
	createdAt, _ := entry["created_at"].(string)
	if _, err := time.Parse(time.RFC3339, createdAt); err != nil {
		t.Errorf("expected ISO-8601 created_at, got %q", createdAt)
	}
	if !strings.Contains(string(data), "\"field_type\": \"choice\"") {
		t.Errorf("expected field_type in filters, got: %s", string(data))
	}
}
