package dataset

import (
	"testing"

	"staffdesk/backend"
	"staffdesk/internal/search"
)

func peopleFixture() []backend.Record {
	return []backend.Record{
		{"id": "1", "first_name": "Alice", "last_name": "Ng", "department": "Eng"},
		{"id": "2", "first_name": "Bob", "last_name": "Stone", "department": "Sales"},
		{"id": "3", "first_name": "Carol", "last_name": "Ng", "department": "Eng"},
		{"id": "4", "first_name": "Dave", "last_name": "Adams", "department": "Eng"},
		{"id": "5", "first_name": "Eve", "last_name": "Moss", "department": "HR"},
	}
}

func ids(records []backend.Record) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.ID())
	}
	return out
}

func assertIDs(t *testing.T, got []backend.Record, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected ids %v, got %v", want, ids(got))
	}
	for i := range want {
		if got[i].ID() != want[i] {
			t.Fatalf("expected ids %v, got %v", want, ids(got))
		}
	}
}

// TestLoadResetsPage verifies Load replaces records and returns to page 1
func TestLoadResetsPage(t *testing.T) {
	d := New(backend.EntityPeople, 2)
	d.Load(peopleFixture())

	if d.Page() != 1 {
		t.Errorf("expected page 1 after load, got %d", d.Page())
	}
	if d.PageCount() != 3 {
		t.Errorf("expected 3 pages, got %d", d.PageCount())
	}
	assertIDs(t, d.Visible(), "1", "2")

	d.SetPage(3)
	d.Load(peopleFixture()[:2])
	if d.Page() != 1 {
		t.Errorf("expected reload to reset to page 1, got %d", d.Page())
	}
	if d.PageCount() != 1 {
		t.Errorf("expected 1 page after reload, got %d", d.PageCount())
	}
}

// TestFilterIdempotence verifies applying the same filters twice
// yields the same visible sequence as applying them once.
func TestFilterIdempotence(t *testing.T) {
	d := New(backend.EntityPeople, 10)
	d.Load(peopleFixture())

	filters := []search.Filter{
		{Field: "department", Operator: "equals", Value: "Eng", FieldType: search.FieldTypeChoice},
	}
	d.SetFilters(filters)
	first := ids(d.Visible())

	d.SetFilters(filters)
	second := ids(d.Visible())

	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 visible records, got %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("position %d: expected %s, got %s", i, first[i], second[i])
		}
	}

	d.ClearFilters()
	if d.FilteredCount() != 5 {
		t.Errorf("expected all records after clear, got %d", d.FilteredCount())
	}
}

// TestSortStability verifies re-sorting the same field is a no-op on
// ordering and that equal keys keep their prior relative order.
func TestSortStability(t *testing.T) {
	d := New(backend.EntityPeople, 10)
	d.Load(peopleFixture())

	d.SetSort("last_name", true)
	// "Ng" ties between ids 1 and 3; load order must be preserved.
	assertIDs(t, d.Visible(), "4", "5", "1", "3", "2")

	d.SetSort("last_name", true)
	assertIDs(t, d.Visible(), "4", "5", "1", "3", "2")

	d.SetSort("last_name", false)
	assertIDs(t, d.Visible(), "2", "1", "3", "4", "5")
}

// TestSortMissingFieldAsEmpty verifies nil and missing values sort as ""
func TestSortMissingFieldAsEmpty(t *testing.T) {
	d := New(backend.EntityPeople, 10)
	d.Load([]backend.Record{
		{"id": "1", "email": "z@corp.test"},
		{"id": "2"},
		{"id": "3", "email": nil},
		{"id": "4", "email": "a@corp.test"},
	})

	d.SetSort("email", true)
	assertIDs(t, d.Visible(), "2", "3", "4", "1")
}

// TestPaginationInvariant verifies SetPage never leaves the page
// outside [1, max(1, ceil(count/pageSize))].
func TestPaginationInvariant(t *testing.T) {
	for _, pageSize := range []int{1, 2, 3, 10} {
		for _, loaded := range []int{0, 1, 4, 5} {
			d := New(backend.EntityPeople, pageSize)
			d.Load(peopleFixture()[:loaded])

			for _, n := range []int{-3, 0, 1, 2, 99} {
				d.SetPage(n)
				max := (loaded + pageSize - 1) / pageSize
				if max < 1 {
					max = 1
				}
				if d.Page() < 1 || d.Page() > max {
					t.Errorf("pageSize=%d loaded=%d SetPage(%d): page %d outside [1,%d]",
						pageSize, loaded, n, d.Page(), max)
				}
			}
		}
	}
}

// TestSetPageNoOp verifies the redundant re-render guard
func TestSetPageNoOp(t *testing.T) {
	d := New(backend.EntityPeople, 2)
	d.Load(peopleFixture())

	if !d.SetPage(2) {
		t.Error("expected page change to report true")
	}
	if d.SetPage(2) {
		t.Error("expected same-page SetPage to report false")
	}
	if d.SetPage(99) != true {
		t.Error("expected clamped page change to report true")
	}
	if d.Page() != 3 {
		t.Errorf("expected clamp to last page 3, got %d", d.Page())
	}
	if d.SetPage(0) != true {
		t.Error("expected clamp to page 1 to report true")
	}
}

// TestFilterThenPage verifies filters shrink the page range
func TestFilterThenPage(t *testing.T) {
	d := New(backend.EntityPeople, 2)
	d.Load(peopleFixture())
	d.SetPage(3)

	d.SetFilters([]search.Filter{
		{Field: "department", Operator: "equals", Value: "Eng", FieldType: search.FieldTypeChoice},
	})

	if d.Page() != 1 {
		t.Errorf("expected filter to reset to page 1, got %d", d.Page())
	}
	if d.PageCount() != 2 {
		t.Errorf("expected 2 pages of filtered records, got %d", d.PageCount())
	}
	assertIDs(t, d.Visible(), "1", "3")
}

// TestQuickSearchThroughDataset verifies the reserved quick field works
// through the Dataset surface.
func TestQuickSearchThroughDataset(t *testing.T) {
	d := New(backend.EntityPeople, 10)
	d.Load(peopleFixture())

	d.SetFilters([]search.Filter{{Field: search.QuickSearchField, Value: "ali"}})
	assertIDs(t, d.Visible(), "1")
}
