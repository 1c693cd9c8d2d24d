// Package dataset provides a client-side view over a loaded page of
// records: local re-filtering, stable re-sorting and pagination without
// a server round trip, plus background CSV/JSON export.
//
// A Dataset is owned by the UI loop. All methods must be called from
// the loop that receives dispatcher callbacks; the type carries no
// internal locking and is not safe for use from worker goroutines.
package dataset

import (
	"sort"
	"strings"

	"staffdesk/backend"
	"staffdesk/internal/search"
)

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 20

// Dataset holds the loaded records and the derived visible slice.
type Dataset struct {
	entity   backend.Entity
	pageSize int

	all      []backend.Record
	filtered []backend.Record
	filters  []search.Filter

	sortField string
	sortAsc   bool

	page    int
	visible []backend.Record
}

// New creates an empty Dataset for the given entity.
func New(entity backend.Entity, pageSize int) *Dataset {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Dataset{
		entity:   entity,
		pageSize: pageSize,
		page:     1,
	}
}

// Load replaces the loaded records, resets to page 1 and re-derives
// the visible slice. The active filter and sort survive a reload.
func (d *Dataset) Load(records []backend.Record) {
	d.all = records
	d.page = 1
	d.derive()
}

// SetFilters replaces the active filter rows and re-derives the
// visible slice without reloading.
func (d *Dataset) SetFilters(filters []search.Filter) {
	d.filters = filters
	d.page = 1
	d.derive()
}

// ClearFilters removes all filter rows.
func (d *Dataset) ClearFilters() {
	d.SetFilters(nil)
}

// SetSort orders the filtered records by the given field. The sort is
// stable so repeated re-sorts on equal keys are deterministic; missing
// field values sort as the empty string.
func (d *Dataset) SetSort(field string, ascending bool) {
	d.sortField = field
	d.sortAsc = ascending
	d.derive()
}

// SetPage moves to page n, clamped to the valid range. Returns true if
// the page actually changed, so callers can skip redundant re-renders.
func (d *Dataset) SetPage(n int) bool {
	n = d.clampPage(n)
	if n == d.page {
		return false
	}
	d.page = n
	d.deriveVisible()
	return true
}

// Page returns the current 1-based page number.
func (d *Dataset) Page() int { return d.page }

// PageCount returns the number of pages for the filtered records,
// never less than 1.
func (d *Dataset) PageCount() int {
	count := (len(d.filtered) + d.pageSize - 1) / d.pageSize
	if count < 1 {
		count = 1
	}
	return count
}

// PageSize returns the configured page size.
func (d *Dataset) PageSize() int { return d.pageSize }

// Visible returns the records of the current page after filtering and
// sorting. The slice is owned by the Dataset; callers must not mutate it.
func (d *Dataset) Visible() []backend.Record { return d.visible }

// All returns every loaded record, unfiltered.
func (d *Dataset) All() []backend.Record { return d.all }

// FilteredCount returns the number of records passing the active filters.
func (d *Dataset) FilteredCount() int { return len(d.filtered) }

// Filters returns the active filter rows.
func (d *Dataset) Filters() []search.Filter { return d.filters }

// Entity returns the record family this Dataset views.
func (d *Dataset) Entity() backend.Entity { return d.entity }

// derive recomputes filtered order and the visible page.
func (d *Dataset) derive() {
	d.filtered = search.Apply(d.all, d.entity, d.filters)

	if d.sortField != "" {
		// Sort a copy so re-filtering from all records stays cheap and
		// the caller's slice is never reordered underneath it.
		sorted := make([]backend.Record, len(d.filtered))
		copy(sorted, d.filtered)
		field, asc := d.sortField, d.sortAsc
		sort.SliceStable(sorted, func(i, j int) bool {
			a := strings.ToLower(sorted[i].String(field))
			b := strings.ToLower(sorted[j].String(field))
			if asc {
				return a < b
			}
			return a > b
		})
		d.filtered = sorted
	}

	d.page = d.clampPage(d.page)
	d.deriveVisible()
}

// deriveVisible slices the current page out of the filtered records.
func (d *Dataset) deriveVisible() {
	start := (d.page - 1) * d.pageSize
	if start >= len(d.filtered) {
		d.visible = nil
		return
	}
	end := start + d.pageSize
	if end > len(d.filtered) {
		end = len(d.filtered)
	}
	d.visible = d.filtered[start:end]
}

// clampPage bounds n to [1, PageCount()].
func (d *Dataset) clampPage(n int) int {
	if n < 1 {
		return 1
	}
	if max := d.PageCount(); n > max {
		return max
	}
	return n
}
