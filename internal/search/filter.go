// Package search implements structured record filtering and saved
// search persistence. Filters combine with AND semantics across rows;
// the reserved quick-search field matches with OR semantics across an
// entity's quick-search fields.
package search

import (
	"strconv"
	"strings"
	"time"

	"staffdesk/backend"
	"staffdesk/internal/utils"
)

// QuickSearchField is the reserved filter field name for free-text
// quick search across an entity's quick-search fields.
const QuickSearchField = "_quick"

// FieldType tags a filter field so the right operator set applies.
type FieldType string

const (
	FieldTypeText   FieldType = "text"
	FieldTypeNumber FieldType = "number"
	FieldTypeDate   FieldType = "date"
	FieldTypeChoice FieldType = "choice"
	FieldTypeBool   FieldType = "bool"
)

// Filter is one filter row. Value is the user-entered string; for the
// "in" operator it holds a comma-separated set.
type Filter struct {
	Field     string    `json:"field"`
	Operator  string    `json:"operator"`
	Value     string    `json:"value"`
	FieldType FieldType `json:"field_type"`
}

// textOperators, numberOperators, dateOperators and choiceOperators
// define the valid operator set per field type.
var (
	textOperators   = []string{"contains", "equals", "starts_with", "ends_with", "not_contains", "not_equals"}
	numberOperators = []string{"equals", "not_equals", "greater_than", "less_than", "greater_equal", "less_equal"}
	dateOperators   = []string{"on", "before", "after"}
	choiceOperators = []string{"equals", "not_equals", "in"}
)

// OperatorsFor returns the valid operators for a field type.
func OperatorsFor(ft FieldType) []string {
	switch ft {
	case FieldTypeNumber:
		return numberOperators
	case FieldTypeDate:
		return dateOperators
	case FieldTypeChoice, FieldTypeBool:
		return choiceOperators
	default:
		return textOperators
	}
}

// Validate checks that the filter's operator is valid for its field type.
func (f Filter) Validate() error {
	if f.Field == QuickSearchField {
		return nil
	}
	valid := OperatorsFor(f.FieldType)
	for _, op := range valid {
		if strings.EqualFold(f.Operator, op) {
			return nil
		}
	}
	return utils.ErrInvalidOperator(f.Operator, valid)
}

// Apply filters records for the given entity. Rows combine with AND;
// a quick-search row matches if any of the entity's quick-search
// fields contains the query.
func Apply(records []backend.Record, entity backend.Entity, filters []Filter) []backend.Record {
	if len(filters) == 0 {
		return records
	}

	var result []backend.Record
	for _, r := range records {
		if matchesAllFilters(r, entity, filters) {
			result = append(result, r)
		}
	}
	return result
}

// matchesAllFilters checks a record against every filter row (AND logic)
func matchesAllFilters(r backend.Record, entity backend.Entity, filters []Filter) bool {
	for _, f := range filters {
		if !matchesFilter(r, entity, f) {
			return false
		}
	}
	return true
}

// matchesFilter checks a record against a single filter row
func matchesFilter(r backend.Record, entity backend.Entity, f Filter) bool {
	if f.Field == QuickSearchField {
		return matchesQuickSearch(r, entity, f.Value)
	}
	return compareValue(r[f.Field], f)
}

// matchesQuickSearch checks if any quick-search field contains the
// query (OR logic, case-insensitive).
func matchesQuickSearch(r backend.Record, entity backend.Entity, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range entity.QuickSearchFields() {
		if strings.Contains(strings.ToLower(toString(r[field])), q) {
			return true
		}
	}
	return false
}

// compareValue applies the filter's operator to a field value.
// Operator semantics depend on the field type.
func compareValue(fieldValue any, f Filter) bool {
	op := strings.ToLower(f.Operator)

	switch f.FieldType {
	case FieldTypeNumber:
		return compareNumber(fieldValue, op, f.Value)
	case FieldTypeDate:
		return compareDate(fieldValue, op, f.Value)
	case FieldTypeChoice, FieldTypeBool:
		return compareChoice(fieldValue, op, f.Value)
	default:
		return compareText(fieldValue, op, f.Value)
	}
}

// compareText applies text operators with case-insensitive matching
func compareText(fieldValue any, op, filterValue string) bool {
	fv := strings.ToLower(toString(fieldValue))
	want := strings.ToLower(filterValue)

	switch op {
	case "contains":
		return strings.Contains(fv, want)
	case "not_contains":
		return !strings.Contains(fv, want)
	case "equals":
		return fv == want
	case "not_equals":
		return fv != want
	case "starts_with":
		return strings.HasPrefix(fv, want)
	case "ends_with":
		return strings.HasSuffix(fv, want)
	default:
		return false
	}
}

// compareNumber applies numeric operators; non-numeric values never match
func compareNumber(fieldValue any, op, filterValue string) bool {
	fv, okField := toFloat(fieldValue)
	want, okFilter := toFloat(filterValue)
	if !okField || !okFilter {
		return false
	}

	switch op {
	case "equals":
		return fv == want
	case "not_equals":
		return fv != want
	case "greater_than":
		return fv > want
	case "less_than":
		return fv < want
	case "greater_equal":
		return fv >= want
	case "less_equal":
		return fv <= want
	default:
		return false
	}
}

// compareDate applies date operators with day granularity
func compareDate(fieldValue any, op, filterValue string) bool {
	fv := toTime(fieldValue)
	want := toTime(filterValue)
	if fv == nil || want == nil {
		return false
	}
	fvDay := fv.Truncate(24 * time.Hour)
	wantDay := want.Truncate(24 * time.Hour)

	switch op {
	case "on":
		return fvDay.Equal(wantDay)
	case "before":
		return fvDay.Before(wantDay)
	case "after":
		return fvDay.After(wantDay)
	default:
		return false
	}
}

// compareChoice applies equality operators over a fixed value set
func compareChoice(fieldValue any, op, filterValue string) bool {
	fv := toString(fieldValue)

	switch op {
	case "equals":
		return strings.EqualFold(fv, filterValue)
	case "not_equals":
		return !strings.EqualFold(fv, filterValue)
	case "in":
		for _, v := range strings.Split(filterValue, ",") {
			if strings.EqualFold(fv, strings.TrimSpace(v)) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Coercion helpers

func toString(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return ""
	}
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// dateFormats are accepted in order; JSON decoding yields strings so
// record date fields arrive in one of these layouts.
var dateFormats = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

func toTime(v any) *time.Time {
	switch val := v.(type) {
	case time.Time:
		return &val
	case string:
		for _, layout := range dateFormats {
			if t, err := time.Parse(layout, val); err == nil {
				return &t
			}
		}
	}
	return nil
}
