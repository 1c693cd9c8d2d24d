package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"staffdesk/backend"
	"staffdesk/internal/dispatch"
)

// Format selects the export serialization.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat converts a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format: %s (valid: csv, json)", s)
	}
}

// Export writes records to path in the given format as a dispatcher
// task, so a large export never stalls the UI loop. Records may be the
// full loaded set or an explicit selection.
//
// progress receives 0-100 integers proportional to rows written and is
// invoked on the worker goroutine, not the UI loop. onDone and
// onFailure are delivered like any other task callback.
func Export(d *dispatch.Dispatcher, records []backend.Record, format Format, path string,
	progress func(percent int), onDone func(rows int), onFailure func(error)) *dispatch.Task {

	return d.Submit(func() (any, error) {
		rows, err := writeExport(records, format, path, progress)
		if err != nil {
			return nil, err
		}
		return rows, nil
	}, func(result any) {
		if onDone != nil {
			rows, _ := result.(int)
			onDone(rows)
		}
	}, onFailure)
}

// writeExport serializes records to path and returns the row count.
func writeExport(records []backend.Record, format Format, path string, progress func(int)) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	report := func(percent int) {
		if progress != nil {
			progress(percent)
		}
	}
	report(0)

	switch format {
	case FormatJSON:
		if err := writeJSON(f, records); err != nil {
			return 0, err
		}
	default:
		if err := writeCSV(f, records, report); err != nil {
			return 0, err
		}
	}

	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("failed to flush export file: %w", err)
	}
	report(100)
	return len(records), nil
}

// writeCSV writes records with the first record's field names as the
// header row. Records are expected to be homogeneous; fields absent
// from a later record degrade to empty cells.
func writeCSV(f *os.File, records []backend.Record, report func(int)) error {
	w := csv.NewWriter(f)

	if len(records) == 0 {
		w.Flush()
		return w.Error()
	}

	header := make([]string, 0, len(records[0]))
	for field := range records[0] {
		header = append(header, field)
	}
	sort.Strings(header)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, len(header))
	for i, r := range records {
		for j, field := range header {
			row[j] = r.String(field)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i+1, err)
		}
		report((i + 1) * 100 / len(records))
	}

	w.Flush()
	return w.Error()
}

// writeJSON writes records as-is, as an indented JSON array.
func writeJSON(f *os.File, records []backend.Record) error {
	if records == nil {
		records = []backend.Record{}
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode json export: %w", err)
	}
	return nil
}
