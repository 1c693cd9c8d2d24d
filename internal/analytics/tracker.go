package analytics

import (
	"database/sql"
	"sync"
	"time"

	"staffdesk/backend"
)

// Tracker handles analytics event recording
type Tracker struct {
	db      *sql.DB
	enabled bool
	mu      sync.Mutex
	wg      sync.WaitGroup
}

// NewTracker creates a new analytics tracker.
// If enabled is false, tracking is disabled but the database is still created.
func NewTracker(dbPath string, enabled bool) (*Tracker, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	return &Tracker{
		db:      db,
		enabled: enabled,
	}, nil
}

// Close flushes pending events and closes the database connection
func (t *Tracker) Close() error {
	t.wg.Wait()
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

// TrackOperation wraps a remote operation with analytics tracking.
// The provided function is always executed, but events are only
// recorded when analytics is enabled.
func (t *Tracker) TrackOperation(operation, entity string, cacheHit bool, fn func() error) error {
	if !t.enabled {
		return fn()
	}

	start := time.Now()
	err := fn()
	duration := time.Since(start).Milliseconds()

	event := Event{
		Timestamp:  time.Now().Unix(),
		Operation:  operation,
		Entity:     entity,
		Success:    err == nil,
		CacheHit:   cacheHit,
		DurationMs: duration,
	}
	if err != nil {
		event.ErrorKind = string(backend.KindOf(err))
	}

	// Record asynchronously so tracking never slows down operations.
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.logEvent(event)
	}()

	return err
}

// logEvent records an event to the database
func (t *Tracker) logEvent(event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, _ = t.db.Exec(`
		INSERT INTO events (timestamp, operation, entity, success, cache_hit, duration_ms, error_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, event.Timestamp, event.Operation, nullString(event.Entity),
		boolToInt(event.Success), boolToInt(event.CacheHit), event.DurationMs, nullString(event.ErrorKind))
}

// OperationSummary aggregates recorded events for one operation.
type OperationSummary struct {
	Operation     string
	Count         int64
	Successes     int64
	CacheHits     int64
	AvgDurationMs float64
}

// Summary returns per-operation aggregates for events newer than the
// given number of days, most frequent first.
func (t *Tracker) Summary(sinceDays int) ([]OperationSummary, error) {
	t.wg.Wait()

	cutoff := time.Now().Unix() - int64(sinceDays*86400)
	rows, err := t.db.Query(`
		SELECT operation, COUNT(*), SUM(success), SUM(cache_hit), AVG(duration_ms)
		FROM events WHERE timestamp >= ?
		GROUP BY operation ORDER BY COUNT(*) DESC
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []OperationSummary
	for rows.Next() {
		var s OperationSummary
		var avg sql.NullFloat64
		if err := rows.Scan(&s.Operation, &s.Count, &s.Successes, &s.CacheHits, &avg); err != nil {
			return nil, err
		}
		s.AvgDurationMs = avg.Float64
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Cleanup removes events older than the specified retention period.
// Returns the number of deleted events.
func (t *Tracker) Cleanup(retentionDays int) (int64, error) {
	cutoff := time.Now().Unix() - int64(retentionDays*86400)

	result, err := t.db.Exec("DELETE FROM events WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	// Vacuum to reclaim space
	_, _ = t.db.Exec("VACUUM")

	return deleted, nil
}

// nullString returns nil for empty strings, otherwise the string value
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false)
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
