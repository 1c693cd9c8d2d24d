// Package backend defines the remote API boundary: the record shape,
// the entity catalog, the Client interface and the typed error
// taxonomy shared by every layer above it.
package backend

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is a single remote record as an opaque field map. The core
// never interprets domain semantics beyond the primary key and the
// fields a search filter references.
type Record map[string]any

// ID returns the record's primary key, or "" if unset.
func (r Record) ID() string {
	return r.String(FieldID)
}

// String returns a field coerced to a string ("" when absent or nil).
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// FieldID is the primary key field present on every record.
const FieldID = "id"

// Entity identifies one of the record families served by the backend.
type Entity string

const (
	EntityPeople      Entity = "people"
	EntityDepartments Entity = "departments"
	EntityPositions   Entity = "positions"
	EntityEmployments Entity = "employments"
)

// Entities lists every entity the client knows about.
var Entities = []Entity{EntityPeople, EntityDepartments, EntityPositions, EntityEmployments}

// Valid reports whether the entity is one of the known record families.
func (e Entity) Valid() bool {
	switch e {
	case EntityPeople, EntityDepartments, EntityPositions, EntityEmployments:
		return true
	}
	return false
}

// QuickSearchFields returns the fixed set of text fields matched by a
// quick-search query for this entity (OR semantics across the set).
func (e Entity) QuickSearchFields() []string {
	switch e {
	case EntityPeople:
		return []string{"first_name", "last_name", "email", "phone"}
	case EntityDepartments:
		return []string{"name", "description"}
	case EntityPositions:
		return []string{"title", "description"}
	case EntityEmployments:
		return []string{"person_name", "department_name", "position_title"}
	default:
		return nil
	}
}

// Statistics is the aggregate counts panel value. Older servers do not
// expose the endpoint; callers that need a renderable value substitute
// ZeroStatistics instead of surfacing not-found.
type Statistics struct {
	People      int `json:"people"`
	Departments int `json:"departments"`
	Positions   int `json:"positions"`
	Employments int `json:"employments"`
}

// ZeroStatistics is the defined all-zero default for missing
// statistics endpoints.
var ZeroStatistics = Statistics{}

// Client is the synchronous RPC boundary to the REST server. Invoke
// blocks until the server responds; callers that must not block run it
// through the dispatcher. The result is a Record, a []Record or a
// Statistics depending on the operation.
type Client interface {
	Invoke(operation string, params map[string]string) (any, error)
	Ping() error
	Close() error
}

// Operation names understood by Invoke. Mutating operations follow the
// "<verb>_<entity>" convention so cache invalidation can be keyed off
// the entity prefix alone.
const (
	OpStatistics = "statistics"
)

// ListOp returns the list operation name for an entity.
func ListOp(e Entity) string { return string(e) + "_list" }

// GetOp returns the single-record fetch operation name for an entity.
func GetOp(e Entity) string { return string(e) + "_get" }

// CreateOp returns the create operation name for an entity.
func CreateOp(e Entity) string { return "create_" + string(e) }

// UpdateOp returns the update operation name for an entity.
func UpdateOp(e Entity) string { return "update_" + string(e) }

// DeleteOp returns the delete operation name for an entity.
func DeleteOp(e Entity) string { return "delete_" + string(e) }

// GenerateID generates a unique identifier using UUID v4. Used by test
// doubles and offline fixtures that mint record IDs locally.
func GenerateID() string {
	return uuid.New().String()
}

// ErrorKind classifies a backend error. Layers below the gateway route
// errors without inspecting the kind; the gateway special-cases
// KindNotFound for the statistics fallback only.
type ErrorKind string

const (
	// KindTransport covers unreachable hosts and timeouts. Retryable.
	KindTransport ErrorKind = "transport"
	// KindAuth covers rejected credentials. Never retried; the UI is
	// expected to ask the user to reconnect.
	KindAuth ErrorKind = "auth"
	// KindValidation carries field-level detail and is surfaced verbatim.
	KindValidation ErrorKind = "validation"
	// KindNotFound means the record or endpoint does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindRateLimit carries a retry-after hint. The gateway does not
	// auto-retry; the caller may re-submit after the hint elapses.
	KindRateLimit ErrorKind = "rate_limit"
	// KindGeneric is everything else the server reports.
	KindGeneric ErrorKind = "generic"
)

// Error is the typed error returned across the Client boundary.
type Error struct {
	Kind       ErrorKind
	Message    string
	Fields     map[string]string // per-field detail for KindValidation
	RetryAfter time.Duration     // hint for KindRateLimit
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == KindValidation && len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for field, msg := range e.Fields {
			parts = append(parts, field+": "+msg)
		}
		return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
	}
	return e.Message
}

// NewError creates a backend error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the error's kind, or KindGeneric for errors that did
// not originate at the Client boundary.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindGeneric
}

// IsKind reports whether err carries the given backend error kind.
func IsKind(err error, kind ErrorKind) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == kind
}
