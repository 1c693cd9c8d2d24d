// Package resttest provides an in-memory records server for tests of
// the REST client and the command layer.
package resttest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"staffdesk/backend"
)

// requiredFields lists the field each entity must carry on create.
var requiredFields = map[backend.Entity]string{
	backend.EntityPeople:      "first_name",
	backend.EntityDepartments: "name",
	backend.EntityPositions:   "title",
	backend.EntityEmployments: "person_id",
}

// Server is a fake records server backed by in-memory maps.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	records    map[backend.Entity][]backend.Record
	token      string
	statistics bool
	requests   int
}

// New starts a fake server with the statistics endpoint enabled.
func New() *Server {
	s := &Server{
		records:    make(map[backend.Entity][]backend.Record),
		statistics: true,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// RequireToken makes every endpoint demand the given bearer token.
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// DisableStatistics makes /api/statistics return 404, emulating an
// older server without the endpoint.
func (s *Server) DisableStatistics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statistics = false
}

// Seed adds records to an entity without going through the API.
func (s *Server) Seed(entity backend.Entity, records ...backend.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[entity] = append(s.records[entity], records...)
}

// Requests returns the number of API requests served.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++

	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		writeError(w, http.StatusUnauthorized, "invalid or missing token", nil)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/")
	switch {
	case path == "ping":
		w.WriteHeader(http.StatusOK)
	case path == "statistics":
		s.handleStatistics(w)
	default:
		s.handleEntity(w, r, path)
	}
}

func (s *Server) handleStatistics(w http.ResponseWriter) {
	if !s.statistics {
		writeError(w, http.StatusNotFound, "statistics not supported", nil)
		return
	}
	writeJSON(w, http.StatusOK, backend.Statistics{
		People:      len(s.records[backend.EntityPeople]),
		Departments: len(s.records[backend.EntityDepartments]),
		Positions:   len(s.records[backend.EntityPositions]),
		Employments: len(s.records[backend.EntityEmployments]),
	})
}

func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request, path string) {
	parts := strings.SplitN(path, "/", 2)
	entity := backend.Entity(parts[0])
	if !entity.Valid() {
		writeError(w, http.StatusNotFound, "unknown resource: "+parts[0], nil)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			records := s.records[entity]
			if records == nil {
				records = []backend.Record{}
			}
			writeJSON(w, http.StatusOK, records)
		case http.MethodPost:
			s.handleCreate(w, r, entity)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		}
		return
	}

	id := parts[1]
	idx := -1
	for i, record := range s.records[entity] {
		if record.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeError(w, http.StatusNotFound, string(entity)+" record not found: "+id, nil)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.records[entity][idx])
	case http.MethodPut:
		var fields map[string]string
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body", nil)
			return
		}
		for k, v := range fields {
			s.records[entity][idx][k] = v
		}
		writeJSON(w, http.StatusOK, s.records[entity][idx])
	case http.MethodDelete:
		s.records[entity] = append(s.records[entity][:idx], s.records[entity][idx+1:]...)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, entity backend.Entity) {
	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body", nil)
		return
	}

	if required := requiredFields[entity]; fields[required] == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation failed",
			map[string]string{required: "is required"})
		return
	}

	record := backend.Record{backend.FieldID: backend.GenerateID()}
	for k, v := range fields {
		record[k] = v
	}
	s.records[entity] = append(s.records[entity], record)
	writeJSON(w, http.StatusCreated, record)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, fields map[string]string) {
	payload := map[string]any{"message": message}
	if fields != nil {
		payload["errors"] = fields
	}
	writeJSON(w, status, payload)
}
