// Package rest implements the backend.Client interface over the
// records server's JSON REST API. HTTP statuses are mapped onto the
// typed error taxonomy; 429 responses are retried with exponential
// backoff before surfacing as rate-limit errors.
package rest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"staffdesk/backend"
	"staffdesk/internal/ratelimit"
)

// Config holds the connection settings for the records server.
type Config struct {
	// BaseURL is the server root, e.g. https://records.example.com.
	BaseURL string

	// Token authenticates with a bearer token when set.
	Token string

	// Username and Password authenticate with basic auth when Token is empty.
	Username string
	Password string

	// Timeout applies per request attempt. Default: 30 seconds.
	Timeout time.Duration

	// RateLimitStats optionally records 429 events.
	RateLimitStats *ratelimit.Stats
}

// Client is the REST implementation of backend.Client.
type Client struct {
	baseURL string
	auth    string
	http    *ratelimit.Client
}

// New creates a REST client for the given server.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("invalid server URL: %s", cfg.BaseURL)
	}

	var auth string
	switch {
	case cfg.Token != "":
		auth = "Bearer " + cfg.Token
	case cfg.Username != "":
		creds := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		auth = "Basic " + creds
	}

	return &Client{
		baseURL: base,
		auth:    auth,
		http: ratelimit.NewClient(ratelimit.Config{
			Timeout: cfg.Timeout,
			Stats:   cfg.RateLimitStats,
			Server:  base,
		}),
	}, nil
}

// Invoke executes a named operation against the server. The result is
// a backend.Record, []backend.Record or backend.Statistics depending
// on the operation.
func (c *Client) Invoke(operation string, params map[string]string) (any, error) {
	switch {
	case operation == backend.OpStatistics:
		return c.getStatistics()
	case strings.HasSuffix(operation, "_list"):
		return c.list(backend.Entity(strings.TrimSuffix(operation, "_list")), params)
	case strings.HasSuffix(operation, "_get"):
		return c.get(backend.Entity(strings.TrimSuffix(operation, "_get")), params[backend.FieldID])
	case strings.HasPrefix(operation, "create_"):
		return c.create(backend.Entity(strings.TrimPrefix(operation, "create_")), params)
	case strings.HasPrefix(operation, "update_"):
		return c.update(backend.Entity(strings.TrimPrefix(operation, "update_")), params)
	case strings.HasPrefix(operation, "delete_"):
		return c.delete(backend.Entity(strings.TrimPrefix(operation, "delete_")), params[backend.FieldID])
	default:
		return nil, backend.NewError(backend.KindGeneric, "unknown operation: %s", operation)
	}
}

// Ping checks server reachability and credentials.
func (c *Client) Ping() error {
	resp, err := c.do(http.MethodGet, "/api/ping", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkStatus(resp, http.StatusOK)
}

// Close releases client resources. The underlying HTTP client keeps no
// persistent state beyond pooled connections.
func (c *Client) Close() error {
	return nil
}

func (c *Client) list(entity backend.Entity, params map[string]string) ([]backend.Record, error) {
	if !entity.Valid() {
		return nil, backend.NewError(backend.KindGeneric, "unknown entity: %s", entity)
	}

	path := "/api/" + string(entity)
	if len(params) > 0 {
		query := url.Values{}
		for k, v := range params {
			if v != "" {
				query.Set(k, v)
			}
		}
		if encoded := query.Encode(); encoded != "" {
			path += "?" + encoded
		}
	}

	resp, err := c.do(http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}

	var records []backend.Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, backend.NewError(backend.KindGeneric, "malformed listing response: %v", err)
	}
	return records, nil
}

func (c *Client) get(entity backend.Entity, id string) (backend.Record, error) {
	if id == "" {
		return nil, backend.NewError(backend.KindValidation, "record id is required")
	}

	resp, err := c.do(http.MethodGet, "/api/"+string(entity)+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}
	return decodeRecord(resp.Body)
}

func (c *Client) create(entity backend.Entity, fields map[string]string) (backend.Record, error) {
	body, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(http.MethodPost, "/api/"+string(entity), jsonHeader(), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp, http.StatusCreated, http.StatusOK); err != nil {
		return nil, err
	}
	return decodeRecord(resp.Body)
}

func (c *Client) update(entity backend.Entity, fields map[string]string) (backend.Record, error) {
	id := fields[backend.FieldID]
	if id == "" {
		return nil, backend.NewError(backend.KindValidation, "record id is required")
	}

	payload := make(map[string]string, len(fields))
	for k, v := range fields {
		if k != backend.FieldID {
			payload[k] = v
		}
	}
	body, err := encodeFields(payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(http.MethodPut, "/api/"+string(entity)+"/"+url.PathEscape(id), jsonHeader(), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}
	return decodeRecord(resp.Body)
}

func (c *Client) delete(entity backend.Entity, id string) (any, error) {
	if id == "" {
		return nil, backend.NewError(backend.KindValidation, "record id is required")
	}

	resp, err := c.do(http.MethodDelete, "/api/"+string(entity)+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp, http.StatusNoContent, http.StatusOK); err != nil {
		return nil, err
	}
	return backend.Record{backend.FieldID: id}, nil
}

func (c *Client) getStatistics() (backend.Statistics, error) {
	resp, err := c.do(http.MethodGet, "/api/statistics", nil, nil)
	if err != nil {
		return backend.ZeroStatistics, err
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp, http.StatusOK); err != nil {
		return backend.ZeroStatistics, err
	}

	var stats backend.Statistics
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return backend.ZeroStatistics, backend.NewError(backend.KindGeneric, "malformed statistics response: %v", err)
	}
	return stats, nil
}

// do issues one request, translating transport and rate-limit failures
// into typed errors.
func (c *Client) do(method, path string, header http.Header, body io.Reader) (*http.Response, error) {
	if header == nil {
		header = http.Header{}
	}
	header.Set("Accept", "application/json")
	if c.auth != "" {
		header.Set("Authorization", c.auth)
	}

	resp, err := c.http.Do(context.Background(), method, c.baseURL+path, header, body)
	if err != nil {
		var rle *ratelimit.RateLimitError
		if errors.As(err, &rle) {
			be := backend.NewError(backend.KindRateLimit, "%s", rle.Error())
			be.RetryAfter = rle.RetryAfter
			return nil, be
		}
		return nil, backend.NewError(backend.KindTransport, "%s unreachable: %v", c.baseURL, err)
	}
	return resp, nil
}

// checkStatus maps an unexpected HTTP status onto the error taxonomy.
func (c *Client) checkStatus(resp *http.Response, want ...int) error {
	for _, status := range want {
		if resp.StatusCode == status {
			return nil
		}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	message, fields := parseErrorBody(body)
	if message == "" {
		message = fmt.Sprintf("server returned status %d", resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return backend.NewError(backend.KindAuth, "%s", message)
	case http.StatusNotFound:
		return backend.NewError(backend.KindNotFound, "%s", message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		be := backend.NewError(backend.KindValidation, "%s", message)
		be.Fields = fields
		return be
	default:
		return backend.NewError(backend.KindGeneric, "%s", message)
	}
}

// parseErrorBody extracts the server's error message and optional
// per-field validation detail from a JSON error document.
func parseErrorBody(body []byte) (string, map[string]string) {
	var payload struct {
		Message string            `json:"message"`
		Error   string            `json:"error"`
		Errors  map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body)), nil
	}
	message := payload.Message
	if message == "" {
		message = payload.Error
	}
	return message, payload.Errors
}

func decodeRecord(r io.Reader) (backend.Record, error) {
	var record backend.Record
	if err := json.NewDecoder(r).Decode(&record); err != nil {
		return nil, backend.NewError(backend.KindGeneric, "malformed record response: %v", err)
	}
	return record, nil
}

func encodeFields(fields map[string]string) (io.Reader, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, backend.NewError(backend.KindGeneric, "failed to encode request: %v", err)
	}
	return bytes.NewReader(data), nil
}

func jsonHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return h
}
