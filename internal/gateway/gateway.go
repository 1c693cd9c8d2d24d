// Package gateway composes the response cache, the task dispatcher and
// the remote client into cache-aware asynchronous record operations:
// cache-aside reads, write-invalidate mutations and a background
// auto-refresh loop gated on connectivity.
package gateway

import (
	"sync"
	"time"

	"staffdesk/backend"
	"staffdesk/internal/cache"
	"staffdesk/internal/dispatch"
	"staffdesk/internal/utils"
)

// Config holds gateway tuning. Zero values take the defaults below.
type Config struct {
	// ListTTL is the cache lifetime for listings and single records.
	// Default: 300 seconds.
	ListTTL time.Duration

	// RecordTTL is the cache lifetime for single-record fetches.
	// Default: 300 seconds.
	RecordTTL time.Duration

	// StatsTTL is the cache lifetime for the statistics aggregate.
	// Shorter because the value goes stale faster relative to its cost.
	// Default: 60 seconds.
	StatsTTL time.Duration

	// FailureThreshold is the number of consecutive transport failures
	// before the gateway reports itself disconnected. Default: 3.
	FailureThreshold int

	// Cooldown is how long the connection circuit stays open before a
	// probe is allowed. Default: 30 seconds.
	Cooldown time.Duration
}

func (c Config) withDefaults() Config {
	if c.ListTTL <= 0 {
		c.ListTTL = 300 * time.Second
	}
	if c.RecordTTL <= 0 {
		c.RecordTTL = 300 * time.Second
	}
	if c.StatsTTL <= 0 {
		c.StatsTTL = 60 * time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	return c
}

// readSpec remembers how a cached key was fetched so the auto-refresh
// loop can re-trigger the read path once the entry goes stale.
type readSpec struct {
	ttl   time.Duration
	fetch dispatch.Operation
}

// Gateway turns named record operations into cache-aware asynchronous
// calls. All collaborators are injected; the gateway owns no globals.
type Gateway struct {
	client backend.Client
	cache  *cache.Cache
	disp   *dispatch.Dispatcher
	cfg    Config

	mu             sync.Mutex
	connected      bool
	connListeners  []func(bool)
	remembered     map[string]readSpec
	refreshEnabled bool

	breaker *circuitBreaker

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a Gateway over the given client, cache and dispatcher.
// The gateway starts out assuming the server is reachable; the first
// probe or transport failure corrects that.
func New(client backend.Client, c *cache.Cache, d *dispatch.Dispatcher, cfg Config) *Gateway {
	cfg = cfg.withDefaults()
	return &Gateway{
		client:     client,
		cache:      c,
		disp:       d,
		cfg:        cfg,
		connected:  true,
		remembered: make(map[string]readSpec),
		breaker:    newCircuitBreaker(cfg.FailureThreshold, cfg.Cooldown),
		stopCh:     make(chan struct{}),
	}
}

// Read serves key from cache when fresh, invoking onSuccess
// synchronously with no dispatch. On a miss the fetch runs on a
// worker; the cache write happens on the worker before the callback is
// delivered, so a second read issued after delivery always hits.
// Concurrent misses for the same key issue duplicate fetches; cache
// writes are idempotent last-write-wins.
func (g *Gateway) Read(key string, ttl time.Duration, fetch dispatch.Operation, onSuccess func(any), onFailure func(error)) *dispatch.Task {
	if value, ok := g.cache.Get(key); ok {
		if onSuccess != nil {
			onSuccess(value)
		}
		return nil
	}

	g.mu.Lock()
	g.remembered[key] = readSpec{ttl: ttl, fetch: fetch}
	g.mu.Unlock()

	return g.dispatchRead(key, ttl, fetch, onSuccess, onFailure)
}

// dispatchRead runs the fetch on a worker with store-then-deliver semantics.
func (g *Gateway) dispatchRead(key string, ttl time.Duration, fetch dispatch.Operation, onSuccess func(any), onFailure func(error)) *dispatch.Task {
	return g.disp.Submit(func() (any, error) {
		value, err := g.recordOutcome(fetch)
		if err != nil {
			return nil, err
		}
		g.cache.Set(key, value, ttl)
		return value, nil
	}, onSuccess, onFailure)
}

// Write always dispatches; mutations are never served from cache. On
// success every listed prefix is invalidated before onSuccess is
// delivered, so a refresh triggered by the callback never observes
// stale cached listings.
func (g *Gateway) Write(fetch dispatch.Operation, invalidatePrefixes []string, onSuccess func(any), onFailure func(error)) *dispatch.Task {
	return g.disp.Submit(func() (any, error) {
		value, err := g.recordOutcome(fetch)
		if err != nil {
			return nil, err
		}
		for _, prefix := range invalidatePrefixes {
			g.cache.InvalidatePrefix(prefix)
		}
		return value, nil
	}, onSuccess, onFailure)
}

// recordOutcome runs the fetch and feeds the connectivity circuit:
// transport failures count toward disconnection, any success closes
// the circuit. Error content is otherwise passed through untouched.
func (g *Gateway) recordOutcome(fetch dispatch.Operation) (any, error) {
	value, err := fetch()
	if err != nil {
		if backend.IsKind(err, backend.KindTransport) {
			g.breaker.RecordFailure()
			if g.breaker.State() == CircuitOpen {
				g.setConnected(false)
			}
		}
		return nil, err
	}
	g.breaker.RecordSuccess()
	g.setConnected(true)
	return value, nil
}

// List fetches a page of records for entity, cache-aside.
func (g *Gateway) List(entity backend.Entity, params map[string]string, onSuccess func([]backend.Record), onFailure func(error)) *dispatch.Task {
	op := backend.ListOp(entity)
	key := cache.Key(op, params)
	fetch := func() (any, error) { return g.client.Invoke(op, params) }
	return g.Read(key, g.cfg.ListTTL, fetch, func(value any) {
		if onSuccess != nil {
			onSuccess(toRecords(value))
		}
	}, onFailure)
}

// Get fetches a single record by id, cache-aside.
func (g *Gateway) Get(entity backend.Entity, id string, onSuccess func(backend.Record), onFailure func(error)) *dispatch.Task {
	op := backend.GetOp(entity)
	params := map[string]string{backend.FieldID: id}
	key := cache.Key(op, params)
	fetch := func() (any, error) { return g.client.Invoke(op, params) }
	return g.Read(key, g.cfg.RecordTTL, fetch, func(value any) {
		if onSuccess != nil {
			onSuccess(toRecord(value))
		}
	}, onFailure)
}

// Create creates a record and invalidates every cached key for the entity.
func (g *Gateway) Create(entity backend.Entity, fields map[string]string, onSuccess func(backend.Record), onFailure func(error)) *dispatch.Task {
	fetch := func() (any, error) { return g.client.Invoke(backend.CreateOp(entity), fields) }
	return g.Write(fetch, entityPrefixes(entity), func(value any) {
		if onSuccess != nil {
			onSuccess(toRecord(value))
		}
	}, onFailure)
}

// Update updates a record by id and invalidates the entity's cached keys.
func (g *Gateway) Update(entity backend.Entity, id string, fields map[string]string, onSuccess func(backend.Record), onFailure func(error)) *dispatch.Task {
	params := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		params[k] = v
	}
	params[backend.FieldID] = id
	fetch := func() (any, error) { return g.client.Invoke(backend.UpdateOp(entity), params) }
	return g.Write(fetch, entityPrefixes(entity), func(value any) {
		if onSuccess != nil {
			onSuccess(toRecord(value))
		}
	}, onFailure)
}

// Delete removes a record by id and invalidates the entity's cached keys.
func (g *Gateway) Delete(entity backend.Entity, id string, onSuccess func(), onFailure func(error)) *dispatch.Task {
	params := map[string]string{backend.FieldID: id}
	fetch := func() (any, error) { return g.client.Invoke(backend.DeleteOp(entity), params) }
	return g.Write(fetch, entityPrefixes(entity), func(any) {
		if onSuccess != nil {
			onSuccess()
		}
	}, onFailure)
}

// Statistics fetches the aggregate counts panel value. A not-found
// from the server means the endpoint is missing on older backends and
// is substituted with the all-zero default - the one place the gateway
// interprets an error kind. All other errors propagate unmodified.
func (g *Gateway) Statistics(onSuccess func(backend.Statistics), onFailure func(error)) *dispatch.Task {
	fetch := func() (any, error) {
		value, err := g.client.Invoke(backend.OpStatistics, nil)
		if backend.IsKind(err, backend.KindNotFound) {
			utils.Debugf("statistics endpoint missing, using zero default")
			return backend.ZeroStatistics, nil
		}
		return value, err
	}
	return g.Read(backend.OpStatistics, g.cfg.StatsTTL, fetch, func(value any) {
		if onSuccess != nil {
			onSuccess(toStatistics(value))
		}
	}, onFailure)
}

// entityPrefixes returns the cache key prefixes a mutation on the
// entity invalidates. Both the "<entity>_list..." and "<entity>_get..."
// families share the entity name prefix.
func entityPrefixes(entity backend.Entity) []string {
	return []string{string(entity) + "_"}
}

// recognizedPrefixes are the key families the refresh loop will re-fetch.
var recognizedPrefixes = []string{
	string(backend.EntityPeople) + "_",
	string(backend.EntityDepartments) + "_",
	string(backend.EntityPositions) + "_",
	string(backend.EntityEmployments) + "_",
	backend.OpStatistics,
}

// StartAutoRefresh starts the background loop that re-fetches stale
// cached reads every interval while refresh is enabled and the gateway
// reports itself connected.
func (g *Gateway) StartAutoRefresh(interval time.Duration) {
	g.SetRefreshEnabled(true)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-g.stopCh:
				return
			case <-ticker.C:
				g.refreshOnce()
			}
		}
	}()
}

// SetRefreshEnabled toggles the refresh loop without stopping its timer.
func (g *Gateway) SetRefreshEnabled(enabled bool) {
	g.mu.Lock()
	g.refreshEnabled = enabled
	g.mu.Unlock()
}

// refreshOnce re-triggers the read path for every recognized key that
// has gone stale. Disconnected state suppresses the pass entirely:
// there is no point retrying network calls known to be failing.
func (g *Gateway) refreshOnce() {
	g.mu.Lock()
	enabled := g.refreshEnabled
	connected := g.connected
	snapshot := make(map[string]readSpec, len(g.remembered))
	for key, spec := range g.remembered {
		snapshot[key] = spec
	}
	g.mu.Unlock()

	if !enabled || !connected {
		return
	}

	refreshed := 0
	for _, prefix := range recognizedPrefixes {
		for _, key := range g.cache.StaleKeys(prefix) {
			spec, ok := snapshot[key]
			if !ok {
				continue
			}
			g.dispatchRead(key, spec.ttl, spec.fetch, nil, nil)
			refreshed++
		}
	}
	if refreshed > 0 {
		utils.Debugf("auto-refresh re-fetched %d stale keys", refreshed)
	}
}

// StartConnectivityProbe starts the periodic probe that detects
// reconnection. The refresh loop itself never probes.
func (g *Gateway) StartConnectivityProbe(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-g.stopCh:
				return
			case <-ticker.C:
				if g.breaker.Allow() {
					g.TestConnection()
				}
			}
		}
	}()
}

// TestConnection probes the server once and updates connection state.
func (g *Gateway) TestConnection() bool {
	err := g.client.Ping()
	if err != nil {
		g.breaker.RecordFailure()
		g.setConnected(false)
		return false
	}
	g.breaker.RecordSuccess()
	g.setConnected(true)
	return true
}

// Connected reports the last known connection state.
func (g *Gateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

// OnConnectionChange registers a listener for connection transitions.
// Listeners fire exactly once per change, never on repeated identical
// probe results.
func (g *Gateway) OnConnectionChange(fn func(connected bool)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connListeners = append(g.connListeners, fn)
}

// setConnected updates the state and notifies listeners on the edge.
func (g *Gateway) setConnected(connected bool) {
	g.mu.Lock()
	if g.connected == connected {
		g.mu.Unlock()
		return
	}
	g.connected = connected
	listeners := make([]func(bool), len(g.connListeners))
	copy(listeners, g.connListeners)
	g.mu.Unlock()

	if connected {
		utils.Infof("server connection restored")
	} else {
		utils.Warnf("server connection lost")
	}
	for _, fn := range listeners {
		fn(connected)
	}
}

// Stop shuts down the refresh and probe loops. Safe to call multiple times.
func (g *Gateway) Stop() {
	g.stopOnce.Do(func() {
		close(g.stopCh)
	})
}

// toRecords normalizes an Invoke result into a record slice.
func toRecords(value any) []backend.Record {
	switch v := value.(type) {
	case []backend.Record:
		return v
	case []any:
		records := make([]backend.Record, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				records = append(records, backend.Record(m))
			}
		}
		return records
	case backend.Record:
		return []backend.Record{v}
	default:
		return nil
	}
}

// toRecord normalizes an Invoke result into a single record.
func toRecord(value any) backend.Record {
	switch v := value.(type) {
	case backend.Record:
		return v
	case map[string]any:
		return backend.Record(v)
	default:
		return nil
	}
}

// toStatistics normalizes an Invoke result into a Statistics value.
func toStatistics(value any) backend.Statistics {
	switch v := value.(type) {
	case backend.Statistics:
		return v
	case *backend.Statistics:
		if v != nil {
			return *v
		}
	}
	return backend.ZeroStatistics
}
