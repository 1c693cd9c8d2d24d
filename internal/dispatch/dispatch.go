// Package dispatch runs blocking remote calls on worker goroutines and
// marshals each completion back to the submitting loop, so a
// single-threaded UI can issue network calls without stalling.
package dispatch

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNilOperation is reported when Submit is called without an
// operation closure. This guards a defect class where a caller forgot
// to bind the closure; it must surface synchronously, not from a worker.
var ErrNilOperation = errors.New("dispatch: nil operation submitted")

// DefaultIdleTimeout is the per-shutdown wait for in-flight tasks.
const DefaultIdleTimeout = 5 * time.Second

// State is the lifecycle state of a task.
//
// Created -> Running -> Completed | Failed
// Created/Running -> Cancelled (cooperative; a running task only
// reaches Cancelled once its operation returns and the result is dropped)
type State int

const (
	StateCreated State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Operation is a blocking zero-argument closure returning a result or
// an error. It runs on a worker goroutine.
type Operation func() (any, error)

// Task is a handle to one submitted operation. It is owned by the
// dispatcher from submission to completion and never reused.
type Task struct {
	id        string
	mu        sync.Mutex
	state     State
	cancelled bool
	onSuccess func(any)
	onFailure func(error)
}

// ID returns the task's unique identifier.
func (t *Task) ID() string { return t.id }

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Cancel requests cooperative cancellation. A task that has not
// started never runs its operation; a running task keeps executing
// (the remote call may not be interruptible) but its callbacks are
// detached, so no callback ever fires after Cancel returns.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateCompleted || t.state == StateFailed {
		return
	}
	t.cancelled = true
	if t.state == StateCreated {
		t.state = StateCancelled
	}
	t.onSuccess = nil
	t.onFailure = nil
}

// beginRun transitions Created -> Running. Returns false when the task
// was cancelled before it started.
func (t *Task) beginRun() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		t.state = StateCancelled
		return false
	}
	t.state = StateRunning
	return true
}

// finish records the outcome and returns the single callback to
// deliver, or nil when the task was cancelled mid-run (late results
// for cancelled tasks are dropped).
func (t *Task) finish(result any, err error) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelled {
		t.state = StateCancelled
		return nil
	}

	if err != nil {
		t.state = StateFailed
		onFailure := t.onFailure
		t.onSuccess, t.onFailure = nil, nil
		if onFailure == nil {
			return nil
		}
		return func() { onFailure(err) }
	}

	t.state = StateCompleted
	onSuccess := t.onSuccess
	t.onSuccess, t.onFailure = nil, nil
	if onSuccess == nil {
		return nil
	}
	return func() { onSuccess(result) }
}

// Dispatcher tracks in-flight tasks and runs one worker goroutine per
// submission. Completions are handed to the deliver function, which is
// responsible for running them on the submitting loop.
type Dispatcher struct {
	mu       sync.Mutex
	inflight map[string]*Task
	wg       sync.WaitGroup
	deliver  func(func())
}

// New creates a Dispatcher. deliver marshals completion callbacks onto
// the caller's loop (for the TUI this is Program.Send); nil means
// callbacks run inline on the worker goroutine.
func New(deliver func(func())) *Dispatcher {
	if deliver == nil {
		deliver = func(fn func()) { fn() }
	}
	return &Dispatcher{
		inflight: make(map[string]*Task),
		deliver:  deliver,
	}
}

// Submit schedules op on a worker goroutine. Exactly one of onSuccess
// or onFailure fires, exactly once, through the deliver function. A
// nil op fails fast: onFailure runs synchronously before Submit returns.
func (d *Dispatcher) Submit(op Operation, onSuccess func(any), onFailure func(error)) *Task {
	task := &Task{
		id:        uuid.New().String(),
		state:     StateCreated,
		onSuccess: onSuccess,
		onFailure: onFailure,
	}

	if op == nil {
		task.state = StateFailed
		if onFailure != nil {
			onFailure(ErrNilOperation)
		}
		return task
	}

	d.mu.Lock()
	d.inflight[task.id] = task
	d.mu.Unlock()
	d.wg.Add(1)

	go d.run(task, op)

	return task
}

// run executes one task on its worker goroutine.
func (d *Dispatcher) run(task *Task, op Operation) {
	if !task.beginRun() {
		d.remove(task)
		return
	}

	result, err := op()

	callback := task.finish(result, err)

	// The handle leaves the in-flight set before its callback is
	// delivered, so WaitForIdle observes a monotonically shrinking count.
	d.remove(task)

	if callback != nil {
		d.deliver(callback)
	}
}

// remove drops the task from the in-flight registry.
func (d *Dispatcher) remove(task *Task) {
	d.mu.Lock()
	delete(d.inflight, task.id)
	d.mu.Unlock()
	d.wg.Done()
}

// InFlight returns the number of tasks not yet completed.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}

// WaitForIdle blocks until every in-flight task finishes or the
// timeout elapses. On timeout the remaining tasks are asked to cancel
// cooperatively: not-yet-started work is skipped and callbacks are
// detached, but a network call already on the wire keeps running.
// Returns true when the dispatcher drained in time.
func (d *Dispatcher) WaitForIdle(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
	}

	d.mu.Lock()
	remaining := make([]*Task, 0, len(d.inflight))
	for _, task := range d.inflight {
		remaining = append(remaining, task)
	}
	d.mu.Unlock()

	for _, task := range remaining {
		task.Cancel()
	}
	return false
}
