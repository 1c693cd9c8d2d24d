package dispatch

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestSubmitSuccess verifies the success callback fires with the result
func TestSubmitSuccess(t *testing.T) {
	d := New(nil)

	resultCh := make(chan any, 1)
	d.Submit(func() (any, error) {
		return "fetched", nil
	}, func(result any) {
		resultCh <- result
	}, func(err error) {
		t.Errorf("unexpected failure: %v", err)
	})

	select {
	case result := <-resultCh:
		if result != "fetched" {
			t.Errorf("expected %q, got %v", "fetched", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for success callback")
	}
}

// TestSubmitFailure verifies the failure callback fires with the error
func TestSubmitFailure(t *testing.T) {
	d := New(nil)

	wantErr := errors.New("server unreachable")
	errCh := make(chan error, 1)
	d.Submit(func() (any, error) {
		return nil, wantErr
	}, func(any) {
		t.Error("unexpected success")
	}, func(err error) {
		errCh <- err
	})

	select {
	case err := <-errCh:
		if !errors.Is(err, wantErr) {
			t.Errorf("expected %v, got %v", wantErr, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for failure callback")
	}
}

// TestSubmitNilOperation verifies a nil operation fails fast and synchronously
func TestSubmitNilOperation(t *testing.T) {
	d := New(nil)

	var failed bool
	task := d.Submit(nil, func(any) {
		t.Error("unexpected success for nil operation")
	}, func(err error) {
		// Runs before Submit returns.
		failed = true
		if !errors.Is(err, ErrNilOperation) {
			t.Errorf("expected ErrNilOperation, got %v", err)
		}
	})

	if !failed {
		t.Error("expected onFailure to run synchronously")
	}
	if task.State() != StateFailed {
		t.Errorf("expected state failed, got %v", task.State())
	}
	if d.InFlight() != 0 {
		t.Errorf("nil operation must not enter the in-flight set, got %d", d.InFlight())
	}
}

// TestCallbackExclusivity verifies exactly one callback fires exactly once
// across randomized success/failure outcomes.
func TestCallbackExclusivity(t *testing.T) {
	d := New(nil)
	rng := rand.New(rand.NewSource(42))

	var calls int64
	var wg sync.WaitGroup

	for i := 0; i < 1000; i++ {
		wg.Add(1)
		fail := rng.Intn(2) == 0
		d.Submit(func() (any, error) {
			if fail {
				return nil, errors.New("boom")
			}
			return i, nil
		}, func(any) {
			atomic.AddInt64(&calls, 1)
			wg.Done()
		}, func(error) {
			atomic.AddInt64(&calls, 1)
			wg.Done()
		})
	}

	wg.Wait()
	if got := atomic.LoadInt64(&calls); got != 1000 {
		t.Errorf("expected exactly 1000 callback invocations, got %d", got)
	}
	if !d.WaitForIdle(2 * time.Second) {
		t.Error("expected dispatcher to drain")
	}
}

// TestWaitForIdleDrains verifies WaitForIdle blocks until in-flight tasks finish
func TestWaitForIdleDrains(t *testing.T) {
	d := New(nil)

	release := make(chan struct{})
	for i := 0; i < 5; i++ {
		d.Submit(func() (any, error) {
			<-release
			return nil, nil
		}, nil, nil)
	}

	if d.InFlight() != 5 {
		t.Fatalf("expected 5 in-flight tasks, got %d", d.InFlight())
	}

	close(release)
	if !d.WaitForIdle(2 * time.Second) {
		t.Fatal("expected WaitForIdle to report drained")
	}
	if d.InFlight() != 0 {
		t.Errorf("expected 0 in-flight after drain, got %d", d.InFlight())
	}
}

// TestWaitForIdleTimeout verifies the timeout path cancels stragglers cooperatively
func TestWaitForIdleTimeout(t *testing.T) {
	d := New(nil)

	release := make(chan struct{})
	defer close(release)

	var callbackFired int64
	task := d.Submit(func() (any, error) {
		<-release
		return "late", nil
	}, func(any) {
		atomic.AddInt64(&callbackFired, 1)
	}, func(error) {
		atomic.AddInt64(&callbackFired, 1)
	})

	if d.WaitForIdle(50 * time.Millisecond) {
		t.Fatal("expected WaitForIdle to time out")
	}

	// The straggler was asked to cancel: its callback is detached and
	// the late result dropped once the operation returns.
	release <- struct{}{}
	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt64(&callbackFired); got != 0 {
		t.Errorf("expected no callback after cancellation, got %d", got)
	}
	if task.State() != StateCancelled {
		t.Errorf("expected state cancelled, got %v", task.State())
	}
}

// TestCancelBeforeRun verifies a cancelled task never runs its operation
func TestCancelBeforeRun(t *testing.T) {
	d := New(nil)

	var fired int64
	task := d.Submit(func() (any, error) {
		return nil, nil
	}, func(any) {
		atomic.AddInt64(&fired, 1)
	}, func(error) {
		atomic.AddInt64(&fired, 1)
	})

	// Cancel races the worker picking the task up: the task either
	// never ran (Cancelled) or completed before the cancel landed.
	// Either way, a task observed as Cancelled delivers no callback.
	task.Cancel()

	d.WaitForIdle(2 * time.Second)

	state := task.State()
	if state != StateCancelled && state != StateCompleted {
		t.Errorf("expected cancelled or completed, got %v", state)
	}
	if state == StateCancelled && atomic.LoadInt64(&fired) != 0 {
		t.Error("cancelled task must not deliver a callback")
	}
}

// TestCancelDropsLateResult verifies no callback fires after Cancel returns
func TestCancelDropsLateResult(t *testing.T) {
	d := New(nil)

	started := make(chan struct{})
	release := make(chan struct{})

	var fired int64
	task := d.Submit(func() (any, error) {
		close(started)
		<-release
		return "late", nil
	}, func(any) {
		atomic.AddInt64(&fired, 1)
	}, func(error) {
		atomic.AddInt64(&fired, 1)
	})

	<-started
	task.Cancel()
	close(release)

	d.WaitForIdle(2 * time.Second)

	if got := atomic.LoadInt64(&fired); got != 0 {
		t.Errorf("expected no callback after cancellation, got %d", got)
	}
	if task.State() != StateCancelled {
		t.Errorf("expected state cancelled, got %v", task.State())
	}
}

// TestDeliverMarshalsCompletions verifies completions flow through the
// injected deliver function, simulating a UI loop draining a queue.
func TestDeliverMarshalsCompletions(t *testing.T) {
	queue := make(chan func(), 16)
	d := New(func(fn func()) { queue <- fn })

	var onLoop bool
	d.Submit(func() (any, error) {
		return 7, nil
	}, func(result any) {
		onLoop = true
		if result != 7 {
			t.Errorf("expected 7, got %v", result)
		}
	}, nil)

	select {
	case fn := <-queue:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for queued completion")
	}

	if !onLoop {
		t.Error("expected callback to run via the deliver queue")
	}
}

// TestTaskStateTransitions verifies the observable lifecycle states
func TestTaskStateTransitions(t *testing.T) {
	d := New(nil)

	started := make(chan struct{})
	release := make(chan struct{})
	task := d.Submit(func() (any, error) {
		close(started)
		<-release
		return nil, nil
	}, nil, nil)

	<-started
	if task.State() != StateRunning {
		t.Errorf("expected running, got %v", task.State())
	}

	close(release)
	d.WaitForIdle(2 * time.Second)

	if task.State() != StateCompleted {
		t.Errorf("expected completed, got %v", task.State())
	}
}

// TestStateString covers the state name mapping
func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateCreated:   "created",
		StateRunning:   "running",
		StateCompleted: "completed",
		StateFailed:    "failed",
		StateCancelled: "cancelled",
		State(99):      "unknown",
	}
	for state, want := range cases {
		if state.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", state, state.String(), want)
		}
	}
}
