package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestCleanupLIFOOrder verifies last registered runs first
func TestCleanupLIFOOrder(t *testing.T) {
	m := NewManager()

	var order []string
	m.RegisterCleanup("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	m.RegisterCleanup("second", func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	m.Shutdown()
	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("expected LIFO order [second first], got %v", order)
	}
}

// TestShutdownIdempotent verifies repeated Shutdown calls are safe
func TestShutdownIdempotent(t *testing.T) {
	m := NewManager()
	m.Shutdown()
	m.Shutdown()
	if !m.IsShutdown() {
		t.Error("expected shutdown state")
	}
}

// TestContextCancelledOnShutdown verifies the manager context stops operations
func TestContextCancelledOnShutdown(t *testing.T) {
	m := NewManager()

	select {
	case <-m.Context().Done():
		t.Fatal("context cancelled before shutdown")
	default:
	}

	m.Shutdown()

	select {
	case <-m.Context().Done():
	case <-time.After(time.Second):
		t.Error("expected context cancellation after shutdown")
	}
}

// TestCleanupErrorsDoNotStopRemaining verifies a failing cleanup is logged, not fatal
func TestCleanupErrorsDoNotStopRemaining(t *testing.T) {
	m := NewManager()

	var ran bool
	m.RegisterCleanup("survivor", func(ctx context.Context) error {
		ran = true
		return nil
	})
	m.RegisterCleanup("failing", func(ctx context.Context) error {
		return errors.New("boom")
	})

	m.Shutdown()
	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("expected remaining cleanup to run after a failure")
	}
}

// TestWaitTimeout verifies a hung cleanup surfaces the context error
func TestWaitTimeout(t *testing.T) {
	m := NewManager()

	release := make(chan struct{})
	m.RegisterCleanup("hung", func(ctx context.Context) error {
		<-release
		return nil
	})

	m.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := m.Wait(ctx)
	close(release)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
