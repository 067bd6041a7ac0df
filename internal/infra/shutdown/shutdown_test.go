package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestNewHandler(t *testing.T) {
	h := NewHandler(context.Background(), 0)
	defer h.Close()

	if h.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", h.timeout, DefaultTimeout)
	}
	if h.Context().Err() != nil {
		t.Error("context should not be cancelled initially")
	}
	if h.Signal() != nil {
		t.Errorf("Signal() = %v, want nil", h.Signal())
	}
}

func TestHandler_CloseRunsHooksInReverse(t *testing.T) {
	h := NewHandler(context.Background(), time.Second)

	var (
		mu        sync.Mutex
		callOrder []int
	)
	for i := 1; i <= 3; i++ {
		id := i
		h.OnShutdown(func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("hook context has no deadline")
			}
			mu.Lock()
			callOrder = append(callOrder, id)
			mu.Unlock()
			return nil
		})
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(callOrder) != 3 || callOrder[0] != 3 || callOrder[1] != 2 || callOrder[2] != 1 {
		t.Errorf("hooks called in wrong order: %v, want [3 2 1]", callOrder)
	}
	if h.Context().Err() == nil {
		t.Error("context should be cancelled after Close")
	}
}

func TestHandler_CloseHookError(t *testing.T) {
	h := NewHandler(context.Background(), time.Second)
	expectedErr := errors.New("hook error")

	calls := 0
	h.OnShutdown(func(ctx context.Context) error { calls++; return nil })
	h.OnShutdown(func(ctx context.Context) error { calls++; return expectedErr })
	h.OnShutdown(func(ctx context.Context) error { calls++; return nil })

	if err := h.Close(); !errors.Is(err, expectedErr) {
		t.Errorf("Close() = %v, want %v", err, expectedErr)
	}
	if calls != 3 {
		t.Errorf("hooks called %d times, want 3", calls)
	}

	// A second Close does not rerun the hooks.
	if err := h.Close(); !errors.Is(err, expectedErr) {
		t.Errorf("second Close() = %v, want %v", err, expectedErr)
	}
	if calls != 3 {
		t.Errorf("hooks rerun: %d calls", calls)
	}
}

func TestHandler_Signal(t *testing.T) {
	h := NewHandler(context.Background(), time.Second)
	defer h.Close()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	select {
	case <-h.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled by SIGTERM")
	}
	if h.Signal() != syscall.SIGTERM {
		t.Errorf("Signal() = %v, want SIGTERM", h.Signal())
	}
}

func TestHandler_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	h := NewHandler(parent, time.Second)
	defer h.Close()

	cancel()
	select {
	case <-h.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled with its parent")
	}
	if h.Signal() != nil {
		t.Errorf("Signal() = %v, want nil", h.Signal())
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(context.Background(), time.Second)
	defer h.Close()

	var wg sync.WaitGroup
	const numGoroutines = 10
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown(func(ctx context.Context) error { return nil })
		}()
	}
	wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.hooks) != numGoroutines {
		t.Errorf("expected %d hooks, got %d", numGoroutines, len(h.hooks))
	}
}
