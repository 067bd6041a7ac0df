package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultTimeout bounds the time hooks get to finish.
const DefaultTimeout = 5 * time.Second

// Handler cancels its context on a termination signal and runs hooks on Close.
type Handler struct {
	timeout time.Duration
	hooks   []func(context.Context) error
	mu      sync.Mutex
	once    sync.Once
	err     error

	ctx    context.Context
	cancel context.CancelFunc

	sigMu  sync.Mutex
	signal os.Signal
	sigCh  chan os.Signal
}

// NewHandler creates a handler whose context derives from parent.
// A non-positive timeout uses DefaultTimeout.
func NewHandler(parent context.Context, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		timeout: timeout,
		hooks:   make([]func(context.Context) error, 0),
		ctx:     ctx,
		cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}
	signal.Notify(h.sigCh, syscall.SIGINT, syscall.SIGTERM)
	go h.watch()
	return h
}

func (h *Handler) watch() {
	select {
	case sig := <-h.sigCh:
		h.sigMu.Lock()
		h.signal = sig
		h.sigMu.Unlock()
		h.cancel()
	case <-h.ctx.Done():
	}
}

// Context returns the context cancelled on SIGINT, SIGTERM or Close.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Signal returns the signal that cancelled the context, or nil.
func (h *Handler) Signal() os.Signal {
	h.sigMu.Lock()
	defer h.sigMu.Unlock()
	return h.signal
}

// OnShutdown registers a hook run by Close.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(hook func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// Close stops signal handling, cancels the context and runs the hooks.
// It returns the last hook error. Later calls return the same result.
func (h *Handler) Close() error {
	h.once.Do(func() {
		signal.Stop(h.sigCh)
		h.cancel()

		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		h.mu.Lock()
		hooks := make([]func(context.Context) error, len(h.hooks))
		copy(hooks, h.hooks)
		h.mu.Unlock()

		for i := len(hooks) - 1; i >= 0; i-- {
			if err := hooks[i](ctx); err != nil {
				h.err = err
			}
		}
	})
	return h.err
}
