// Package processing turns the blocking image.Processor contract into
// cancellable, pollable handles tagged with the generation that issued them.
package processing

import (
	"context"
	"sync"

	"cartoonify/internal/domain"
)

// State is the resolution state of a handle.
type State string

const (
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Outcome is a snapshot of a handle. ProcessedImageRef is set only when
// State is StateSucceeded; Err only when it is StateFailed or StateCancelled.
type Outcome struct {
	State             State
	ProcessedImageRef string
	Err               error
}

// Reason returns a user-facing failure description.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Handle tracks one in-flight processing request. The first resolution wins:
// once cancelled, a late result from the backend is discarded.
type Handle struct {
	id         string
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}

	mu      sync.Mutex
	outcome Outcome
}

func newHandle(id string, generation uint64, cancel context.CancelFunc) *Handle {
	return &Handle{
		id:         id,
		generation: generation,
		cancel:     cancel,
		done:       make(chan struct{}),
		outcome:    Outcome{State: StatePending},
	}
}

// ID returns the request id sent to the backend.
func (h *Handle) ID() string { return h.id }

// Generation returns the generation the handle was submitted under.
func (h *Handle) Generation() uint64 { return h.generation }

// Done is closed once the handle leaves StatePending.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Poll returns the current outcome without blocking.
func (h *Handle) Poll() Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome
}

// Cancel marks a pending handle cancelled and aborts the backend call on a
// best-effort basis. Cancelling a resolved handle has no effect on its outcome.
func (h *Handle) Cancel() {
	h.resolve(Outcome{State: StateCancelled, Err: domain.ErrCancelled})
	h.cancel()
}

func (h *Handle) resolve(o Outcome) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.outcome.State != StatePending {
		return false
	}
	h.outcome = o
	close(h.done)
	return true
}
