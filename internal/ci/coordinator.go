package ci

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/melvinsat/melvinctl/internal/errors"
)

// ErrSuperseded marks a run cancelled because a newer run entered its
// concurrency group. It is a cancellation signal, not a failure.
var ErrSuperseded = errors.New(errors.ErrCodeCIRunCancelled, "run superseded by a newer run in its concurrency group")

// Coordinator enforces concurrency groups in-process: starting a run
// cancels any in-flight run of the same group, so at most one run per
// group ever completes its publish.
type Coordinator struct {
	mu       sync.Mutex
	inflight map[string]*Run
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{inflight: make(map[string]*Run)}
}

// Run is one execution inside a concurrency group.
type Run struct {
	ID    string
	Group string

	cancel     context.CancelFunc
	done       chan struct{}
	err        error
	superseded bool
}

// Start launches fn in its own goroutine under group semantics. Any
// in-flight run of the same group receives a cancellation first.
func (c *Coordinator) Start(ctx context.Context, group string, fn func(ctx context.Context) error) *Run {
	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		ID:     uuid.NewString(),
		Group:  group,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	if prev, ok := c.inflight[group]; ok {
		prev.supersede()
	}
	c.inflight[group] = run
	c.mu.Unlock()

	go func() {
		defer close(run.done)
		err := fn(runCtx)

		c.mu.Lock()
		if c.inflight[group] == run {
			delete(c.inflight, group)
		}
		superseded := run.superseded
		c.mu.Unlock()

		if superseded {
			run.err = ErrSuperseded
			return
		}
		run.err = err
	}()

	return run
}

// supersede is called with the coordinator lock held.
func (r *Run) supersede() {
	r.superseded = true
	r.cancel()
}

// Wait blocks until the run finishes and returns its outcome.
// Superseded runs return ErrSuperseded.
func (r *Run) Wait() error {
	<-r.done
	return r.err
}

// Superseded reports whether a newer run cancelled this one. Valid
// after Wait returns.
func (r *Run) Superseded() bool {
	return r.superseded
}
