package service

import (
	"context"
	"sync"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

// Turn connects a running chat turn to whoever is delivering its chunks.
// The producer always runs to completion; once the consumer detaches, further
// chunks are dropped instead of blocking.
type Turn struct {
	chunks     chan domain.StreamChunk
	detached   chan struct{}
	detachOnce sync.Once
	done       chan struct{}

	mu    sync.Mutex
	state domain.TurnState
	err   error
}

func newTurn() *Turn {
	return &Turn{
		chunks:   make(chan domain.StreamChunk, 64),
		detached: make(chan struct{}),
		done:     make(chan struct{}),
		state:    domain.TurnStateInvoking,
	}
}

// Chunks yields stream chunks until the turn ends.
func (t *Turn) Chunks() <-chan domain.StreamChunk {
	return t.chunks
}

// Detach stops delivery. The turn keeps running and still finalizes.
func (t *Turn) Detach() {
	t.detachOnce.Do(func() { close(t.detached) })
}

// Done is closed when the turn has finalized or failed.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the turn ends or ctx is done.
func (t *Turn) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current lifecycle state.
func (t *Turn) State() domain.TurnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the error that failed the turn, if any.
func (t *Turn) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Turn) setState(state domain.TurnState) {
	t.mu.Lock()
	advance(&t.state, state)
	t.mu.Unlock()
}

func (t *Turn) fail(err error) {
	t.mu.Lock()
	advance(&t.state, domain.TurnStateFailed)
	t.err = err
	t.mu.Unlock()
}

func (t *Turn) emit(chunk domain.StreamChunk) {
	select {
	case <-t.detached:
		return
	default:
	}
	select {
	case t.chunks <- chunk:
	case <-t.detached:
	}
}

func (t *Turn) finish() {
	close(t.chunks)
	close(t.done)
}
