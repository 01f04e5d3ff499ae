package concurrency

import (
	"errors"
	"sync"
)

// ErrBusy is returned by Execute while another task holds the guard.
var ErrBusy = errors.New("already running")

// ConcurrencyGuard lets at most one task run at a time. Callers that lose the
// race fail fast instead of queueing.
type ConcurrencyGuard struct {
	mu     sync.Mutex
	isBusy bool
}

func NewConcurrencyGuard() *ConcurrencyGuard {
	return &ConcurrencyGuard{}
}

// Execute runs task unless another task is already running.
func (g *ConcurrencyGuard) Execute(task func() error) error {
	if !g.acquire() {
		return ErrBusy
	}
	defer g.release()
	return task()
}

// Busy reports whether a task is running.
func (g *ConcurrencyGuard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isBusy
}

func (g *ConcurrencyGuard) acquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.isBusy {
		return false
	}
	g.isBusy = true
	return true
}

func (g *ConcurrencyGuard) release() {
	g.mu.Lock()
	g.isBusy = false
	g.mu.Unlock()
}
