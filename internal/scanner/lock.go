package scanner

import (
	"sync"
	"sync/atomic"
)

// Lock provides non-blocking lock semantics using atomic operations,
// guarding one in-flight scan per workspace.
type Lock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired.
func (l *Lock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired it.
func (l *Lock) Release() {
	l.state.Store(0)
}

// Locks hands out one Lock per workspace path within the process
type Locks struct {
	mu    sync.Mutex
	locks map[string]*Lock
}

// NewLocks creates an empty lock registry
func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*Lock)}
}

// For returns the lock for workspacePath, creating it on first use
func (r *Locks) For(workspacePath string) *Lock {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[workspacePath]
	if !ok {
		lock = &Lock{}
		r.locks[workspacePath] = lock
	}
	return lock
}
