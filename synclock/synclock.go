// Package synclock provides the two Lock implementations a pool.Pool
// is built with: a real mutex for concurrent use, and a no-op for
// single-goroutine use where the overhead of locking is unwanted.
package synclock

import "sync"

// Mutex wraps sync.Mutex to satisfy pool.Lock.
type Mutex struct {
	mu sync.Mutex
}

func (m *Mutex) Lock()   { m.mu.Lock() }
func (m *Mutex) Unlock() { m.mu.Unlock() }

// NoOp satisfies pool.Lock without any synchronization. Safe only when
// the owning Pool is never shared across goroutines.
type NoOp struct{}

func (NoOp) Lock()   {}
func (NoOp) Unlock() {}
