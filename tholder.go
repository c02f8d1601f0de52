// Package tholder implements a self-multiplexing thread-pool primitive:
// a thread-creation/join API that superficially resembles a native
// pthreads interface, but transparently multiplexes many short-lived
// tasks onto a bounded, dynamically-resizable set of long-lived worker
// goroutines, reclaiming idle workers on a timeout.
//
// The package exposes both an explicit Pool type (for callers who want
// several independent pools) and a process-wide default pool reached
// through the package-level Init/Submit/Join/Destroy functions, matching
// the external interface spec.md §6 describes. The default pool is
// lazily created on first Submit if Init was never called.
package tholder

import (
	"sync"
	"sync/atomic"
)

var (
	defaultPool     atomic.Pointer[Pool]
	defaultPoolInit sync.Mutex
)

// defaultOrInit returns the process-wide default Pool, lazily creating
// it on first use per spec.md §3.
func defaultOrInit() *Pool {
	if p := defaultPool.Load(); p != nil {
		return p
	}
	defaultPoolInit.Lock()
	defer defaultPoolInit.Unlock()
	if p := defaultPool.Load(); p != nil {
		return p
	}
	p := NewPool()
	defaultPool.Store(p)
	return p
}

// Init pre-sizes the process-wide default pool's slot table. Idempotent
// after the first call; see Pool.Init.
func Init(capacity int) {
	defaultOrInit().Init(capacity)
}

// Submit hands a task to the process-wide default pool. See Pool.Submit.
func Submit(fn Func, arg any) (*Handle, error) {
	return defaultOrInit().Submit(fn, arg)
}

// Destroy reclaims the process-wide default pool. A subsequent Init or
// Submit re-lazily-initializes a fresh one; see SPEC_FULL.md §5.
func Destroy() {
	defaultPoolInit.Lock()
	p := defaultPool.Swap(nil)
	defaultPoolInit.Unlock()
	if p != nil {
		p.Destroy()
	}
}

// WorkersSpawned returns the process-wide default pool's worker-spawn
// counter, or 0 if the default pool was never created.
func WorkersSpawned() uint64 {
	if p := defaultPool.Load(); p != nil {
		return p.WorkersSpawned()
	}
	return 0
}
