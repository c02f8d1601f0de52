package tholder

import "sync/atomic"

// Result carries a task's outcome through its Handle. Exactly one of Err
// being nil or non-nil is meaningful at a time: a faulted task's Value is
// always the zero value.
type Result struct {
	Value any
	Err   error
}

// Handle is the caller-side rendezvous object returned by Submit. It is
// move-only in spirit: callers should treat a Handle as consumed once
// passed to Join, and must never Join the same Handle twice (Join
// reports ErrDoubleJoin instead of racing on reuse).
type Handle struct {
	done   chan struct{}
	result Result
	joined atomic.Bool
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// deliver completes the handle exactly once. It is called by the worker
// loop under the owning slot's data lock, which together with has_task
// never being reused across tasks guarantees exactly-once delivery.
func (h *Handle) deliver(res Result) {
	h.result = res
	close(h.done)
}

// Join blocks until the task's result is available, then returns it.
// Calling Join twice on the same Handle returns ErrDoubleJoin on the
// second call rather than the undefined behavior of the source library.
func (h *Handle) Join() (any, error) {
	if !h.joined.CompareAndSwap(false, true) {
		return nil, ErrDoubleJoin
	}
	<-h.done
	return h.result.Value, h.result.Err
}

// Join is a package-level convenience equivalent to handle.Join(),
// matching the external interface table in spec.md §6 where join takes
// the handle as an argument.
func Join(h *Handle) (any, error) {
	return h.Join()
}
