package tholder

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the public API. Callers should use
// errors.Is against these rather than matching on message text.
var (
	// ErrDoubleJoin is returned by Join when a handle has already been
	// joined once. The source this library is modeled on frees the
	// handle on join and leaves a second join undefined; this rewrite
	// detects it instead.
	ErrDoubleJoin = errors.New("tholder: handle already joined")

	// ErrSpawnFailed is returned by Submit when the underlying goroutine
	// could not be started. In practice the Go runtime only fails to
	// start a goroutine under resource exhaustion severe enough that the
	// process is already in trouble, but Submit still surfaces it rather
	// than panicking, per spec.
	ErrSpawnFailed = errors.New("tholder: worker spawn failed")
)

// FaultError wraps a panic recovered from inside a task's function. A
// faulted task does not crash its worker or leak the panic into the
// joiner's goroutine; it is delivered through the handle like any other
// result, with Result.Err set to a *FaultError instead of the return
// value being usable.
type FaultError struct {
	Slot  int
	Panic any
}

func (f *FaultError) Error() string {
	return fmt.Sprintf("tholder: task on slot %d faulted: %v", f.Slot, f.Panic)
}

// Unwrap allows errors.Is/errors.As to see through to the recovered
// panic value when it is itself an error.
func (f *FaultError) Unwrap() error {
	if err, ok := f.Panic.(error); ok {
		return err
	}
	return nil
}
