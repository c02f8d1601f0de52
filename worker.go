package tholder

import (
	"github.com/zoobzio/clockz"
)

// execute runs a task's function, converting a panic into a FaultError
// instead of letting it unwind the worker goroutine (spec.md §4.4, §7:
// "the rewrite should... catch the panic inside the worker loop and
// deliver it as an alternative faulted result variant").
func execute(slot int, fn Func, arg any) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: &FaultError{Slot: slot, Panic: r}}
		}
	}()
	value, err := fn(arg)
	return Result{Value: value, Err: err}
}

// run is the body executed by each worker goroutine, bound to one Slot
// for its lifetime. It implements the Running/Parked/Exiting state
// machine of spec.md §4.3.
func (s *Slot) run(p *Pool) {
	for {
		s.runPending(p)

		if !s.park(p) {
			return
		}
	}
}

// runPending executes the slot's installed task, if any, entirely under
// the data lock — including clearing hasTask — matching spec.md's
// description of the Running state ("invoke function, write result,
// signal completion, store has_task=false, release data_lock").
// Holding the lock across execution is safe because no other submitter
// can win the slot reservation while hasTask is true (table.acquire
// blocks on this same dataMu). Because acquire only ever sets hasTask
// true while holding dataMu, and only after fn/arg/outputRef are about
// to be written by the same critical section in Pool.Submit, fn and out
// here are never nil when hasTask is observed true.
func (s *Slot) runPending(p *Pool) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()

	if !s.hasTask.Load() {
		return
	}

	fn, arg, out := s.fn, s.arg, s.outputRef
	s.fn, s.arg, s.outputRef = nil, nil, nil

	res := p.traceExecute(s.index, fn, arg)
	p.recordTaskOutcome(res)

	out.deliver(res)
	s.hasTask.Store(false)
	p.recordSlotIdle()
}

// park waits for the next task or for the idle timeout to elapse. It
// returns true if the worker should keep running (a task arrived, or a
// task arrived in the narrow window right at timeout) and false if the
// worker should exit.
//
// The exiting/submit race spec.md §4.3 and §9 call out as "the primary
// subtlety" is closed here by re-checking hasTask under the data lock
// before clearing hasWorker: table.acquire takes this same lock before
// ever setting hasTask true (see table.acquire and Pool.Submit), so a
// reservation in progress when the timer fires is never missed — this
// branch either observes hasTask already true and fully written, or it
// wins the lock first and a racing acquire simply waits its turn.
func (s *Slot) park(p *Pool) bool {
	timer := p.clock.After(p.idleTimeout)
	select {
	case <-s.wake:
		return true
	case <-timer:
		s.dataMu.Lock()
		defer s.dataMu.Unlock()
		if s.hasTask.Load() {
			// A submitter won the race between our timeout firing and
			// its check of hasWorker; stay alive and run it.
			return true
		}
		s.hasWorker.Store(false)
		p.recordWorkerReclaimed(s.index)
		return false
	}
}

// idleWaitClock returns the clock a Pool uses for deadlines, defaulting
// to the real wall clock.
func idleWaitClock(c clockz.Clock) clockz.Clock {
	if c == nil {
		return clockz.RealClock
	}
	return c
}
