package tholder

import (
	"sync"
	"sync/atomic"
)

// Func is the single well-typed task signature tholder accepts. The
// source cast function pointers of mismatched arity through void*; this
// rewrite closes that hole by giving every task exactly one opaque
// argument and one opaque (value, error) result. Callers needing richer
// shapes box them into a struct.
type Func func(arg any) (any, error)

// Slot is one "house" in the pool table: the state needed to host a
// worker goroutine and hand it a task. See spec.md §3.
type Slot struct {
	index int

	hasWorker atomic.Bool
	hasTask   atomic.Bool

	dataMu   sync.Mutex
	fn       Func
	arg      any
	outputRef *Handle

	// wake substitutes for the source's work_cond_var/work_lock pair: a
	// buffered, non-blocking-send channel. Because at most one task can
	// be pending on a slot at a time (hasTask gates reservation), a
	// single buffered slot can never accumulate more than one pending
	// wake, so a signal is never lost between a submitter's send and a
	// worker's park. The remaining half of the condvar-timeout race
	// spec.md §4.3/§9 calls out — a timeout and a reservation landing on
	// the same slot at the same instant — is closed by dataMu itself;
	// see table.acquire and Slot.park.
	wake chan struct{}
}

func newSlot(index int) *Slot {
	return &Slot{
		index: index,
		wake:  make(chan struct{}, 1),
	}
}

// signal wakes a parked (or about-to-park) worker without blocking the
// submitter. Safe to call whether or not a worker is currently parked.
func (s *Slot) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// table is the slot table: a growable, lazily-populated sequence of
// slots addressed by index. Steady-state slot acquisition never takes
// mu; mu is only held while allocating a fresh Slot or doubling
// capacity, matching spec.md §3's "table-wide mutex... never held during
// task execution".
type table struct {
	mu         sync.Mutex
	slots      atomic.Pointer[[]*atomic.Pointer[Slot]]
	onGrow     func(capacity int) // optional; notified after a successful doubling
	onAllocate func()             // optional; notified after a fresh Slot is allocated
}

func newTable(capacity int) *table {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	refs := make([]*atomic.Pointer[Slot], capacity)
	for i := range refs {
		refs[i] = &atomic.Pointer[Slot]{}
	}
	t := &table{}
	t.slots.Store(&refs)
	return t
}

// capacity returns the current table capacity.
func (t *table) capacity() int {
	return len(*t.slots.Load())
}

// grow doubles the table's capacity unless another caller already grew
// it to at least that size, matching spec.md's "doubling is idempotent
// under the lock" requirement.
func (t *table) grow(atLeast int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	old := *t.slots.Load()
	if len(old) >= atLeast {
		return
	}
	newCap := len(old) * 2
	if newCap == 0 {
		newCap = DefaultCapacity
	}
	for newCap < atLeast {
		newCap *= 2
	}

	grown := make([]*atomic.Pointer[Slot], newCap)
	copy(grown, old) // reuse existing *atomic.Pointer[Slot] cells verbatim
	for i := len(old); i < newCap; i++ {
		grown[i] = &atomic.Pointer[Slot]{}
	}
	t.slots.Store(&grown)
	if t.onGrow != nil {
		t.onGrow(newCap)
	}
}

// acquire finds a slot whose hasTask is false and reserves it
// (transitioning hasTask false->true), per spec.md §4.1. It cannot fail:
// it grows the table instead of returning an error.
//
// The returned Slot is handed back with its dataMu still held. This is
// deliberate: reserving the slot (flipping hasTask) and writing the
// task's fn/arg/outputRef must happen as one uninterrupted critical
// section (done by the caller, Pool.Submit, which unlocks when it is
// done). A lock-free CAS on hasTask alone would let a parked worker's
// idle-timeout recheck (worker.go's park) observe hasTask already true
// while the fields are still nil, which is the exiting/submit race
// spec.md §4.3/§9 calls out. Holding dataMu across both the reservation
// and the write closes that window: park's own timer branch takes the
// same lock before deciding whether to exit, so it can never interleave
// with an in-progress reservation.
func (t *table) acquire() *Slot {
	i := 0
	for {
		refs := *t.slots.Load()
		if i >= len(refs) {
			t.grow(i + 1)
			continue
		}

		ref := refs[i]
		s := ref.Load()
		if s == nil {
			t.mu.Lock()
			s = ref.Load()
			if s == nil {
				s = newSlot(i)
				ref.Store(s)
				t.mu.Unlock()
				if t.onAllocate != nil {
					t.onAllocate()
				}
				s.dataMu.Lock()
				s.hasTask.Store(true)
				return s
			}
			t.mu.Unlock()
			// Someone else allocated it between our unlocked read and
			// the lock acquisition; fall through and try it below.
		}

		s.dataMu.Lock()
		if !s.hasTask.Load() {
			s.hasTask.Store(true)
			return s // returned to the caller still locked
		}
		s.dataMu.Unlock()
		i++
	}
}

// forEach calls fn for every slot that has been allocated so far. Used
// by Destroy and by diagnostics; never used on the dispatch hot path.
func (t *table) forEach(fn func(*Slot)) {
	refs := *t.slots.Load()
	for _, ref := range refs {
		if s := ref.Load(); s != nil {
			fn(s)
		}
	}
}
