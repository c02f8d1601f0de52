package tholder

import (
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/tracez"
)

// Pool is a self-multiplexing thread pool: a bounded, dynamically
// resizable set of long-lived worker goroutines that transparently run
// short-lived tasks submitted to it, reclaiming idle workers after
// idleTimeout. See spec.md §2 for the component breakdown.
//
// A Pool's table is lazily created on first use (Init or Submit), via a
// compare-and-swap on tblPtr — this substitutes for spec.md's pool_lock
// during creation. Growth is guarded by the table's own internal mutex
// (never this Pool's), and teardown is a single atomic swap to nil, so
// pool_lock never needs to exist as a distinct object in this rewrite.
type Pool struct {
	tblPtr      atomic.Pointer[table]
	capacity    int
	idleTimeout time.Duration
	clock       clockz.Clock

	spawned atomic.Uint64
	active  atomic.Int64

	metrics *metricsBundle
	tracer  *tracez.Tracer
	hooks   *hooksBundle
}

// NewPool constructs a Pool. The slot table itself is not allocated
// until Init is called or the first task is Submitted, matching
// spec.md §3's "uninitialized on startup; lazily created on first
// submit" process-wide pool lifecycle, generalized to an arbitrary
// number of independent pools.
func NewPool(opts ...Option) *Pool {
	cfg := defaultPoolConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	m, tr, h := newObservability()
	return &Pool{
		capacity:    cfg.capacity,
		idleTimeout: cfg.idleTimeout,
		clock:       idleWaitClock(cfg.clock),
		metrics:     m,
		tracer:      tr,
		hooks:       h,
	}
}

// Init pre-sizes the slot table. It is idempotent: if the table already
// exists (from a prior Init, Submit, or because this Pool was never
// Destroyed), it is a no-op, per spec.md §4.5. It may not shrink an
// existing table.
func (p *Pool) Init(capacity int) {
	if capacity < 1 {
		capacity = p.capacity
	}
	tbl := newTable(capacity)
	tbl.onGrow = p.recordTableGrown
	tbl.onAllocate = p.recordSlotAllocated
	if p.tblPtr.CompareAndSwap(nil, tbl) {
		p.metrics.tableCapacity.Set(float64(tbl.capacity()))
		p.recordPoolInit(tbl.capacity())
	}
	// Else: another call already initialized the table first; ours is
	// discarded unused and collected, and the existing table stands.
}

// ensureTable lazily initializes the slot table on first use, per
// spec.md §3's "lazily created on first submit with a default capacity".
func (p *Pool) ensureTable() *table {
	if tbl := p.tblPtr.Load(); tbl != nil {
		return tbl
	}
	p.Init(p.capacity)
	return p.tblPtr.Load()
}

// Submit hands a task to the pool and returns a Handle the caller joins
// to observe its result. See spec.md §4.2.
//
// acquire returns its chosen slot with dataMu already held, so the
// hasTask reservation and the fn/arg/outputRef write below happen in
// one uninterrupted critical section — the same section a parked
// worker's timeout recheck (worker.go's park) must wait for. This is
// what closes the exiting/submit race spec.md §4.3/§9 calls out: a
// worker can never observe hasTask true with the fields not yet
// written, because acquire would still be holding the lock.
func (p *Pool) Submit(fn Func, arg any) (*Handle, error) {
	tbl := p.ensureTable()
	slot := tbl.acquire() // returns with slot.dataMu held; hasTask now true

	h := newHandle()
	slot.fn = fn
	slot.arg = arg
	slot.outputRef = h

	needsWorker := slot.hasWorker.CompareAndSwap(false, true)
	if !needsWorker {
		// An existing worker owns this slot; wake it while still holding
		// dataMu so its Exiting-state recheck (worker.go's park) cannot
		// race past us and reclaim the slot out from under this task.
		slot.signal()
	}
	slot.dataMu.Unlock()

	if needsWorker {
		if !p.spawnWorker(slot) {
			slot.dataMu.Lock()
			slot.fn, slot.arg, slot.outputRef = nil, nil, nil
			slot.hasTask.Store(false)
			slot.hasWorker.Store(false)
			slot.dataMu.Unlock()
			return nil, ErrSpawnFailed
		}
	}

	p.recordTaskSubmitted()
	p.recordSlotActive()
	return h, nil
}

// spawnWorker starts the worker goroutine bound to slot. A goroutine
// cannot itself fail to start the way pthread_create can, but Submit's
// contract (spec.md §4.2 failure clause, §7 SpawnFail) still reserves a
// typed error path for it rather than assuming success unconditionally.
func (p *Pool) spawnWorker(slot *Slot) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	go slot.run(p)
	p.recordWorkerSpawned(slot.index)
	return true
}

// WorkersSpawned returns the number of worker goroutines spawned over
// this Pool's lifetime, the diagnostic counter spec.md §6 calls for.
func (p *Pool) WorkersSpawned() uint64 {
	return p.spawned.Load()
}

// quiescenceGraceMultiplier bounds how long Destroy waits for in-flight
// workers to notice they have no more work before it tears the table
// down anyway. Callers are contractually responsible for quiescence
// (spec.md §4.5); this is a courtesy, not a guarantee.
const quiescenceGraceMultiplier = 10

// Destroy reclaims the slot table. It is idempotent and safe to call
// concurrently with itself or with a racing Init/Submit (the loser of
// the atomic swap simply finds nothing to tear down, or re-initializes
// a fresh table — see SPEC_FULL.md §5 for why submit-after-destroy is
// intentionally supported rather than forbidden).
//
// Callers must guarantee no in-flight tasks and no outstanding Join
// handles; this is a caller contract per spec.md §4.5, not enforced.
func (p *Pool) Destroy() {
	tbl := p.tblPtr.Swap(nil)
	if tbl == nil {
		return
	}

	deadline := p.clock.Now().Add(p.idleTimeout * quiescenceGraceMultiplier)
	for p.clock.Now().Before(deadline) {
		stillRunning := false
		tbl.forEach(func(s *Slot) {
			if s.hasWorker.Load() {
				stillRunning = true
			}
		})
		if !stillRunning {
			return
		}
		<-p.clock.After(p.idleTimeout)
	}
}
