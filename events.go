package tholder

import (
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability keys, grouped the way zoobzio-pipz's connectors group
// theirs: one const block per kind (metrics, spans, tags, hook events).
const (
	metricWorkersSpawned = metricz.Key("tholder.workers_spawned.total")
	metricTasksSubmitted = metricz.Key("tholder.tasks_submitted.total")
	metricTasksCompleted = metricz.Key("tholder.tasks_completed.total")
	metricTasksFaulted   = metricz.Key("tholder.tasks_faulted.total")
	metricSlotsAllocated = metricz.Key("tholder.slots_allocated")
	metricSlotsActive    = metricz.Key("tholder.slots_active")
	metricTableCapacity  = metricz.Key("tholder.table_capacity")

	spanTaskExecute = tracez.Key("tholder.task")

	tagSlotIndex = tracez.Tag("tholder.slot_index")
	tagOutcome   = tracez.Tag("tholder.outcome")

	// EventPoolInit fires each time a Pool's slot table is created,
	// including the re-creation after a Destroy, substituting for the source's "Initializing tholder with %d
	// threads" printf (SPEC_FULL.md §4).
	EventPoolInit = hookz.Key("tholder.pool.init")
	// EventWorkerSpawned fires whenever Submit spawns a new worker
	// goroutine for a slot (spec.md §4.2 step 5).
	EventWorkerSpawned = hookz.Key("tholder.worker.spawned")
	// EventWorkerReclaimed fires whenever a worker exits after its idle
	// timeout elapses with no work (spec.md §4.3 Exiting state).
	EventWorkerReclaimed = hookz.Key("tholder.worker.reclaimed")
	// EventTableGrown fires whenever the slot table doubles its
	// capacity (spec.md §4.1).
	EventTableGrown = hookz.Key("tholder.table.grown")
	// EventTaskFaulted fires whenever a task's function panics instead
	// of returning normally (spec.md §4.4, §7).
	EventTaskFaulted = hookz.Key("tholder.task.faulted")
)

// Event is the payload delivered to hookz subscribers for every
// lifecycle key above. Not every field is populated for every key:
// SlotIndex is set for worker and task events, Capacity for pool-init and
// table-grown events, and Err for task-faulted events.
type Event struct {
	Kind      hookz.Key
	SlotIndex int
	Capacity  int
	Err       error
	Timestamp time.Time
}
