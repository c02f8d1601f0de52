package tholder

import (
	"context"
	"errors"
	"strconv"

	"github.com/zoobzio/tracez"
)

// newObservability builds the always-constructed, rarely-configured
// metrics/tracer/hooks bundle every Pool carries, mirroring the
// constructor pattern zoobzio-pipz's connectors use (NewBackoff,
// NewWorkerPool, NewCircuitBreaker all build the same bundle).
func newObservability() (*metricsBundle, *tracez.Tracer, *hooksBundle) {
	return newMetricsBundle(), tracez.New(), newHooksBundle()
}

// Tracer returns the Pool's tracer, for callers that want to attach
// their own span processor.
func (p *Pool) Tracer() *tracez.Tracer {
	return p.tracer
}

// Close gracefully shuts down the Pool's observability components. It
// does not tear down the slot table or stop worker goroutines; call
// Destroy for that. Safe to call after Destroy.
func (p *Pool) Close() error {
	p.tracer.Close()
	p.hooks.hooks.Close()
	return nil
}

// traceExecute wraps a task's execution in a span, tagged with the slot
// index and outcome. The span covers only the call to the task's
// function; submission, dispatch and delivery to the handle fall outside
// it.
func (p *Pool) traceExecute(slot int, fn Func, arg any) Result {
	_, span := p.tracer.StartSpan(context.Background(), spanTaskExecute)
	span.SetTag(tagSlotIndex, strconv.Itoa(slot))

	res := execute(slot, fn, arg)

	if res.Err != nil {
		span.SetTag(tagOutcome, "fault")
	} else {
		span.SetTag(tagOutcome, "success")
	}
	span.Finish()

	return res
}

// recordTaskOutcome updates the completed/faulted counters and emits
// EventTaskFaulted for tasks that panicked. A task that returns a non-nil
// error counts as faulted but emits no event.
func (p *Pool) recordTaskOutcome(res Result) {
	p.metrics.completed.Inc()
	if res.Err == nil {
		return
	}
	p.metrics.faulted.Inc()

	var fe *FaultError
	if errors.As(res.Err, &fe) {
		_ = p.hooks.hooks.Emit(context.Background(), EventTaskFaulted, Event{
			Kind:      EventTaskFaulted,
			SlotIndex: fe.Slot,
			Err:       res.Err,
			Timestamp: p.clock.Now(),
		})
	}
}

func (p *Pool) recordTaskSubmitted() {
	p.metrics.submitted.Inc()
}

func (p *Pool) recordWorkerSpawned(slot int) {
	p.spawned.Add(1)
	p.metrics.workersSpawned.Inc()
	_ = p.hooks.hooks.Emit(context.Background(), EventWorkerSpawned, Event{
		Kind:      EventWorkerSpawned,
		SlotIndex: slot,
		Timestamp: p.clock.Now(),
	})
}

func (p *Pool) recordWorkerReclaimed(slot int) {
	_ = p.hooks.hooks.Emit(context.Background(), EventWorkerReclaimed, Event{
		Kind:      EventWorkerReclaimed,
		SlotIndex: slot,
		Timestamp: p.clock.Now(),
	})
}

func (p *Pool) recordSlotAllocated() {
	p.metrics.slotsAllocated.Inc()
}

// recordSlotActive marks one more slot as holding a dispatched task,
// per SPEC_FULL.md's slots_active/slots_capacity gauge pair.
func (p *Pool) recordSlotActive() {
	p.metrics.slotsActive.Set(float64(p.active.Add(1)))
}

// recordSlotIdle marks a slot's task as delivered, the counterpart to
// recordSlotActive.
func (p *Pool) recordSlotIdle() {
	p.metrics.slotsActive.Set(float64(p.active.Add(-1)))
}

func (p *Pool) recordTableGrown(capacity int) {
	p.metrics.tableCapacity.Set(float64(capacity))
	_ = p.hooks.hooks.Emit(context.Background(), EventTableGrown, Event{
		Kind:      EventTableGrown,
		Capacity:  capacity,
		Timestamp: p.clock.Now(),
	})
}

// recordPoolInit emits EventPoolInit each time a Pool's slot table is
// created (again after every Destroy), substituting for the source's init-time
// "Initializing tholder with %d threads" printf (SPEC_FULL.md §4).
func (p *Pool) recordPoolInit(capacity int) {
	_ = p.hooks.hooks.Emit(context.Background(), EventPoolInit, Event{
		Kind:      EventPoolInit,
		Capacity:  capacity,
		Timestamp: p.clock.Now(),
	})
}
