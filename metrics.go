package tholder

import (
	"context"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
)

// metricsBundle holds the counters/gauges a Pool reports, mirroring the
// per-connector registries zoobzio-pipz builds in each constructor
// (e.g. NewBackoff's Counter/Gauge block).
type metricsBundle struct {
	registry       *metricz.Registry
	workersSpawned *metricz.Counter
	submitted      *metricz.Counter
	completed      *metricz.Counter
	faulted        *metricz.Counter
	slotsAllocated *metricz.Counter
	slotsActive    *metricz.Gauge
	tableCapacity  *metricz.Gauge
}

func newMetricsBundle() *metricsBundle {
	r := metricz.New()
	b := &metricsBundle{
		registry:       r,
		workersSpawned: r.Counter(metricWorkersSpawned),
		submitted:      r.Counter(metricTasksSubmitted),
		completed:      r.Counter(metricTasksCompleted),
		faulted:        r.Counter(metricTasksFaulted),
		slotsAllocated: r.Counter(metricSlotsAllocated),
		slotsActive:    r.Gauge(metricSlotsActive),
		tableCapacity:  r.Gauge(metricTableCapacity),
	}
	return b
}

// hooksBundle wraps the lifecycle event registry a Pool emits to.
type hooksBundle struct {
	hooks *hookz.Hooks[Event]
}

func newHooksBundle() *hooksBundle {
	return &hooksBundle{hooks: hookz.New[Event]()}
}

// Metrics returns the Pool's metric registry, for callers that want to
// scrape workers-spawned/tasks-submitted/completed/faulted counters and
// the slots-active/table-capacity gauges directly rather than polling
// WorkersSpawned.
func (p *Pool) Metrics() *metricz.Registry {
	return p.metrics.registry
}

// OnPoolInit registers a handler invoked each time the Pool's slot table
// is created (again after every Destroy), substituting for the source's init-time printf
// (SPEC_FULL.md §4).
func (p *Pool) OnPoolInit(handler func(context.Context, Event) error) error {
	_, err := p.hooks.hooks.Hook(EventPoolInit, handler)
	return err
}

// OnWorkerSpawned registers a handler invoked whenever Submit spawns a
// new worker goroutine (spec.md §4.2 step 5).
func (p *Pool) OnWorkerSpawned(handler func(context.Context, Event) error) error {
	_, err := p.hooks.hooks.Hook(EventWorkerSpawned, handler)
	return err
}

// OnWorkerReclaimed registers a handler invoked whenever a worker exits
// after its idle timeout (spec.md §4.3 Exiting state).
func (p *Pool) OnWorkerReclaimed(handler func(context.Context, Event) error) error {
	_, err := p.hooks.hooks.Hook(EventWorkerReclaimed, handler)
	return err
}

// OnTableGrown registers a handler invoked whenever the slot table
// doubles its capacity (spec.md §4.1).
func (p *Pool) OnTableGrown(handler func(context.Context, Event) error) error {
	_, err := p.hooks.hooks.Hook(EventTableGrown, handler)
	return err
}

// OnTaskFaulted registers a handler invoked whenever a task's function
// panics instead of returning normally (spec.md §4.4, §7).
func (p *Pool) OnTaskFaulted(handler func(context.Context, Event) error) error {
	_, err := p.hooks.hooks.Hook(EventTaskFaulted, handler)
	return err
}
