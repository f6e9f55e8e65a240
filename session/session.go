// Package session coordinates tracing session lifecycle across the process:
// it owns the list of category registries, fans session transitions out to
// observers, evaluates category filters at enable time, and tracks how many
// sessions have ever started.
//
// The registry list and observer map sit behind one mutex. The mutex is held
// only for list mutation and copying, never across observer callbacks, so an
// observer may itself call back into AddRegistry without deadlocking.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/tracekit/trackevent/category"
	"github.com/tracekit/trackevent/internal/logging"
	"github.com/tracekit/trackevent/internal/monitoring"
	"github.com/tracekit/trackevent/wire"
)

// SetupArgs describes a session being configured.
type SetupArgs struct {
	Config    *category.TraceConfig
	Instance  uint32
	SessionID string
}

// StartArgs describes a session starting.
type StartArgs struct {
	Instance uint32
}

// StopArgs describes a session stopping.
type StopArgs struct {
	Instance uint32
}

// ClearArgs announces that a sequence's incremental state is about to be
// invalidated.
type ClearArgs struct {
	Instance uint32
}

// Observer receives tracing session transitions. Embed BaseObserver to
// override a subset.
type Observer interface {
	OnSetup(SetupArgs)
	OnStart(StartArgs)
	OnStop(StopArgs)
	WillClearIncrementalState(ClearArgs)
}

// BaseObserver is a no-op Observer.
type BaseObserver struct{}

func (BaseObserver) OnSetup(SetupArgs)                  {}
func (BaseObserver) OnStart(StartArgs)                  {}
func (BaseObserver) OnStop(StopArgs)                    {}
func (BaseObserver) WillClearIncrementalState(ClearArgs) {}

// RegisterFunc hands the backend a data source descriptor (name plus
// serialized category enumeration) at startup. It reports whether
// registration was accepted.
type RegisterFunc func(name string, descriptor []byte) bool

// Coordinator is the process-wide session state. Most embedders use the
// package-level Default instance.
type Coordinator struct {
	mu         sync.Mutex
	registries []*category.Registry
	observers  map[*category.Registry][]Observer

	// Monotonic count of sessions ever started; never decremented.
	sessionCount atomic.Uint64

	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewCoordinator returns a coordinator logging through logger. A nil logger
// disables logging.
func NewCoordinator(logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		observers: make(map[*category.Registry][]Observer),
		log:       logger,
	}
}

// SetMetrics attaches self-instrumentation collectors.
func (c *Coordinator) SetMetrics(m *monitoring.Metrics) {
	c.metrics = m
}

// AddRegistry appends a category registry. Registries are added once at
// startup, one per module that declares categories, and never removed
// outside tests.
func (c *Coordinator) AddRegistry(r *category.Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registries = append(c.registries, r)
}

// GetRegistries returns a snapshot of the registry list.
func (c *Coordinator) GetRegistries() []*category.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*category.Registry, len(c.registries))
	copy(out, c.registries)
	return out
}

// ResetForTesting clears all registries, observers, and the session counter.
func (c *Coordinator) ResetForTesting() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registries = nil
	c.observers = make(map[*category.Registry][]Observer)
	c.sessionCount.Store(0)
}

// Initialize validates every registry, builds one descriptor enumerating all
// non-group categories across them, and hands it to register. A one-time
// startup action.
func (c *Coordinator) Initialize(name string, register RegisterFunc) error {
	registries := c.GetRegistries()
	for _, r := range registries {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	desc := wire.NewMessage()
	desc.AppendString(wire.FieldDescriptorName, name)
	te := desc.BeginNested(wire.FieldDescriptorTrackEvent)
	for _, r := range registries {
		for i := 0; i < r.Count(); i++ {
			cat := r.Category(i)
			if cat.Group {
				continue
			}
			m := te.BeginNested(wire.FieldDescriptorCategories)
			m.AppendString(wire.FieldCategoryName, cat.Name)
			if cat.Description != "" {
				m.AppendString(wire.FieldCategoryDescription, cat.Description)
			}
			for _, tag := range cat.Tags {
				m.AppendString(wire.FieldCategoryTags, tag)
			}
			m.EndNested()
		}
	}
	te.EndNested()

	if !register(name, desc.Bytes()) {
		c.log.Warn("trace data source registration rejected", zap.String("name", name))
	}
	return nil
}

// AddSessionObserver registers an observer for transitions touching the
// given registry. The same observer may watch multiple registries, and a
// registry may have multiple observers.
func (c *Coordinator) AddSessionObserver(r *category.Registry, o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers[r] = append(c.observers[r], o)
}

// RemoveSessionObserver unregisters an observer from one registry.
func (c *Coordinator) RemoveSessionObserver(r *category.Registry, o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obs := c.observers[r]
	for i, cur := range obs {
		if cur == o {
			c.observers[r] = append(obs[:i:i], obs[i+1:]...)
			return
		}
	}
}

// snapshotObservers copies the observer fan-out list for the given
// registries. Callers invoke the result after releasing the lock.
func (c *Coordinator) snapshotObservers(registries []*category.Registry) []Observer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Observer
	for _, r := range registries {
		out = append(out, c.observers[r]...)
	}
	return out
}

// EnableTracing configures one session instance: it evaluates the filter for
// every category in every registry, sets the per-instance enable bits, and
// fans OnSetup out to every observer on any touched registry. Returns the
// generated session id.
func (c *Coordinator) EnableTracing(cfg *category.TraceConfig, instance uint32) string {
	sessionID := "sess_" + ulid.Make().String()
	registries := c.GetRegistries()

	enabled := 0
	for _, r := range registries {
		for i := 0; i < r.Count(); i++ {
			on := category.IsEnabled(r, cfg, r.Category(i))
			r.SetEnabled(i, instance, on)
			if on {
				enabled++
			}
		}
	}
	if c.metrics != nil {
		c.metrics.CategoriesEnabled.Set(float64(enabled))
	}
	c.log.Info("tracing session configured",
		zap.String("session_id", sessionID),
		zap.Uint32("instance", instance),
		zap.Int("categories_enabled", enabled),
	)

	args := SetupArgs{Config: cfg, Instance: instance, SessionID: sessionID}
	for _, o := range c.snapshotObservers(registries) {
		o.OnSetup(args)
	}
	return sessionID
}

// DisableTracing clears the enable bits of one instance across every
// registry. Local bookkeeping only; no observer fan-out.
func (c *Coordinator) DisableTracing(instance uint32) {
	for _, r := range c.GetRegistries() {
		r.DisableAll(instance)
	}
	c.log.Info("tracing session disabled", zap.Uint32("instance", instance))
}

// OnStart bumps the monotonic session counter and fans OnStart out.
func (c *Coordinator) OnStart(args StartArgs) {
	c.sessionCount.Add(1)
	if c.metrics != nil {
		c.metrics.SessionsStarted.Inc()
	}
	registries := c.GetRegistries()
	for _, o := range c.snapshotObservers(registries) {
		o.OnStart(args)
	}
}

// OnStop fans OnStop out. The session counter intentionally stays put: it
// counts sessions ever started, not live sessions.
func (c *Coordinator) OnStop(args StopArgs) {
	if c.metrics != nil {
		c.metrics.SessionsStopped.Inc()
	}
	registries := c.GetRegistries()
	for _, o := range c.snapshotObservers(registries) {
		o.OnStop(args)
	}
}

// WillClearIncrementalState lets observers react before a sequence's
// incremental state is invalidated. Fan-out only.
func (c *Coordinator) WillClearIncrementalState(args ClearArgs) {
	if c.metrics != nil {
		c.metrics.IncrementalClears.Inc()
	}
	registries := c.GetRegistries()
	for _, o := range c.snapshotObservers(registries) {
		o.WillClearIncrementalState(args)
	}
}

// SessionCount returns how many sessions have ever started.
func (c *Coordinator) SessionCount() uint64 {
	return c.sessionCount.Load()
}

// Default is the process-wide coordinator.
var Default = NewCoordinator(logging.NewDefault())

// AddRegistry registers r with the Default coordinator.
func AddRegistry(r *category.Registry) { Default.AddRegistry(r) }

// GetRegistries snapshots the Default coordinator's registries.
func GetRegistries() []*category.Registry { return Default.GetRegistries() }

// ResetRegistriesForTesting clears the Default coordinator.
func ResetRegistriesForTesting() { Default.ResetForTesting() }
