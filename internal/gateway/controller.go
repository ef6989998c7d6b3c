package gateway

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/nerrad567/virtual-gateway/internal/automation"
	"github.com/nerrad567/virtual-gateway/internal/simulation"
	"github.com/nerrad567/virtual-gateway/internal/thing"
)

// DefaultTickInterval is the wall-clock period of the simulation loop.
const DefaultTickInterval = 2 * time.Second

// Logger defines the logging interface used by the Controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Broadcaster receives the full device snapshot after every published
// tick or manual update. Wired to the WebSocket hub.
type Broadcaster interface {
	BroadcastState(things map[string]thing.Thing)
}

// Recorder persists per-tick readings for later analytics queries.
type Recorder interface {
	RecordTick(ctx context.Context, at time.Time, things map[string]thing.Thing) error
}

// Publisher mirrors device state to an external broker. Wired to MQTT
// when enabled.
type Publisher interface {
	PublishThing(t thing.Thing)
}

// Telemetry exports numeric readings to a time-series store. Wired to
// InfluxDB when enabled.
type Telemetry interface {
	WriteThingMetrics(at time.Time, things map[string]thing.Thing)
}

// Snapshot is a consistent read of the whole gateway, taken under the
// controller lock.
type Snapshot struct {
	Things             map[string]thing.Thing `json:"things"`
	Events             []automation.Event     `json:"events"`
	AutomationEnabled  bool                   `json:"automationEnabled"`
	OutdoorTemperature float64                `json:"outdoorTemperature"`
	Tick               uint64                 `json:"tick"`
}

// Controller owns the tick loop and serializes every mutation of the
// gateway: simulation steps, rule evaluation, manual updates, and the
// automation toggle all run under one mutex. Within a tick the order is
// fixed: simulate, then evaluate rules, then publish. Manual updates
// interleave between ticks; when a manual write and a tick race, the
// later one wins.
type Controller struct {
	mu       sync.Mutex
	registry *thing.Registry
	sim      *simulation.Simulator
	engine   *automation.Engine
	events   *automation.Log
	state    *simulation.State

	enabled bool
	tick    uint64

	interval time.Duration
	clock    func() time.Time
	logger   Logger

	broadcaster Broadcaster
	recorder    Recorder
	publisher   Publisher
	telemetry   Telemetry
}

// Option configures optional controller collaborators.
type Option func(*Controller)

// WithBroadcaster attaches a state broadcaster.
func WithBroadcaster(b Broadcaster) Option {
	return func(c *Controller) { c.broadcaster = b }
}

// WithRecorder attaches a tick-history recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithPublisher attaches an external state publisher.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithTelemetry attaches a time-series exporter.
func WithTelemetry(t Telemetry) Option {
	return func(c *Controller) { c.telemetry = t }
}

// WithTickInterval overrides the tick period.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithClock overrides the time source. Tests use this for determinism.
func WithClock(fn func() time.Time) Option {
	return func(c *Controller) { c.clock = fn }
}

// WithRand seeds the simulator with a deterministic source.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) { c.sim = simulation.NewSimulator(rng) }
}

// WithLogger sets the controller logger.
func WithLogger(l Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithAutomationEnabled sets the rule engine state at startup without
// recording a toggle event.
func WithAutomationEnabled(enabled bool) Option {
	return func(c *Controller) { c.enabled = enabled }
}

// NewController assembles a gateway over the default device roster with
// automation enabled.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		registry: thing.NewRegistry(thing.DefaultThings()),
		events:   automation.NewLog(),
		enabled:  true,
		interval: DefaultTickInterval,
		clock:    time.Now,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sim == nil {
		c.sim = simulation.NewSimulator(nil)
	}
	c.state = simulation.NewState(c.clock())
	c.engine = automation.NewEngine(c.events, c.logger)
	return c
}

// Events exposes the event log, primarily so main can register the
// notify fan-out before the loop starts.
func (c *Controller) Events() *automation.Log {
	return c.events
}

// Run drives the tick loop until the context is cancelled. A tick in
// flight always completes; cancellation is only observed between ticks.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("gateway loop started", "interval", c.interval)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("gateway loop stopped")
			return ctx.Err()
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick advances the gateway one step: simulate, evaluate rules if
// automation is enabled, publish, then fan the snapshot out to the
// attached sinks.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	now := c.clock().UTC()

	working := c.registry.WorkingCopy()
	c.sim.Step(working, c.state)
	if c.enabled {
		c.engine.Evaluate(now, working, c.state)
	}
	c.registry.Publish(working)
	c.tick++

	snap := c.registry.Snapshot()
	c.mu.Unlock()

	c.fanOut(ctx, now, snap)
}

// fanOut pushes a published snapshot to the optional sinks. Runs outside
// the controller lock; sink latency never delays the next tick's state.
func (c *Controller) fanOut(ctx context.Context, at time.Time, snap map[string]thing.Thing) {
	if c.broadcaster != nil {
		c.broadcaster.BroadcastState(snap)
	}
	if c.publisher != nil {
		for _, t := range snap {
			c.publisher.PublishThing(t)
		}
	}
	if c.telemetry != nil {
		c.telemetry.WriteThingMetrics(at, snap)
	}
	if c.recorder != nil {
		if err := c.recorder.RecordTick(ctx, at, snap); err != nil {
			c.logger.Warn("tick history write failed", "error", err)
		}
	}
}

// UpdateThing applies a manual update to one device and broadcasts the
// result. Unknown IDs surface both as an error and as an event so the
// failed intent is visible in the activity feed; validation failures
// return an error without an event.
func (c *Controller) UpdateThing(ctx context.Context, id string, u thing.Update) (thing.Thing, error) {
	c.mu.Lock()
	now := c.clock().UTC()
	updated, err := c.registry.ApplyManual(id, u, now)
	var snap map[string]thing.Thing
	if err == nil {
		snap = c.registry.Snapshot()
	}
	c.mu.Unlock()

	if err != nil {
		if errors.Is(err, thing.ErrThingNotFound) {
			c.events.Append("Update rejected: unknown device \"" + id + "\".")
		}
		c.logger.Debug("manual update rejected", "thing", id, "error", err)
		return thing.Thing{}, err
	}

	c.logger.Debug("manual update applied", "thing", id)
	c.fanOut(ctx, now, snap)
	return *updated, nil
}

// ToggleAutomation flips whether rules run on subsequent ticks and
// returns the new setting. The flag takes effect on the next tick; a
// tick already in flight completes under its original setting.
func (c *Controller) ToggleAutomation() bool {
	c.mu.Lock()
	c.enabled = !c.enabled
	enabled := c.enabled
	c.mu.Unlock()

	if enabled {
		c.events.Append("Automation re-enabled by a user.")
	} else {
		c.events.Append("Automation paused by a user.")
	}
	c.logger.Info("automation toggled", "enabled", enabled)
	return enabled
}

// AutomationEnabled reports the current rule-engine setting.
func (c *Controller) AutomationEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Thing returns a copy of one device.
func (c *Controller) Thing(id string) (thing.Thing, error) {
	t, err := c.registry.Get(id)
	if err != nil {
		return thing.Thing{}, err
	}
	return *t, nil
}

// Things returns a copy of the whole roster.
func (c *Controller) Things() map[string]thing.Thing {
	return c.registry.Snapshot()
}

// State returns a consistent snapshot of the gateway.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Things:             c.registry.Snapshot(),
		Events:             c.events.Snapshot(),
		AutomationEnabled:  c.enabled,
		OutdoorTemperature: c.state.OutdoorTemperature,
		Tick:               c.tick,
	}
}
