package gateway

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/virtual-gateway/internal/automation"
	"github.com/nerrad567/virtual-gateway/internal/thing"
)

// ─── Mocks ───

type mockBroadcaster struct {
	mu    sync.Mutex
	calls int
	last  map[string]thing.Thing
}

func (m *mockBroadcaster) BroadcastState(things map[string]thing.Thing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = things
}

func (m *mockBroadcaster) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockRecorder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockRecorder) RecordTick(_ context.Context, _ time.Time, _ map[string]thing.Thing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

type mockPublisher struct {
	mu     sync.Mutex
	things []thing.Thing
}

func (m *mockPublisher) PublishThing(t thing.Thing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.things = append(m.things, t)
}

func newTestController(opts ...Option) *Controller {
	base := []Option{WithRand(rand.New(rand.NewSource(42)))}
	return NewController(append(base, opts...)...)
}

// ─── Ticking ───

func TestTick_AdvancesSimulationAndCounter(t *testing.T) {
	c := newTestController()
	before := c.State()

	c.Tick(context.Background())

	after := c.State()
	if after.Tick != before.Tick+1 {
		t.Errorf("tick = %d, want %d", after.Tick, before.Tick+1)
	}
	if after.OutdoorTemperature == before.OutdoorTemperature {
		t.Error("outdoor temperature unchanged after a tick")
	}
	if len(after.Things) != 6 {
		t.Errorf("things = %d, want the full roster of 6", len(after.Things))
	}
}

func TestTick_RulesEventuallyFireWhenEnabled(t *testing.T) {
	c := newTestController()

	for i := 0; i < 2000; i++ {
		c.Tick(context.Background())
		if c.Events().Len() > 0 {
			return
		}
	}
	t.Fatal("no automation event across 2000 ticks with rules enabled")
}

func TestTick_RulesSilentWhenDisabled(t *testing.T) {
	c := newTestController()
	c.ToggleAutomation()

	for i := 0; i < 500; i++ {
		c.Tick(context.Background())
	}

	events := c.Events().Snapshot()
	if len(events) != 1 || !strings.Contains(events[0].Message, "paused") {
		t.Errorf("events = %v, want only the pause notice", events)
	}
}

func TestTick_StalledEventNotifyDoesNotBlockGateway(t *testing.T) {
	var mu sync.Mutex
	now := time.Now().UTC()
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	c := newTestController(WithClock(clock))

	release := make(chan struct{})
	c.Events().SetNotify(func(automation.Event) {
		<-release
	})
	defer close(release)

	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	// Push past the inactivity window so a rule fires during a tick
	// while the notify consumer is stuck.
	advance(30 * time.Second)
	for i := 0; i < 100 && c.Events().Len() == 0; i++ {
		c.Tick(context.Background())
		advance(2 * time.Second)
	}
	if c.Events().Len() == 0 {
		t.Fatal("no automation event fired")
	}

	start := time.Now()
	c.State()
	c.Tick(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("gateway blocked for %v behind a stalled notify consumer", elapsed)
	}
}

func TestTick_FansOutToSinks(t *testing.T) {
	b := &mockBroadcaster{}
	r := &mockRecorder{}
	p := &mockPublisher{}
	c := newTestController(WithBroadcaster(b), WithRecorder(r), WithPublisher(p))

	c.Tick(context.Background())

	if b.callCount() != 1 {
		t.Errorf("broadcaster calls = %d, want 1", b.callCount())
	}
	if r.calls != 1 {
		t.Errorf("recorder calls = %d, want 1", r.calls)
	}
	if len(p.things) != 6 {
		t.Errorf("published things = %d, want 6", len(p.things))
	}
}

func TestTick_RecorderFailureDoesNotStopTheLoop(t *testing.T) {
	r := &mockRecorder{err: errors.New("disk full")}
	c := newTestController(WithRecorder(r))

	c.Tick(context.Background())
	c.Tick(context.Background())

	if got := c.State().Tick; got != 2 {
		t.Errorf("tick = %d after recorder failures, want 2", got)
	}
}

// ─── Manual updates ───

func TestUpdateThing_AppliesAndBroadcasts(t *testing.T) {
	b := &mockBroadcaster{}
	c := newTestController(WithBroadcaster(b))

	status := thing.SwitchOn
	brightness := 40
	updated, err := c.UpdateThing(context.Background(), thing.IDLamp, thing.Update{
		Status:     &status,
		Brightness: &brightness,
	})
	if err != nil {
		t.Fatalf("UpdateThing() error = %v", err)
	}
	if updated.Lamp.Status != thing.SwitchOn || updated.Lamp.Brightness != 40 {
		t.Errorf("lamp = %+v, want ON at 40", updated.Lamp)
	}
	if updated.LastManualUpdate == nil {
		t.Error("LastManualUpdate not stamped on a manual update")
	}

	stored, err := c.Thing(thing.IDLamp)
	if err != nil {
		t.Fatalf("Thing() error = %v", err)
	}
	if stored.Lamp.Status != thing.SwitchOn {
		t.Error("registry does not reflect the manual update")
	}
	if b.callCount() != 1 {
		t.Errorf("broadcaster calls = %d, want 1", b.callCount())
	}
}

func TestUpdateThing_UnknownIDLogsAnEvent(t *testing.T) {
	c := newTestController()

	_, err := c.UpdateThing(context.Background(), "no-such-device", thing.Update{})
	if !errors.Is(err, thing.ErrThingNotFound) {
		t.Fatalf("error = %v, want ErrThingNotFound", err)
	}

	events := c.Events().Snapshot()
	if len(events) != 1 || !strings.Contains(events[0].Message, "no-such-device") {
		t.Errorf("events = %v, want one rejection naming the device", events)
	}
}

func TestUpdateThing_ValidationFailureIsSilent(t *testing.T) {
	b := &mockBroadcaster{}
	c := newTestController(WithBroadcaster(b))

	brightness := 150
	_, err := c.UpdateThing(context.Background(), thing.IDLamp, thing.Update{Brightness: &brightness})
	if !errors.Is(err, thing.ErrInvalidBrightness) {
		t.Fatalf("error = %v, want ErrInvalidBrightness", err)
	}
	if c.Events().Len() != 0 {
		t.Error("validation failure produced an event")
	}
	if b.callCount() != 0 {
		t.Error("validation failure was broadcast")
	}

	stored, _ := c.Thing(thing.IDLamp)
	if stored.Lamp.Brightness != 75 {
		t.Errorf("brightness = %d after rejected update, want default 75", stored.Lamp.Brightness)
	}
}

// ─── Automation toggle ───

func TestToggleAutomation_FlipsAndLogsEachToggle(t *testing.T) {
	c := newTestController()

	if got := c.ToggleAutomation(); got {
		t.Error("first toggle = true, want false (started enabled)")
	}
	if got := c.ToggleAutomation(); !got {
		t.Error("second toggle = false, want back to enabled")
	}

	events := c.Events().Snapshot()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if !strings.Contains(events[0].Message, "re-enabled") {
		t.Errorf("newest = %q, want the re-enable notice", events[0].Message)
	}
	if !strings.Contains(events[1].Message, "paused") {
		t.Errorf("oldest = %q, want the pause notice", events[1].Message)
	}
	if !c.AutomationEnabled() {
		t.Error("AutomationEnabled() = false, want true")
	}
}

// ─── Snapshot and loop lifecycle ───

func TestState_SnapshotIsIsolated(t *testing.T) {
	c := newTestController()

	snap := c.State()
	lamp := snap.Things[thing.IDLamp]
	lamp.Lamp.Brightness = 1
	snap.Things[thing.IDLamp] = lamp

	stored, _ := c.Thing(thing.IDLamp)
	if stored.Lamp.Brightness != 75 {
		t.Error("mutating a snapshot reached the registry")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	c := newTestController(WithTickInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if c.State().Tick == 0 {
		t.Error("loop never ticked before cancel")
	}
}

func TestConcurrentUpdatesAndTicks(t *testing.T) {
	c := newTestController()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Tick(ctx)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := thing.SwitchOn
			for j := 0; j < 50; j++ {
				if _, err := c.UpdateThing(ctx, thing.IDLamp, thing.Update{Status: &status}); err != nil {
					t.Errorf("UpdateThing() error = %v", err)
					return
				}
				c.State()
			}
		}()
	}
	wg.Wait()

	if got := c.State().Tick; got != 200 {
		t.Errorf("tick = %d, want 200", got)
	}
}
