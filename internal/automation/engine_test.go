package automation

import (
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/virtual-gateway/internal/simulation"
	"github.com/nerrad567/virtual-gateway/internal/thing"
)

// ─── Helpers ───

func newTestEngine() (*Engine, *Log) {
	log := NewLog()
	return NewEngine(log, nil), log
}

// quietRoster returns a roster that triggers no rule on its own: no
// motion, safe CO2, window closed, thermostat at target.
func quietRoster() map[string]*thing.Thing {
	things := thing.DefaultThings()
	things[thing.IDMotionSensor].Motion.MotionDetected = false
	things[thing.IDAmbientSensor].Ambient.AirQualityCO2 = 650
	things[thing.IDThermostat].Thermostat.CurrentTemperature = 21
	things[thing.IDThermostat].Thermostat.TargetTemperature = 21
	things[thing.IDThermostat].Thermostat.Mode = thing.ModeHeating
	return things
}

// freshState returns automation state with recent motion so the
// inactivity rule stays silent.
func freshState(now time.Time) *simulation.State {
	st := simulation.NewState(now)
	st.NoMotionSince = now
	return st
}

func stampManual(t *thing.Thing, at time.Time) {
	t.LastManualUpdate = &at
}

// ─── Window control ───

func TestEvaluate_HighCO2OpensWindow(t *testing.T) {
	engine, log := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)
	st.OutdoorTemperature = 12.3
	things[thing.IDAmbientSensor].Ambient.AirQualityCO2 = 1050
	things[thing.IDThermostat].Thermostat.Mode = thing.ModeOff // keep the energy guard silent

	engine.Evaluate(now, things, st)

	if got := things[thing.IDSmartWindow].Window.Status; got != thing.WindowOpen {
		t.Fatalf("window = %v, want OPEN", got)
	}
	events := log.Snapshot()
	if len(events) != 1 {
		t.Fatalf("events = %d, want exactly 1", len(events))
	}
	if !strings.Contains(events[0].Message, "High CO2") {
		t.Errorf("message = %q, want a high-CO2 alert", events[0].Message)
	}
	if !strings.Contains(events[0].Message, "12.3") {
		t.Errorf("message = %q, want the outdoor temperature in it", events[0].Message)
	}
}

func TestEvaluate_FreeCoolingOpensWindow(t *testing.T) {
	engine, log := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)
	st.OutdoorTemperature = 14

	ts := things[thing.IDThermostat].Thermostat
	ts.CurrentTemperature = 23
	ts.TargetTemperature = 21
	ts.Mode = thing.ModeOff // keep the energy guard out of the picture

	engine.Evaluate(now, things, st)

	if got := things[thing.IDSmartWindow].Window.Status; got != thing.WindowOpen {
		t.Fatalf("window = %v, want OPEN for free cooling", got)
	}
	events := log.Snapshot()
	if len(events) != 1 || !strings.Contains(events[0].Message, "free cooling") {
		t.Errorf("events = %v, want one free-cooling event", events)
	}
}

func TestEvaluate_NoFreeCoolingWithinMargin(t *testing.T) {
	engine, _ := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)
	st.OutdoorTemperature = 14

	ts := things[thing.IDThermostat].Thermostat
	ts.CurrentTemperature = 21.8 // within the 1°C margin above target
	ts.TargetTemperature = 21

	engine.Evaluate(now, things, st)

	if got := things[thing.IDSmartWindow].Window.Status; got != thing.WindowClosed {
		t.Errorf("window = %v, want CLOSED within the comfort margin", got)
	}
}

func TestEvaluate_WindowClosesWhenConditionsRecover(t *testing.T) {
	engine, log := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)
	st.OutdoorTemperature = 10

	things[thing.IDSmartWindow].Window.Status = thing.WindowOpen
	things[thing.IDAmbientSensor].Ambient.AirQualityCO2 = 750
	ts := things[thing.IDThermostat].Thermostat
	ts.CurrentTemperature = 20.5
	ts.TargetTemperature = 21
	ts.Mode = thing.ModeOff

	engine.Evaluate(now, things, st)

	if got := things[thing.IDSmartWindow].Window.Status; got != thing.WindowClosed {
		t.Fatalf("window = %v, want CLOSED", got)
	}
	events := log.Snapshot()
	if len(events) != 1 || !strings.Contains(events[0].Message, "back to normal") {
		t.Errorf("events = %v, want one close-back event", events)
	}
}

func TestEvaluate_WindowClosesWhenOutdoorWarms(t *testing.T) {
	engine, log := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)
	st.OutdoorTemperature = 25

	things[thing.IDSmartWindow].Window.Status = thing.WindowOpen
	things[thing.IDAmbientSensor].Ambient.AirQualityCO2 = 900 // keeps the first close branch out
	ts := things[thing.IDThermostat].Thermostat
	ts.CurrentTemperature = 22
	ts.TargetTemperature = 21
	ts.Mode = thing.ModeOff

	engine.Evaluate(now, things, st)

	if got := things[thing.IDSmartWindow].Window.Status; got != thing.WindowClosed {
		t.Fatalf("window = %v, want CLOSED once outdoor is warmer", got)
	}
	if events := log.Snapshot(); len(events) != 1 || !strings.Contains(events[0].Message, "No longer cooler") {
		t.Errorf("events = %v, want one warm-outdoor close event", events)
	}
}

func TestEvaluate_WindowSuppressionRespectsManualOverride(t *testing.T) {
	engine, log := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)
	things[thing.IDAmbientSensor].Ambient.AirQualityCO2 = 1100
	stampManual(things[thing.IDSmartWindow], now.Add(-100*time.Second))

	engine.Evaluate(now, things, st)

	if got := things[thing.IDSmartWindow].Window.Status; got != thing.WindowClosed {
		t.Errorf("window = %v, want CLOSED under manual suppression", got)
	}
	if log.Len() != 0 {
		t.Errorf("events = %d, want none while suppressed", log.Len())
	}

	// Past the 300s window the rule fires again.
	stampManual(things[thing.IDSmartWindow], now.Add(-301*time.Second))
	engine.Evaluate(now, things, st)
	if got := things[thing.IDSmartWindow].Window.Status; got != thing.WindowOpen {
		t.Errorf("window = %v, want OPEN after suppression expires", got)
	}
}

// ─── Energy guard ───

func TestEvaluate_EnergyGuardStopsHeatingWithOpenWindow(t *testing.T) {
	engine, log := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)

	things[thing.IDSmartWindow].Window.Status = thing.WindowOpen
	things[thing.IDAmbientSensor].Ambient.AirQualityCO2 = 900 // hold the window open
	st.OutdoorTemperature = 10

	engine.Evaluate(now, things, st)

	if got := things[thing.IDThermostat].Thermostat.Mode; got != thing.ModeOff {
		t.Fatalf("mode = %v, want OFF with the window open", got)
	}
	if events := log.Snapshot(); len(events) != 1 || !strings.Contains(events[0].Message, "save energy") {
		t.Errorf("events = %v, want one energy-guard event", events)
	}
}

func TestEvaluate_EnergyGuardSuppressedByRecentThermostatTouch(t *testing.T) {
	engine, _ := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)

	things[thing.IDSmartWindow].Window.Status = thing.WindowOpen
	things[thing.IDAmbientSensor].Ambient.AirQualityCO2 = 900
	st.OutdoorTemperature = 10
	stampManual(things[thing.IDThermostat], now.Add(-30*time.Second))

	engine.Evaluate(now, things, st)

	if got := things[thing.IDThermostat].Thermostat.Mode; got != thing.ModeHeating {
		t.Errorf("mode = %v, want HEATING kept for 60s after a manual touch", got)
	}
}

// ─── Air purifier ───

func TestEvaluate_PurifierStartsOnStaleAir(t *testing.T) {
	engine, log := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)

	things[thing.IDAmbientSensor].Ambient.AirQualityCO2 = 900
	things[thing.IDMotionSensor].Motion.MotionDetected = true
	things[thing.IDLamp].Lamp.Status = thing.SwitchOn // keep motion lighting silent
	st.NoMotionSince = now

	engine.Evaluate(now, things, st)

	plug := things[thing.IDSmartPlug].Plug
	if plug.Status != thing.SwitchOn {
		t.Fatalf("plug = %v, want ON", plug.Status)
	}
	if plug.PowerConsumption == 0 {
		t.Error("power = 0 while ON, want a nonzero draw")
	}
	found := false
	for _, ev := range log.Snapshot() {
		if strings.Contains(ev.Message, "air purifier") {
			found = true
		}
	}
	if !found {
		t.Errorf("events = %v, want a purifier start event", log.Snapshot())
	}
}

func TestEvaluate_PurifierStops(t *testing.T) {
	tests := []struct {
		name    string
		co2     float64
		window  thing.WindowPosition
		wantMsg string
	}{
		{"air recovered", 650, thing.WindowClosed, "Air quality restored"},
		{"window opened", 750, thing.WindowOpen, "Stopping the air purifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, log := newTestEngine()
			now := time.Now()
			things := quietRoster()
			st := freshState(now)

			things[thing.IDSmartPlug].Plug.Status = thing.SwitchOn
			things[thing.IDSmartPlug].Plug.PowerConsumption = 49
			things[thing.IDAmbientSensor].Ambient.AirQualityCO2 = tt.co2
			things[thing.IDSmartWindow].Window.Status = tt.window
			if tt.window == thing.WindowOpen {
				// Keep the window-control close branch from also firing.
				stampManual(things[thing.IDSmartWindow], now.Add(-10*time.Second))
			}

			engine.Evaluate(now, things, st)

			plug := things[thing.IDSmartPlug].Plug
			if plug.Status != thing.SwitchOff {
				t.Fatalf("plug = %v, want OFF", plug.Status)
			}
			if plug.PowerConsumption != 0 {
				t.Errorf("power = %v while OFF, want 0", plug.PowerConsumption)
			}
			found := false
			for _, ev := range log.Snapshot() {
				if strings.Contains(ev.Message, tt.wantMsg) {
					found = true
				}
			}
			if !found {
				t.Errorf("events = %v, want one containing %q", log.Snapshot(), tt.wantMsg)
			}
		})
	}
}

func TestEvaluate_PurifierSuppressedByManualOverride(t *testing.T) {
	engine, _ := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)

	things[thing.IDAmbientSensor].Ambient.AirQualityCO2 = 900
	things[thing.IDMotionSensor].Motion.MotionDetected = true
	things[thing.IDLamp].Lamp.Status = thing.SwitchOn
	stampManual(things[thing.IDSmartPlug], now.Add(-200*time.Second))

	engine.Evaluate(now, things, st)

	if got := things[thing.IDSmartPlug].Plug.Status; got != thing.SwitchOff {
		t.Errorf("plug = %v, want OFF under 300s suppression", got)
	}
}

// ─── Motion lighting ───

func TestEvaluate_MotionTurnsLampOn(t *testing.T) {
	engine, log := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)

	things[thing.IDMotionSensor].Motion.MotionDetected = true
	things[thing.IDLamp].Lamp.Status = thing.SwitchOff

	engine.Evaluate(now, things, st)

	if got := things[thing.IDLamp].Lamp.Status; got != thing.SwitchOn {
		t.Fatalf("lamp = %v, want ON", got)
	}
	wantDeadline := now.Add(60 * time.Second)
	if !st.LampAutoOffAt.Equal(wantDeadline) {
		t.Errorf("auto-off deadline = %v, want %v", st.LampAutoOffAt, wantDeadline)
	}
	found := false
	for _, ev := range log.Snapshot() {
		if strings.Contains(ev.Message, "Turning the lamp on") {
			found = true
		}
	}
	if !found {
		t.Errorf("events = %v, want a lamp-on event", log.Snapshot())
	}
}

func TestEvaluate_LampAutoOffAfterDeadline(t *testing.T) {
	engine, log := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)

	things[thing.IDLamp].Lamp.Status = thing.SwitchOn
	st.LampAutoOffAt = now.Add(-1 * time.Second)

	engine.Evaluate(now, things, st)

	if got := things[thing.IDLamp].Lamp.Status; got != thing.SwitchOff {
		t.Fatalf("lamp = %v, want OFF past the deadline", got)
	}
	if !st.LampAutoOffAt.IsZero() {
		t.Errorf("deadline = %v after auto-off, want cleared", st.LampAutoOffAt)
	}
	if events := log.Snapshot(); len(events) != 1 || !strings.Contains(events[0].Message, "timeout") {
		t.Errorf("events = %v, want one timeout event", events)
	}
}

func TestEvaluate_LampSuppressionBlocksAutoOff(t *testing.T) {
	engine, _ := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)

	things[thing.IDLamp].Lamp.Status = thing.SwitchOn
	st.LampAutoOffAt = now.Add(-1 * time.Second)
	stampManual(things[thing.IDLamp], now.Add(-30*time.Second))

	engine.Evaluate(now, things, st)

	if got := things[thing.IDLamp].Lamp.Status; got != thing.SwitchOn {
		t.Errorf("lamp = %v, want ON within the 60s manual window", got)
	}
}

// ─── Presence and inactivity ───

func TestEvaluate_MotionRefreshesPresence(t *testing.T) {
	engine, _ := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)
	st.NoMotionSince = now.Add(-5 * time.Minute)

	things[thing.IDMotionSensor].Motion.MotionDetected = true
	things[thing.IDLamp].Lamp.Status = thing.SwitchOn

	engine.Evaluate(now, things, st)

	if !st.NoMotionSince.Equal(now) {
		t.Errorf("NoMotionSince = %v, want refreshed to %v", st.NoMotionSince, now)
	}
}

func TestEvaluate_InactivitySwitchesToEcoAndKillsLamp(t *testing.T) {
	engine, log := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)
	st.NoMotionSince = now.Add(-25 * time.Second)

	things[thing.IDLamp].Lamp.Status = thing.SwitchOn

	engine.Evaluate(now, things, st)

	ts := things[thing.IDThermostat].Thermostat
	if ts.Mode != thing.ModeEco {
		t.Fatalf("mode = %v, want ECO", ts.Mode)
	}
	if ts.TargetTemperature != 17 {
		t.Errorf("target = %v, want 17", ts.TargetTemperature)
	}
	if things[thing.IDLamp].Lamp.Status != thing.SwitchOff {
		t.Error("lamp still ON after inactivity")
	}
	if got := log.Len(); got != 2 {
		t.Errorf("events = %d, want 2 (eco switch + lamp off)", got)
	}
}

func TestEvaluate_InactivityNotTriggeredAtBoundary(t *testing.T) {
	engine, _ := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)
	st.NoMotionSince = now.Add(-20 * time.Second) // exactly at the threshold

	engine.Evaluate(now, things, st)

	if got := things[thing.IDThermostat].Thermostat.Mode; got != thing.ModeHeating {
		t.Errorf("mode = %v, want HEATING at exactly the threshold", got)
	}
}

// ─── Comfort resume ───

func TestEvaluate_MotionResumesHeatingFromEco(t *testing.T) {
	engine, log := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)
	st.OutdoorTemperature = 25 // warmer outside, no free-cooling interference

	things[thing.IDMotionSensor].Motion.MotionDetected = true
	things[thing.IDLamp].Lamp.Status = thing.SwitchOn // silence motion lighting
	ts := things[thing.IDThermostat].Thermostat
	ts.Mode = thing.ModeEco
	ts.TargetTemperature = 17

	engine.Evaluate(now, things, st)

	if ts.Mode != thing.ModeHeating {
		t.Fatalf("mode = %v, want HEATING", ts.Mode)
	}
	if ts.TargetTemperature != 19 {
		t.Errorf("target = %v, want 19", ts.TargetTemperature)
	}
	found := false
	for _, ev := range log.Snapshot() {
		if strings.Contains(ev.Message, "Resuming HEATING") {
			found = true
		}
	}
	if !found {
		t.Errorf("events = %v, want a resume event", log.Snapshot())
	}
}

func TestEvaluate_ColdRoomWithPresenceEnablesHeating(t *testing.T) {
	engine, _ := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)

	things[thing.IDMotionSensor].Motion.MotionDetected = true
	ts := things[thing.IDThermostat].Thermostat
	ts.Mode = thing.ModeOff
	ts.CurrentTemperature = 17.5

	engine.Evaluate(now, things, st)

	if ts.Mode != thing.ModeHeating {
		t.Fatalf("mode = %v, want HEATING in a cold room with presence", ts.Mode)
	}
	if ts.TargetTemperature != 21 {
		t.Errorf("target = %v, want 21", ts.TargetTemperature)
	}
	if things[thing.IDLamp].Lamp.Status != thing.SwitchOn {
		t.Error("lamp OFF, want ON alongside comfort heating")
	}
}

// ─── Quiet ticks and fault isolation ───

func TestEvaluate_QuietRosterProducesNoEvents(t *testing.T) {
	engine, log := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)

	for i := 0; i < 10; i++ {
		engine.Evaluate(now.Add(time.Duration(i)*2*time.Second), things, st)
		st.NoMotionSince = now.Add(time.Duration(i) * 2 * time.Second)
	}

	if got := log.Len(); got != 0 {
		t.Errorf("events = %d over quiet ticks, want 0: %v", got, log.Snapshot())
	}
}

func TestEvaluate_RulePanicIsContainedAndLogged(t *testing.T) {
	engine, log := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)

	// A nil payload makes the window-control group panic; later groups
	// must still run.
	things[thing.IDAmbientSensor].Ambient = nil
	things[thing.IDMotionSensor].Motion.MotionDetected = true
	things[thing.IDLamp].Lamp.Status = thing.SwitchOff

	engine.Evaluate(now, things, st)

	if got := things[thing.IDLamp].Lamp.Status; got != thing.SwitchOn {
		t.Error("motion lighting did not run after an earlier rule panicked")
	}
	found := false
	for _, ev := range log.Snapshot() {
		if strings.Contains(ev.Message, "Automation fault") {
			found = true
		}
	}
	if !found {
		t.Errorf("events = %v, want a fault event", log.Snapshot())
	}
}

func TestEvaluate_MissingDeviceSkipsEvaluation(t *testing.T) {
	engine, log := newTestEngine()
	now := time.Now()
	things := quietRoster()
	st := freshState(now)
	delete(things, thing.IDSmartWindow)
	things[thing.IDAmbientSensor].Ambient.AirQualityCO2 = 1100

	engine.Evaluate(now, things, st)

	if log.Len() != 0 {
		t.Errorf("events = %d with an incomplete roster, want 0", log.Len())
	}
}
