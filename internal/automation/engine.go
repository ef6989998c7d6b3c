package automation

import (
	"fmt"
	"time"

	"github.com/nerrad567/virtual-gateway/internal/simulation"
	"github.com/nerrad567/virtual-gateway/internal/thing"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Error(string, ...any) {}

// Manual-override suppression windows. A device whose LastManualUpdate
// falls within a rule's window is left untouched by that rule; recent
// human intent wins over automation.
const (
	lampOverrideWindow     = 60 * time.Second
	thermostatToggleWindow = 60 * time.Second
	thermostatModeWindow   = 300 * time.Second
	windowOverrideWindow   = 300 * time.Second
	plugOverrideWindow     = 300 * time.Second
)

// CO2 thresholds in ppm.
const (
	co2HighThreshold        = 1000.0
	co2SafeThreshold        = 800.0
	co2PurifierOnThreshold  = 850.0
	co2PurifierOffThreshold = 700.0
)

// Comfort and presence parameters.
const (
	inactivityTimeout = 20 * time.Second
	lampOnDuration    = 60 * time.Second

	ecoTargetTemperature     = 17
	comfortResumeTarget      = 19
	comfortTargetTemperature = 21
	comfortTriggerThreshold  = 19.0
	freeCoolingMargin        = 1.0
)

// plugRestingPower is the draw stamped when a rule switches the plug ON.
// The simulator re-derives it with jitter on the next tick; stamping it
// here keeps the power reading consistent with the status within the
// tick that flipped it.
const plugRestingPower = 50.0

// Engine evaluates the fixed, priority-ordered automation rule set over
// the post-simulation working copy of the registry.
//
// Rule groups run top to bottom. Within a group only the first matching
// condition fires, which keeps conflicting actions on the same device
// mutually exclusive. Every mutation appends exactly one event. A panic
// inside a rule group is recovered and surfaced as an event so a faulty
// rule can never abort the tick.
type Engine struct {
	events *Log
	logger Logger
}

// NewEngine creates a rule engine writing to the given event log.
func NewEngine(events *Log, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		events: events,
		logger: logger,
	}
}

// Evaluate runs all rule groups against the working copy. The copy and
// the automation state are mutated in place; the caller publishes them.
func (e *Engine) Evaluate(now time.Time, things map[string]*thing.Thing, st *simulation.State) {
	lamp := thing.OfKind(things, thing.KindLamp)
	motion := thing.OfKind(things, thing.KindMotionSensor)
	thermostat := thing.OfKind(things, thing.KindThermostat)
	window := thing.OfKind(things, thing.KindSmartWindow)
	plug := thing.OfKind(things, thing.KindSmartPlug)
	ambient := thing.OfKind(things, thing.KindAmbientSensor)

	if lamp == nil || motion == nil || thermostat == nil || window == nil || plug == nil || ambient == nil {
		e.logger.Error("rule evaluation skipped: incomplete device roster")
		return
	}

	e.guard("window control", func() {
		e.ruleWindowControl(now, thermostat, window, ambient, st)
	})
	e.guard("energy guard", func() {
		e.ruleEnergyGuard(now, thermostat, window)
	})
	e.guard("air purifier", func() {
		e.ruleAirPurifier(now, motion, window, plug, ambient)
	})
	e.guard("presence tracking", func() {
		if motion.Motion.MotionDetected {
			st.NoMotionSince = now
		}
	})
	e.guard("motion lighting", func() {
		e.ruleMotionLighting(now, lamp, motion, st)
	})
	e.guard("inactivity eco", func() {
		e.ruleInactivityEco(now, lamp, motion, thermostat, st)
	})
	e.guard("comfort resume", func() {
		e.ruleComfortResume(now, lamp, motion, thermostat)
	})
}

// ruleWindowControl is the highest-priority group: CO2 safety ventilation,
// then free cooling, then closing back once conditions recover. At most
// one transition fires per tick.
func (e *Engine) ruleWindowControl(now time.Time, thermostat, window, ambient *thing.Thing, st *simulation.State) {
	if manuallyUpdatedWithin(window, now, windowOverrideWindow) {
		return
	}

	ts := thermostat.Thermostat
	switch {
	case ambient.Ambient.AirQualityCO2 > co2HighThreshold &&
		window.Window.Status == thing.WindowClosed:
		window.Window.Status = thing.WindowOpen
		e.events.Append(fmt.Sprintf("High CO2 level. Opening the window. (outdoor: %.1f°C)", st.OutdoorTemperature))

	case ts.CurrentTemperature > float64(ts.TargetTemperature)+freeCoolingMargin &&
		st.OutdoorTemperature < ts.CurrentTemperature &&
		window.Window.Status == thing.WindowClosed:
		window.Window.Status = thing.WindowOpen
		e.events.Append(fmt.Sprintf("Too warm inside. Opening the window for free cooling. (outdoor: %.1f°C)", st.OutdoorTemperature))

	case window.Window.Status == thing.WindowOpen:
		if ambient.Ambient.AirQualityCO2 < co2SafeThreshold &&
			ts.CurrentTemperature <= float64(ts.TargetTemperature) {
			window.Window.Status = thing.WindowClosed
			e.events.Append("Conditions back to normal. Closing the window.")
		} else if st.OutdoorTemperature >= ts.CurrentTemperature {
			window.Window.Status = thing.WindowClosed
			e.events.Append("No longer cooler outside. Closing the window.")
		}
	}
}

// ruleEnergyGuard turns the heating off while the window is open.
func (e *Engine) ruleEnergyGuard(now time.Time, thermostat, window *thing.Thing) {
	if thermostat.Thermostat.Mode == thing.ModeHeating &&
		window.Window.Status == thing.WindowOpen &&
		!manuallyUpdatedWithin(thermostat, now, thermostatToggleWindow) {
		thermostat.Thermostat.Mode = thing.ModeOff
		e.events.Append("Window is open. Turning the thermostat off to save energy.")
	}
}

// ruleAirPurifier starts the purifier plug on stale air with someone
// present and the window closed, and stops it once the air recovers or
// the window opens.
func (e *Engine) ruleAirPurifier(now time.Time, motion, window, plug, ambient *thing.Thing) {
	if manuallyUpdatedWithin(plug, now, plugOverrideWindow) {
		return
	}

	co2 := ambient.Ambient.AirQualityCO2
	switch {
	case co2 > co2PurifierOnThreshold && motion.Motion.MotionDetected &&
		plug.Plug.Status == thing.SwitchOff && window.Window.Status == thing.WindowClosed:
		plug.Plug.Status = thing.SwitchOn
		plug.Plug.PowerConsumption = plugRestingPower
		e.events.Append("Stale air detected. Starting the air purifier.")

	case plug.Plug.Status == thing.SwitchOn && co2 < co2PurifierOffThreshold:
		plug.Plug.Status = thing.SwitchOff
		plug.Plug.PowerConsumption = 0
		e.events.Append("Air quality restored. Stopping the air purifier.")

	case plug.Plug.Status == thing.SwitchOn && window.Window.Status == thing.WindowOpen:
		plug.Plug.Status = thing.SwitchOff
		plug.Plug.PowerConsumption = 0
		e.events.Append("Window is open. Stopping the air purifier.")
	}
}

// ruleMotionLighting turns the lamp on when motion appears and back off
// once the auto-off deadline passes.
func (e *Engine) ruleMotionLighting(now time.Time, lamp, motion *thing.Thing, st *simulation.State) {
	if manuallyUpdatedWithin(lamp, now, lampOverrideWindow) {
		return
	}

	switch {
	case motion.Motion.MotionDetected && lamp.Lamp.Status == thing.SwitchOff:
		lamp.Lamp.Status = thing.SwitchOn
		st.LampAutoOffAt = now.Add(lampOnDuration)
		e.events.Append("Motion detected. Turning the lamp on.")

	case lamp.Lamp.Status == thing.SwitchOn && !st.LampAutoOffAt.IsZero() &&
		now.After(st.LampAutoOffAt):
		lamp.Lamp.Status = thing.SwitchOff
		st.LampAutoOffAt = time.Time{}
		e.events.Append("Lighting timeout reached. Turning the lamp off.")
	}
}

// ruleInactivityEco drops the thermostat to ECO and kills the lamp after
// a sustained stretch without motion.
func (e *Engine) ruleInactivityEco(now time.Time, lamp, motion, thermostat *thing.Thing, st *simulation.State) {
	if motion.Motion.MotionDetected || now.Sub(st.NoMotionSince) <= inactivityTimeout {
		return
	}

	if thermostat.Thermostat.Mode != thing.ModeEco &&
		!manuallyUpdatedWithin(thermostat, now, thermostatModeWindow) {
		thermostat.Thermostat.Mode = thing.ModeEco
		thermostat.Thermostat.TargetTemperature = ecoTargetTemperature
		e.events.Append("No activity detected. Switching the thermostat to ECO.")
	}

	if lamp.Lamp.Status == thing.SwitchOn &&
		!manuallyUpdatedWithin(lamp, now, lampOverrideWindow) {
		lamp.Lamp.Status = thing.SwitchOff
		e.events.Append("No activity detected. Turning the lamp off.")
	}
}

// ruleComfortResume restores heating when someone is present again.
func (e *Engine) ruleComfortResume(now time.Time, lamp, motion, thermostat *thing.Thing) {
	if !motion.Motion.MotionDetected ||
		manuallyUpdatedWithin(thermostat, now, thermostatModeWindow) {
		return
	}

	ts := thermostat.Thermostat
	switch {
	case ts.Mode == thing.ModeEco:
		ts.Mode = thing.ModeHeating
		ts.TargetTemperature = comfortResumeTarget
		e.events.Append("Motion detected. Resuming HEATING mode.")

	case ts.Mode == thing.ModeOff && ts.CurrentTemperature < comfortTriggerThreshold:
		ts.Mode = thing.ModeHeating
		ts.TargetTemperature = comfortTargetTemperature
		if lamp.Lamp.Status == thing.SwitchOff &&
			!manuallyUpdatedWithin(lamp, now, lampOverrideWindow) {
			lamp.Lamp.Status = thing.SwitchOn
		}
		e.events.Append("Too cold with someone home. Enabling HEATING.")
	}
}

// guard runs one rule group with panic recovery. A recovered panic is
// logged and surfaced as an automation event; the remaining groups still
// run.
func (e *Engine) guard(group string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("rule group panicked", "group", group, "panic", r)
			e.events.Append(fmt.Sprintf("Automation fault in %s rules; tick continued.", group))
		}
	}()
	fn()
}

// manuallyUpdatedWithin reports whether the thing was manually updated
// within the given window before now.
func manuallyUpdatedWithin(t *thing.Thing, now time.Time, window time.Duration) bool {
	return t.LastManualUpdate != nil && now.Sub(*t.LastManualUpdate) < window
}
