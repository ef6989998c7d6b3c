package simulation

import (
	"math"
	"math/rand"
	"time"

	"github.com/nerrad567/virtual-gateway/internal/thing"
)

// Logger defines the logging interface used by the Simulator.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Day-cycle parameters for the outdoor temperature sine wave.
const (
	dayCycleStep     = 0.1
	outdoorBase      = 15.0
	outdoorAmplitude = 5.0
)

// Indoor temperature rates in °C per tick. The branches form a priority
// chain: heating, eco cooling, open-window cooling, natural loss.
const (
	heatingRate       = 0.2
	ecoCoolingRate    = -0.1
	windowCoolingRate = -0.3
	naturalLossRate   = -0.05

	ecoFloorTemperature  = 17.0
	naturalLossFloor     = 15.0
	indoorFallbackOnFail = 20.0
)

// Motion state machine tick ranges. At ~2s per tick an active burst lasts
// roughly 6-16s and a quiet period 20-60s.
const (
	motionStartChance = 0.3

	activeTicksMin = 3
	activeTicksMax = 8 // exclusive

	quietTicksMin = 10
	quietTicksMax = 30 // exclusive

	recheckTicksMin = 5
	recheckTicksMax = 15 // exclusive
)

// CO2 contributions per tick in ppm.
const (
	co2NaturalDissipation = -5.0
	co2PersonPresence     = 20.0
	co2WindowVentilation  = -40.0
	co2AirPurifier        = -25.0
)

// Smart plug draw while ON, in watts.
const (
	plugBasePower   = 50.0
	plugPowerJitter = 2.5
)

const humidityJitter = 0.5

// Simulator advances the physical quantities of the device roster once
// per tick. It mutates only the working copy handed to Step; the state
// struct carries the counters that survive between ticks.
//
// Step order matters: CO2 depends on the motion, window, and plug values
// computed earlier in the same tick.
type Simulator struct {
	rng    *rand.Rand
	logger Logger
}

// NewSimulator creates a simulator. A nil rng gets a time-seeded source;
// tests pass a seeded one for determinism.
func NewSimulator(rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // simulation noise, not crypto
	}
	return &Simulator{
		rng:    rng,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the simulator.
func (s *Simulator) SetLogger(logger Logger) {
	s.logger = logger
}

// Step advances one tick of the environment over the working copy.
// Every numeric field is clamped and NaN-guarded before returning, so a
// faulty upstream value can never corrupt the published registry.
func (s *Simulator) Step(things map[string]*thing.Thing, st *State) {
	s.stepOutdoor(st)
	s.stepIndoorTemperature(things, st)
	s.stepMotion(things, st)
	s.stepAmbient(things)
	s.stepPlugPower(things)
}

// stepOutdoor advances the day cycle and recomputes the outdoor temperature.
func (s *Simulator) stepOutdoor(st *State) {
	st.DayCycle += dayCycleStep
	st.OutdoorTemperature = sanitize(outdoorBase+outdoorAmplitude*math.Sin(st.DayCycle), outdoorBase)
}

// stepIndoorTemperature applies the first matching branch of the indoor
// temperature chain to the thermostat reading.
func (s *Simulator) stepIndoorTemperature(things map[string]*thing.Thing, st *State) {
	thermostat := thing.OfKind(things, thing.KindThermostat)
	if thermostat == nil || thermostat.Thermostat == nil {
		return
	}
	window := thing.OfKind(things, thing.KindSmartWindow)

	ts := thermostat.Thermostat
	switch {
	case ts.Mode == thing.ModeHeating && ts.CurrentTemperature < float64(ts.TargetTemperature):
		ts.CurrentTemperature += heatingRate
	case ts.Mode == thing.ModeEco && ts.CurrentTemperature > ecoFloorTemperature:
		ts.CurrentTemperature += ecoCoolingRate
	case window != nil && window.Window != nil && window.Window.Status == thing.WindowOpen &&
		ts.CurrentTemperature > st.OutdoorTemperature:
		ts.CurrentTemperature += windowCoolingRate
	case ts.CurrentTemperature > naturalLossFloor:
		ts.CurrentTemperature += naturalLossRate
	}

	ts.CurrentTemperature = sanitize(ts.CurrentTemperature, indoorFallbackOnFail)
}

// stepMotion drives the countdown-based motion state machine. When the
// countdown expires an active sensor always goes quiet; a quiet sensor
// starts a burst with probability motionStartChance, otherwise it stays
// quiet and rechecks sooner.
func (s *Simulator) stepMotion(things map[string]*thing.Thing, st *State) {
	motion := thing.OfKind(things, thing.KindMotionSensor)
	if motion == nil || motion.Motion == nil {
		return
	}

	st.MotionCountdown--
	if st.MotionCountdown > 0 {
		return
	}

	if motion.Motion.MotionDetected {
		motion.Motion.MotionDetected = false
		st.MotionCountdown = s.drawTicks(quietTicksMin, quietTicksMax)
		return
	}

	if s.rng.Float64() < motionStartChance {
		motion.Motion.MotionDetected = true
		st.MotionCountdown = s.drawTicks(activeTicksMin, activeTicksMax)
	} else {
		st.MotionCountdown = s.drawTicks(recheckTicksMin, recheckTicksMax)
	}
}

// stepAmbient applies humidity noise and the CO2 balance. CO2 depends on
// the motion, window, and plug values already computed this tick.
func (s *Simulator) stepAmbient(things map[string]*thing.Thing) {
	ambient := thing.OfKind(things, thing.KindAmbientSensor)
	if ambient == nil || ambient.Ambient == nil {
		return
	}

	a := ambient.Ambient
	a.Humidity += (s.rng.Float64() - 0.5) * 2 * humidityJitter
	a.Humidity = clamp(sanitize(a.Humidity, thing.HumidityMin), thing.HumidityMin, thing.HumidityMax)

	change := co2NaturalDissipation
	if motion := thing.OfKind(things, thing.KindMotionSensor); motion != nil && motion.Motion != nil && motion.Motion.MotionDetected {
		change += co2PersonPresence
	}
	if window := thing.OfKind(things, thing.KindSmartWindow); window != nil && window.Window != nil && window.Window.Status == thing.WindowOpen {
		change += co2WindowVentilation
	}
	if plug := thing.OfKind(things, thing.KindSmartPlug); plug != nil && plug.Plug != nil && plug.Plug.Status == thing.SwitchOn {
		change += co2AirPurifier
	}

	a.AirQualityCO2 += change
	a.AirQualityCO2 = clamp(sanitize(a.AirQualityCO2, thing.CO2Min), thing.CO2Min, thing.CO2Max)
}

// stepPlugPower derives the plug draw: base load with jitter while ON,
// exactly zero while OFF.
func (s *Simulator) stepPlugPower(things map[string]*thing.Thing) {
	plug := thing.OfKind(things, thing.KindSmartPlug)
	if plug == nil || plug.Plug == nil {
		return
	}

	if plug.Plug.Status == thing.SwitchOn {
		plug.Plug.PowerConsumption = sanitize(plugBasePower+(s.rng.Float64()-0.5)*2*plugPowerJitter, plugBasePower)
	} else {
		plug.Plug.PowerConsumption = 0
	}
}

// drawTicks returns a uniform value in [min, max).
func (s *Simulator) drawTicks(min, max int) int {
	return min + s.rng.Intn(max-min)
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sanitize replaces NaN/Inf with a safe fallback so arithmetic faults
// never reach the published registry.
func sanitize(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
