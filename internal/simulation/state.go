package simulation

import "time"

// State holds the process-lifetime automation counters that live outside
// the published registry. It is owned by the gateway controller and
// threaded explicitly into the simulator and rule engine each tick; there
// is no ambient/global state. Reset only at process start.
type State struct {
	// OutdoorTemperature is the simulated outside temperature in °C,
	// following a sine day cycle in roughly [10, 20].
	OutdoorTemperature float64

	// DayCycle is the phase of the outdoor temperature sine wave.
	// It increases monotonically; the sine wraps it implicitly.
	DayCycle float64

	// MotionCountdown is the tick counter driving the motion sensor
	// on/off state machine.
	MotionCountdown int

	// LampAutoOffAt is the deadline after which the motion-lighting rule
	// turns the lamp back off. The zero time means no deadline is set.
	LampAutoOffAt time.Time

	// NoMotionSince is the last instant motion was detected, used by the
	// inactivity rule.
	NoMotionSince time.Time
}

// NewState returns the initial automation state.
func NewState(now time.Time) *State {
	return &State{
		OutdoorTemperature: 18,
		NoMotionSince:      now.UTC(),
	}
}
