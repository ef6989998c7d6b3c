package thing

import "errors"

// Domain errors for the thing package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, thing.ErrThingNotFound) {
//	    // handle not found case
//	}
var (
	// ErrThingNotFound is returned when a thing ID does not exist in the registry.
	ErrThingNotFound = errors.New("thing: not found")

	// ErrInvalidUpdate is returned when a partial update carries a field that
	// is not valid for the target thing's kind.
	ErrInvalidUpdate = errors.New("thing: invalid update for kind")

	// ErrInvalidStatus is returned when a switch status is not ON or OFF.
	ErrInvalidStatus = errors.New("thing: invalid status")

	// ErrInvalidPosition is returned when a window position is not OPEN or CLOSED.
	ErrInvalidPosition = errors.New("thing: invalid window position")

	// ErrInvalidMode is returned when a thermostat mode is not recognised.
	ErrInvalidMode = errors.New("thing: invalid thermostat mode")

	// ErrInvalidBrightness is returned when brightness is outside [0,100].
	ErrInvalidBrightness = errors.New("thing: brightness out of range")

	// ErrInvalidTargetTemperature is returned when the target temperature is
	// outside [15,30].
	ErrInvalidTargetTemperature = errors.New("thing: target temperature out of range")

	// ErrInvalidName is returned when a thing name is empty.
	ErrInvalidName = errors.New("thing: invalid name")
)
