package thing

import (
	"fmt"
	"strings"
	"time"
)

// Update is a partial update to a thing. Nil fields are left untouched;
// non-nil fields are validated against the target kind before any merge,
// so a failed update never leaves a half-applied thing behind.
type Update struct {
	Name *string `json:"name,omitempty"`

	// Lamp and smart plug
	Status *SwitchState `json:"status,omitempty"`

	// Lamp
	Brightness *int `json:"brightness,omitempty"`

	// Thermostat
	TargetTemperature *int            `json:"target_temperature,omitempty"`
	Mode              *ThermostatMode `json:"mode,omitempty"`

	// Smart window
	Position *WindowPosition `json:"position,omitempty"`
}

// IsZero reports whether the update carries no fields at all.
func (u Update) IsZero() bool {
	return u.Name == nil && u.Status == nil && u.Brightness == nil &&
		u.TargetTemperature == nil && u.Mode == nil && u.Position == nil
}

// Validate checks that every populated field is meaningful for the given
// kind and within its declared range. Sensor readings (temperature,
// humidity, CO2, motion) are simulation-owned and cannot be set externally.
func (u Update) Validate(kind Kind) error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return ErrInvalidName
	}

	if u.Status != nil {
		if kind != KindLamp && kind != KindSmartPlug {
			return fmt.Errorf("%w: status not settable on %s", ErrInvalidUpdate, kind)
		}
		if *u.Status != SwitchOn && *u.Status != SwitchOff {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, *u.Status)
		}
	}

	if u.Brightness != nil {
		if kind != KindLamp {
			return fmt.Errorf("%w: brightness not settable on %s", ErrInvalidUpdate, kind)
		}
		if *u.Brightness < BrightnessMin || *u.Brightness > BrightnessMax {
			return fmt.Errorf("%w: %d", ErrInvalidBrightness, *u.Brightness)
		}
	}

	if u.TargetTemperature != nil {
		if kind != KindThermostat {
			return fmt.Errorf("%w: target temperature not settable on %s", ErrInvalidUpdate, kind)
		}
		if *u.TargetTemperature < TargetTemperatureMin || *u.TargetTemperature > TargetTemperatureMax {
			return fmt.Errorf("%w: %d", ErrInvalidTargetTemperature, *u.TargetTemperature)
		}
	}

	if u.Mode != nil {
		if kind != KindThermostat {
			return fmt.Errorf("%w: mode not settable on %s", ErrInvalidUpdate, kind)
		}
		switch *u.Mode {
		case ModeHeating, ModeEco, ModeOff:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidMode, *u.Mode)
		}
	}

	if u.Position != nil {
		if kind != KindSmartWindow {
			return fmt.Errorf("%w: position not settable on %s", ErrInvalidUpdate, kind)
		}
		if *u.Position != WindowOpen && *u.Position != WindowClosed {
			return fmt.Errorf("%w: %q", ErrInvalidPosition, *u.Position)
		}
	}

	return nil
}

// Apply merges the update into a clone of the thing and returns the clone.
// When manual is true the clone's LastManualUpdate is stamped with now.
// The original is never mutated; on validation failure the error is
// returned and no merge happens.
func Apply(t *Thing, u Update, manual bool, now time.Time) (*Thing, error) {
	if t == nil {
		return nil, ErrThingNotFound
	}
	if err := u.Validate(t.Kind); err != nil {
		return nil, err
	}

	updated := t.Clone()

	if u.Name != nil {
		updated.Name = strings.TrimSpace(*u.Name)
	}

	switch updated.Kind {
	case KindLamp:
		if u.Status != nil {
			updated.Lamp.Status = *u.Status
		}
		if u.Brightness != nil {
			updated.Lamp.Brightness = *u.Brightness
		}
	case KindSmartPlug:
		if u.Status != nil {
			updated.Plug.Status = *u.Status
			if *u.Status == SwitchOff {
				// Power is derived: nonzero only while ON.
				updated.Plug.PowerConsumption = 0
			}
		}
	case KindThermostat:
		if u.TargetTemperature != nil {
			updated.Thermostat.TargetTemperature = *u.TargetTemperature
		}
		if u.Mode != nil {
			updated.Thermostat.Mode = *u.Mode
		}
	case KindSmartWindow:
		if u.Position != nil {
			updated.Window.Status = *u.Position
		}
	case KindMotionSensor, KindAmbientSensor:
		// Sensor kinds accept name changes only; anything else was
		// rejected by Validate above.
	}

	if manual {
		ts := now.UTC()
		updated.LastManualUpdate = &ts
	}

	return updated, nil
}
