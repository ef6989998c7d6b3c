package thing

import "time"

// Kind discriminates the closed set of device variants the gateway simulates.
type Kind string

// Kind constants.
const (
	KindLamp          Kind = "lamp"
	KindThermostat    Kind = "thermostat"
	KindMotionSensor  Kind = "motion_sensor"
	KindSmartPlug     Kind = "smart_plug"
	KindAmbientSensor Kind = "ambient_sensor"
	KindSmartWindow   Kind = "smart_window"
)

// AllKinds returns all valid kind values.
func AllKinds() []Kind {
	return []Kind{
		KindLamp, KindThermostat, KindMotionSensor,
		KindSmartPlug, KindAmbientSensor, KindSmartWindow,
	}
}

// SwitchState is the on/off state of a lamp or smart plug.
type SwitchState string

// SwitchState constants.
const (
	SwitchOn  SwitchState = "ON"
	SwitchOff SwitchState = "OFF"
)

// WindowPosition is the open/closed state of a smart window.
type WindowPosition string

// WindowPosition constants.
const (
	WindowOpen   WindowPosition = "OPEN"
	WindowClosed WindowPosition = "CLOSED"
)

// ThermostatMode is the operating mode of the thermostat.
type ThermostatMode string

// ThermostatMode constants.
const (
	ModeHeating ThermostatMode = "HEATING"
	ModeEco     ThermostatMode = "ECO"
	ModeOff     ThermostatMode = "OFF"
)

// Declared clamp ranges for numeric fields. Every published registry
// honours these after every tick and every manual update.
const (
	BrightnessMin = 0
	BrightnessMax = 100

	TargetTemperatureMin = 15
	TargetTemperatureMax = 30

	HumidityMin = 30.0
	HumidityMax = 70.0

	CO2Min = 400.0
	CO2Max = 1200.0
)

// LampState is the kind-specific payload of a lamp.
type LampState struct {
	Status     SwitchState `json:"status"`
	Brightness int         `json:"brightness"`
}

// ThermostatState is the kind-specific payload of a thermostat.
// CurrentTemperature is simulated; TargetTemperature and Mode are settable.
type ThermostatState struct {
	CurrentTemperature float64        `json:"current_temperature"`
	TargetTemperature  int            `json:"target_temperature"`
	Mode               ThermostatMode `json:"mode"`
}

// MotionState is the kind-specific payload of a motion sensor.
type MotionState struct {
	MotionDetected bool `json:"motion_detected"`
}

// PlugState is the kind-specific payload of a smart plug.
// PowerConsumption is derived: nonzero only while the plug is ON.
type PlugState struct {
	Status           SwitchState `json:"status"`
	PowerConsumption float64     `json:"power_consumption"`
}

// AmbientState is the kind-specific payload of an ambient sensor.
type AmbientState struct {
	Humidity      float64 `json:"humidity"`
	AirQualityCO2 float64 `json:"air_quality_co2"`
}

// WindowState is the kind-specific payload of a smart window.
type WindowState struct {
	Status WindowPosition `json:"status"`
}

// Thing is a tagged union over the six device kinds. Exactly one payload
// pointer matching Kind is non-nil. LastManualUpdate is set only by the
// manual-update path, never by the simulator or the rule engine.
type Thing struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Kind             Kind       `json:"kind"`
	LastManualUpdate *time.Time `json:"last_manual_update,omitempty"`

	Lamp       *LampState       `json:"lamp,omitempty"`
	Thermostat *ThermostatState `json:"thermostat,omitempty"`
	Motion     *MotionState     `json:"motion,omitempty"`
	Plug       *PlugState       `json:"plug,omitempty"`
	Ambient    *AmbientState    `json:"ambient,omitempty"`
	Window     *WindowState     `json:"window,omitempty"`
}

// Clone creates a complete independent copy of the Thing.
// The payload pointer and manual-update timestamp are copied so mutations
// of the clone never reach the original. Essential for registry isolation.
func (t *Thing) Clone() *Thing {
	if t == nil {
		return nil
	}

	cpy := *t // value fields

	if t.LastManualUpdate != nil {
		ts := *t.LastManualUpdate
		cpy.LastManualUpdate = &ts
	}

	if t.Lamp != nil {
		l := *t.Lamp
		cpy.Lamp = &l
	}
	if t.Thermostat != nil {
		th := *t.Thermostat
		cpy.Thermostat = &th
	}
	if t.Motion != nil {
		m := *t.Motion
		cpy.Motion = &m
	}
	if t.Plug != nil {
		p := *t.Plug
		cpy.Plug = &p
	}
	if t.Ambient != nil {
		a := *t.Ambient
		cpy.Ambient = &a
	}
	if t.Window != nil {
		w := *t.Window
		cpy.Window = &w
	}

	return &cpy
}

// Well-known IDs of the fixed device roster. The registry is seeded with
// exactly these six at startup; nothing is added or removed at runtime.
const (
	IDLamp          = "lamp-1"
	IDThermostat    = "thermostat-1"
	IDMotionSensor  = "motion-1"
	IDSmartPlug     = "plug-1"
	IDAmbientSensor = "ambient-1"
	IDSmartWindow   = "window-1"
)

// DefaultThings returns the initial device roster.
func DefaultThings() map[string]*Thing {
	return map[string]*Thing{
		IDLamp: {
			ID:   IDLamp,
			Name: "Living room lamp",
			Kind: KindLamp,
			Lamp: &LampState{Status: SwitchOff, Brightness: 75},
		},
		IDThermostat: {
			ID:         IDThermostat,
			Name:       "Main thermostat",
			Kind:       KindThermostat,
			Thermostat: &ThermostatState{CurrentTemperature: 20.5, TargetTemperature: 21, Mode: ModeHeating},
		},
		IDMotionSensor: {
			ID:     IDMotionSensor,
			Name:   "Motion detector",
			Kind:   KindMotionSensor,
			Motion: &MotionState{MotionDetected: false},
		},
		IDSmartPlug: {
			ID:   IDSmartPlug,
			Name: "Air purifier plug",
			Kind: KindSmartPlug,
			Plug: &PlugState{Status: SwitchOff, PowerConsumption: 0},
		},
		IDAmbientSensor: {
			ID:      IDAmbientSensor,
			Name:    "Air quality sensor",
			Kind:    KindAmbientSensor,
			Ambient: &AmbientState{Humidity: 45.2, AirQualityCO2: 650},
		},
		IDSmartWindow: {
			ID:     IDSmartWindow,
			Name:   "Smart window",
			Kind:   KindSmartWindow,
			Window: &WindowState{Status: WindowClosed},
		},
	}
}

// OfKind returns the first thing of the given kind, or nil if absent.
// The roster holds at most one device per kind, so "first" is unambiguous.
func OfKind(things map[string]*Thing, k Kind) *Thing {
	for _, t := range things {
		if t != nil && t.Kind == k {
			return t
		}
	}
	return nil
}
