package simulation

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/nerrad567/virtual-gateway/internal/thing"
)

func newTestSimulator(seed int64) *Simulator {
	return NewSimulator(rand.New(rand.NewSource(seed)))
}

func TestStep_ClampsHoldOverManyTicks(t *testing.T) {
	sim := newTestSimulator(1)
	st := NewState(time.Now())
	things := thing.DefaultThings()

	// Flip the window and plug around to exercise every CO2 branch.
	for i := 0; i < 2000; i++ {
		if i%37 == 0 {
			things[thing.IDSmartWindow].Window.Status = thing.WindowOpen
		}
		if i%53 == 0 {
			things[thing.IDSmartWindow].Window.Status = thing.WindowClosed
		}
		if i%29 == 0 {
			things[thing.IDSmartPlug].Plug.Status = thing.SwitchOn
		}
		if i%71 == 0 {
			things[thing.IDSmartPlug].Plug.Status = thing.SwitchOff
		}

		sim.Step(things, st)

		ambient := things[thing.IDAmbientSensor].Ambient
		if ambient.Humidity < thing.HumidityMin || ambient.Humidity > thing.HumidityMax {
			t.Fatalf("tick %d: humidity %v out of [%v,%v]", i, ambient.Humidity, thing.HumidityMin, thing.HumidityMax)
		}
		if ambient.AirQualityCO2 < thing.CO2Min || ambient.AirQualityCO2 > thing.CO2Max {
			t.Fatalf("tick %d: co2 %v out of [%v,%v]", i, ambient.AirQualityCO2, thing.CO2Min, thing.CO2Max)
		}
		if st.OutdoorTemperature < outdoorBase-outdoorAmplitude-0.001 || st.OutdoorTemperature > outdoorBase+outdoorAmplitude+0.001 {
			t.Fatalf("tick %d: outdoor %v outside sine range", i, st.OutdoorTemperature)
		}
	}
}

func TestStep_HeatingRaisesTemperature(t *testing.T) {
	sim := newTestSimulator(2)
	st := NewState(time.Now())
	things := thing.DefaultThings()
	ts := things[thing.IDThermostat].Thermostat
	ts.Mode = thing.ModeHeating
	ts.CurrentTemperature = 18
	ts.TargetTemperature = 21

	sim.Step(things, st)

	if got := ts.CurrentTemperature; math.Abs(got-18.2) > 1e-9 {
		t.Errorf("temperature = %v, want 18.2", got)
	}
}

func TestStep_EcoCoolsTowardFloor(t *testing.T) {
	sim := newTestSimulator(3)
	st := NewState(time.Now())
	things := thing.DefaultThings()
	ts := things[thing.IDThermostat].Thermostat
	ts.Mode = thing.ModeEco
	ts.CurrentTemperature = 20

	sim.Step(things, st)

	if got := ts.CurrentTemperature; math.Abs(got-19.9) > 1e-9 {
		t.Errorf("temperature = %v, want 19.9", got)
	}

	// At the eco floor the branch no longer matches; natural loss applies.
	ts.CurrentTemperature = 17
	sim.Step(things, st)
	if got := ts.CurrentTemperature; math.Abs(got-16.95) > 1e-9 {
		t.Errorf("temperature at floor = %v, want 16.95", got)
	}
}

func TestStep_OpenWindowCoolsOnlyWhenWarmerInside(t *testing.T) {
	sim := newTestSimulator(4)
	st := NewState(time.Now())
	things := thing.DefaultThings()
	ts := things[thing.IDThermostat].Thermostat
	ts.Mode = thing.ModeOff
	things[thing.IDSmartWindow].Window.Status = thing.WindowOpen

	ts.CurrentTemperature = 25
	sim.Step(things, st)
	if st.OutdoorTemperature >= 25 {
		t.Skipf("outdoor %v not below indoor, branch untestable with this seed", st.OutdoorTemperature)
	}
	if got := ts.CurrentTemperature; math.Abs(got-24.7) > 1e-9 {
		t.Errorf("temperature = %v, want 24.7", got)
	}
}

func TestStep_NaturalLossStopsAtFloor(t *testing.T) {
	sim := newTestSimulator(5)
	st := NewState(time.Now())
	things := thing.DefaultThings()
	ts := things[thing.IDThermostat].Thermostat
	ts.Mode = thing.ModeOff
	ts.CurrentTemperature = 15.0

	sim.Step(things, st)

	if got := ts.CurrentTemperature; got != 15.0 {
		t.Errorf("temperature = %v, want unchanged 15.0 at floor", got)
	}
}

func TestStep_CO2Balance(t *testing.T) {
	tests := []struct {
		name   string
		motion bool
		window thing.WindowPosition
		plug   thing.SwitchState
		want   float64 // delta from 800
	}{
		{"dissipation only", false, thing.WindowClosed, thing.SwitchOff, -5},
		{"person present", true, thing.WindowClosed, thing.SwitchOff, 15},
		{"window ventilation", false, thing.WindowOpen, thing.SwitchOff, -45},
		{"purifier running", false, thing.WindowClosed, thing.SwitchOn, -30},
		{"everything at once", true, thing.WindowOpen, thing.SwitchOn, -50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newTestSimulator(6)
			st := NewState(time.Now())
			st.MotionCountdown = 100 // keep the state machine from flipping motion

			things := thing.DefaultThings()
			things[thing.IDMotionSensor].Motion.MotionDetected = tt.motion
			things[thing.IDSmartWindow].Window.Status = tt.window
			things[thing.IDSmartPlug].Plug.Status = tt.plug
			things[thing.IDAmbientSensor].Ambient.AirQualityCO2 = 800

			sim.Step(things, st)

			got := things[thing.IDAmbientSensor].Ambient.AirQualityCO2
			if math.Abs(got-(800+tt.want)) > 1e-9 {
				t.Errorf("co2 = %v, want %v", got, 800+tt.want)
			}
		})
	}
}

func TestStep_PlugPower(t *testing.T) {
	sim := newTestSimulator(7)
	st := NewState(time.Now())
	things := thing.DefaultThings()
	plug := things[thing.IDSmartPlug].Plug

	plug.Status = thing.SwitchOn
	sim.Step(things, st)
	if plug.PowerConsumption < plugBasePower-plugPowerJitter || plug.PowerConsumption > plugBasePower+plugPowerJitter {
		t.Errorf("power = %v, want within %v of %v", plug.PowerConsumption, plugPowerJitter, plugBasePower)
	}

	plug.Status = thing.SwitchOff
	sim.Step(things, st)
	if plug.PowerConsumption != 0 {
		t.Errorf("power = %v while OFF, want 0", plug.PowerConsumption)
	}
}

func TestStep_MotionStateMachine(t *testing.T) {
	sim := newTestSimulator(8)
	st := NewState(time.Now())
	things := thing.DefaultThings()
	motion := things[thing.IDMotionSensor].Motion

	// An active sensor with an expired countdown always goes quiet.
	motion.MotionDetected = true
	st.MotionCountdown = 1
	sim.Step(things, st)
	if motion.MotionDetected {
		t.Fatal("active sensor did not go quiet on countdown expiry")
	}
	if st.MotionCountdown < quietTicksMin || st.MotionCountdown >= quietTicksMax {
		t.Errorf("quiet countdown = %d, want [%d,%d)", st.MotionCountdown, quietTicksMin, quietTicksMax)
	}

	// While the countdown is positive the state never changes.
	st.MotionCountdown = 5
	before := motion.MotionDetected
	sim.Step(things, st)
	if motion.MotionDetected != before {
		t.Error("motion flipped while countdown was positive")
	}
	if st.MotionCountdown != 4 {
		t.Errorf("countdown = %d, want 4", st.MotionCountdown)
	}
}

func TestStep_MotionEventuallyStarts(t *testing.T) {
	sim := newTestSimulator(9)
	st := NewState(time.Now())
	things := thing.DefaultThings()
	motion := things[thing.IDMotionSensor].Motion

	// With a 30% start chance, 500 expiries without a burst would be
	// astronomically unlikely.
	for i := 0; i < 500; i++ {
		st.MotionCountdown = 1
		sim.Step(things, st)
		if motion.MotionDetected {
			if st.MotionCountdown < activeTicksMin || st.MotionCountdown >= activeTicksMax {
				t.Errorf("active countdown = %d, want [%d,%d)", st.MotionCountdown, activeTicksMin, activeTicksMax)
			}
			return
		}
		if st.MotionCountdown < recheckTicksMin || st.MotionCountdown >= recheckTicksMax {
			t.Errorf("recheck countdown = %d, want [%d,%d)", st.MotionCountdown, recheckTicksMin, recheckTicksMax)
		}
	}
	t.Fatal("motion never started across 500 expiries")
}

func TestStep_SanitizesCorruptValues(t *testing.T) {
	sim := newTestSimulator(10)
	st := NewState(time.Now())
	things := thing.DefaultThings()

	things[thing.IDThermostat].Thermostat.CurrentTemperature = math.NaN()
	things[thing.IDAmbientSensor].Ambient.Humidity = math.Inf(1)
	things[thing.IDAmbientSensor].Ambient.AirQualityCO2 = math.NaN()

	sim.Step(things, st)

	if math.IsNaN(things[thing.IDThermostat].Thermostat.CurrentTemperature) {
		t.Error("NaN temperature survived the tick")
	}
	h := things[thing.IDAmbientSensor].Ambient.Humidity
	if math.IsInf(h, 0) || h < thing.HumidityMin || h > thing.HumidityMax {
		t.Errorf("humidity = %v after sanitize, want clamped", h)
	}
	if math.IsNaN(things[thing.IDAmbientSensor].Ambient.AirQualityCO2) {
		t.Error("NaN co2 survived the tick")
	}
}

func TestStep_NeverTouchesManualTimestamp(t *testing.T) {
	sim := newTestSimulator(11)
	st := NewState(time.Now())
	things := thing.DefaultThings()

	stamp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	things[thing.IDLamp].LastManualUpdate = &stamp

	for i := 0; i < 50; i++ {
		sim.Step(things, st)
	}

	if got := things[thing.IDLamp].LastManualUpdate; got == nil || !got.Equal(stamp) {
		t.Errorf("LastManualUpdate = %v, want untouched %v", got, stamp)
	}
	if things[thing.IDThermostat].LastManualUpdate != nil {
		t.Error("simulator stamped a manual update")
	}
}
