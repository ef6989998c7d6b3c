// Package simulation advances the virtual environment one tick at a time.
//
// The Simulator is a pure state-transition function over a working copy of
// the device registry plus the State counters owned by the gateway
// controller. It has no I/O and never retains references across ticks.
//
// Step order within a tick:
//
//	1. Outdoor temperature  (day-cycle sine)
//	2. Indoor temperature   (heating / eco / open window / natural loss)
//	3. Motion state machine (countdown-driven bursts)
//	4. Humidity noise
//	5. CO2 balance          (depends on motion, window, plug from this tick)
//	6. Plug power draw
//
// Every numeric field is clamped to its declared range and NaN-guarded
// before Step returns, regardless of upstream state.
package simulation
