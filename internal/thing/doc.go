// Package thing provides the device model for the virtual gateway.
//
// A Thing is a tagged union over six fixed device kinds (lamp, thermostat,
// motion sensor, smart plug, ambient sensor, smart window). The Kind field
// discriminates; exactly one kind payload pointer is non-nil. All consumers
// switch on Kind rather than relying on runtime type checks.
//
// # Key Types
//
//   - Thing: tagged-union device record with a manual-override timestamp
//   - Update: validated partial update (nil field = untouched)
//   - Registry: thread-safe published device map with atomic replacement
//
// # Ownership
//
// The Registry is exclusively owned by the gateway controller. Each tick
// takes a WorkingCopy, mutates it privately, and hands it back wholesale
// via Publish, so readers never observe a partially mutated registry.
// Manual updates go through ApplyManual, which stamps LastManualUpdate —
// the simulator and rule engine never touch that timestamp.
//
// # Thread Safety
//
// Registry is safe for concurrent use from multiple goroutines. Thing and
// Update are plain values; clone before sharing.
package thing
