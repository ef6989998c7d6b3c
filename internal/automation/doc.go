// Package automation holds the rule engine and the bounded event log.
//
//	┌────────────────────────────────────────────────────────┐
//	│                     gateway.Controller                 │
//	│                                                        │
//	│   working copy ──► Engine.Evaluate ──► mutations       │
//	│                          │                             │
//	│                          ▼                             │
//	│                     Log.Append ──► notify (WS / MQTT)  │
//	└────────────────────────────────────────────────────────┘
//
// The engine runs a fixed, priority-ordered set of rule groups once per
// tick, after the simulator. Ordering is the arbitration mechanism:
// window control outranks the energy guard, which outranks comfort, so
// conflicting intents resolve deterministically without a scheduler.
//
// Manual overrides are honored through per-rule suppression windows
// keyed off each thing's LastManualUpdate timestamp. The engine never
// stamps that timestamp itself.
//
// Every state mutation produces exactly one event in the Log, which
// keeps the last 10 entries newest first and fans each append out to an
// optional notify callback.
package automation
