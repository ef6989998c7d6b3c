// Package gateway wires the simulator, rule engine, and device registry
// into the tick loop that drives the virtual home.
//
//	┌─────────────────────────────────────────────────────────┐
//	│                      Controller                         │
//	│                                                         │
//	│   ticker ──► working copy ──► simulation.Step           │
//	│                     │                                   │
//	│                     ▼                                   │
//	│             automation.Evaluate  (when enabled)         │
//	│                     │                                   │
//	│                     ▼                                   │
//	│              registry.Publish ──► fan-out               │
//	│                                    ├── Broadcaster (WS) │
//	│                                    ├── Publisher  (MQTT)│
//	│                                    ├── Telemetry (Flux) │
//	│                                    └── Recorder (SQLite)│
//	└─────────────────────────────────────────────────────────┘
//
// One mutex serializes ticks, manual updates, and the automation toggle,
// so readers always observe a fully consistent roster. Sinks run outside
// the lock and are all optional; the gateway works with none attached.
package gateway
