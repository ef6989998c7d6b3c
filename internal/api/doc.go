// Package api provides the HTTP and WebSocket surface of the virtual
// gateway.
//
// The server exposes a versioned REST API for the dashboard and a
// WebSocket hub for live state push:
//
//	┌────────────┐     REST      ┌──────────────────────────┐
//	│  Dashboard │ ───────────▶  │  /api/v1/...             │
//	│            │               │   auth, things,          │
//	│            │  WebSocket    │   automation, analytics  │
//	│            │ ◀───────────  │  /ws (hub push)          │
//	└────────────┘               └──────────────────────────┘
//
// Authentication is JWT bearer tokens issued by POST /api/v1/auth/login.
// Browsers cannot set headers on WebSocket upgrades, so /ws is guarded
// by short-lived single-use tickets minted at POST /api/v1/auth/ws-ticket.
//
// The hub pushes two event types: "state.updated" carries the full
// device snapshot after every tick or manual update, and
// "automation.event" carries each new entry of the automation log.
// Clients subscribe per event type after connecting.
package api
