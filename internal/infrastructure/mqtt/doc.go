// Package mqtt mirrors gateway state to an external broker.
//
// The bridge is publish-only and optional: when disabled in config the
// gateway never touches the network. Topics live under the vgateway/
// prefix:
//
//	vgateway/system/status          retained online/offline status (LWT)
//	vgateway/things/<id>/state      retained per-device state JSON
//	vgateway/automation/events      automation event stream
//
// Connection management (reconnect with backoff, LWT, graceful offline
// publish) is handled by the paho client underneath.
package mqtt
