package mqtt

import "errors"

// Sentinel errors for broker operations.
var (
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrNotConnected     = errors.New("mqtt: not connected")
	ErrInvalidTopic     = errors.New("mqtt: invalid topic")
	ErrInvalidQoS       = errors.New("mqtt: invalid qos")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
)
