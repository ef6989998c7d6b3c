package mqtt

import "fmt"

// topicPrefix roots every gateway topic.
const topicPrefix = "vgateway"

// Topics builds the fixed topic layout. A value type with no state so
// call sites read as mqtt.Topics{}.ThingState(id).
type Topics struct{}

// SystemStatus is the retained online/offline status topic, also used
// as the Last Will target.
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}

// ThingState is the retained per-device state topic.
func (Topics) ThingState(thingID string) string {
	return fmt.Sprintf("%s/things/%s/state", topicPrefix, thingID)
}

// AutomationEvents is the automation event stream topic.
func (Topics) AutomationEvents() string {
	return topicPrefix + "/automation/events"
}
