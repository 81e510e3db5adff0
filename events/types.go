package events // import "github.com/quarterdeck-gg/console/events"

import (
	"encoding/json"

	"github.com/quarterdeck-gg/console/types"
	"github.com/quarterdeck-gg/console/utils"
)

// An InstanceEventType discriminates the instance events the backend pushes
// over the stream. The variant set is owned by the backend contract; types
// this service doesn't recognize are ignored by the event loop rather than
// rejected.
type InstanceEventType string

// Constants for the instance event types.
const (
	InstanceCreated        InstanceEventType = "InstanceCreated"
	InstanceRemoved        InstanceEventType = "InstanceRemoved"
	InstanceStarting       InstanceEventType = "InstanceStarting"
	InstanceStarted        InstanceEventType = "InstanceStarted"
	InstanceStopping       InstanceEventType = "InstanceStopping"
	InstanceStopped        InstanceEventType = "InstanceStopped"
	InstanceCrashed        InstanceEventType = "InstanceCrashed"
	InstanceWarning        InstanceEventType = "InstanceWarning"
	InstanceError          InstanceEventType = "InstanceError"
	InstanceOutput         InstanceEventType = "InstanceOutput"
	InstancePlayerChange   InstanceEventType = "PlayerChange"
	InstanceCreationFailed InstanceEventType = "InstanceCreationFailed"
)

// InstanceEventInner carries the type-specific payload of an instance event.
// Fields other than Type are only populated for the variants that use them.
type InstanceEventInner struct {
	Type InstanceEventType `json:"type"`
	// Message is set for InstanceOutput, InstanceWarning and InstanceError.
	Message string `json:"message,omitempty"`
	// PlayerList is the full set of online players, set for PlayerChange.
	PlayerList []string `json:"player_list,omitempty"`
}

// An InstanceEvent reports that something happened to one instance.
type InstanceEvent struct {
	InstanceUUID types.InstanceID   `json:"instance_uuid"`
	InstanceName types.InstanceName `json:"instance_name"`
	Inner        InstanceEventInner `json:"instance_event_inner"`
}

// eventInnerType is the set of envelope payload kinds we know about.
const (
	eventKindInstance = "InstanceEvent"
)

// An Event is the envelope every pushed message arrives in. The payload is
// kept raw until a consumer asks for a concrete kind, so unknown payload
// kinds pass through harmlessly.
type Event struct {
	EventInner  json.RawMessage `json:"event_inner"`
	Details     string          `json:"details"`
	Timestamp   int64           `json:"timestamp"`
	Idempotency string          `json:"idempotency"`
}

// kind peeks at the payload's type tag without decoding the rest.
func (e Event) kind() string {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(e.EventInner, &probe); err != nil {
		return ""
	}
	return probe.Type
}

// IsInstanceEvent reports whether the envelope carries an instance event.
func (e Event) IsInstanceEvent() bool {
	return e.kind() == eventKindInstance
}

// Instance decodes the envelope's payload as an InstanceEvent.
func (e Event) Instance() (InstanceEvent, error) {
	if !e.IsInstanceEvent() {
		return InstanceEvent{}, utils.MakeError("event payload is %q, not an instance event", e.kind())
	}

	var ev InstanceEvent
	if err := json.Unmarshal(e.EventInner, &ev); err != nil {
		return InstanceEvent{}, utils.MakeError("couldn't decode instance event: %s", err)
	}
	if ev.InstanceUUID == "" {
		return InstanceEvent{}, utils.MakeError("instance event has no instance_uuid")
	}
	return ev, nil
}
