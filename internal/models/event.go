package models

import (
	"encoding/json"
	"time"
)

// Event type names used on the wire, both as envelope tags and as subscription keys.
const (
	GPSPositionChangeEvent  = "GPSPositionChangeEvent"
	GPSMetaInfoChangeEvent  = "GPSMetaInfoChangeEvent"
	GPSTrackChangeEvent     = "GPSTrackChangeEvent"
	HealthStatusChangeEvent = "HealthStatusChangeEvent"
	DaylightDataChangeEvent = "DaylightDataChangeEvent"
)

// EventTypes lists every event type a client may subscribe to.
var EventTypes = []string{
	GPSPositionChangeEvent,
	GPSMetaInfoChangeEvent,
	GPSTrackChangeEvent,
	HealthStatusChangeEvent,
	DaylightDataChangeEvent,
}

// IsEventType reports whether name is a known event type.
func IsEventType(name string) bool {
	for _, t := range EventTypes {
		if t == name {
			return true
		}
	}
	return false
}

// EventEnvelope is the inbound socket frame. Event stays raw until routed.
type EventEnvelope struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
}

// ControlMessage is the outbound subscription request, {"SUBSCRIBE": name} or
// {"UNSUBSCRIBE": name}.
type ControlMessage struct {
	Subscribe   string `json:"SUBSCRIBE,omitempty"`
	Unsubscribe string `json:"UNSUBSCRIBE,omitempty"`
}

func SubscribeMessage(event string) ControlMessage   { return ControlMessage{Subscribe: event} }
func UnsubscribeMessage(event string) ControlMessage { return ControlMessage{Unsubscribe: event} }

// Payload shapes per event type.
type (
	PositionChange struct {
		Location *Position `json:"location"`
	}
	MetaInfoChange struct {
		MetaInfo *MetaInfo `json:"metaInfo"`
	}
	TrackChange struct {
		Track *Track `json:"track"`
	}
	HealthStatusChange struct {
		Status *HealthStatus `json:"status"`
	}
	DaylightChange struct {
		Data *DaylightData `json:"data"`
	}
)

// DaylightData tells whether it is currently day at the vehicle's position.
type DaylightData struct {
	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`
	Day     bool      `json:"day"`
}
