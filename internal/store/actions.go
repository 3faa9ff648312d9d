package store

import (
	"encoding/json"

	"telemetry_dashboard/internal/models"
)

// ActionType tags a transition.
type ActionType string

const (
	ReceiveMapConfig    ActionType = "map/RECEIVE_CONFIG"
	ReceiveGeoJSON      ActionType = "map/RECEIVE_GEO_JSON"
	ReceiveGPSData      ActionType = "gps/RECEIVE_DATA"
	ReceivePosition     ActionType = "gps/RECEIVE_POSITION"
	ReceiveMetaInfo     ActionType = "gps/RECEIVE_META_INFO"
	ReceiveTrack        ActionType = "gps/RECEIVE_TRACK"
	ReceiveHealthStatus ActionType = "health/RECEIVE_STATUS"
	ReceiveDaylight     ActionType = "daylight/RECEIVE_DATA"
	ConnectionChanged   ActionType = "websocket/CONNECTION_CHANGED"
)

// Action is one transition request: a type tag plus its payload.
type Action struct {
	Type    ActionType
	Payload any
}

// MapConfigReceived stores the loaded map configuration.
func MapConfigReceived(c models.MapConfiguration) Action {
	return Action{Type: ReceiveMapConfig, Payload: c}
}

// GeoJSONReceived stores the map overlay document.
func GeoJSONReceived(raw json.RawMessage) Action {
	return Action{Type: ReceiveGeoJSON, Payload: raw}
}

// GPSDataReceived merges a full GPS snapshot.
func GPSDataReceived(d models.GPSData) Action {
	return Action{Type: ReceiveGPSData, Payload: d}
}

// PositionReceived replaces the current position.
func PositionReceived(p models.Position) Action {
	return Action{Type: ReceivePosition, Payload: p}
}

// MetaInfoReceived replaces the receiver meta info.
func MetaInfoReceived(m models.MetaInfo) Action {
	return Action{Type: ReceiveMetaInfo, Payload: m}
}

// TrackReceived appends a track delta or starts a new track.
func TrackReceived(t models.Track) Action {
	return Action{Type: ReceiveTrack, Payload: t}
}

// HealthStatusReceived replaces the health readings.
func HealthStatusReceived(h models.HealthStatus) Action {
	return Action{Type: ReceiveHealthStatus, Payload: h}
}

// DaylightReceived replaces the daylight data.
func DaylightReceived(d models.DaylightData) Action {
	return Action{Type: ReceiveDaylight, Payload: d}
}

// ConnectionStatusChanged records a socket status transition.
func ConnectionStatusChanged(s models.ConnectionStatus) Action {
	return Action{Type: ConnectionChanged, Payload: s}
}
