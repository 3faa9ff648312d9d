package models

import "encoding/json"

// ConnectionStatus of the telemetry socket.
type ConnectionStatus int

const (
	Disconnected ConnectionStatus = iota
	Connecting
	Connected
)

func (s ConnectionStatus) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Tile formats served for the map.
const (
	TilesJPEG   = "JPEG"
	TilesPNG    = "PNG"
	TilesVector = "VECTOR"
)

// MapConfiguration is loaded once per session.
type MapConfiguration struct {
	MinZoom     int    `json:"minZoom"`
	MaxZoom     int    `json:"maxZoom"`
	Type        string `json:"type,omitempty"` // JPEG | PNG | VECTOR
	WithGeoJSON bool   `json:"withGeoJson"`
}

// AppState is the aggregate root owned by the store. Values reachable from an
// AppState are shared between snapshots and must be treated as read-only.
type AppState struct {
	Version    uint64
	Connection ConnectionStatus
	GPS        GPSData
	Health     *HealthStatus
	MapConfig  *MapConfiguration
	GeoJSON    json.RawMessage
	Daylight   *DaylightData
}
