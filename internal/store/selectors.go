package store

import (
	"encoding/json"

	"telemetry_dashboard/internal/models"
)

// Selectors are pure projections of a snapshot.

// IsConnected reports whether the socket is open.
func IsConnected(s models.AppState) bool { return s.Connection == models.Connected }

// ConnectionStatus returns the socket status.
func ConnectionStatus(s models.AppState) models.ConnectionStatus { return s.Connection }

// MapConfig returns the map configuration, nil until loaded.
func MapConfig(s models.AppState) *models.MapConfiguration { return s.MapConfig }

// GPSData returns the aggregate GPS snapshot.
func GPSData(s models.AppState) models.GPSData { return s.GPS }

// Position returns the latest fix.
func Position(s models.AppState) *models.Position { return s.GPS.Position }

// MetaInfo returns the receiver meta info.
func MetaInfo(s models.AppState) *models.MetaInfo { return s.GPS.Meta }

// Track returns the recorded track.
func Track(s models.AppState) *models.Track { return s.GPS.Track }

// HealthStatus returns the latest health readings.
func HealthStatus(s models.AppState) *models.HealthStatus { return s.Health }

// IsHealthOK is false until a health status has been received.
func IsHealthOK(s models.AppState) bool {
	return s.Health != nil && s.Health.IsOK()
}

// GeoJSON returns the map overlay, nil until loaded.
func GeoJSON(s models.AppState) json.RawMessage { return s.GeoJSON }

// Daylight returns the sunrise and sunset data.
func Daylight(s models.AppState) *models.DaylightData { return s.Daylight }

// ShowNoConnection drives the "no connection" indicator.
func ShowNoConnection(s models.AppState) bool {
	return s.Connection != models.Connected || s.MapConfig == nil
}
