package store

import (
	"encoding/json"

	"telemetry_dashboard/internal/models"
)

// reducer returns the next state and whether anything changed.
// Reducers never mutate values reachable from the input state.
type reducer func(models.AppState, any) (models.AppState, bool)

var reducers = map[ActionType]reducer{
	ReceiveMapConfig:    reduceMapConfig,
	ReceiveGeoJSON:      reduceGeoJSON,
	ReceiveGPSData:      reduceGPSData,
	ReceivePosition:     reducePosition,
	ReceiveMetaInfo:     reduceMetaInfo,
	ReceiveTrack:        reduceTrack,
	ReceiveHealthStatus: reduceHealthStatus,
	ReceiveDaylight:     reduceDaylight,
	ConnectionChanged:   reduceConnection,
}

// Reduce applies a to s. Unknown action types and malformed payloads return
// s unchanged. The version is bumped only when the state changed.
func Reduce(s models.AppState, a Action) models.AppState {
	fn, ok := reducers[a.Type]
	if !ok {
		return s
	}
	next, changed := fn(s, a.Payload)
	if !changed {
		return s
	}
	next.Version = s.Version + 1
	return next
}

// payloadAs accepts either T or a non-nil *T.
func payloadAs[T any](p any) (T, bool) {
	var zero T
	switch v := p.(type) {
	case T:
		return v, true
	case *T:
		if v == nil {
			return zero, false
		}
		return *v, true
	default:
		return zero, false
	}
}

func reduceMapConfig(s models.AppState, p any) (models.AppState, bool) {
	cfg, ok := payloadAs[models.MapConfiguration](p)
	if !ok {
		return s, false
	}
	s.MapConfig = &cfg
	return s, true
}

func reduceGeoJSON(s models.AppState, p any) (models.AppState, bool) {
	raw, ok := payloadAs[json.RawMessage](p)
	if !ok || len(raw) == 0 || !json.Valid(raw) {
		return s, false
	}
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	s.GeoJSON = cp
	return s, true
}

// reduceGPSData merges a full snapshot from the HTTP surface. Present fields
// replace their counterparts; absent fields are kept. A same-start track is
// reconciled so a late snapshot cannot shrink the path.
func reduceGPSData(s models.AppState, p any) (models.AppState, bool) {
	d, ok := payloadAs[models.GPSData](p)
	if !ok {
		return s, false
	}
	if d.Position == nil && d.Meta == nil && d.Track == nil {
		return s, false
	}
	gps := s.GPS
	if d.Position != nil {
		pos := *d.Position
		gps.Position = &pos
	}
	if d.Meta != nil {
		meta := *d.Meta
		gps.Meta = &meta
	}
	if d.Track != nil {
		gps.Track = models.ReconcileTrack(gps.Track, *d.Track)
	}
	s.GPS = gps
	return s, true
}

func reducePosition(s models.AppState, p any) (models.AppState, bool) {
	pos, ok := payloadAs[models.Position](p)
	if !ok {
		return s, false
	}
	s.GPS.Position = &pos
	return s, true
}

func reduceMetaInfo(s models.AppState, p any) (models.AppState, bool) {
	meta, ok := payloadAs[models.MetaInfo](p)
	if !ok {
		return s, false
	}
	s.GPS.Meta = &meta
	return s, true
}

func reduceTrack(s models.AppState, p any) (models.AppState, bool) {
	t, ok := payloadAs[models.Track](p)
	if !ok {
		return s, false
	}
	s.GPS.Track = models.MergeTrack(s.GPS.Track, t)
	return s, true
}

func reduceHealthStatus(s models.AppState, p any) (models.AppState, bool) {
	h, ok := payloadAs[models.HealthStatus](p)
	if !ok {
		return s, false
	}
	s.Health = &h
	return s, true
}

func reduceDaylight(s models.AppState, p any) (models.AppState, bool) {
	d, ok := payloadAs[models.DaylightData](p)
	if !ok {
		return s, false
	}
	s.Daylight = &d
	return s, true
}

func reduceConnection(s models.AppState, p any) (models.AppState, bool) {
	st, ok := payloadAs[models.ConnectionStatus](p)
	if !ok || st < models.Disconnected || st > models.Connected || st == s.Connection {
		return s, false
	}
	s.Connection = st
	return s, true
}
