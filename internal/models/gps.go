package models

// Position is a single GPS fix as reported by the telemetry service.
// Errors are in meters (m/s for speed and climb rate).
type Position struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Altitude       float64 `json:"altitude"`
	LatitudeError  float64 `json:"latitudeError"`
	LongitudeError float64 `json:"longitudeError"`
	AltitudeError  float64 `json:"altitudeError"`
	Speed          float64 `json:"speed"`     // m/s
	ClimbRate      float64 `json:"climbRate"` // m/s
	SpeedError     float64 `json:"speedError"`
	ClimbRateError float64 `json:"climbRateError"`
	Timestamp      float64 `json:"timestamp"` // seconds since epoch
}

// MetaInfo carries receiver meta data.
type MetaInfo struct {
	NumSatellites int `json:"numSatellites"`
}

// PathElement is one recorded point of a track. Timestamp is in milliseconds.
type PathElement struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// Track is the recorded path since Start. Distance is cumulative, in meters.
type Track struct {
	Start    int64         `json:"start"`
	Distance int64         `json:"distance"`
	Path     []PathElement `json:"path"`
}

// GPSData is the aggregate GPS snapshot. A nil field has not been received yet.
type GPSData struct {
	Position *Position `json:"position,omitempty"`
	Meta     *MetaInfo `json:"meta,omitempty"`
	Track    *Track    `json:"track,omitempty"`
}

// MergeTrack folds next into prev. Points of a track with the same start are
// appended; a different start replaces the path entirely. The result never
// aliases prev's path.
func MergeTrack(prev *Track, next Track) *Track {
	if prev == nil || prev.Start != next.Start {
		path := make([]PathElement, len(next.Path))
		copy(path, next.Path)
		return &Track{Start: next.Start, Distance: next.Distance, Path: path}
	}

	path := make([]PathElement, 0, len(prev.Path)+len(next.Path))
	path = append(path, prev.Path...)
	path = append(path, next.Path...)
	return &Track{Start: prev.Start, Distance: next.Distance, Path: path}
}

// ReconcileTrack folds a full snapshot into prev. A snapshot of the same track
// never shortens the path: deltas that overtook the snapshot are kept and the
// larger distance wins. A different start replaces the track.
func ReconcileTrack(prev *Track, snap Track) *Track {
	if prev == nil || prev.Start != snap.Start {
		return MergeTrack(nil, snap)
	}

	src := snap.Path
	if len(prev.Path) > len(snap.Path) {
		src = prev.Path
	}
	path := make([]PathElement, len(src))
	copy(path, src)

	distance := snap.Distance
	if prev.Distance > distance {
		distance = prev.Distance
	}
	return &Track{Start: prev.Start, Distance: distance, Path: path}
}

// TrackSummary describes a persisted track without its points.
type TrackSummary struct {
	ID       string `json:"id"`
	Start    int64  `json:"start"`    // ms since epoch
	Distance int64  `json:"distance"` // m
	Points   int    `json:"points"`
}
