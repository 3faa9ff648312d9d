package service

import (
	"context"
	"encoding/json"
	"time"

	"telemetry_dashboard/internal/config"
	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/models"
	"telemetry_dashboard/internal/repository"
)

// Publisher delivers an event to every client subscribed to eventType.
type Publisher interface {
	Publish(eventType string, event any)
}

// GPS holds the latest fix and receiver meta data.
type GPS interface {
	GPSData() models.GPSData
	Position() (models.Position, bool)
	MetaInfo() (models.MetaInfo, bool)
	UpdatePosition(ctx context.Context, p models.Position)
	UpdateMetaInfo(ctx context.Context, m models.MetaInfo)
}

// Health holds the latest vehicle computer health status.
type Health interface {
	HealthStatus() (models.HealthStatus, bool)
	UpdateHealth(h models.HealthStatus)
}

// Map serves the map configuration, the optional overlay and tiles.
type Map interface {
	MapConfig() models.MapConfiguration
	GeoJSON() (json.RawMessage, bool)
	TilePath(z, x, y int) (path, contentType string, err error)
}

// Daylight tracks whether it is day at the current position.
type Daylight interface {
	DaylightData() (models.DaylightData, bool)
	UpdateDaylight(now time.Time, p models.Position)
}

// Tracking records the driven path.
type Tracking interface {
	Record(ctx context.Context, p models.Position) bool
	CurrentTrack() (models.Track, bool)
	ListTracks(ctx context.Context, f TrackFilter) ([]models.TrackSummary, error)
	TrackPoints(ctx context.Context, id string) ([]models.PathElement, error)
}

// Simulator feeds jittered GPS and health data until ctx is canceled.
type Simulator interface {
	Run(ctx context.Context, tick time.Duration)
}

// Service aggregates all sub-services.
type Service struct {
	GPS
	Health
	Map
	Daylight
	Tracking
	Simulator
}

// NewService wires the repositories and the publisher into concrete services.
func NewService(repos *repository.Repository, cfg config.Server, pub Publisher, log *logger.Logger) (*Service, error) {
	mapSvc, err := NewMapService(cfg, log.Named("map"))
	if err != nil {
		return nil, err
	}
	tracking := NewTrackingService(repos.Tracks, pub, TrackingOptions{
		LatLonErrorThreshold: cfg.Tracking.LatLonErrorThreshold,
		AltErrorThreshold:    cfg.Tracking.AltErrorThreshold,
		MovementThreshold:    cfg.Tracking.MovementThreshold,
		PauseThreshold:       cfg.Tracking.PauseThreshold,
	}, log.Named("tracking"))
	daylight := NewDaylightService(pub)
	gps := NewGPSService(pub, tracking, daylight)
	health := NewHealthService(pub)
	// the host monitor owns health readings when enabled
	var simHealth Health = health
	if cfg.Health.Enabled {
		simHealth = nil
	}

	return &Service{
		GPS:       gps,
		Health:    health,
		Map:       mapSvc,
		Daylight:  daylight,
		Tracking:  tracking,
		Simulator: NewSimulatorService(gps, simHealth, nil),
	}, nil
}
