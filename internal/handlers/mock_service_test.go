package handlers

import (
	"context"
	"encoding/json"
	"time"

	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/models"
	"telemetry_dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// ---- Service Mocks ----

type mockGPS struct {
	position *models.Position
	meta     *models.MetaInfo
}

func (m *mockGPS) GPSData() models.GPSData {
	return models.GPSData{Position: m.position, Meta: m.meta}
}
func (m *mockGPS) Position() (models.Position, bool) {
	if m.position == nil {
		return models.Position{}, false
	}
	return *m.position, true
}
func (m *mockGPS) MetaInfo() (models.MetaInfo, bool) {
	if m.meta == nil {
		return models.MetaInfo{}, false
	}
	return *m.meta, true
}
func (m *mockGPS) UpdatePosition(ctx context.Context, p models.Position) { m.position = &p }
func (m *mockGPS) UpdateMetaInfo(ctx context.Context, mi models.MetaInfo) {
	m.meta = &mi
}

type mockHealth struct {
	status *models.HealthStatus
}

func (m *mockHealth) HealthStatus() (models.HealthStatus, bool) {
	if m.status == nil {
		return models.HealthStatus{}, false
	}
	return *m.status, true
}
func (m *mockHealth) UpdateHealth(h models.HealthStatus) { m.status = &h }

type mockDaylight struct {
	data *models.DaylightData
}

func (m *mockDaylight) DaylightData() (models.DaylightData, bool) {
	if m.data == nil {
		return models.DaylightData{}, false
	}
	return *m.data, true
}
func (m *mockDaylight) UpdateDaylight(now time.Time, p models.Position) {}

type mockMap struct {
	cfg     models.MapConfiguration
	geoJSON json.RawMessage
	path    string
	ct      string
	err     error
}

func (m *mockMap) MapConfig() models.MapConfiguration { return m.cfg }
func (m *mockMap) GeoJSON() (json.RawMessage, bool) {
	return m.geoJSON, m.geoJSON != nil
}
func (m *mockMap) TilePath(z, x, y int) (string, string, error) {
	return m.path, m.ct, m.err
}

type mockTracking struct {
	track    *models.Track
	tracks   []models.TrackSummary
	points   []models.PathElement
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastID   string
}

func (m *mockTracking) Record(ctx context.Context, p models.Position) bool { return false }
func (m *mockTracking) CurrentTrack() (models.Track, bool) {
	if m.track == nil {
		return models.Track{}, false
	}
	return *m.track, true
}
func (m *mockTracking) ListTracks(ctx context.Context, f service.TrackFilter) ([]models.TrackSummary, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	return m.tracks, m.err
}
func (m *mockTracking) TrackPoints(ctx context.Context, id string) ([]models.PathElement, error) {
	m.lastID = id
	return m.points, m.err
}

// ---- Shared Test Helpers ----

func newMockServices() *service.Service {
	return &service.Service{
		GPS:      &mockGPS{},
		Health:   &mockHealth{},
		Map:      &mockMap{},
		Daylight: &mockDaylight{},
		Tracking: &mockTracking{},
	}
}

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, NewHub(logger.Nop(), nil), logger.Nop(), prometheus.NewRegistry())
	return h.InitRoutes()
}
