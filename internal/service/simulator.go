package service

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"telemetry_dashboard/internal/models"
)

// ----------- Simulation constants -----------
const (
	originLatitude  = 52.5068441
	originLongitude = 13.4247317
	originAltitude  = 100.0

	positionJitterDeg = 0.00025
	speedJitter       = 2.0 / 3.6 // m/s
	climbJitter       = 0.5 / 3.6 // m/s
	maxPositionError  = 30.0      // m
	maxSpeedError     = 5.0       // m/s

	simDiscTotal = 64 << 30
	simMemTotal  = 1 << 30
)

// SimulatorService random-walks a vehicle around its origin and produces
// plausible health readings.
type SimulatorService struct {
	gps    GPS
	health Health

	mu     sync.Mutex
	rnd    *rand.Rand
	pos    *models.Position
	meta   *models.MetaInfo
	status models.HealthStatus
}

// NewSimulatorService returns a simulator. A nil rnd is seeded from the clock.
func NewSimulatorService(gps GPS, health Health, rnd *rand.Rand) *SimulatorService {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SimulatorService{gps: gps, health: health, rnd: rnd}
}

// Run ticks at the given interval until ctx is canceled.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.Step(ctx, now)
		}
	}
}

// Step produces one position, one meta info and one health status.
func (s *SimulatorService) Step(ctx context.Context, now time.Time) {
	s.mu.Lock()
	pos := s.nextPosition(now)
	meta := s.nextMetaInfo()
	status := s.nextHealth()
	s.mu.Unlock()

	if s.gps != nil {
		s.gps.UpdateMetaInfo(ctx, meta)
		s.gps.UpdatePosition(ctx, pos)
	}
	if s.health != nil {
		s.health.UpdateHealth(status)
	}
}

func (s *SimulatorService) nextPosition(now time.Time) models.Position {
	if s.pos == nil {
		s.pos = &models.Position{
			Latitude:  originLatitude + s.jitter(0.05),
			Longitude: originLongitude + s.jitter(0.05),
			Altitude:  originAltitude + s.jitter(10),
		}
	} else {
		s.pos.Latitude += s.jitter(positionJitterDeg)
		s.pos.Longitude += s.jitter(positionJitterDeg)
		s.pos.Altitude = math.Max(0, s.pos.Altitude+s.jitter(0.5))
		s.pos.Speed = math.Max(0, s.pos.Speed+s.jitter(speedJitter))
		s.pos.ClimbRate = math.Max(0, s.pos.ClimbRate+s.jitter(climbJitter))
	}
	s.pos.LatitudeError = maxPositionError * s.rnd.Float64()
	s.pos.LongitudeError = maxPositionError * s.rnd.Float64()
	s.pos.AltitudeError = maxPositionError * s.rnd.Float64()
	s.pos.SpeedError = maxSpeedError * s.rnd.Float64()
	s.pos.ClimbRateError = maxSpeedError * s.rnd.Float64()
	s.pos.Timestamp = float64(now.UnixMilli()) / 1000
	return *s.pos
}

func (s *SimulatorService) nextMetaInfo() models.MetaInfo {
	if s.meta == nil {
		s.meta = &models.MetaInfo{NumSatellites: s.rnd.Intn(8) + 2}
	} else {
		s.meta.NumSatellites = max(0, int(float64(s.meta.NumSatellites)+s.jitter(2)))
	}
	return *s.meta
}

func (s *SimulatorService) nextHealth() models.HealthStatus {
	st := &s.status
	if st.DiscTotal == 0 {
		st.DiscTotal = simDiscTotal
	}
	if st.MemTotal == 0 {
		st.MemTotal = simMemTotal
	}
	if st.CPUVoltage == 0 {
		st.CPUVoltage = 1.2
	}
	st.CPUTemperature = 55 + s.jitter(10)
	st.GPUTemperature = 55 + s.jitter(10)
	st.CPUUsage = clamp(st.CPUUsage+s.jitter(10), 0, 100)
	st.CPUVoltage = clamp(st.CPUVoltage+s.jitter(0.1), 1, 1.6)
	st.DiscFree = int64(float64(st.DiscTotal)*0.8 + s.jitter(float64(st.DiscTotal)*0.2))
	st.MemFree = int64(float64(st.MemTotal)*0.8 + s.jitter(float64(st.MemTotal)*0.2))
	st.SystemLoad = clamp(st.SystemLoad+s.jitter(0.2), 0, 1)
	st.BatteryVoltage = 5 + s.jitter(1)
	st.InputVoltage = 5 + s.jitter(1)
	return *st
}

// jitter returns a uniform value in [-size, size).
func (s *SimulatorService) jitter(size float64) float64 {
	return s.rnd.Float64()*size*2 - size
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
