package service

import (
	"context"
	"sync"
	"time"

	"telemetry_dashboard/internal/models"
)

// GPSService keeps the last fix and fans it out to subscribers, the tracker
// and the daylight calculation.
type GPSService struct {
	pub      Publisher
	tracking Tracking
	daylight Daylight

	mu       sync.RWMutex
	position *models.Position
	meta     *models.MetaInfo
}

func NewGPSService(pub Publisher, tracking Tracking, daylight Daylight) *GPSService {
	return &GPSService{pub: pub, tracking: tracking, daylight: daylight}
}

// GPSData returns copies of the last position, meta info and current track.
func (s *GPSService) GPSData() models.GPSData {
	var d models.GPSData
	if p, ok := s.Position(); ok {
		d.Position = &p
	}
	if m, ok := s.MetaInfo(); ok {
		d.Meta = &m
	}
	if s.tracking != nil {
		if t, ok := s.tracking.CurrentTrack(); ok {
			d.Track = &t
		}
	}
	return d
}

func (s *GPSService) Position() (models.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.position == nil {
		return models.Position{}, false
	}
	return *s.position, true
}

func (s *GPSService) MetaInfo() (models.MetaInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.meta == nil {
		return models.MetaInfo{}, false
	}
	return *s.meta, true
}

// UpdatePosition stores p and publishes it. A fix without timestamp is
// stamped with the current time.
func (s *GPSService) UpdatePosition(ctx context.Context, p models.Position) {
	now := time.Now()
	if p.Timestamp <= 0 {
		p.Timestamp = float64(now.UnixMilli()) / 1000
	}

	s.mu.Lock()
	s.position = &p
	s.mu.Unlock()

	if s.pub != nil {
		s.pub.Publish(models.GPSPositionChangeEvent, models.PositionChange{Location: &p})
	}
	if s.tracking != nil {
		s.tracking.Record(ctx, p)
	}
	if s.daylight != nil {
		s.daylight.UpdateDaylight(now, p)
	}
}

func (s *GPSService) UpdateMetaInfo(_ context.Context, m models.MetaInfo) {
	s.mu.Lock()
	s.meta = &m
	s.mu.Unlock()

	if s.pub != nil {
		s.pub.Publish(models.GPSMetaInfoChangeEvent, models.MetaInfoChange{MetaInfo: &m})
	}
}
