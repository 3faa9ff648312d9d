package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/models"
	"telemetry_dashboard/internal/repository"
)

var errInvalidTimeRange = errors.New("invalid time range: from must be <= to")

// TrackingOptions hold the recording thresholds. Errors and movement are in
// meters.
type TrackingOptions struct {
	LatLonErrorThreshold float64
	AltErrorThreshold    float64
	MovementThreshold    float64
	PauseThreshold       time.Duration
}

// TrackFilter selects persisted tracks by start time.
type TrackFilter struct {
	From time.Time
	To   time.Time
}

// TrackingService records accepted fixes into the current track. A pause
// longer than PauseThreshold starts a new track.
type TrackingService struct {
	repo repository.TrackRepo
	pub  Publisher
	opts TrackingOptions
	log  *logger.Logger

	mu       sync.Mutex
	trackID  string
	current  *models.Track
	distance float64
	last     *models.PathElement
}

func NewTrackingService(repo repository.TrackRepo, pub Publisher, opts TrackingOptions, log *logger.Logger) *TrackingService {
	if log == nil {
		log = logger.Nop()
	}
	return &TrackingService{repo: repo, pub: pub, opts: opts, log: log}
}

// Record adds p to the current track and publishes the change. Subscribers
// receive only the new point when the track continues, or the whole new
// track when one starts. It reports whether p was recorded.
func (s *TrackingService) Record(ctx context.Context, p models.Position) bool {
	if p.Timestamp <= 0 || !s.accurate(p) {
		return false
	}
	el := models.PathElement{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Altitude:  p.Altitude,
		Timestamp: int64(p.Timestamp * 1000),
	}

	// persistence and publishing stay under the lock so tracks are stored
	// and delivered in recording order
	s.mu.Lock()
	defer s.mu.Unlock()

	var step float64
	newTrack := s.current == nil
	if s.last != nil {
		step = distanceM(s.last.Latitude, s.last.Longitude, el.Latitude, el.Longitude)
		if step < s.opts.MovementThreshold {
			return false
		}
		if s.opts.PauseThreshold > 0 && el.Timestamp-s.last.Timestamp > s.opts.PauseThreshold.Milliseconds() {
			newTrack = true
		}
	}
	s.last = &el

	var change models.Track
	if newTrack {
		s.trackID = uuid.NewString()
		s.distance = 0
		s.current = &models.Track{Start: el.Timestamp, Path: []models.PathElement{el}}
		change = models.Track{Start: el.Timestamp, Path: []models.PathElement{el}}
	} else {
		s.distance += step
		change = models.Track{
			Start:    s.current.Start,
			Distance: int64(math.Round(s.distance)),
			Path:     []models.PathElement{el},
		}
		s.current = models.MergeTrack(s.current, change)
	}

	s.persist(ctx, newTrack, s.trackID, change, el)
	if s.pub != nil {
		s.pub.Publish(models.GPSTrackChangeEvent, models.TrackChange{Track: &change})
	}
	return true
}

func (s *TrackingService) accurate(p models.Position) bool {
	if s.opts.LatLonErrorThreshold > 0 &&
		(p.LatitudeError > s.opts.LatLonErrorThreshold || p.LongitudeError > s.opts.LatLonErrorThreshold) {
		return false
	}
	if s.opts.AltErrorThreshold > 0 && p.AltitudeError > s.opts.AltErrorThreshold {
		return false
	}
	return true
}

func (s *TrackingService) persist(ctx context.Context, newTrack bool, id string, t models.Track, el models.PathElement) {
	if s.repo == nil {
		return
	}
	var err error
	if newTrack {
		err = s.repo.Create(ctx, models.TrackSummary{ID: id, Start: t.Start, Points: 1}, el)
	} else {
		err = s.repo.AppendPoint(ctx, id, el, t.Distance)
	}
	if err != nil {
		s.log.Errorw("track_persist_failed", "err", err, "track_id", id, "new_track", newTrack)
	}
}

// CurrentTrack returns a copy of the track being recorded.
func (s *TrackingService) CurrentTrack() (models.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.Track{}, false
	}
	return *models.MergeTrack(nil, *s.current), true
}

func (s *TrackingService) ListTracks(ctx context.Context, f TrackFilter) ([]models.TrackSummary, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, errInvalidTimeRange
	}
	return s.repo.List(ctx, from, to)
}

func (s *TrackingService) TrackPoints(ctx context.Context, id string) ([]models.PathElement, error) {
	return s.repo.Points(ctx, id)
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
