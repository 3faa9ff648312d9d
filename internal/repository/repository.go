package repository

import (
	"context"
	"database/sql"
	"time"

	"telemetry_dashboard/internal/models"
)

// TrackRepo persists recorded tracks and their points.
type TrackRepo interface {
	Create(ctx context.Context, t models.TrackSummary, first models.PathElement) error
	AppendPoint(ctx context.Context, trackID string, p models.PathElement, distance int64) error
	List(ctx context.Context, from, to time.Time) ([]models.TrackSummary, error)
	Points(ctx context.Context, trackID string) ([]models.PathElement, error)
}

type Repository struct {
	Tracks TrackRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Tracks: NewTrackSQLite(db),
	}
}
