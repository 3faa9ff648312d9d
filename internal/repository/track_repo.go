package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"telemetry_dashboard/internal/models"
)

// ErrTrackNotFound is returned when a track id is unknown.
var ErrTrackNotFound = errors.New("track not found")

type TrackSQLite struct {
	db *sql.DB
}

func NewTrackSQLite(db *sql.DB) *TrackSQLite { return &TrackSQLite{db: db} }

const (
	insertTrackSQL = `
		INSERT INTO tracks (id, start_ms, distance_m, points)
		VALUES (?, ?, 0, 1)
	`

	insertPointSQL = `
		INSERT INTO track_points (track_id, seq, ts_ms, latitude, longitude, altitude)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM track_points WHERE track_id = ?), ?, ?, ?, ?)
	`

	updateTrackSQL = `
		UPDATE tracks SET distance_m = ?, points = points + 1 WHERE id = ?
	`

	selectPointsSQL = `
		SELECT ts_ms, latitude, longitude, altitude
		FROM track_points WHERE track_id = ? ORDER BY seq ASC
	`

	trackExistsSQL = `SELECT 1 FROM tracks WHERE id = ?`
)

// Create inserts a new track together with its first point. An empty ID is
// generated.
func (r *TrackSQLite) Create(ctx context.Context, t models.TrackSummary, first models.PathElement) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create track: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertTrackSQL, t.ID, t.Start); err != nil {
		return fmt.Errorf("insert track %s: %w", t.ID, err)
	}
	if _, err := tx.ExecContext(ctx, insertPointSQL,
		t.ID, t.ID, first.Timestamp, first.Latitude, first.Longitude, first.Altitude,
	); err != nil {
		return fmt.Errorf("insert first point of %s: %w", t.ID, err)
	}
	return tx.Commit()
}

// AppendPoint adds p to the track and stores the new total distance.
func (r *TrackSQLite) AppendPoint(ctx context.Context, trackID string, p models.PathElement, distance int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append point: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, updateTrackSQL, distance, trackID)
	if err != nil {
		return fmt.Errorf("update track %s: %w", trackID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTrackNotFound
	}
	if _, err := tx.ExecContext(ctx, insertPointSQL,
		trackID, trackID, p.Timestamp, p.Latitude, p.Longitude, p.Altitude,
	); err != nil {
		return fmt.Errorf("insert point of %s: %w", trackID, err)
	}
	return tx.Commit()
}

// List returns tracks started within [from, to] (either bound optional),
// oldest first.
func (r *TrackSQLite) List(ctx context.Context, from, to time.Time) ([]models.TrackSummary, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "start_ms >= ?")
		args = append(args, from.UnixMilli())
	}
	if !to.IsZero() {
		conds = append(conds, "start_ms <= ?")
		args = append(args, to.UnixMilli())
	}

	q := `SELECT id, start_ms, distance_m, points FROM tracks`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY start_ms ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.TrackSummary, 0, 16)
	for rows.Next() {
		var t models.TrackSummary
		if err := rows.Scan(&t.ID, &t.Start, &t.Distance, &t.Points); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Points returns the path of a track in recording order.
func (r *TrackSQLite) Points(ctx context.Context, trackID string) ([]models.PathElement, error) {
	var one int
	if err := r.db.QueryRowContext(ctx, trackExistsSQL, trackID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTrackNotFound
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, selectPointsSQL, trackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.PathElement, 0, 64)
	for rows.Next() {
		var p models.PathElement
		if err := rows.Scan(&p.Timestamp, &p.Latitude, &p.Longitude, &p.Altitude); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
