package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"telemetry_dashboard/internal/repository"
	"telemetry_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errListTracks  = "failed to load tracks"
	errLoadPoints  = "failed to load track points"
	errUnknownID   = "track not found"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      List recorded tracks
// @Description  Filter by start time (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). A date-only 'to' covers the whole day.
// @Tags         tracks
// @Produce      json
// @Param        from  query   string  false  "Start of range"  example(2024-06-01)
// @Param        to    query   string  false  "End of range. Date-only treated as end of day."  example(2024-06-30)
// @Success      200   {object}  map[string]interface{}  "count, tracks"
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/tracks [get]
func (h *Handler) listTracks(c *gin.Context) {
	var (
		from time.Time
		to   time.Time
		err  error
	)
	if qs := c.Query("from"); qs != "" {
		from, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return
		}
	}
	if qs := c.Query("to"); qs != "" {
		to, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'from' must be <= 'to'"})
		return
	}

	tracks, err := h.services.ListTracks(c.Request.Context(), service.TrackFilter{From: from, To: to})
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListTracks, "tracks_list_failed", err, "from", from, "to", to)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(tracks),
		"tracks": tracks,
	})
}

// @Summary      Points of a recorded track
// @Tags         tracks
// @Produce      json
// @Param        id  path  string  true  "Track id"
// @Success      200  {object}  map[string]interface{}  "id, path"
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/tracks/{id} [get]
func (h *Handler) getTrackPoints(c *gin.Context) {
	id := c.Param("id")
	points, err := h.services.TrackPoints(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTrackNotFound) {
			notFound(c, errUnknownID)
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadPoints, "track_points_failed", err, "track_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "path": points})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2024-06-21T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
