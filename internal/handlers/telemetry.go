package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"telemetry_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errNoPosition = "no position received yet"
	errNoMeta     = "no meta info received yet"
	errNoTrack    = "no track recorded yet"
	errNoHealth   = "no health status received yet"
	errNoDaylight = "no daylight data yet"
	errNoGeoJSON  = "no geojson overlay configured"
	errNoTile     = "tile not found"
	errBadTile    = "tile coordinates must be integers"

	contentTypeGeoJSON = "application/geo+json"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"error": msg})
}

// @Summary      Liveness check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Map configuration
// @Tags         map
// @Produce      json
// @Success      200  {object}  models.MapConfiguration
// @Router       /api/map/config [get]
func (h *Handler) getMapConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.MapConfig())
}

// @Summary      GeoJSON overlay
// @Tags         map
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /api/map/geojson [get]
func (h *Handler) getGeoJSON(c *gin.Context) {
	raw, ok := h.services.GeoJSON()
	if !ok {
		notFound(c, errNoGeoJSON)
		return
	}
	c.Data(http.StatusOK, contentTypeGeoJSON, raw)
}

// @Summary      Map tile
// @Description  y may carry the tile extension, e.g. 1343.png
// @Tags         map
// @Produce      png,jpeg,application/x-protobuf
// @Param        z  path  int     true  "Zoom"
// @Param        x  path  int     true  "Column"
// @Param        y  path  string  true  "Row"
// @Success      200
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/map/{z}/{x}/{y} [get]
func (h *Handler) getTile(c *gin.Context) {
	y := c.Param("y")
	if i := strings.IndexByte(y, '.'); i >= 0 {
		y = y[:i]
	}
	zi, errZ := strconv.Atoi(c.Param("z"))
	xi, errX := strconv.Atoi(c.Param("x"))
	yi, errY := strconv.Atoi(y)
	if errZ != nil || errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadTile})
		return
	}

	path, contentType, err := h.services.TilePath(zi, xi, yi)
	if err != nil {
		if errors.Is(err, service.ErrTileNotFound) {
			notFound(c, errNoTile)
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errNoTile, "tile_lookup_failed", err, "z", zi, "x", xi, "y", yi)
		return
	}
	c.Header("Content-Type", contentType)
	c.File(path)
}

// @Summary      Aggregate GPS data
// @Description  Fields not received yet are omitted.
// @Tags         gps
// @Produce      json
// @Success      200  {object}  models.GPSData
// @Router       /api/gps [get]
func (h *Handler) getGPSData(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.GPSData())
}

// @Summary      Last GPS position
// @Tags         gps
// @Produce      json
// @Success      200  {object}  models.Position
// @Failure      404  {object}  map[string]string
// @Router       /api/gps/position [get]
func (h *Handler) getPosition(c *gin.Context) {
	p, ok := h.services.Position()
	if !ok {
		notFound(c, errNoPosition)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      Receiver meta info
// @Tags         gps
// @Produce      json
// @Success      200  {object}  models.MetaInfo
// @Failure      404  {object}  map[string]string
// @Router       /api/gps/meta [get]
func (h *Handler) getMetaInfo(c *gin.Context) {
	m, ok := h.services.MetaInfo()
	if !ok {
		notFound(c, errNoMeta)
		return
	}
	c.JSON(http.StatusOK, m)
}

// @Summary      Current track
// @Tags         gps
// @Produce      json
// @Success      200  {object}  models.Track
// @Failure      404  {object}  map[string]string
// @Router       /api/gps/track [get]
func (h *Handler) getTrack(c *gin.Context) {
	t, ok := h.services.CurrentTrack()
	if !ok {
		notFound(c, errNoTrack)
		return
	}
	c.JSON(http.StatusOK, t)
}

// @Summary      Vehicle computer health
// @Tags         health
// @Produce      json
// @Success      200  {object}  models.HealthStatus
// @Failure      404  {object}  map[string]string
// @Router       /api/health [get]
func (h *Handler) getHealth(c *gin.Context) {
	st, ok := h.services.HealthStatus()
	if !ok {
		notFound(c, errNoHealth)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Daylight at the current position
// @Tags         daylight
// @Produce      json
// @Success      200  {object}  models.DaylightData
// @Failure      404  {object}  map[string]string
// @Router       /api/daylight [get]
func (h *Handler) getDaylight(c *gin.Context) {
	d, ok := h.services.DaylightData()
	if !ok {
		notFound(c, errNoDaylight)
		return
	}
	c.JSON(http.StatusOK, d)
}
