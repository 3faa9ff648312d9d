package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"telemetry_dashboard/internal/models"
)

// Resource paths of the telemetry HTTP surface.
const (
	PathMapConfig = "/api/map/config"
	PathGeoJSON   = "/api/map/geojson"
	PathGPS       = "/api/gps"
	PathPosition  = "/api/gps/position"
	PathMeta      = "/api/gps/meta"
	PathTrack     = "/api/gps/track"
	PathHealth    = "/api/health"
	PathDaylight  = "/api/daylight"
)

const (
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 8 << 20
)

// ErrUnexpectedStatus is returned for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// Gateway performs one-shot GETs against the telemetry service. It never retries.
type Gateway struct {
	base   *url.URL
	client *http.Client
}

// New returns a gateway for baseURL (scheme and host; any path is kept as prefix).
func New(baseURL string, timeout time.Duration) (*Gateway, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gateway{base: u, client: &http.Client{Timeout: timeout}}, nil
}

// MapConfig fetches GET /api/map/config.
func (g *Gateway) MapConfig(ctx context.Context) (models.MapConfiguration, error) {
	var out models.MapConfiguration
	err := g.getJSON(ctx, PathMapConfig, &out)
	return out, err
}

// GeoJSON returns the overlay undecoded; it is only validated as JSON.
func (g *Gateway) GeoJSON(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := g.getJSON(ctx, PathGeoJSON, &out)
	return out, err
}

// GPSData fetches the aggregate GPS snapshot.
func (g *Gateway) GPSData(ctx context.Context) (models.GPSData, error) {
	var out models.GPSData
	err := g.getJSON(ctx, PathGPS, &out)
	return out, err
}

// Position fetches the latest fix.
func (g *Gateway) Position(ctx context.Context) (models.Position, error) {
	var out models.Position
	err := g.getJSON(ctx, PathPosition, &out)
	return out, err
}

// MetaInfo fetches the receiver meta info.
func (g *Gateway) MetaInfo(ctx context.Context) (models.MetaInfo, error) {
	var out models.MetaInfo
	err := g.getJSON(ctx, PathMeta, &out)
	return out, err
}

// Track fetches the current track.
func (g *Gateway) Track(ctx context.Context) (models.Track, error) {
	var out models.Track
	err := g.getJSON(ctx, PathTrack, &out)
	return out, err
}

// Health fetches the health readings.
func (g *Gateway) Health(ctx context.Context) (models.HealthStatus, error) {
	var out models.HealthStatus
	err := g.getJSON(ctx, PathHealth, &out)
	return out, err
}

// Daylight fetches the sunrise and sunset data.
func (g *Gateway) Daylight(ctx context.Context) (models.DaylightData, error) {
	var out models.DaylightData
	err := g.getJSON(ctx, PathDaylight, &out)
	return out, err
}

func (g *Gateway) resolve(path string) string {
	u := *g.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = ""
	return u.String()
}

func (g *Gateway) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.resolve(path), nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("get %s: %w: %d", path, ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
