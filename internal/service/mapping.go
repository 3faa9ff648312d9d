package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"telemetry_dashboard/internal/config"
	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/models"
)

// ErrTileNotFound is returned for tiles outside the zoom range or missing on disk.
var ErrTileNotFound = errors.New("tile not found")

type tileFormat struct {
	ext         string
	contentType string
}

var tileFormats = map[string]tileFormat{
	models.TilesPNG:    {ext: ".png", contentType: "image/png"},
	models.TilesJPEG:   {ext: ".jpg", contentType: "image/jpeg"},
	models.TilesVector: {ext: ".pbf", contentType: "application/x-protobuf"},
}

// MapService serves tiles from a z/x/y directory tree.
type MapService struct {
	cfg      models.MapConfiguration
	format   tileFormat
	tilesDir string
	geoJSON  json.RawMessage
}

// NewMapService validates the map settings and loads the optional overlay.
func NewMapService(cfg config.Server, log *logger.Logger) (*MapService, error) {
	typ := strings.ToUpper(strings.TrimSpace(cfg.Map.Type))
	if typ == "" {
		typ = models.TilesPNG
	}
	format, ok := tileFormats[typ]
	if !ok {
		return nil, fmt.Errorf("unsupported tile type %q", cfg.Map.Type)
	}
	if cfg.Map.MinZoom > cfg.Map.MaxZoom {
		return nil, fmt.Errorf("map min_zoom %d > max_zoom %d", cfg.Map.MinZoom, cfg.Map.MaxZoom)
	}

	s := &MapService{
		cfg: models.MapConfiguration{
			MinZoom: cfg.Map.MinZoom,
			MaxZoom: cfg.Map.MaxZoom,
			Type:    typ,
		},
		format:   format,
		tilesDir: cfg.TilesDir,
	}

	if cfg.GeoJSONFile != "" {
		raw, err := os.ReadFile(cfg.GeoJSONFile)
		if err != nil {
			return nil, fmt.Errorf("read geojson %q: %w", cfg.GeoJSONFile, err)
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("geojson %q is not valid json", cfg.GeoJSONFile)
		}
		s.geoJSON = raw
		s.cfg.WithGeoJSON = true
		if log != nil {
			log.Infow("geojson_loaded", "file", cfg.GeoJSONFile, "bytes", len(raw))
		}
	}
	return s, nil
}

func (s *MapService) MapConfig() models.MapConfiguration { return s.cfg }

func (s *MapService) GeoJSON() (json.RawMessage, bool) {
	return s.geoJSON, s.geoJSON != nil
}

// TilePath resolves <tilesDir>/z/x/y.<ext>.
func (s *MapService) TilePath(z, x, y int) (string, string, error) {
	if s.tilesDir == "" || z < s.cfg.MinZoom || z > s.cfg.MaxZoom || x < 0 || y < 0 {
		return "", "", ErrTileNotFound
	}
	n := 1 << uint(z)
	if x >= n || y >= n {
		return "", "", ErrTileNotFound
	}

	p := filepath.Join(s.tilesDir, strconv.Itoa(z), strconv.Itoa(x), strconv.Itoa(y)+s.format.ext)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", "", ErrTileNotFound
	}
	return p, s.format.contentType, nil
}
