// Package gpsfeed turns external GPS sources into position updates: a
// recorded NMEA log and fixes published on an MQTT topic.
package gpsfeed

import (
	"context"

	"telemetry_dashboard/internal/models"
)

// Sink receives decoded fixes. service.GPS satisfies it.
type Sink interface {
	UpdatePosition(ctx context.Context, p models.Position)
	UpdateMetaInfo(ctx context.Context, m models.MetaInfo)
}

const (
	knotsToMS = 0.514444
	// uere scales HDOP into a horizontal error in meters.
	uere = 5.0
)
