package coordinator

import (
	"fmt"
	"strings"

	"telemetry_dashboard/internal/models"
)

// Resource names an initial-data load.
type Resource string

const (
	ResourceGPS      Resource = "gps"
	ResourceHealth   Resource = "health"
	ResourceDaylight Resource = "daylight"
)

// Screen is a view with the event types it needs while visible and the
// resources it loads when mounted.
type Screen struct {
	Name    string
	Events  []string
	Initial []Resource
}

var (
	Dashboard = Screen{
		Name:    "dashboard",
		Events:  []string{models.GPSPositionChangeEvent, models.GPSTrackChangeEvent},
		Initial: []Resource{ResourceGPS},
	}
	Map = Screen{
		Name:    "map",
		Events:  []string{models.GPSPositionChangeEvent, models.GPSTrackChangeEvent},
		Initial: []Resource{ResourceGPS},
	}
	GPS = Screen{
		Name:    "gps",
		Events:  []string{models.GPSPositionChangeEvent, models.GPSMetaInfoChangeEvent},
		Initial: []Resource{ResourceGPS},
	}
	Health = Screen{
		Name:    "health",
		Events:  []string{models.HealthStatusChangeEvent},
		Initial: []Resource{ResourceHealth},
	}
)

var screens = map[string]Screen{
	Dashboard.Name: Dashboard,
	Map.Name:       Map,
	GPS.Name:       GPS,
	Health.Name:    Health,
}

// ScreenByName looks up one of the built-in screens, case-insensitively.
func ScreenByName(name string) (Screen, error) {
	s, ok := screens[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Screen{}, fmt.Errorf("unknown screen %q", name)
	}
	return s, nil
}
