package service

import (
	"math"
	"sync"
	"time"

	"telemetry_dashboard/internal/models"
)

const (
	julianUnixEpoch = 2440587.5
	julianJ2000     = 2451545.0
	axialTiltDeg    = 23.4397
	sunAltitudeDeg  = -0.833 // refraction and solar disc
	secondsPerDay   = 86400.0
)

// DaylightService derives sunrise and sunset from the current position and
// publishes whenever day turns into night or back.
type DaylightService struct {
	pub Publisher

	mu   sync.RWMutex
	data *models.DaylightData
}

func NewDaylightService(pub Publisher) *DaylightService {
	return &DaylightService{pub: pub}
}

func (s *DaylightService) DaylightData() (models.DaylightData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return models.DaylightData{}, false
	}
	return *s.data, true
}

// UpdateDaylight recomputes the daylight data for p at now.
func (s *DaylightService) UpdateDaylight(now time.Time, p models.Position) {
	d := computeDaylight(now, p.Latitude, p.Longitude)

	s.mu.Lock()
	changed := s.data == nil || s.data.Day != d.Day || !s.data.Sunrise.Equal(d.Sunrise)
	if changed {
		s.data = &d
	}
	s.mu.Unlock()

	if changed && s.pub != nil {
		s.pub.Publish(models.DaylightDataChangeEvent, models.DaylightChange{Data: &d})
	}
}

func computeDaylight(now time.Time, lat, lon float64) models.DaylightData {
	rise, set, polar := sunTimes(solarDate(now, lon), lat, lon)
	switch polar {
	case polarDay:
		return models.DaylightData{Day: true}
	case polarNight:
		return models.DaylightData{Day: false}
	}
	return models.DaylightData{
		Sunrise: rise,
		Sunset:  set,
		Day:     !now.Before(rise) && now.Before(set),
	}
}

// solarDate is the calendar day at the given longitude's mean solar time.
func solarDate(now time.Time, lon float64) time.Time {
	local := now.UTC().Add(time.Duration(lon / 15 * float64(time.Hour)))
	return time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, time.UTC)
}

type polarState int

const (
	polarNone polarState = iota
	polarDay
	polarNight
)

// sunTimes implements the sunrise equation for the day whose UTC noon is
// noon. Longitude is east-positive.
func sunTimes(noon time.Time, lat, lon float64) (rise, set time.Time, polar polarState) {
	jd := float64(noon.Unix())/secondsPerDay + julianUnixEpoch
	n := math.Round(jd - julianJ2000)
	jStar := n - lon/360

	m := math.Mod(357.5291+0.98560028*jStar, 360)
	mRad := radians(m)
	c := 1.9148*math.Sin(mRad) + 0.0200*math.Sin(2*mRad) + 0.0003*math.Sin(3*mRad)
	lambda := math.Mod(m+c+180+102.9372, 360)
	lambdaRad := radians(lambda)
	jTransit := julianJ2000 + jStar + 0.0053*math.Sin(mRad) - 0.0069*math.Sin(2*lambdaRad)

	sinDecl := math.Sin(lambdaRad) * math.Sin(radians(axialTiltDeg))
	cosDecl := math.Cos(math.Asin(sinDecl))
	phi := radians(lat)
	cosOmega := (math.Sin(radians(sunAltitudeDeg)) - math.Sin(phi)*sinDecl) / (math.Cos(phi) * cosDecl)
	switch {
	case cosOmega < -1:
		return time.Time{}, time.Time{}, polarDay
	case cosOmega > 1:
		return time.Time{}, time.Time{}, polarNight
	}

	omega := degrees(math.Acos(cosOmega))
	return julianToTime(jTransit - omega/360), julianToTime(jTransit + omega/360), polarNone
}

func julianToTime(j float64) time.Time {
	sec := (j - julianUnixEpoch) * secondsPerDay
	whole := math.Floor(sec)
	return time.Unix(int64(whole), int64((sec-whole)*1e9)).UTC()
}
