package gpsfeed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/models"
)

// NMEAReplay feeds a recorded NMEA log into a Sink. GGA sentences update the
// altitude, accuracy and satellite count; each valid RMC sentence emits one
// position and waits Interval before the next.
type NMEAReplay struct {
	sink     Sink
	interval time.Duration
	log      *logger.Logger

	altitude   float64
	hdop       float64
	satellites int
}

func NewNMEAReplay(sink Sink, interval time.Duration, log *logger.Logger) *NMEAReplay {
	if log == nil {
		log = logger.Nop()
	}
	return &NMEAReplay{sink: sink, interval: interval, log: log}
}

// ReplayFile replays path once.
func (r *NMEAReplay) ReplayFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open nmea log: %w", err)
	}
	defer f.Close()
	return r.Replay(ctx, f)
}

// Replay reads sentences from in until EOF or ctx is done and returns the
// number of positions emitted.
func (r *NMEAReplay) Replay(ctx context.Context, in io.Reader) (int, error) {
	sc := bufio.NewScanner(in)
	emitted, skipped := 0, 0

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return emitted, err
		}
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			skipped++
			r.log.Debugw("nmea_parse_failed", "err", err, "line", line)
			continue
		}

		switch sentence.DataType() {
		case nmea.TypeGGA:
			r.applyGGA(ctx, sentence.(nmea.GGA))
		case nmea.TypeRMC:
			p, ok := r.fromRMC(sentence.(nmea.RMC))
			if !ok {
				continue
			}
			r.sink.UpdatePosition(ctx, p)
			emitted++
			if err := r.wait(ctx); err != nil {
				return emitted, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return emitted, fmt.Errorf("read nmea log: %w", err)
	}
	r.log.Infow("nmea_replay_done", "positions", emitted, "skipped", skipped)
	return emitted, nil
}

func (r *NMEAReplay) applyGGA(ctx context.Context, g nmea.GGA) {
	r.altitude = g.Altitude
	r.hdop = g.HDOP
	sats := int(g.NumSatellites)
	if sats != r.satellites {
		r.satellites = sats
		r.sink.UpdateMetaInfo(ctx, models.MetaInfo{NumSatellites: sats})
	}
}

func (r *NMEAReplay) fromRMC(m nmea.RMC) (models.Position, bool) {
	if m.Validity != nmea.ValidRMC {
		return models.Position{}, false
	}
	p := models.Position{
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Altitude:  r.altitude,
		Speed:     m.Speed * knotsToMS,
	}
	if r.hdop > 0 {
		p.LatitudeError = r.hdop * uere
		p.LongitudeError = r.hdop * uere
		p.AltitudeError = 1.5 * r.hdop * uere
	}
	if m.Date.Valid && m.Time.Valid {
		ts := time.Date(2000+m.Date.YY, time.Month(m.Date.MM), m.Date.DD,
			m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*int(time.Millisecond), time.UTC)
		p.Timestamp = float64(ts.UnixMilli()) / 1000
	}
	return p, true
}

func (r *NMEAReplay) wait(ctx context.Context) error {
	if r.interval <= 0 {
		return nil
	}
	t := time.NewTimer(r.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
