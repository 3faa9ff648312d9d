package gpsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/models"
)

const (
	mqttQoS           = 0
	mqttQuiesceMillis = 250
	fixDateTimeLayout = "02/01/06 15:04:05"
)

var errVoidFix = errors.New("gps fix not valid")

// MQTTOptions selects the broker and topic carrying fixes.
type MQTTOptions struct {
	Broker   string
	Topic    string
	ClientID string
}

// inertialFix is the payload published by onboard GPS producers.
type inertialFix struct {
	Time       string  `json:"time"`
	Date       string  `json:"date"`
	Latitude   float64 `json:"lat"`
	Longitude  float64 `json:"lon"`
	SpeedKnots float64 `json:"speed_knots"`
	CourseDeg  float64 `json:"course_deg"`
	Validity   string  `json:"validity"`
}

// MQTTSource subscribes to a topic and forwards each fix to a Sink.
type MQTTSource struct {
	opts MQTTOptions
	sink Sink
	log  *logger.Logger
	ctx  context.Context
}

func NewMQTTSource(opts MQTTOptions, sink Sink, log *logger.Logger) *MQTTSource {
	if log == nil {
		log = logger.Nop()
	}
	return &MQTTSource{opts: opts, sink: sink, log: log, ctx: context.Background()}
}

// Run connects, subscribes and blocks until ctx is done.
func (s *MQTTSource) Run(ctx context.Context) error {
	s.ctx = ctx
	opts := mqtt.NewClientOptions().
		AddBroker(s.opts.Broker).
		SetClientID(s.opts.ClientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect %s: %w", s.opts.Broker, token.Error())
	}
	defer client.Disconnect(mqttQuiesceMillis)
	s.log.Infow("mqtt_connected", "broker", s.opts.Broker)

	token := client.Subscribe(s.opts.Topic, mqttQoS, s.onMessage)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", s.opts.Topic, token.Error())
	}
	s.log.Infow("mqtt_subscribed", "topic", s.opts.Topic)

	<-ctx.Done()
	client.Unsubscribe(s.opts.Topic).WaitTimeout(time.Second)
	return nil
}

func (s *MQTTSource) onMessage(_ mqtt.Client, msg mqtt.Message) {
	p, err := decodeFix(msg.Payload())
	if err != nil {
		if errors.Is(err, errVoidFix) {
			s.log.Debugw("mqtt_void_fix", "topic", msg.Topic())
			return
		}
		s.log.Warnw("mqtt_payload_invalid", "topic", msg.Topic(), "err", err)
		return
	}
	s.sink.UpdatePosition(s.ctx, p)
}

// decodeFix accepts either a Position or an inertial producer fix.
func decodeFix(payload []byte) (models.Position, error) {
	var shape struct {
		Lat *float64 `json:"lat"`
	}
	if err := json.Unmarshal(payload, &shape); err != nil {
		return models.Position{}, fmt.Errorf("decode fix: %w", err)
	}

	if shape.Lat == nil {
		var p models.Position
		if err := json.Unmarshal(payload, &p); err != nil {
			return models.Position{}, fmt.Errorf("decode position: %w", err)
		}
		return p, nil
	}

	var f inertialFix
	if err := json.Unmarshal(payload, &f); err != nil {
		return models.Position{}, fmt.Errorf("decode inertial fix: %w", err)
	}
	if f.Validity != "" && f.Validity != "A" {
		return models.Position{}, errVoidFix
	}
	p := models.Position{
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		Speed:     f.SpeedKnots * knotsToMS,
	}
	if len(f.Time) >= 8 {
		if ts, err := time.Parse(fixDateTimeLayout, f.Date+" "+f.Time[:8]); err == nil {
			p.Timestamp = float64(ts.Unix())
		}
	}
	return p, nil
}
