package router

import (
	"encoding/json"
	"errors"
	"fmt"

	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/metrics"
	"telemetry_dashboard/internal/models"
	"telemetry_dashboard/internal/store"
	"telemetry_dashboard/internal/transport"
)

// ErrEmptyPayload is returned when an envelope decodes but carries no value.
var ErrEmptyPayload = errors.New("empty event payload")

// Dispatcher applies store transitions.
type Dispatcher interface {
	Dispatch(store.Action) bool
}

type decodeFunc func(json.RawMessage) (store.Action, error)

// Router turns transport events into store transitions.
type Router struct {
	d        Dispatcher
	log      *logger.Logger
	metrics  *metrics.Engine
	handlers map[string]decodeFunc
}

// New creates a router that dispatches into d.
func New(d Dispatcher, log *logger.Logger, m *metrics.Engine) *Router {
	if log == nil {
		log = logger.Nop()
	}
	return &Router{
		d:       d,
		log:     log,
		metrics: m,
		handlers: map[string]decodeFunc{
			models.GPSPositionChangeEvent:  decodePosition,
			models.GPSMetaInfoChangeEvent:  decodeMetaInfo,
			models.GPSTrackChangeEvent:     decodeTrack,
			models.HealthStatusChangeEvent: decodeHealth,
			models.DaylightDataChangeEvent: decodeDaylight,
		},
	}
}

// Handle routes one transport event and reports whether the store changed.
func (r *Router) Handle(ev transport.Event) bool {
	switch ev.Kind {
	case transport.EventConnecting:
		return r.d.Dispatch(store.ConnectionStatusChanged(models.Connecting))
	case transport.EventConnected:
		r.metrics.SetConnected(true)
		return r.d.Dispatch(store.ConnectionStatusChanged(models.Connected))
	case transport.EventDisconnected:
		r.metrics.SetConnected(false)
		return r.d.Dispatch(store.ConnectionStatusChanged(models.Disconnected))
	case transport.EventEnvelope:
		return r.Route(ev.Envelope)
	default:
		r.log.Warnw("router_unknown_event_kind", "kind", int(ev.Kind))
		return false
	}
}

// Route decodes env by its type tag. Unknown tags and undecodable payloads
// are logged and discarded.
func (r *Router) Route(env models.EventEnvelope) bool {
	decode, ok := r.handlers[env.Type]
	if !ok {
		r.log.Warnw("router_unknown_event", "type", env.Type)
		return false
	}
	r.metrics.FrameReceived(env.Type)

	a, err := decode(env.Event)
	if err != nil {
		r.metrics.DecodeFailed()
		r.log.Warnw("router_decode_failed", "type", env.Type, "err", err)
		return false
	}
	return r.d.Dispatch(a)
}

func decodePosition(raw json.RawMessage) (store.Action, error) {
	var p models.PositionChange
	if err := unmarshal(raw, &p); err != nil {
		return store.Action{}, err
	}
	if p.Location == nil {
		return store.Action{}, fmt.Errorf("location: %w", ErrEmptyPayload)
	}
	return store.PositionReceived(*p.Location), nil
}

func decodeMetaInfo(raw json.RawMessage) (store.Action, error) {
	var p models.MetaInfoChange
	if err := unmarshal(raw, &p); err != nil {
		return store.Action{}, err
	}
	if p.MetaInfo == nil {
		return store.Action{}, fmt.Errorf("metaInfo: %w", ErrEmptyPayload)
	}
	return store.MetaInfoReceived(*p.MetaInfo), nil
}

func decodeTrack(raw json.RawMessage) (store.Action, error) {
	var p models.TrackChange
	if err := unmarshal(raw, &p); err != nil {
		return store.Action{}, err
	}
	if p.Track == nil {
		return store.Action{}, fmt.Errorf("track: %w", ErrEmptyPayload)
	}
	return store.TrackReceived(*p.Track), nil
}

func decodeHealth(raw json.RawMessage) (store.Action, error) {
	var p models.HealthStatusChange
	if err := unmarshal(raw, &p); err != nil {
		return store.Action{}, err
	}
	if p.Status == nil {
		return store.Action{}, fmt.Errorf("status: %w", ErrEmptyPayload)
	}
	return store.HealthStatusReceived(*p.Status), nil
}

func decodeDaylight(raw json.RawMessage) (store.Action, error) {
	var p models.DaylightChange
	if err := unmarshal(raw, &p); err != nil {
		return store.Action{}, err
	}
	if p.Data == nil {
		return store.Action{}, fmt.Errorf("data: %w", ErrEmptyPayload)
	}
	return store.DaylightReceived(*p.Data), nil
}

func unmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return ErrEmptyPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
