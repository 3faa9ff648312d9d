package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"telemetry_dashboard/internal/config"
	"telemetry_dashboard/internal/coordinator"
	"telemetry_dashboard/internal/gateway"
	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/metrics"
	"telemetry_dashboard/internal/models"
	"telemetry_dashboard/internal/router"
	"telemetry_dashboard/internal/store"
	"telemetry_dashboard/internal/transport"
)

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("engine is already running")

// Options carry the optional collaborators of an Engine.
type Options struct {
	Log        *logger.Logger
	Registerer prometheus.Registerer
	// Scheduler overrides the poll timer source. Its callbacks must be
	// delivered through Engine.Do.
	Scheduler coordinator.Scheduler
}

// Engine keeps one AppState synchronized with the telemetry service.
// Everything that mutates state runs on a single loop goroutine.
type Engine struct {
	store     *store.Store
	router    *router.Router
	transport *transport.Transport
	gateway   *gateway.Gateway
	coord     *coordinator.Coordinator
	log       *logger.Logger
	metrics   *metrics.Engine

	queue   *taskQueue
	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
}

// New wires the engine from cfg. Nothing connects until a screen is mounted
// and Run is looping.
func New(cfg config.Dashboard, opts Options) (*Engine, error) {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	var m *metrics.Engine
	if opts.Registerer != nil {
		m = metrics.NewEngine(opts.Registerer)
	}

	gw, err := gateway.New(cfg.BaseURL, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	eventsURL, err := cfg.EventsURL()
	if err != nil {
		return nil, fmt.Errorf("events url: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:   store.New(),
		gateway: gw,
		log:     log,
		metrics: m,
		queue:   newTaskQueue(),
		ctx:     ctx,
		cancel:  cancel,
	}
	e.router = router.New(e.store, log.Named("router"), m)
	e.transport = transport.New(transport.Options{
		URL:         eventsURL,
		DialTimeout: cfg.DialTimeout,
		Executor:    e.post,
		Log:         log.Named("transport"),
		Metrics:     m,
	}, e.onTransport)

	sched := opts.Scheduler
	if sched == nil {
		sched = coordinator.RealScheduler{Post: e.post}
	}
	e.coord = coordinator.New(e.transport, e, e.mapLoaded, coordinator.Options{
		PollInterval: cfg.PollInterval,
		Scheduler:    sched,
		Log:          log.Named("coordinator"),
		Metrics:      m,
	})
	return e, nil
}

// Run processes tasks until ctx is done, then unmounts and disconnects.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.cancel()

	e.log.Infow("engine_started")
	for {
		select {
		case <-ctx.Done():
			e.runTasks()
			e.coord.Unmount()
			e.queue.close()
			e.log.Infow("engine_stopped")
			return nil
		case <-e.queue.notify:
			e.runTasks()
		}
	}
}

func (e *Engine) runTasks() {
	for _, fn := range e.queue.drain() {
		fn()
	}
}

// Do posts fn onto the loop. It reports false once the engine has stopped.
func (e *Engine) Do(fn func()) bool { return e.queue.push(fn) }

func (e *Engine) post(fn func()) { e.queue.push(fn) }

// State returns the current snapshot. Safe from any goroutine.
func (e *Engine) State() models.AppState { return e.store.State() }

// Subscribe registers a snapshot observer. It is called on the loop.
func (e *Engine) Subscribe(l store.Listener) (cancel func()) { return e.store.Subscribe(l) }

// Mount activates a screen.
func (e *Engine) Mount(s coordinator.Screen) bool {
	return e.Do(func() { e.coord.Mount(s) })
}

// SwitchScreen moves from the active screen to s.
func (e *Engine) SwitchScreen(s coordinator.Screen) bool {
	return e.Do(func() { e.coord.SwitchScreen(s) })
}

// Unmount releases the active screen and disconnects.
func (e *Engine) Unmount() bool {
	return e.Do(e.coord.Unmount)
}

// Acquire holds extra event subscriptions for a consumer outside the screen.
func (e *Engine) Acquire(events ...string) bool {
	return e.Do(func() { e.coord.Acquire(events...) })
}

// Release drops subscriptions taken with Acquire.
func (e *Engine) Release(events ...string) bool {
	return e.Do(func() { e.coord.Release(events...) })
}

// onTransport runs on the loop, either posted by the transport or called
// synchronously from Connect and Disconnect.
func (e *Engine) onTransport(ev transport.Event) {
	if !e.current(ev) {
		e.log.Debugw("stale_transport_event", "kind", ev.Kind.String(), "generation", ev.Generation)
		return
	}
	e.router.Handle(ev)
	if ev.Kind != transport.EventEnvelope {
		e.coord.ConnectionChanged(store.ConnectionStatus(e.store.State()))
	}
}

func (e *Engine) current(ev transport.Event) bool {
	switch ev.Kind {
	case transport.EventConnected, transport.EventEnvelope:
		return e.transport.Live(ev.Generation)
	default:
		return ev.Generation == e.transport.Generation()
	}
}

func (e *Engine) mapLoaded() bool {
	return store.MapConfig(e.store.State()) != nil
}

// LoadMapConfig fetches the map configuration and, when the map carries an
// overlay, the GeoJSON after it.
func (e *Engine) LoadMapConfig() {
	fetch(e, "map_config", e.gateway.MapConfig, func(cfg models.MapConfiguration) {
		e.store.Dispatch(store.MapConfigReceived(cfg))
		if cfg.WithGeoJSON {
			fetch(e, "geojson", e.gateway.GeoJSON, func(raw json.RawMessage) {
				e.store.Dispatch(store.GeoJSONReceived(raw))
			})
		}
	})
}

// Load fetches one initial-data resource.
func (e *Engine) Load(r coordinator.Resource) {
	switch r {
	case coordinator.ResourceGPS:
		fetch(e, string(r), e.gateway.GPSData, func(d models.GPSData) {
			e.store.Dispatch(store.GPSDataReceived(d))
		})
	case coordinator.ResourceHealth:
		fetch(e, string(r), e.gateway.Health, func(h models.HealthStatus) {
			e.store.Dispatch(store.HealthStatusReceived(h))
		})
	case coordinator.ResourceDaylight:
		fetch(e, string(r), e.gateway.Daylight, func(d models.DaylightData) {
			e.store.Dispatch(store.DaylightReceived(d))
		})
	default:
		e.log.Warnw("unknown_resource", "resource", string(r))
	}
}

// fetch runs get off the loop and posts the result back onto it. Failures
// are logged; the poll is the only retry.
func fetch[T any](e *Engine, resource string, get func(context.Context) (T, error), done func(T)) {
	go func() {
		v, err := get(e.ctx)
		e.post(func() {
			if err != nil {
				if e.ctx.Err() == nil {
					e.metrics.RequestFailed(resource)
					e.log.Warnw("request_failed", "resource", resource, "err", err)
				}
				return
			}
			done(v)
		})
	}()
}
