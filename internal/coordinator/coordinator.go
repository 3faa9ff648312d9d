package coordinator

import (
	"time"

	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/metrics"
	"telemetry_dashboard/internal/models"
)

// DefaultPollInterval is used when Options.PollInterval is not set.
const DefaultPollInterval = 2 * time.Second

// Transport is the socket the coordinator drives.
type Transport interface {
	Connect()
	Disconnect()
	Send(msg any) bool
}

// Loader starts asynchronous loads. Results reach the store on their own.
type Loader interface {
	LoadMapConfig()
	Load(r Resource)
}

// Options configure a Coordinator.
type Options struct {
	PollInterval time.Duration
	Scheduler    Scheduler
	Log          *logger.Logger
	Metrics      *metrics.Engine
}

// Coordinator manages the active screen's subscriptions and the poll
// fallback. It is not safe for concurrent use; every method must run on the
// owner's event loop.
type Coordinator struct {
	transport Transport
	loader    Loader
	mapLoaded func() bool
	interval  time.Duration
	sched     Scheduler
	log       *logger.Logger
	metrics   *metrics.Engine

	screen  *Screen
	mounted bool
	status  models.ConnectionStatus
	refs    map[string]int

	poll    Timer
	pollSeq uint64
}

// New returns a coordinator. mapLoaded reports whether the map configuration
// is already in the store; the poll retries it until it is.
func New(t Transport, l Loader, mapLoaded func() bool, opts Options) *Coordinator {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = RealScheduler{}
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	if mapLoaded == nil {
		mapLoaded = func() bool { return true }
	}
	return &Coordinator{
		transport: t,
		loader:    l,
		mapLoaded: mapLoaded,
		interval:  interval,
		sched:     sched,
		log:       log,
		metrics:   opts.Metrics,
		status:    models.Disconnected,
		refs:      make(map[string]int),
	}
}

// Mount shows screen: loads map configuration and the screen's initial data,
// takes the screen's subscriptions and connects.
func (c *Coordinator) Mount(screen Screen) {
	if c.mounted {
		c.SwitchScreen(screen)
		return
	}
	c.mounted = true
	c.screen = &screen
	c.log.Infow("screen_mounted", "screen", screen.Name)

	c.loader.LoadMapConfig()
	c.loadInitial(screen)
	c.Acquire(screen.Events...)
	c.transport.Connect()
	c.syncPoll()
}

// SwitchScreen replaces the active screen. Event types both screens need are
// left subscribed.
func (c *Coordinator) SwitchScreen(next Screen) {
	if !c.mounted {
		c.Mount(next)
		return
	}
	prev := c.screen
	c.screen = &next
	c.log.Infow("screen_switched", "from", prev.Name, "to", next.Name)

	c.Acquire(next.Events...)
	c.Release(prev.Events...)
	c.loadInitial(next)
}

// Acquire takes one reference on each event type. The first reference
// subscribes when connected; otherwise the subscription is sent on connect.
func (c *Coordinator) Acquire(events ...string) {
	for _, ev := range events {
		c.refs[ev]++
		if c.refs[ev] == 1 && c.status == models.Connected {
			c.transport.Send(models.SubscribeMessage(ev))
		}
	}
}

// Release drops one reference on each event type. The last reference
// unsubscribes when connected.
func (c *Coordinator) Release(events ...string) {
	for _, ev := range events {
		n, ok := c.refs[ev]
		if !ok {
			continue
		}
		if n > 1 {
			c.refs[ev] = n - 1
			continue
		}
		delete(c.refs, ev)
		if c.status == models.Connected {
			c.transport.Send(models.UnsubscribeMessage(ev))
		}
	}
}

// Unmount drops every subscription, stops polling and disconnects.
func (c *Coordinator) Unmount() {
	if !c.mounted {
		return
	}
	if c.status == models.Connected {
		for _, ev := range c.Subscriptions() {
			c.transport.Send(models.UnsubscribeMessage(ev))
		}
	}
	c.refs = make(map[string]int)
	c.mounted = false
	c.log.Infow("screen_unmounted", "screen", c.screen.Name)
	c.screen = nil
	c.cancelPoll()
	c.transport.Disconnect()
}

// ConnectionChanged reacts to a connection status transition.
func (c *Coordinator) ConnectionChanged(status models.ConnectionStatus) {
	prev := c.status
	if status == prev {
		return
	}
	c.status = status

	if status == models.Connected {
		c.cancelPoll()
		for _, ev := range c.Subscriptions() {
			c.transport.Send(models.SubscribeMessage(ev))
		}
		return
	}
	c.syncPoll()
}

// Subscriptions lists the event types currently held, in wire order.
func (c *Coordinator) Subscriptions() []string {
	out := make([]string, 0, len(c.refs))
	for _, ev := range models.EventTypes {
		if c.refs[ev] > 0 {
			out = append(out, ev)
		}
	}
	return out
}

// Screen returns the active screen name, or "" when unmounted.
func (c *Coordinator) Screen() string {
	if c.screen == nil {
		return ""
	}
	return c.screen.Name
}

// Polling reports whether a poll timer is armed.
func (c *Coordinator) Polling() bool { return c.poll != nil }

func (c *Coordinator) loadInitial(s Screen) {
	for _, r := range s.Initial {
		c.loader.Load(r)
	}
}

// syncPoll arms the poll timer while mounted and not connected.
func (c *Coordinator) syncPoll() {
	if !c.mounted || c.status == models.Connected {
		c.cancelPoll()
		return
	}
	if c.poll != nil {
		return
	}
	c.pollSeq++
	seq := c.pollSeq
	c.poll = c.sched.AfterFunc(c.interval, func() { c.onPoll(seq) })
}

func (c *Coordinator) cancelPoll() {
	if c.poll == nil {
		return
	}
	c.poll.Stop()
	c.poll = nil
	c.pollSeq++
}

func (c *Coordinator) onPoll(seq uint64) {
	// a fire that raced with cancel
	if seq != c.pollSeq || c.poll == nil {
		return
	}
	c.poll = nil
	c.metrics.Polled()
	c.log.Debugw("poll_tick", "status", c.status.String())

	if !c.mapLoaded() {
		c.loader.LoadMapConfig()
	}
	if c.screen != nil {
		c.loadInitial(*c.screen)
	}
	if c.status == models.Disconnected {
		c.transport.Connect()
	}
	c.syncPoll()
}
