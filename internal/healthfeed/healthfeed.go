// Package healthfeed samples the host the service runs on and reports its
// health readings: load and CPU usage from procfs, memory, disc space, the
// thermal zone and, on a Raspberry Pi, vcgencmd and lifepo4wered-cli.
package healthfeed

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/prometheus/procfs"

	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/models"
)

// Sink receives sampled readings. service.Health satisfies it.
type Sink interface {
	UpdateHealth(h models.HealthStatus)
}

const (
	defaultInterval = 10 * time.Second
	epsilon         = 1e-6
)

// Options select the host sources. Empty paths disable the matching reading.
type Options struct {
	Interval     time.Duration
	ProcPath     string
	ThermalZone  string
	DiscPath     string
	Vcgencmd     string
	Lifepo4wered string
	// Run executes an external command. Defaults to exec.CommandContext.
	Run CommandRunner
}

// Monitor polls the host and forwards changed readings to its Sink.
type Monitor struct {
	opts Options
	sink Sink
	log  *logger.Logger
	proc *procfs.FS

	mu      sync.Mutex
	status  models.HealthStatus
	prevCPU *procfs.CPUStat
	sampled bool
}

// NewMonitor returns a monitor. An unreadable proc path only disables the
// procfs readings.
func NewMonitor(opts Options, sink Sink, log *logger.Logger) *Monitor {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Run == nil {
		opts.Run = execCommand
	}
	m := &Monitor{opts: opts, sink: sink, log: log}
	if opts.ProcPath != "" {
		fs, err := procfs.NewFS(opts.ProcPath)
		if err != nil {
			log.Warnw("procfs_unavailable", "path", opts.ProcPath, "err", err)
		} else {
			m.proc = &fs
		}
	}
	return m
}

// Run samples once immediately and then every Interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Poll(ctx)

	t := time.NewTicker(m.opts.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Poll(ctx)
		}
	}
}

// Poll takes one sample and hands it to the sink when it differs from the
// previous one. It reports whether the sink was called.
func (m *Monitor) Poll(ctx context.Context) bool {
	m.mu.Lock()
	prev, first := m.status, !m.sampled
	next := m.sample(ctx, prev)
	m.status = next
	m.sampled = true
	m.mu.Unlock()

	if !first && !changed(prev, next) {
		return false
	}
	if m.sink != nil {
		m.sink.UpdateHealth(next)
	}
	return true
}

// sample reads every configured source. A failed reading keeps the previous
// value.
func (m *Monitor) sample(ctx context.Context, h models.HealthStatus) models.HealthStatus {
	if m.proc != nil {
		if load, err := m.proc.LoadAvg(); err != nil {
			m.log.Warnw("read_loadavg_failed", "err", err)
		} else {
			h.SystemLoad = load.Load1
		}
		if usage, err := m.cpuUsage(); err != nil {
			m.log.Warnw("read_cpu_usage_failed", "err", err)
		} else {
			h.CPUUsage = usage
		}
		if total, free, err := m.memory(); err != nil {
			m.log.Warnw("read_meminfo_failed", "err", err)
		} else {
			h.MemTotal, h.MemFree = total, free
		}
	}

	if m.opts.ThermalZone != "" {
		if t, err := readThermalZone(m.opts.ThermalZone); err != nil {
			m.log.Warnw("read_thermal_zone_failed", "path", m.opts.ThermalZone, "err", err)
		} else {
			h.CPUTemperature = t
		}
	}

	if m.opts.DiscPath != "" {
		if total, free, err := discUsage(m.opts.DiscPath); err != nil {
			m.log.Warnw("read_disc_usage_failed", "path", m.opts.DiscPath, "err", err)
		} else {
			h.DiscTotal, h.DiscFree = total, free
		}
	}

	if m.opts.Vcgencmd != "" {
		if v, err := m.vcgencmd(ctx, "measure_temp"); err != nil {
			m.log.Warnw("read_gpu_temperature_failed", "err", err)
		} else {
			h.GPUTemperature = v
		}
		if v, err := m.vcgencmd(ctx, "measure_volts"); err != nil {
			m.log.Warnw("read_cpu_voltage_failed", "err", err)
		} else {
			h.CPUVoltage = v
		}
	}

	if m.opts.Lifepo4wered != "" {
		if v, err := m.lifepo4wered(ctx, "vbat"); err != nil {
			m.log.Warnw("read_battery_voltage_failed", "err", err)
		} else {
			h.BatteryVoltage = v
		}
		if v, err := m.lifepo4wered(ctx, "vin"); err != nil {
			m.log.Warnw("read_input_voltage_failed", "err", err)
		} else {
			h.InputVoltage = v
		}
	}
	return h
}

// cpuUsage is the busy share of CPU time since the previous sample, in
// percent. The first sample covers the time since boot.
func (m *Monitor) cpuUsage() (float64, error) {
	st, err := m.proc.Stat()
	if err != nil {
		return 0, err
	}
	cur := st.CPUTotal
	busy, total := cpuTimes(cur)
	if m.prevCPU != nil {
		pb, pt := cpuTimes(*m.prevCPU)
		busy, total = busy-pb, total-pt
	}
	m.prevCPU = &cur
	if total <= 0 {
		return 0, nil
	}
	return 100 * busy / total, nil
}

func cpuTimes(c procfs.CPUStat) (busy, total float64) {
	idle := c.Idle + c.Iowait
	total = c.User + c.Nice + c.System + idle + c.IRQ + c.SoftIRQ + c.Steal
	return total - idle, total
}

func (m *Monitor) memory() (total, free int64, err error) {
	mi, err := m.proc.Meminfo()
	if err != nil {
		return 0, 0, err
	}
	if mi.MemTotalBytes == nil {
		return 0, 0, errNoMemTotal
	}
	freeBytes := mi.MemAvailableBytes
	if freeBytes == nil {
		freeBytes = mi.MemFreeBytes
	}
	if freeBytes == nil {
		return int64(*mi.MemTotalBytes), 0, nil
	}
	return int64(*mi.MemTotalBytes), int64(*freeBytes), nil
}

func changed(a, b models.HealthStatus) bool {
	return !nearlyEqual(a.CPUTemperature, b.CPUTemperature) ||
		!nearlyEqual(a.GPUTemperature, b.GPUTemperature) ||
		!nearlyEqual(a.CPUVoltage, b.CPUVoltage) ||
		!nearlyEqual(a.CPUUsage, b.CPUUsage) ||
		!nearlyEqual(a.SystemLoad, b.SystemLoad) ||
		!nearlyEqual(a.BatteryVoltage, b.BatteryVoltage) ||
		!nearlyEqual(a.InputVoltage, b.InputVoltage) ||
		a.DiscFree != b.DiscFree || a.DiscTotal != b.DiscTotal ||
		a.MemFree != b.MemFree || a.MemTotal != b.MemTotal
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}
