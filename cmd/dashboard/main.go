package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telemetry_dashboard/internal/config"
	"telemetry_dashboard/internal/coordinator"
	"telemetry_dashboard/internal/engine"
	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/metrics"
	"telemetry_dashboard/internal/models"
	"telemetry_dashboard/internal/server"

	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configDir := flag.String("config", os.Getenv("TELEMETRY_CONFIG_DIR"), "directory holding config.yml (env: TELEMETRY_CONFIG_DIR)")
	screenName := flag.String("screen", "", "screen to mount; overrides dashboard.screen")
	flag.Parse()

	cfg, cfgErr := config.Load(*configDir)
	log := logger.Get(logger.Options{Level: cfg.Dashboard.LogLevel, Format: cfg.Dashboard.LogFormat})
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}
	if *screenName != "" {
		cfg.Dashboard.Screen = *screenName
	}

	screen, err := coordinator.ScreenByName(cfg.Dashboard.Screen)
	if err != nil {
		log.Fatalw("unknown screen", "err", err, "screen", cfg.Dashboard.Screen)
	}

	reg := prometheus.NewRegistry()
	eng, err := engine.New(cfg.Dashboard, engine.Options{Log: log.Named("engine"), Registerer: reg})
	if err != nil {
		log.Fatalw("failed to init engine", "err", err)
	}
	defer eng.Subscribe(stateLogger(log.Named("state")))()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsSrv *server.Server
	if cfg.Dashboard.MetricsAddr != "" {
		metricsSrv = &server.Server{}
		go func() {
			if err := metricsSrv.Run(cfg.Dashboard.MetricsAddr, metrics.Handler(reg)); err != nil {
				log.Errorw("metrics_server_failed", "err", err, "addr", cfg.Dashboard.MetricsAddr)
			}
		}()
	}

	eng.Mount(screen)
	log.Infow("dashboard_started", "screen", screen.Name, "base_url", cfg.Dashboard.BaseURL)

	if err := eng.Run(ctx); err != nil {
		log.Errorw("engine_stopped", "err", err)
	}

	if metricsSrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = metricsSrv.Shutdown(sctx)
	}
	log.Infow("dashboard_stopped")
}

// stateLogger reports connection changes at info level and every other
// transition at debug level.
func stateLogger(log *logger.Logger) func(models.AppState) {
	last := models.Disconnected
	return func(st models.AppState) {
		if st.Connection != last {
			last = st.Connection
			log.Infow("connection_changed", "status", st.Connection.String(), "version", st.Version)
		}
		kv := []interface{}{"version", st.Version}
		if p := st.GPS.Position; p != nil {
			kv = append(kv, "lat", p.Latitude, "lon", p.Longitude)
		}
		if st.GPS.Track != nil {
			kv = append(kv, "track_points", len(st.GPS.Track.Path), "distance_m", st.GPS.Track.Distance)
		}
		if st.Health != nil {
			kv = append(kv, "health_ok", st.Health.IsOK())
		}
		if st.Daylight != nil {
			kv = append(kv, "day", st.Daylight.Day)
		}
		log.Debugw("state_changed", kv...)
	}
}
