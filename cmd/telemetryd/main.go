package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telemetry_dashboard/internal/config"
	"telemetry_dashboard/internal/gpsfeed"
	"telemetry_dashboard/internal/handlers"
	"telemetry_dashboard/internal/healthfeed"
	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/metrics"
	"telemetry_dashboard/internal/repository"
	"telemetry_dashboard/internal/repository/db"
	"telemetry_dashboard/internal/server"
	"telemetry_dashboard/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configDir := flag.String("config", os.Getenv("TELEMETRY_CONFIG_DIR"), "directory holding config.yml (env: TELEMETRY_CONFIG_DIR)")
	flag.Parse()

	// load config.yml
	cfg, cfgErr := config.Load(*configDir)

	// init logger
	log := logger.Get(logger.Options{Level: cfg.Server.LogLevel, Format: cfg.Server.LogFormat})
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	// open DB
	conn, err := openDB(cfg.Server, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// wire dependencies
	hub := handlers.NewHub(log.Named("hub"), metrics.NewServer(reg))
	repos := repository.NewRepository(conn)
	services, err := service.NewService(repos, cfg.Server, hub, log)
	if err != nil {
		log.Fatalw("failed to init services", "err", err)
	}
	apiHandler := handlers.NewHandler(services, hub, log.Named("http"), reg)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startSources(ctx, cfg.Server, services, log)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Server.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg config.Server, log *logger.Logger) (*sql.DB, error) {
	path := cfg.DBPath
	if path == "" {
		log.Infow("db_path not set in config; using default file", "default", "tracks.db")
		path = "tracks.db"
	}
	return db.InitDB(path)
}

// startSources launches the configured GPS and health producers.
func startSources(ctx context.Context, cfg config.Server, services *service.Service, log *logger.Logger) {
	if cfg.Simulator.Enabled {
		log.Infow("simulator_started", "tick", cfg.Simulator.Tick)
		go services.Simulator.Run(ctx, cfg.Simulator.Tick)
	}

	if cfg.Health.Enabled {
		mon := healthfeed.NewMonitor(healthfeed.Options{
			Interval:     cfg.Health.Interval,
			ProcPath:     cfg.Health.ProcPath,
			ThermalZone:  cfg.Health.ThermalZone,
			DiscPath:     cfg.Health.DiscPath,
			Vcgencmd:     cfg.Health.Vcgencmd,
			Lifepo4wered: cfg.Health.Lifepo4wered,
		}, services.Health, log.Named("health"))
		log.Infow("health_monitor_started", "interval", cfg.Health.Interval)
		go mon.Run(ctx)
	}

	if cfg.NMEA.File != "" {
		replay := gpsfeed.NewNMEAReplay(services.GPS, cfg.NMEA.Interval, log.Named("nmea"))
		go func() {
			n, err := replay.ReplayFile(ctx, cfg.NMEA.File)
			if err != nil && ctx.Err() == nil {
				log.Errorw("nmea_replay_failed", "err", err, "file", cfg.NMEA.File, "positions", n)
			}
		}()
	}

	if cfg.MQTT.Broker != "" {
		src := gpsfeed.NewMQTTSource(gpsfeed.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
		}, services.GPS, log.Named("mqtt"))
		go func() {
			if err := src.Run(ctx); err != nil {
				log.Errorw("mqtt_source_failed", "err", err, "broker", cfg.MQTT.Broker)
			}
		}()
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("http_listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
