package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults shared by both commands.
const (
	defaultConfigDir    = "configs"
	defaultConfigName   = "config"
	envPrefix           = "TELEMETRY"
	defaultBaseURL      = "http://localhost:3000"
	defaultEventsPath   = "/events"
	defaultPollInterval = 2 * time.Second
	defaultDialTimeout  = 5 * time.Second
	defaultReqTimeout   = 5 * time.Second
	defaultPort         = "3000"
)

// Dashboard configures the client engine.
type Dashboard struct {
	BaseURL        string        `mapstructure:"base_url"`
	EventsPath     string        `mapstructure:"events_path"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Screen         string        `mapstructure:"screen"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`
}

// Server configures the telemetry service.
type Server struct {
	Port        string    `mapstructure:"port"`
	LogLevel    string    `mapstructure:"log_level"`
	LogFormat   string    `mapstructure:"log_format"`
	DBPath      string    `mapstructure:"db_path"`
	TilesDir    string    `mapstructure:"tiles_dir"`
	GeoJSONFile string    `mapstructure:"geojson_file"`
	Map         Map       `mapstructure:"map"`
	Simulator   Simulator `mapstructure:"simulator"`
	NMEA        NMEA      `mapstructure:"nmea"`
	MQTT        MQTT      `mapstructure:"mqtt"`
	Tracking    Tracking  `mapstructure:"tracking"`
	Health      Health    `mapstructure:"health"`
}

type Map struct {
	MinZoom int    `mapstructure:"min_zoom"`
	MaxZoom int    `mapstructure:"max_zoom"`
	Type    string `mapstructure:"type"`
}

type Simulator struct {
	Enabled bool          `mapstructure:"enabled"`
	Tick    time.Duration `mapstructure:"tick"`
}

// NMEA replays a recorded NMEA log as the GPS source.
type NMEA struct {
	File     string        `mapstructure:"file"`
	Interval time.Duration `mapstructure:"interval"`
}

// MQTT ingests GPS fixes published by an onboard producer.
type MQTT struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
}

// Health samples the host instead of simulating health readings. Empty
// paths disable the matching reading.
type Health struct {
	Enabled      bool          `mapstructure:"enabled"`
	Interval     time.Duration `mapstructure:"interval"`
	ProcPath     string        `mapstructure:"proc_path"`
	ThermalZone  string        `mapstructure:"thermal_zone"`
	DiscPath     string        `mapstructure:"disc_path"`
	Vcgencmd     string        `mapstructure:"vcgencmd"`
	Lifepo4wered string        `mapstructure:"lifepo4wered"`
}

// Tracking thresholds, in meters and seconds.
type Tracking struct {
	LatLonErrorThreshold float64       `mapstructure:"lat_lon_error_threshold"`
	AltErrorThreshold    float64       `mapstructure:"alt_error_threshold"`
	MovementThreshold    float64       `mapstructure:"movement_threshold"`
	PauseThreshold       time.Duration `mapstructure:"pause_threshold"`
}

// Config is the full configuration file.
type Config struct {
	Dashboard Dashboard `mapstructure:"dashboard"`
	Server    Server    `mapstructure:"server"`
}

var errEmptyBaseURL = errors.New("dashboard.base_url must not be empty")

// Load reads .env (if present) and then <dir>/config.yml. A missing config
// file is not an error; defaults and TELEMETRY_* environment variables apply.
func Load(dir string) (Config, error) {
	_ = godotenv.Load()

	if dir == "" {
		dir = defaultConfigDir
	}

	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName(defaultConfigName)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Dashboard.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dashboard.base_url", defaultBaseURL)
	v.SetDefault("dashboard.events_path", defaultEventsPath)
	v.SetDefault("dashboard.poll_interval", defaultPollInterval)
	v.SetDefault("dashboard.dial_timeout", defaultDialTimeout)
	v.SetDefault("dashboard.request_timeout", defaultReqTimeout)
	v.SetDefault("dashboard.screen", "dashboard")
	v.SetDefault("dashboard.log_level", "info")
	v.SetDefault("dashboard.log_format", "console")

	v.SetDefault("server.port", defaultPort)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "console")
	v.SetDefault("server.db_path", "tracks.db")
	v.SetDefault("server.map.min_zoom", 10)
	v.SetDefault("server.map.max_zoom", 18)
	v.SetDefault("server.map.type", "PNG")
	v.SetDefault("server.simulator.enabled", true)
	v.SetDefault("server.simulator.tick", time.Second)
	v.SetDefault("server.nmea.interval", time.Second)
	v.SetDefault("server.mqtt.topic", "inertial/gps")
	v.SetDefault("server.mqtt.client_id", "telemetryd")
	v.SetDefault("server.tracking.lat_lon_error_threshold", 20.0)
	v.SetDefault("server.tracking.alt_error_threshold", 30.0)
	v.SetDefault("server.tracking.movement_threshold", 5.0)
	v.SetDefault("server.tracking.pause_threshold", 10*time.Minute)
	v.SetDefault("server.health.enabled", false)
	v.SetDefault("server.health.interval", 10*time.Second)
	v.SetDefault("server.health.proc_path", "/proc")
	v.SetDefault("server.health.thermal_zone", "/sys/class/thermal/thermal_zone0/temp")
	v.SetDefault("server.health.disc_path", "/")
}

func (d Dashboard) validate() error {
	if strings.TrimSpace(d.BaseURL) == "" {
		return errEmptyBaseURL
	}
	if _, err := url.Parse(d.BaseURL); err != nil {
		return fmt.Errorf("parse dashboard.base_url: %w", err)
	}
	return nil
}

// EventsURL derives the socket endpoint from the HTTP base URL:
// http becomes ws, https becomes wss, the path is replaced by EventsPath.
func (d Dashboard) EventsURL() (string, error) {
	u, err := url.Parse(d.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", d.BaseURL, err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q in base url", u.Scheme)
	}
	path := d.EventsPath
	if path == "" {
		path = defaultEventsPath
	}
	u.Path = path
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
