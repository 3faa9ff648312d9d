package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEventsURL(t *testing.T) {
	cases := []struct {
		name    string
		base    string
		path    string
		want    string
		wantErr bool
	}{
		{"http_to_ws", "http://carpi.local:3000", "/events", "ws://carpi.local:3000/events", false},
		{"https_to_wss", "https://carpi.example.org", "/events", "wss://carpi.example.org/events", false},
		{"default_path", "http://localhost", "", "ws://localhost/events", false},
		{"drops_existing_path", "http://localhost:8080/app/?x=1", "/events", "ws://localhost:8080/events", false},
		{"bad_scheme", "ftp://localhost", "/events", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Dashboard{BaseURL: tc.base, EventsPath: tc.path}.EventsURL()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dashboard.PollInterval != 2*time.Second {
		t.Errorf("poll interval: want 2s, got %v", cfg.Dashboard.PollInterval)
	}
	if cfg.Dashboard.BaseURL != defaultBaseURL {
		t.Errorf("base url: want %q, got %q", defaultBaseURL, cfg.Dashboard.BaseURL)
	}
	if cfg.Server.Port != defaultPort {
		t.Errorf("port: want %q, got %q", defaultPort, cfg.Server.Port)
	}
	if cfg.Server.Health.Enabled || cfg.Server.Health.ProcPath != "/proc" || cfg.Server.Health.Interval != 10*time.Second {
		t.Errorf("health: got %+v", cfg.Server.Health)
	}
}

func TestLoad_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	yml := []byte(`
dashboard:
  base_url: http://10.0.0.2:8080
  poll_interval: 500ms
  screen: health
server:
  port: "9090"
  map:
    max_zoom: 16
  health:
    enabled: true
    vcgencmd: /usr/bin/vcgencmd
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), yml, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dashboard.BaseURL != "http://10.0.0.2:8080" {
		t.Errorf("base url: got %q", cfg.Dashboard.BaseURL)
	}
	if cfg.Dashboard.PollInterval != 500*time.Millisecond {
		t.Errorf("poll interval: got %v", cfg.Dashboard.PollInterval)
	}
	if cfg.Dashboard.Screen != "health" {
		t.Errorf("screen: got %q", cfg.Dashboard.Screen)
	}
	if cfg.Server.Port != "9090" || cfg.Server.Map.MaxZoom != 16 || cfg.Server.Map.MinZoom != 10 {
		t.Errorf("server: got %+v", cfg.Server)
	}
	if !cfg.Server.Health.Enabled || cfg.Server.Health.Vcgencmd != "/usr/bin/vcgencmd" || cfg.Server.Health.DiscPath != "/" {
		t.Errorf("health: got %+v", cfg.Server.Health)
	}
}
