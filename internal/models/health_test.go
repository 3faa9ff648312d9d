package models

import (
	"encoding/json"
	"testing"
)

func nominalHealth() HealthStatus {
	return HealthStatus{
		CPUTemperature: 50,
		SystemLoad:     1.0,
		CPUUsage:       10,
		CPUVoltage:     1.2,
		DiscFree:       900,
		DiscTotal:      1000,
		MemFree:        900,
		MemTotal:       1000,
	}
}

func TestHealthStatus_IsOK(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*HealthStatus)
		want   bool
	}{
		{"nominal", func(*HealthStatus) {}, true},
		{"cpu_too_hot", func(h *HealthStatus) { h.CPUTemperature = 85 }, false},
		{"cpu_at_threshold", func(h *HealthStatus) { h.CPUTemperature = 80 }, false},
		{"gpu_too_hot", func(h *HealthStatus) { h.GPUTemperature = 81 }, false},
		{"load_too_high", func(h *HealthStatus) { h.SystemLoad = 1.9 }, false},
		{"cpu_usage_high", func(h *HealthStatus) { h.CPUUsage = 96 }, false},
		{"voltage_missing_ok", func(h *HealthStatus) { h.CPUVoltage = 0 }, true},
		{"voltage_low", func(h *HealthStatus) { h.CPUVoltage = 1.1 }, false},
		{"voltage_high", func(h *HealthStatus) { h.CPUVoltage = 1.3 }, false},
		{"disc_nearly_full", func(h *HealthStatus) { h.DiscFree = 50 }, false},
		{"mem_nearly_full", func(h *HealthStatus) { h.MemFree = 99 }, false},
		{"mem_total_unknown", func(h *HealthStatus) { h.MemTotal = 0 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := nominalHealth()
			tc.mutate(&h)
			if got := h.IsOK(); got != tc.want {
				t.Fatalf("IsOK() = %v, want %v for %+v", got, tc.want, h)
			}
		})
	}
}

func TestMergeTrack(t *testing.T) {
	first := MergeTrack(nil, Track{Start: 1, Distance: 10, Path: []PathElement{{Latitude: 1}, {Latitude: 2}}})
	if len(first.Path) != 2 || first.Start != 1 {
		t.Fatalf("unexpected first track: %+v", first)
	}

	appended := MergeTrack(first, Track{Start: 1, Distance: 15, Path: []PathElement{{Latitude: 3}}})
	if len(appended.Path) != 3 || appended.Distance != 15 {
		t.Fatalf("expected appended path of 3 with distance 15, got %+v", appended)
	}
	if len(first.Path) != 2 {
		t.Fatalf("merge must not modify the previous track")
	}

	replaced := MergeTrack(appended, Track{Start: 2, Distance: 0, Path: []PathElement{{Latitude: 9}}})
	if len(replaced.Path) != 1 || replaced.Path[0].Latitude != 9 || replaced.Start != 2 {
		t.Fatalf("expected replacement track, got %+v", replaced)
	}
}

func TestControlMessageWireFormat(t *testing.T) {
	b, err := json.Marshal(SubscribeMessage(GPSPositionChangeEvent))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"SUBSCRIBE":"GPSPositionChangeEvent"}` {
		t.Fatalf("unexpected wire format %s", b)
	}
	b, _ = json.Marshal(UnsubscribeMessage(HealthStatusChangeEvent))
	if string(b) != `{"UNSUBSCRIBE":"HealthStatusChangeEvent"}` {
		t.Fatalf("unexpected wire format %s", b)
	}
}
