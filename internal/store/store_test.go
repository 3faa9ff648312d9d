package store

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry_dashboard/internal/models"
)

func pos(lat, lon, ts float64) models.Position {
	return models.Position{Latitude: lat, Longitude: lon, Timestamp: ts}
}

func TestStore_InitialState(t *testing.T) {
	s := New()
	st := s.State()

	assert.Equal(t, uint64(0), st.Version)
	assert.Equal(t, models.Disconnected, st.Connection)
	assert.Nil(t, st.GPS.Position)
	assert.Nil(t, st.MapConfig)
	assert.True(t, ShowNoConnection(st))
	assert.False(t, IsHealthOK(st))
}

func TestStore_PartialUpdatesNeverLoseSiblings(t *testing.T) {
	s := New()

	require.True(t, s.Dispatch(PositionReceived(pos(52.5, 13.4, 1))))
	require.True(t, s.Dispatch(MetaInfoReceived(models.MetaInfo{NumSatellites: 7})))
	require.True(t, s.Dispatch(TrackReceived(models.Track{Start: 100, Distance: 12, Path: []models.PathElement{{Latitude: 52.5}}})))

	st := s.State()
	require.NotNil(t, st.GPS.Position)
	require.NotNil(t, st.GPS.Meta)
	require.NotNil(t, st.GPS.Track)
	assert.Equal(t, 52.5, st.GPS.Position.Latitude)
	assert.Equal(t, 7, st.GPS.Meta.NumSatellites)
	assert.Equal(t, int64(100), st.GPS.Track.Start)

	// a later position must keep meta and track
	require.True(t, s.Dispatch(PositionReceived(pos(52.6, 13.5, 2))))
	st = s.State()
	assert.Equal(t, 52.6, st.GPS.Position.Latitude)
	assert.Equal(t, 7, st.GPS.Meta.NumSatellites)
	assert.Len(t, st.GPS.Track.Path, 1)
}

func TestStore_GPSDataMergeKeepsAbsentFields(t *testing.T) {
	s := New()
	s.Dispatch(MetaInfoReceived(models.MetaInfo{NumSatellites: 4}))

	p := pos(1, 2, 3)
	require.True(t, s.Dispatch(GPSDataReceived(models.GPSData{Position: &p})))

	st := s.State()
	require.NotNil(t, st.GPS.Meta)
	assert.Equal(t, 4, st.GPS.Meta.NumSatellites)
	assert.Equal(t, 1.0, st.GPS.Position.Latitude)

	assert.False(t, s.Dispatch(GPSDataReceived(models.GPSData{})), "empty snapshot is a no-op")
}

func TestStore_PositionsAppliedInDispatchOrder(t *testing.T) {
	s := New()
	for i, ts := range []float64{1, 2, 3} {
		s.Dispatch(PositionReceived(pos(float64(i), 0, ts)))
		time.Sleep(time.Millisecond)
	}
	st := s.State()
	require.NotNil(t, st.GPS.Position)
	assert.Equal(t, 3.0, st.GPS.Position.Timestamp)
	assert.Equal(t, uint64(3), st.Version)
}

func TestStore_TrackAppendAndReplace(t *testing.T) {
	s := New()
	s.Dispatch(TrackReceived(models.Track{Start: 10, Distance: 5, Path: []models.PathElement{{Latitude: 1}, {Latitude: 2}}}))
	before := s.State()

	s.Dispatch(TrackReceived(models.Track{Start: 10, Distance: 9, Path: []models.PathElement{{Latitude: 3}}}))
	st := s.State()
	require.Len(t, st.GPS.Track.Path, 3)
	assert.Equal(t, int64(9), st.GPS.Track.Distance)
	assert.Len(t, before.GPS.Track.Path, 2, "earlier snapshot must not change")

	s.Dispatch(TrackReceived(models.Track{Start: 20, Distance: 1, Path: []models.PathElement{{Latitude: 7}}}))
	st = s.State()
	require.Len(t, st.GPS.Track.Path, 1)
	assert.Equal(t, int64(20), st.GPS.Track.Start)
	assert.Equal(t, 7.0, st.GPS.Track.Path[0].Latitude)
}

func TestStore_LateSnapshotNeverShrinksTrack(t *testing.T) {
	s := New()
	older := models.Track{Start: 10, Distance: 5, Path: []models.PathElement{{Latitude: 1}, {Latitude: 2}}}
	s.Dispatch(TrackReceived(older))
	s.Dispatch(TrackReceived(models.Track{Start: 10, Distance: 9, Path: []models.PathElement{{Latitude: 3}}}))

	require.True(t, s.Dispatch(GPSDataReceived(models.GPSData{Track: &older})))
	st := s.State()
	require.Len(t, st.GPS.Track.Path, 3)
	assert.Equal(t, int64(9), st.GPS.Track.Distance)
	assert.Equal(t, 3.0, st.GPS.Track.Path[2].Latitude)

	longer := models.Track{Start: 10, Distance: 14, Path: []models.PathElement{{Latitude: 1}, {Latitude: 2}, {Latitude: 3}, {Latitude: 4}}}
	s.Dispatch(GPSDataReceived(models.GPSData{Track: &longer}))
	st = s.State()
	require.Len(t, st.GPS.Track.Path, 4)
	assert.Equal(t, int64(14), st.GPS.Track.Distance)

	other := models.Track{Start: 30, Distance: 0, Path: []models.PathElement{{Latitude: 8}}}
	s.Dispatch(GPSDataReceived(models.GPSData{Track: &other}))
	st = s.State()
	require.Len(t, st.GPS.Track.Path, 1)
	assert.Equal(t, int64(30), st.GPS.Track.Start)
}

func TestStore_UnknownAndMalformedAreIdentity(t *testing.T) {
	s := New()
	s.Dispatch(PositionReceived(pos(1, 1, 1)))
	before := s.State()

	cases := []Action{
		{Type: "nope/UNKNOWN", Payload: 42},
		{Type: ReceivePosition, Payload: "not a position"},
		{Type: ReceivePosition, Payload: (*models.Position)(nil)},
		{Type: ReceivePosition, Payload: nil},
		{Type: ReceiveGeoJSON, Payload: json.RawMessage(`{broken`)},
		{Type: ReceiveGeoJSON, Payload: json.RawMessage(nil)},
		{Type: ConnectionChanged, Payload: models.ConnectionStatus(9)},
		{Type: ConnectionChanged, Payload: models.Disconnected},
	}
	for _, a := range cases {
		assert.False(t, s.Dispatch(a), "action %+v", a)
	}
	assert.Equal(t, before, s.State())
}

func TestStore_PointerPayloadsAccepted(t *testing.T) {
	s := New()
	cfg := &models.MapConfiguration{MinZoom: 3, MaxZoom: 17, Type: models.TilesPNG}
	require.True(t, s.Dispatch(Action{Type: ReceiveMapConfig, Payload: cfg}))

	cfg.MaxZoom = 1
	assert.Equal(t, 17, s.State().MapConfig.MaxZoom, "store must copy pointer payloads")
}

func TestStore_ConnectionSelectors(t *testing.T) {
	s := New()
	s.Dispatch(ConnectionStatusChanged(models.Connecting))
	assert.False(t, IsConnected(s.State()))
	assert.Equal(t, models.Connecting, ConnectionStatus(s.State()))

	s.Dispatch(ConnectionStatusChanged(models.Connected))
	assert.True(t, IsConnected(s.State()))
	assert.True(t, ShowNoConnection(s.State()), "map config still missing")

	s.Dispatch(MapConfigReceived(models.MapConfiguration{MinZoom: 1, MaxZoom: 2}))
	assert.False(t, ShowNoConnection(s.State()))
}

func TestStore_HealthDerivedOnEveryUpdate(t *testing.T) {
	s := New()
	ok := models.HealthStatus{
		CPUTemperature: 50, SystemLoad: 1.0, CPUUsage: 10, CPUVoltage: 1.2,
		DiscFree: 900, DiscTotal: 1000, MemFree: 900, MemTotal: 1000,
	}
	s.Dispatch(HealthStatusReceived(ok))
	assert.True(t, IsHealthOK(s.State()))

	hot := ok
	hot.CPUTemperature = 85
	s.Dispatch(HealthStatusReceived(hot))
	assert.False(t, IsHealthOK(s.State()))

	s.Dispatch(HealthStatusReceived(ok))
	assert.True(t, IsHealthOK(s.State()))
}

func TestStore_SubscribeAndCancel(t *testing.T) {
	s := New()
	var (
		mu   sync.Mutex
		seen []uint64
	)
	cancel := s.Subscribe(func(st models.AppState) {
		mu.Lock()
		seen = append(seen, st.Version)
		mu.Unlock()
	})

	s.Dispatch(PositionReceived(pos(1, 1, 1)))
	s.Dispatch(Action{Type: "unknown"})
	s.Dispatch(PositionReceived(pos(2, 2, 2)))
	cancel()
	cancel()
	s.Dispatch(PositionReceived(pos(3, 3, 3)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{1, 2}, seen)
}
