package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tram-simulator/internal/timeutil"
)

const shapesGeoJSON = `{
  "features": [
    {
      "properties": {"Numer": 1},
      "geometry": {"type": "LineString", "coordinates": [[19.90, 50.01], [19.92, 50.03]]}
    },
    {
      "properties": {"Numer": "1"},
      "geometry": {"type": "LineString", "coordinates": [[19.94, 50.05]]}
    },
    {
      "properties": {"Numer": "1"},
      "geometry": {"type": "Point", "coordinates": [19.0, 50.0]}
    }
  ]
}`

const stopsGeoJSON = `{
  "features": [
    {
      "properties": {"kod_busman": "RS01", "Nazwa_przystanku_nr": "Salwator 01", "OBJECTID": 17},
      "geometry": {"type": "Point", "coordinates": [19.9139, 50.0525]}
    },
    {
      "properties": {"Nazwa_przystanku_nr": "no code, skipped"},
      "geometry": {"type": "Point", "coordinates": [19.9, 50.0]}
    }
  ]
}`

const lineJSON = `{
  "blocks": [
    {"block_id": "block-7", "service_id": "weekday"}
  ]
}`

const blockJSON = `{
  "trips": [
    {
      "trip_id": "trip-2",
      "trip_number": 2,
      "route_short_name": "1",
      "trip_headsign": "Wzgórza Krzesławickie",
      "shape": [[50.05, 19.91], [50.06, 19.93]],
      "stop_times": [
        {"stop_name": "Filharmonia", "stop_lat": 50.06, "stop_lon": 19.93, "stop_sequence": 2, "departure_time": "08:05:00"},
        {"stop_name": "Salwator", "stop_lat": 50.05, "stop_lon": 19.91, "stop_sequence": 1, "departure_time": "08:00:00"}
      ]
    },
    {
      "trip_id": "trip-1",
      "trip_number": 1,
      "route_short_name": "1",
      "trip_headsign": "Salwator",
      "shape": [],
      "stop_times": [
        {"stop_name": "Filharmonia", "stop_lat": 50.06, "stop_lon": 19.93, "stop_sequence": 1, "departure_time": "07:30:00"},
        {"stop_name": "Salwator", "stop_lat": 50.05, "stop_lon": 19.91, "stop_sequence": 2, "departure_time": "07:45:00"}
      ]
    }
  ]
}`

func writeFixture(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir, "line-shapes/krakow_tram_lines.geojson", shapesGeoJSON)
	writeFixture(t, dir, "stops/krakow_tram_stops.geojson", stopsGeoJSON)
	writeFixture(t, dir, "lines/1/1.json", lineJSON)
	writeFixture(t, dir, "lines/1/weekday/block-7.json", blockJSON)
	return dir
}

func TestFileProviderLoad(t *testing.T) {
	network, err := NewFileProvider(fixtureDir(t)).Load(context.Background())
	require.NoError(t, err)

	t.Run("shapes grouped per line, lon/lat flipped", func(t *testing.T) {
		line := network.Lines["1"]
		require.NotNil(t, line)
		require.Len(t, line.Shapes, 2) // the Point feature is ignored
		assert.Equal(t, 50.01, line.Shapes[0].Points[0].Lat)
		assert.Equal(t, 19.90, line.Shapes[0].Points[0].Lon)
	})

	t.Run("stops keyed by operator code", func(t *testing.T) {
		require.Len(t, network.Stops, 1)
		stop := network.Stops["RS01"]
		assert.Equal(t, "Salwator 01", stop.Name)
		assert.Equal(t, "17", stop.ID)
		assert.Equal(t, 50.0525, stop.Lat)
		assert.Equal(t, 19.9139, stop.Lon)
	})

	t.Run("blocks with trips sorted by trip number", func(t *testing.T) {
		require.Len(t, network.Blocks, 1)
		block := network.Blocks[0]
		assert.Equal(t, "block-7", block.ID)
		assert.Equal(t, "1", block.LineID)
		assert.Equal(t, "weekday", block.ServiceID)
		require.Len(t, block.Trips, 2)
		assert.Equal(t, "trip-1", block.Trips[0].ID)
		assert.Equal(t, "trip-2", block.Trips[1].ID)
	})

	t.Run("stop times sorted by sequence with parsed minutes", func(t *testing.T) {
		trip := network.Blocks[0].Trips[1]
		require.Len(t, trip.StopTimes, 2)
		assert.Equal(t, "Salwator", trip.StopTimes[0].StopName)
		assert.Equal(t, timeutil.Minutes(480), trip.StopTimes[0].Departure)
		assert.Equal(t, "08:00:00", trip.StopTimes[0].DepartureRaw)
		assert.Equal(t, timeutil.Minutes(485), trip.StopTimes[1].Departure)
		assert.Equal(t, timeutil.Minutes(480), trip.StartMinute())
		assert.Equal(t, timeutil.Minutes(485), trip.EndMinute())
	})

	t.Run("trip shape carried as lat/lon points", func(t *testing.T) {
		trip := network.Blocks[0].Trips[1]
		require.Len(t, trip.Shape, 2)
		assert.Equal(t, 50.05, trip.Shape[0].Lat)
		assert.Equal(t, 19.91, trip.Shape[0].Lon)
	})
}

func TestFileProviderResilience(t *testing.T) {
	t.Run("missing geojson yields empty layers", func(t *testing.T) {
		dir := t.TempDir()
		writeFixture(t, dir, "lines/1/1.json", lineJSON)
		writeFixture(t, dir, "lines/1/weekday/block-7.json", blockJSON)
		network, err := NewFileProvider(dir).Load(context.Background())
		require.NoError(t, err)
		assert.Empty(t, network.Stops)
		require.NotNil(t, network.Lines["1"])
		assert.Empty(t, network.Lines["1"].Shapes)
		assert.Len(t, network.Blocks, 1)
	})

	t.Run("malformed departure drops the trip, not the load", func(t *testing.T) {
		dir := fixtureDir(t)
		bad := `{"trips": [{"trip_id": "bad", "trip_number": 9, "stop_times": [
			{"stop_name": "X", "stop_sequence": 1, "departure_time": "notatime"}]}]}`
		writeFixture(t, dir, "lines/1/weekday/block-8.json", bad)
		writeFixture(t, dir, "lines/1/1.json", `{"blocks": [
			{"block_id": "block-7", "service_id": "weekday"},
			{"block_id": "block-8", "service_id": "weekday"}]}`)
		network, err := NewFileProvider(dir).Load(context.Background())
		require.NoError(t, err)
		require.Len(t, network.Blocks, 2)
		for _, b := range network.Blocks {
			if b.ID == "block-8" {
				assert.Empty(t, b.Trips)
			}
		}
	})

	t.Run("missing block file skipped", func(t *testing.T) {
		dir := fixtureDir(t)
		writeFixture(t, dir, "lines/1/1.json", `{"blocks": [
			{"block_id": "block-7", "service_id": "weekday"},
			{"block_id": "ghost", "service_id": "weekday"}]}`)
		network, err := NewFileProvider(dir).Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, network.Blocks, 1)
	})

	t.Run("empty data dir", func(t *testing.T) {
		network, err := NewFileProvider(t.TempDir()).Load(context.Background())
		require.NoError(t, err)
		assert.Empty(t, network.Lines)
		assert.Empty(t, network.Blocks)
	})
}
