package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tram-simulator/internal/geo"
)

func TestAllCoordinates(t *testing.T) {
	line := &TramLine{
		Number: "8",
		Shapes: []Shape{
			{Points: []geo.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}},
			{Points: []geo.Point{{Lat: 3, Lon: 3}}},
		},
	}
	// concatenated in shape order
	assert.Equal(t, []geo.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}, {Lat: 3, Lon: 3}}, line.AllCoordinates())

	empty := &TramLine{Number: "52"}
	assert.Empty(t, empty.AllCoordinates())
}

func TestBoundingBox(t *testing.T) {
	t.Run("default for empty network", func(t *testing.T) {
		minLat, maxLat, minLon, maxLon := BoundingBox(nil)
		assert.Equal(t, 50.0614, minLat)
		assert.Equal(t, 50.0614, maxLat)
		assert.Equal(t, 19.9366, minLon)
		assert.Equal(t, 19.9366, maxLon)
	})

	t.Run("covers shapes and stops", func(t *testing.T) {
		lines := map[string]*TramLine{
			"1": {
				Number: "1",
				Shapes: []Shape{{Points: []geo.Point{{Lat: 50.01, Lon: 19.90}, {Lat: 50.09, Lon: 20.02}}}},
				Stops: map[string]Stop{
					"RS01": {Code: "RS01", Lat: 49.99, Lon: 19.95},
				},
			},
		}
		minLat, maxLat, minLon, maxLon := BoundingBox(lines)
		assert.Equal(t, 49.99, minLat)
		assert.Equal(t, 50.09, maxLat)
		assert.Equal(t, 19.90, minLon)
		assert.Equal(t, 20.02, maxLon)
	})
}
