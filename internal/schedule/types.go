// Package schedule holds the immutable in-memory schedule store and the
// resolvers that turn a simulated minute into per-block status and
// position. Entities are built once by a provider and never mutated
// afterwards; every resolver is a pure function of its inputs, so
// concurrent queries against one store need no locking.
package schedule

import (
	"tram-simulator/internal/geo"
	"tram-simulator/internal/timeutil"
)

// Stop is one physical tram stop.
type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
	Code string // external operator code, unique per stop
}

// Shape is one continuous polyline of a route. A line may own several
// shapes for its branches and variants.
type Shape struct {
	Points []geo.Point
}

// TramLine groups the stops and shape variants of one line. Stops are
// keyed by their external code; key uniqueness is guaranteed by the
// provider and iteration order carries no meaning.
type TramLine struct {
	Number string
	Stops  map[string]Stop
	Shapes []Shape
}

// AllCoordinates concatenates all shape vertices in shape order. It feeds
// bounding-box computation only, never resolution logic.
func (l *TramLine) AllCoordinates() []geo.Point {
	var pts []geo.Point
	for _, s := range l.Shapes {
		pts = append(pts, s.Points...)
	}
	return pts
}

// StopTime is one scheduled stop within a trip. Within a Trip, StopTimes
// are sorted ascending by Sequence at load time; the resolvers rely on
// that order and never re-derive it.
type StopTime struct {
	StopName     string
	Lat          float64
	Lon          float64
	Sequence     int
	Departure    timeutil.Minutes
	DepartureRaw string // original "HH:MM:SS" string, display only
	TripID       string
	TripNumber   int
}

// Point returns the stop's coordinates.
func (st StopTime) Point() geo.Point { return geo.Point{Lat: st.Lat, Lon: st.Lon} }

// Trip is one directional run from origin to destination.
type Trip struct {
	ID        string
	Number    int
	Route     string // route short name
	Headsign  string
	Shape     []geo.Point // geometric path, distinct from StopTime coordinates
	StopTimes []StopTime
}

// StartMinute is the departure minute of the first stop, or 0 for a trip
// with no StopTimes.
func (t *Trip) StartMinute() timeutil.Minutes {
	if len(t.StopTimes) == 0 {
		return 0
	}
	return t.StopTimes[0].Departure
}

// EndMinute is the departure minute of the last stop, or 0 for a trip
// with no StopTimes.
func (t *Trip) EndMinute() timeutil.Minutes {
	if len(t.StopTimes) == 0 {
		return 0
	}
	return t.StopTimes[len(t.StopTimes)-1].Departure
}

// TramBlock is one physical vehicle's full-day duty: its trips sorted
// ascending by trip number, which is assumed to match chronological order.
type TramBlock struct {
	ID        string
	LineID    string
	ServiceID string
	Trips     []*Trip
}

// Network is the fully populated schedule store handed to the simulator.
// Stops holds the network-wide stop registry keyed by external code;
// per-line stop maps are filled only when the provider can attribute
// stops to lines.
type Network struct {
	Lines  map[string]*TramLine
	Blocks []*TramBlock
	Stops  map[string]Stop
}

// Kraków city centre, used when no line data is available.
const (
	defaultLat = 50.0614
	defaultLon = 19.9366
)

// BoundingBox returns (minLat, maxLat, minLon, maxLon) over all shape
// vertices and stops of the given lines, or a city-centre default when
// there are no coordinates at all.
func BoundingBox(lines map[string]*TramLine) (minLat, maxLat, minLon, maxLon float64) {
	minLat, maxLat, minLon, maxLon = defaultLat, defaultLat, defaultLon, defaultLon
	found := false
	consider := func(p geo.Point) {
		if !found {
			minLat, maxLat, minLon, maxLon = p.Lat, p.Lat, p.Lon, p.Lon
			found = true
			return
		}
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
		if p.Lon < minLon {
			minLon = p.Lon
		}
		if p.Lon > maxLon {
			maxLon = p.Lon
		}
	}
	for _, line := range lines {
		for _, p := range line.AllCoordinates() {
			consider(p)
		}
		for _, stop := range line.Stops {
			consider(geo.Point{Lat: stop.Lat, Lon: stop.Lon})
		}
	}
	return minLat, maxLat, minLon, maxLon
}
