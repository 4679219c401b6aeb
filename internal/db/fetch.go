package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"tram-simulator/internal/geo"
	"tram-simulator/internal/schedule"
	"tram-simulator/internal/timeutil"
)

// GTFS route_type for tram / light rail.
const tramRouteType = 0

// GTFSProvider loads the schedule store from GTFS tables.
type GTFSProvider struct {
	db *sql.DB
}

func NewGTFSProvider(db *sql.DB) *GTFSProvider {
	return &GTFSProvider{db: db}
}

// Load assembles lines, stops and blocks for all tram routes. Trips with
// unparseable departure times are dropped with a warning; they never abort
// the rest of the load.
func (p *GTFSProvider) Load(ctx context.Context) (*schedule.Network, error) {
	stops, err := p.fetchStops(ctx)
	if err != nil {
		return nil, err
	}

	routes, err := p.fetchTramRoutes(ctx)
	if err != nil {
		return nil, err
	}

	lines := make(map[string]*schedule.TramLine, len(routes))
	var blocks []*schedule.TramBlock
	for routeID, shortName := range routes {
		line, lineBlocks, err := p.loadRoute(ctx, routeID, shortName)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", routeID, err)
		}
		lines[shortName] = line
		blocks = append(blocks, lineBlocks...)
	}

	log.Info().
		Int("lines", len(lines)).
		Int("stops", len(stops)).
		Int("blocks", len(blocks)).
		Msg("schedule data loaded from GTFS database")

	return &schedule.Network{Lines: lines, Blocks: blocks, Stops: stops}, nil
}

func (p *GTFSProvider) fetchTramRoutes(ctx context.Context) (map[string]string, error) {
	q := `SELECT route_id, route_short_name FROM routes WHERE route_type = $1`
	rows, err := p.db.QueryContext(ctx, q, tramRouteType)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()
	routes := make(map[string]string)
	for rows.Next() {
		var id, short string
		if err := rows.Scan(&id, &short); err != nil {
			return nil, err
		}
		routes[id] = short
	}
	return routes, rows.Err()
}

func (p *GTFSProvider) fetchStops(ctx context.Context) (map[string]schedule.Stop, error) {
	q := `SELECT stop_id, stop_name, stop_lat, stop_lon, COALESCE(stop_code, stop_id)
          FROM stops`
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query stops: %w", err)
	}
	defer rows.Close()
	stops := make(map[string]schedule.Stop)
	for rows.Next() {
		var s schedule.Stop
		if err := rows.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon, &s.Code); err != nil {
			return nil, err
		}
		stops[s.Code] = s
	}
	return stops, rows.Err()
}

type tripRow struct {
	tripID    string
	blockID   string
	serviceID string
	shapeID   string
	headsign  string
}

func (p *GTFSProvider) loadRoute(ctx context.Context, routeID, shortName string) (*schedule.TramLine, []*schedule.TramBlock, error) {
	q := `SELECT trip_id, COALESCE(block_id, trip_id), service_id,
                 COALESCE(shape_id, ''), COALESCE(trip_headsign, '')
          FROM trips WHERE route_id = $1`
	rows, err := p.db.QueryContext(ctx, q, routeID)
	if err != nil {
		return nil, nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()

	var trips []tripRow
	for rows.Next() {
		var tr tripRow
		if err := rows.Scan(&tr.tripID, &tr.blockID, &tr.serviceID, &tr.shapeID, &tr.headsign); err != nil {
			return nil, nil, err
		}
		trips = append(trips, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	line := &schedule.TramLine{Number: shortName, Stops: map[string]schedule.Stop{}}
	shapeSeen := make(map[string]bool)
	shapeCache := make(map[string][]geo.Point)

	// blockKey -> trips; one block per (block_id, service_id) pair.
	type blockKey struct{ blockID, serviceID string }
	grouped := make(map[blockKey][]*schedule.Trip)

	for _, tr := range trips {
		shapePts, err := p.fetchShape(ctx, tr.shapeID, shapeCache)
		if err != nil {
			return nil, nil, err
		}
		if tr.shapeID != "" && !shapeSeen[tr.shapeID] {
			shapeSeen[tr.shapeID] = true
			line.Shapes = append(line.Shapes, schedule.Shape{Points: shapePts})
		}
		trip, err := p.fetchTrip(ctx, tr, shortName, shapePts)
		if err != nil {
			log.Warn().Err(err).Str("trip", tr.tripID).Msg("dropping trip")
			continue
		}
		k := blockKey{tr.blockID, tr.serviceID}
		grouped[k] = append(grouped[k], trip)
	}

	var blocks []*schedule.TramBlock
	for k, blockTrips := range grouped {
		// GTFS carries no trip number; derive it from departure order.
		sort.Slice(blockTrips, func(i, j int) bool {
			return blockTrips[i].StartMinute() < blockTrips[j].StartMinute()
		})
		for i, t := range blockTrips {
			t.Number = i + 1
			for j := range t.StopTimes {
				t.StopTimes[j].TripNumber = t.Number
			}
		}
		blocks = append(blocks, &schedule.TramBlock{
			ID:        k.blockID,
			LineID:    shortName,
			ServiceID: k.serviceID,
			Trips:     blockTrips,
		})
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].ID < blocks[j].ID })
	return line, blocks, nil
}

func (p *GTFSProvider) fetchTrip(ctx context.Context, tr tripRow, shortName string, shape []geo.Point) (*schedule.Trip, error) {
	q := `SELECT st.stop_sequence, COALESCE(st.departure_time::text, st.arrival_time::text),
                 s.stop_name, s.stop_lat, s.stop_lon
          FROM stop_times st
          JOIN stops s ON s.stop_id = st.stop_id
          WHERE st.trip_id = $1
          ORDER BY st.stop_sequence`
	rows, err := p.db.QueryContext(ctx, q, tr.tripID)
	if err != nil {
		return nil, fmt.Errorf("query stop_times: %w", err)
	}
	defer rows.Close()

	trip := &schedule.Trip{
		ID:       tr.tripID,
		Route:    shortName,
		Headsign: tr.headsign,
		Shape:    shape,
	}
	for rows.Next() {
		var seq int
		var depRaw, name string
		var lat, lon float64
		if err := rows.Scan(&seq, &depRaw, &name, &lat, &lon); err != nil {
			return nil, err
		}
		dep, err := timeutil.ParseTime(depRaw)
		if err != nil {
			return nil, fmt.Errorf("stop %q: %w", name, err)
		}
		trip.StopTimes = append(trip.StopTimes, schedule.StopTime{
			StopName:     name,
			Lat:          lat,
			Lon:          lon,
			Sequence:     seq,
			Departure:    dep,
			DepartureRaw: depRaw,
			TripID:       tr.tripID,
		})
	}
	return trip, rows.Err()
}

func (p *GTFSProvider) fetchShape(ctx context.Context, shapeID string, cache map[string][]geo.Point) ([]geo.Point, error) {
	if shapeID == "" {
		return nil, nil
	}
	if pts, ok := cache[shapeID]; ok {
		return pts, nil
	}
	q := `SELECT shape_pt_lat, shape_pt_lon FROM shapes
          WHERE shape_id = $1 ORDER BY shape_pt_sequence`
	rows, err := p.db.QueryContext(ctx, q, shapeID)
	if err != nil {
		return nil, fmt.Errorf("query shapes: %w", err)
	}
	defer rows.Close()
	var pts []geo.Point
	for rows.Next() {
		var pt geo.Point
		if err := rows.Scan(&pt.Lat, &pt.Lon); err != nil {
			return nil, err
		}
		pts = append(pts, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	cache[shapeID] = pts
	return pts, nil
}
