package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"tram-simulator/internal/geo"
	"tram-simulator/internal/schedule"
	"tram-simulator/internal/timeutil"
)

// Expected layout under the data directory:
//
//	lines/<line>/<line>.json                     line descriptor with block refs
//	lines/<line>/<service_id>/<block_id>.json    block stop-times file
//	line-shapes/krakow_tram_lines.geojson        LineString features, property "Numer"
//	stops/krakow_tram_stops.geojson              Point features, property "kod_busman"
const (
	linesDir   = "lines"
	shapesFile = "line-shapes/krakow_tram_lines.geojson"
	stopsFile  = "stops/krakow_tram_stops.geojson"
)

// FileProvider reads the per-line JSON dumps and GeoJSON exports produced
// by the upstream fetcher.
type FileProvider struct {
	dir string
}

func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

type lineFile struct {
	Blocks []blockRef `json:"blocks"`
}

type blockRef struct {
	BlockID   string `json:"block_id"`
	ServiceID string `json:"service_id"`
}

type blockFile struct {
	Trips []tripRecord `json:"trips"`
}

type tripRecord struct {
	TripID     string           `json:"trip_id"`
	TripNumber int              `json:"trip_number"`
	RouteShort string           `json:"route_short_name"`
	Headsign   string           `json:"trip_headsign"`
	Shape      [][2]float64     `json:"shape"` // [lat, lon]
	StopTimes  []stopTimeRecord `json:"stop_times"`
}

type stopTimeRecord struct {
	StopName      string  `json:"stop_name"`
	StopLat       float64 `json:"stop_lat"`
	StopLon       float64 `json:"stop_lon"`
	StopSequence  int     `json:"stop_sequence"`
	DepartureTime string  `json:"departure_time"`
}

// Load builds the network from disk. Missing GeoJSON files yield empty
// shape/stop sets and a malformed block file is skipped; neither aborts
// the rest of the load.
func (p *FileProvider) Load(ctx context.Context) (*schedule.Network, error) {
	shapes, err := p.loadShapes()
	if err != nil {
		return nil, err
	}
	stops, err := p.loadStops()
	if err != nil {
		return nil, err
	}

	lines := make(map[string]*schedule.TramLine, len(shapes))
	for number, lineShapes := range shapes {
		lines[number] = &schedule.TramLine{
			Number: number,
			Stops:  map[string]schedule.Stop{},
			Shapes: lineShapes,
		}
	}

	blocks, err := p.loadBlocks(ctx, lines)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("lines", len(lines)).
		Int("stops", len(stops)).
		Int("blocks", len(blocks)).
		Msg("schedule data loaded")

	return &schedule.Network{Lines: lines, Blocks: blocks, Stops: stops}, nil
}

func (p *FileProvider) loadBlocks(ctx context.Context, lines map[string]*schedule.TramLine) ([]*schedule.TramBlock, error) {
	root := filepath.Join(p.dir, linesDir)
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		log.Warn().Str("dir", root).Msg("lines directory not found")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read lines dir: %w", err)
	}

	var blocks []*schedule.TramBlock
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() {
			continue
		}
		lineNumber := e.Name()
		lf, err := readJSON[lineFile](filepath.Join(root, lineNumber, lineNumber+".json"))
		if err != nil {
			log.Warn().Err(err).Str("line", lineNumber).Msg("skipping unreadable line descriptor")
			continue
		}
		if _, ok := lines[lineNumber]; !ok {
			// Line appears in the schedule dump but has no shape data.
			// Status resolution still works; only geometry is missing.
			lines[lineNumber] = &schedule.TramLine{Number: lineNumber, Stops: map[string]schedule.Stop{}}
		}
		for _, ref := range lf.Blocks {
			path := filepath.Join(root, lineNumber, ref.ServiceID, ref.BlockID+".json")
			block, err := p.loadBlock(path, lineNumber, ref)
			if err != nil {
				log.Warn().Err(err).Str("block", ref.BlockID).Msg("skipping malformed block file")
				continue
			}
			blocks = append(blocks, block)
		}
	}
	return blocks, nil
}

func (p *FileProvider) loadBlock(path, lineNumber string, ref blockRef) (*schedule.TramBlock, error) {
	bf, err := readJSON[blockFile](path)
	if err != nil {
		return nil, err
	}
	block := &schedule.TramBlock{
		ID:        ref.BlockID,
		LineID:    lineNumber,
		ServiceID: ref.ServiceID,
	}
	for _, tr := range bf.Trips {
		trip, err := buildTrip(tr)
		if err != nil {
			// One bad trip must not sink the block's remaining trips.
			log.Warn().Err(err).Str("trip", tr.TripID).Msg("dropping trip")
			continue
		}
		block.Trips = append(block.Trips, trip)
	}
	sort.Slice(block.Trips, func(i, j int) bool {
		return block.Trips[i].Number < block.Trips[j].Number
	})
	return block, nil
}

func buildTrip(tr tripRecord) (*schedule.Trip, error) {
	trip := &schedule.Trip{
		ID:       tr.TripID,
		Number:   tr.TripNumber,
		Route:    tr.RouteShort,
		Headsign: tr.Headsign,
	}
	for _, c := range tr.Shape {
		trip.Shape = append(trip.Shape, geo.Point{Lat: c[0], Lon: c[1]})
	}
	for _, str := range tr.StopTimes {
		dep, err := timeutil.ParseTime(str.DepartureTime)
		if err != nil {
			return nil, fmt.Errorf("stop %q: %w", str.StopName, err)
		}
		trip.StopTimes = append(trip.StopTimes, schedule.StopTime{
			StopName:     str.StopName,
			Lat:          str.StopLat,
			Lon:          str.StopLon,
			Sequence:     str.StopSequence,
			Departure:    dep,
			DepartureRaw: str.DepartureTime,
			TripID:       tr.TripID,
			TripNumber:   tr.TripNumber,
		})
	}
	sort.Slice(trip.StopTimes, func(i, j int) bool {
		return trip.StopTimes[i].Sequence < trip.StopTimes[j].Sequence
	})
	return trip, nil
}

func readJSON[T any](path string) (*T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &v, nil
}
