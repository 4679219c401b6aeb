package provider

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"tram-simulator/internal/geo"
	"tram-simulator/internal/schedule"
)

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Properties map[string]json.RawMessage `json:"properties"`
	Geometry   geometry                   `json:"geometry"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// loadShapes reads the line-shapes GeoJSON and groups LineString features
// by the "Numer" property. GeoJSON stores [lon, lat]; points are flipped
// to the (lat, lon) order used everywhere else.
func (p *FileProvider) loadShapes() (map[string][]schedule.Shape, error) {
	fc, err := readGeoJSON(filepath.Join(p.dir, shapesFile))
	if fc == nil || err != nil {
		return map[string][]schedule.Shape{}, err
	}
	shapes := make(map[string][]schedule.Shape)
	for _, f := range fc.Features {
		if f.Geometry.Type != "LineString" {
			continue
		}
		number := stringProp(f.Properties, "Numer")
		if number == "" {
			continue
		}
		var coords [][]float64
		if err := json.Unmarshal(f.Geometry.Coordinates, &coords); err != nil {
			log.Warn().Err(err).Str("line", number).Msg("skipping unparseable line geometry")
			continue
		}
		var pts []geo.Point
		for _, c := range coords {
			if len(c) < 2 {
				continue
			}
			pts = append(pts, geo.Point{Lat: c[1], Lon: c[0]})
		}
		shapes[number] = append(shapes[number], schedule.Shape{Points: pts})
	}
	return shapes, nil
}

// loadStops reads the stops GeoJSON keyed by the operator code
// "kod_busman".
func (p *FileProvider) loadStops() (map[string]schedule.Stop, error) {
	fc, err := readGeoJSON(filepath.Join(p.dir, stopsFile))
	if fc == nil || err != nil {
		return map[string]schedule.Stop{}, err
	}
	stops := make(map[string]schedule.Stop)
	for _, f := range fc.Features {
		var coords []float64
		if err := json.Unmarshal(f.Geometry.Coordinates, &coords); err != nil || len(coords) < 2 {
			continue
		}
		code := stringProp(f.Properties, "kod_busman")
		if code == "" {
			continue
		}
		stops[code] = schedule.Stop{
			ID:   stringProp(f.Properties, "OBJECTID"),
			Name: stringProp(f.Properties, "Nazwa_przystanku_nr"),
			Lat:  coords[1],
			Lon:  coords[0],
			Code: code,
		}
	}
	return stops, nil
}

// readGeoJSON returns (nil, nil) for a missing file: no data for the layer
// is a normal, reportable condition rather than a failure.
func readGeoJSON(path string) (*featureCollection, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Warn().Str("file", path).Msg("GeoJSON file not found")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &fc, nil
}

// stringProp reads a property that may be encoded as a JSON string or
// number (ArcGIS exports are inconsistent about this).
func stringProp(props map[string]json.RawMessage, key string) string {
	raw, ok := props[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
