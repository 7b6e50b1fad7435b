// Package location holds the device location feed and the transit stop set
// used for the "nearby stops" map view.
package location

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
)

// DefaultRadiusMeters is the nearby-stop search radius the mobile client
// uses.
const DefaultRadiusMeters = 1000

// Stop is one transit stop with its position.
type Stop struct {
	ID   string  `json:"stop_id"`
	Name string  `json:"stop_name"`
	Lat  float64 `json:"stop_lat"`
	Lon  float64 `json:"stop_lon"`
}

// StopWithDistance is a Stop with the distance from a reference point.
type StopWithDistance struct {
	Stop
	DistanceMeters float64 `json:"distance_meters"`
}

// StopIndex is a read-mostly set of stops with nearby search.
type StopIndex struct {
	mu    sync.RWMutex
	stops []Stop
}

// NewStopIndex returns an index seeded with a built-in TransMilenio station
// subset, usable before any stops file is loaded.
func NewStopIndex() *StopIndex {
	return &StopIndex{stops: defaultStops()}
}

// LoadFile replaces the stop set with the rows of a GTFS-style stops.txt
// file (stop_id, stop_name, stop_lat, stop_lon).
func (s *StopIndex) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening stops file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("reading stops CSV: %w", err)
	}
	if len(records) < 2 {
		return fmt.Errorf("stops file has no data rows")
	}

	var stops []Stop
	for _, record := range records[1:] {
		if len(record) < 4 {
			continue
		}
		lat, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			continue
		}
		stops = append(stops, Stop{ID: record[0], Name: record[1], Lat: lat, Lon: lon})
	}

	s.mu.Lock()
	s.stops = stops
	s.mu.Unlock()
	return nil
}

// FindNearby returns the stops within radiusMeters of a point, closest
// first.
func (s *StopIndex) FindNearby(lat, lon, radiusMeters float64) []StopWithDistance {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []StopWithDistance
	for _, stop := range s.stops {
		dist := Haversine(lat, lon, stop.Lat, stop.Lon)
		if dist <= radiusMeters {
			results = append(results, StopWithDistance{Stop: stop, DistanceMeters: dist})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].DistanceMeters < results[j].DistanceMeters
	})
	return results
}

// Count reports the number of loaded stops.
func (s *StopIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stops)
}

// defaultStops is a small TransMilenio subset around central Bogotá, enough
// for the map view to render something without a dataset on disk.
func defaultStops() []Stop {
	return []Stop{
		{ID: "TM-AV39", Name: "Av. 39", Lat: 4.6289, Lon: -74.0628},
		{ID: "TM-CL100", Name: "Calle 100", Lat: 4.6975, Lon: -74.0538},
		{ID: "TM-CL72", Name: "Calle 72", Lat: 4.6584, Lon: -74.0622},
		{ID: "TM-CL45", Name: "Calle 45", Lat: 4.6338, Lon: -74.0697},
		{ID: "TM-HEROES", Name: "Héroes", Lat: 4.6686, Lon: -74.0594},
		{ID: "TM-MARLY", Name: "Marly", Lat: 4.6270, Lon: -74.0683},
		{ID: "TM-CL26", Name: "Calle 26", Lat: 4.6161, Lon: -74.0705},
	}
}
