package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

var requiredFiles = []string{"routes.txt", "stops.txt", "trips.txt", "stop_times.txt"}

// Parse reads a GTFS zip file. Malformed rows are skipped; a missing
// required table is an error.
func Parse(zipPath string, logger *slog.Logger) (*Data, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	files := make(map[string]*zip.File)
	for _, f := range r.File {
		files[f.Name] = f
	}
	for _, name := range requiredFiles {
		if _, ok := files[name]; !ok {
			return nil, fmt.Errorf("gtfs feed %s has no %s", zipPath, name)
		}
	}

	data := &Data{}
	steps := []struct {
		file  string
		parse func(record []string, idx map[string]int)
	}{
		{"routes.txt", func(record []string, idx map[string]int) {
			routeType, _ := strconv.Atoi(getField(record, idx, "route_type"))
			data.Routes = append(data.Routes, Route{
				RouteID:        getField(record, idx, "route_id"),
				RouteShortName: getField(record, idx, "route_short_name"),
				RouteLongName:  getField(record, idx, "route_long_name"),
				RouteType:      routeType,
			})
		}},
		{"stops.txt", func(record []string, idx map[string]int) {
			lat, _ := strconv.ParseFloat(getField(record, idx, "stop_lat"), 64)
			lon, _ := strconv.ParseFloat(getField(record, idx, "stop_lon"), 64)
			data.Stops = append(data.Stops, Stop{
				StopID:        getField(record, idx, "stop_id"),
				StopName:      getField(record, idx, "stop_name"),
				StopLat:       lat,
				StopLon:       lon,
				ParentStation: getField(record, idx, "parent_station"),
			})
		}},
		{"trips.txt", func(record []string, idx map[string]int) {
			directionID, _ := strconv.Atoi(getField(record, idx, "direction_id"))
			data.Trips = append(data.Trips, Trip{
				RouteID:     getField(record, idx, "route_id"),
				TripID:      getField(record, idx, "trip_id"),
				DirectionID: directionID,
			})
		}},
		{"stop_times.txt", func(record []string, idx map[string]int) {
			seq, _ := strconv.Atoi(getField(record, idx, "stop_sequence"))
			st := StopTime{
				TripID:       getField(record, idx, "trip_id"),
				StopID:       getField(record, idx, "stop_id"),
				StopSequence: seq,
			}
			if raw := getField(record, idx, "shape_dist_traveled"); raw != "" {
				if dist, err := strconv.ParseFloat(raw, 64); err == nil {
					st.ShapeDistTraveled = dist
					st.HasDist = true
				}
			}
			data.StopTimes = append(data.StopTimes, st)
		}},
	}

	for _, step := range steps {
		skipped, err := readTable(files[step.file], step.parse)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", step.file, err)
		}
		if skipped > 0 {
			logger.Warn("skipped malformed gtfs rows", "file", step.file, "rows", skipped)
		}
	}

	logger.Info("gtfs parsed",
		"routes", len(data.Routes),
		"stops", len(data.Stops),
		"trips", len(data.Trips),
		"stop_times", len(data.StopTimes),
	)
	return data, nil
}

// readTable feeds every well-formed row of a CSV table to parse and
// returns how many rows it skipped
func readTable(f *zip.File, parse func(record []string, idx map[string]int)) (int, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return 0, err
	}

	idx := makeIndex(header)
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		parse(record, idx)
	}
	return skipped, nil
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		// Some feeds start with a UTF-8 BOM
		idx[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}
