package gtfs

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

var (
	ErrRouteNotFound = errors.New("route not found")
	ErrNoTrips       = errors.New("no trips for route and direction")
)

// Segment is one hop between consecutive stations of a trip
type Segment struct {
	Left     string
	Right    string
	Distance int
}

// BuildSegments turns the longest trip of a route into consecutive
// station-to-station segments. routeShortName matches route_short_name
// or, failing that, route_id.
//
// Distances come from the shape_dist_traveled delta when both stops carry
// one, else from the straight-line distance between the stops, in whole
// meters. Platforms are folded into their parent station. The walk stops
// at the first station seen twice, so loop routes yield a simple path.
func BuildSegments(data *Data, routeShortName string, direction int) ([]Segment, error) {
	routeIDs := matchRoutes(data.Routes, routeShortName)
	if len(routeIDs) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrRouteNotFound, routeShortName)
	}

	tripID := longestTrip(data, routeIDs, direction)
	if tripID == "" {
		return nil, fmt.Errorf("%w: %q direction %d", ErrNoTrips, routeShortName, direction)
	}

	var calls []StopTime
	for _, st := range data.StopTimes {
		if st.TripID == tripID {
			calls = append(calls, st)
		}
	}
	slices.SortFunc(calls, func(a, b StopTime) int {
		return cmp.Compare(a.StopSequence, b.StopSequence)
	})

	stops := make(map[string]Stop, len(data.Stops))
	for _, s := range data.Stops {
		stops[s.StopID] = s
	}
	station := func(stopID string) (Stop, bool) {
		s, ok := stops[stopID]
		if !ok {
			return Stop{}, false
		}
		if parent, ok := stops[s.ParentStation]; ok && s.ParentStation != "" {
			return parent, true
		}
		return s, true
	}

	var segments []Segment
	seen := make(map[string]bool)
	var prev *StopTime
	var prevStop Stop

	for i := range calls {
		cur := calls[i]
		stop, ok := station(cur.StopID)
		if !ok || stop.StopName == "" {
			continue
		}
		if prev != nil && stop.StopName == prevStop.StopName {
			continue
		}
		if seen[stop.StopName] {
			break
		}
		seen[stop.StopName] = true

		if prev != nil {
			segments = append(segments, Segment{
				Left:     prevStop.StopName,
				Right:    stop.StopName,
				Distance: hopDistance(*prev, cur, prevStop, stop),
			})
		}
		prev, prevStop = &calls[i], stop
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("trip %s of route %q has fewer than two stations", tripID, routeShortName)
	}
	return segments, nil
}

func matchRoutes(routes []Route, name string) map[string]bool {
	ids := make(map[string]bool)
	for _, r := range routes {
		if r.RouteShortName == name {
			ids[r.RouteID] = true
		}
	}
	if len(ids) == 0 {
		for _, r := range routes {
			if r.RouteID == name {
				ids[r.RouteID] = true
			}
		}
	}
	return ids
}

// longestTrip picks the trip with the most stops, breaking ties by id so
// the result does not depend on file order
func longestTrip(data *Data, routeIDs map[string]bool, direction int) string {
	candidates := make(map[string]int)
	for _, t := range data.Trips {
		if routeIDs[t.RouteID] && t.DirectionID == direction {
			candidates[t.TripID] = 0
		}
	}
	for _, st := range data.StopTimes {
		if n, ok := candidates[st.TripID]; ok {
			candidates[st.TripID] = n + 1
		}
	}

	best, bestCount := "", 0
	for id, n := range candidates {
		if n > bestCount || (n == bestCount && n > 0 && id < best) {
			best, bestCount = id, n
		}
	}
	return best
}

func hopDistance(from, to StopTime, fromStop, toStop Stop) int {
	if from.HasDist && to.HasDist && to.ShapeDistTraveled > from.ShapeDistTraveled {
		return wholeMeters(to.ShapeDistTraveled - from.ShapeDistTraveled)
	}
	return wholeMeters(Haversine(fromStop.StopLat, fromStop.StopLon, toStop.StopLat, toStop.StopLon))
}
