package gtfs

// Data holds the GTFS tables needed to rebuild a line
type Data struct {
	Routes    []Route
	Stops     []Stop
	Trips     []Trip
	StopTimes []StopTime
}

// Route represents a route from routes.txt
type Route struct {
	RouteID        string
	RouteShortName string
	RouteLongName  string
	RouteType      int
}

// Stop represents a stop from stops.txt
type Stop struct {
	StopID        string
	StopName      string
	StopLat       float64
	StopLon       float64
	ParentStation string
}

// Trip represents a trip from trips.txt
type Trip struct {
	RouteID     string
	TripID      string
	DirectionID int
}

// StopTime represents a stop time from stop_times.txt.
// HasDist is false when shape_dist_traveled is blank.
type StopTime struct {
	TripID            string
	StopID            string
	StopSequence      int
	ShapeDistTraveled float64
	HasDist           bool
}
