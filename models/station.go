package models

import "strings"

// Station is a named stop. ID is zero until the station has been stored.
type Station struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NewStation creates a station that has not been persisted yet
func NewStation(name string) (Station, error) {
	return RestoreStation(0, name)
}

// RestoreStation rebuilds a station read from storage
func RestoreStation(id int64, name string) (Station, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Station{}, NewValidationError(CodeBlankStationName, "station name cannot be empty")
	}
	return Station{ID: id, Name: name}, nil
}

// Same reports whether both values name the same node.
// Stored stations compare by id; anything unsaved compares by name.
func (s Station) Same(other Station) bool {
	if s.ID != 0 && other.ID != 0 {
		return s.ID == other.ID
	}
	return s.Name == other.Name
}

// Persisted reports whether the station carries a storage id
func (s Station) Persisted() bool {
	return s.ID != 0
}
