package models

import "math"

// MaxDistance is the longest segment or merged path a line can store.
// It matches the 32-bit distance column of the Postgres schema.
const MaxDistance = math.MaxInt32

// Distance is the strictly positive length of a segment, at most MaxDistance
type Distance int

// NewDistance validates a raw length
func NewDistance(value int) (Distance, error) {
	if value <= 0 {
		return 0, NewValidationError(CodeNonPositiveDistance, "distance must be positive, got %d", value)
	}
	if value > MaxDistance {
		return 0, NewValidationError(CodeDistanceTooLong, "distance %d exceeds the maximum of %d", value, MaxDistance)
	}
	return Distance(value), nil
}

// Int returns the raw length
func (d Distance) Int() int {
	return int(d)
}

// Add returns the combined length of two segments. The sum is checked
// before it is formed, so huge values fail instead of wrapping.
func (d Distance) Add(other Distance) (Distance, error) {
	if int(other) > MaxDistance-int(d) {
		return 0, NewValidationError(CodeDistanceTooLong,
			"combined distance %d + %d exceeds the maximum of %d", d, other, MaxDistance)
	}
	return NewDistance(int(d) + int(other))
}

// Sub returns what is left of d after removing other.
// The remainder must itself be a valid distance.
func (d Distance) Sub(other Distance) (Distance, error) {
	return NewDistance(int(d) - int(other))
}

// Segment is a directed edge between two adjacent stations.
// Segments are values: splitting or merging builds new ones.
type Segment struct {
	Left     Station  `json:"left"`
	Right    Station  `json:"right"`
	Distance Distance `json:"distance"`
}

// NewSegment validates that the segment does not loop on one station
func NewSegment(left, right Station, distance Distance) (Segment, error) {
	if sameStation(left, right) {
		return Segment{}, NewValidationError(CodeSameStation,
			"segment cannot start and end at the same station %q", left.Name)
	}
	if _, err := NewDistance(int(distance)); err != nil {
		return Segment{}, err
	}
	return Segment{Left: left, Right: right, Distance: distance}, nil
}

// HasStation reports whether station is either endpoint
func (s Segment) HasStation(station Station) bool {
	return s.Left.Same(station) || s.Right.Same(station)
}

// sameStation is the self-loop test: identity, or the same name
func sameStation(a, b Station) bool {
	return a.Same(b) || a.Name == b.Name
}
