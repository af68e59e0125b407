package models

import (
	"slices"
	"strings"
)

// Line is one named transit line and the only owner of its segments.
//
// The stored segments always form a single simple path, kept in
// left-to-right order: segments[i].Right is segments[i+1].Left. Every
// mutation either keeps that true or fails before touching the slice.
// A Line is not safe for concurrent mutation.
type Line struct {
	id       int64
	name     string
	revision string
	segments []Segment
}

// NewLine creates an empty, unsaved line
func NewLine(name string) (*Line, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError(CodeBlankLineName, "line name cannot be empty")
	}
	return &Line{name: name}, nil
}

// RestoreLine rebuilds a stored line. The segments must already be in
// path order; they are checked, never re-sorted.
func RestoreLine(id int64, name, revision string, segments []Segment) (*Line, error) {
	line, err := NewLine(name)
	if err != nil {
		return nil, err
	}
	if err := checkPath(segments); err != nil {
		return nil, err
	}
	line.id = id
	line.revision = revision
	line.segments = slices.Clone(segments)
	return line, nil
}

func checkPath(segments []Segment) error {
	seen := make([]Station, 0, len(segments)+1)
	for i, s := range segments {
		if _, err := NewSegment(s.Left, s.Right, s.Distance); err != nil {
			return err
		}
		if i > 0 && !segments[i-1].Right.Same(s.Left) {
			return NewValidationError(CodeBrokenPath,
				"segment %d starts at %q but the previous one ends at %q", i, s.Left.Name, segments[i-1].Right.Name)
		}
		if i == 0 {
			seen = append(seen, s.Left)
		}
		for _, st := range seen {
			if st.Same(s.Right) {
				return NewValidationError(CodeBrokenPath, "station %q appears twice on the path", s.Right.Name)
			}
		}
		seen = append(seen, s.Right)
	}
	return nil
}

// ID is the storage id, 0 until the line has been stored
func (l *Line) ID() int64 { return l.id }

// Name is the unique display name
func (l *Line) Name() string { return l.name }

// Revision is the storage token the line was loaded with
func (l *Line) Revision() string { return l.revision }

// Segments returns a copy of the stored sequence in path order
func (l *Line) Segments() []Segment {
	return slices.Clone(l.segments)
}

// SegmentCount is the number of segments on the path
func (l *Line) SegmentCount() int { return len(l.segments) }

// TotalDistance is the length of the whole path, 0 for an empty line
func (l *Line) TotalDistance() int {
	total := 0
	for _, s := range l.segments {
		total += s.Distance.Int()
	}
	return total
}

// AddSegment inserts seg into the path.
//
// In order: an empty line takes seg as its only segment; a seg sharing
// its left station with a stored segment splits that segment after the
// shared station; a seg sharing its right station splits before it; a
// seg ending at the path start is prepended; a seg starting at the path
// end is appended. A seg touching the path nowhere is ignored.
func (l *Line) AddSegment(seg Segment) error {
	if sameStation(seg.Left, seg.Right) {
		return NewValidationError(CodeSameStation,
			"segment cannot start and end at the same station %q", seg.Left.Name)
	}
	if _, err := NewDistance(seg.Distance.Int()); err != nil {
		return err
	}

	if len(l.segments) == 0 {
		l.segments = append(l.segments, seg)
		return nil
	}

	if l.HasStation(seg.Left) && l.HasStation(seg.Right) {
		return NewValidationError(CodeStationsAlreadyLinked,
			"stations %q and %q are both already on line %q", seg.Left.Name, seg.Right.Name, l.name)
	}

	if l.HasLeftEndpoint(seg.Left) {
		return l.splitAfter(seg)
	}
	if l.HasRightEndpoint(seg.Right) {
		return l.splitBefore(seg)
	}

	switch {
	case l.IsPathStart(seg.Right):
		l.segments = slices.Insert(l.segments, 0, seg)
	case l.IsPathEnd(seg.Left):
		l.segments = append(l.segments, seg)
	}
	return nil
}

// splitAfter replaces E(A,B) with seg(A,X) then (X,B)
func (l *Line) splitAfter(seg Segment) error {
	idx := l.indexByLeft(seg.Left)
	if idx < 0 {
		return NewNotFoundError(CodeSegmentNotFound, "no segment starts at %q", seg.Left.Name)
	}
	existing := l.segments[idx]

	rest, err := splitRemainder(existing, seg)
	if err != nil {
		return err
	}
	tail, err := NewSegment(seg.Right, existing.Right, rest)
	if err != nil {
		return err
	}

	l.segments = slices.Replace(l.segments, idx, idx+1, seg, tail)
	return nil
}

// splitBefore replaces E(A,B) with (A,X) then seg(X,B)
func (l *Line) splitBefore(seg Segment) error {
	idx := l.indexByRight(seg.Right)
	if idx < 0 {
		return NewNotFoundError(CodeSegmentNotFound, "no segment ends at %q", seg.Right.Name)
	}
	existing := l.segments[idx]

	rest, err := splitRemainder(existing, seg)
	if err != nil {
		return err
	}
	head, err := NewSegment(existing.Left, seg.Left, rest)
	if err != nil {
		return err
	}

	l.segments = slices.Replace(l.segments, idx, idx+1, head, seg)
	return nil
}

func splitRemainder(existing, seg Segment) (Distance, error) {
	if seg.Distance >= existing.Distance {
		return 0, NewValidationError(CodeSplitTooLong,
			"inserted segment (%d) cannot be as long as or longer than the segment it splits (%d)",
			seg.Distance, existing.Distance)
	}
	return existing.Distance.Sub(seg.Distance)
}

// DeleteSegment removes station from the path and reconnects its
// neighbours. An interior station's two segments are merged into one
// spanning both distances; a terminus just loses its end segment.
func (l *Line) DeleteSegment(station Station) error {
	if !l.HasStation(station) {
		return NewNotFoundError(CodeStationNotFound, "station %q is not on line %q", station.Name, l.name)
	}

	if len(l.segments) == 1 {
		l.segments = nil
		return nil
	}

	if l.HasRightEndpoint(station) && l.HasLeftEndpoint(station) {
		return l.merge(station)
	}

	switch {
	case l.IsPathStart(station):
		l.segments = slices.Delete(l.segments, 0, 1)
	case l.IsPathEnd(station):
		l.segments = slices.Delete(l.segments, len(l.segments)-1, len(l.segments))
	}
	return nil
}

func (l *Line) merge(station Station) error {
	leftIdx := l.indexByRight(station)
	rightIdx := l.indexByLeft(station)
	if leftIdx < 0 || rightIdx < 0 || rightIdx != leftIdx+1 {
		return NewNotFoundError(CodeSegmentNotFound, "segments around %q are not adjacent", station.Name)
	}
	left, right := l.segments[leftIdx], l.segments[rightIdx]

	total, err := left.Distance.Add(right.Distance)
	if err != nil {
		return err
	}
	merged, err := NewSegment(left.Left, right.Right, total)
	if err != nil {
		return err
	}

	l.segments = slices.Replace(l.segments, leftIdx, rightIdx+1, merged)
	return nil
}

// HasStation reports whether station is an endpoint of any segment
func (l *Line) HasStation(station Station) bool {
	return slices.ContainsFunc(l.segments, func(s Segment) bool {
		return s.HasStation(station)
	})
}

// HasLeftEndpoint reports whether a segment starts at station
func (l *Line) HasLeftEndpoint(station Station) bool {
	return l.indexByLeft(station) >= 0
}

// HasRightEndpoint reports whether a segment ends at station
func (l *Line) HasRightEndpoint(station Station) bool {
	return l.indexByRight(station) >= 0
}

// FindSegmentByLeft returns the segment starting at station
func (l *Line) FindSegmentByLeft(station Station) (Segment, error) {
	idx := l.indexByLeft(station)
	if idx < 0 {
		return Segment{}, NewNotFoundError(CodeSegmentNotFound, "no segment starts at %q", station.Name)
	}
	return l.segments[idx], nil
}

// FindSegmentByRight returns the segment ending at station
func (l *Line) FindSegmentByRight(station Station) (Segment, error) {
	idx := l.indexByRight(station)
	if idx < 0 {
		return Segment{}, NewNotFoundError(CodeSegmentNotFound, "no segment ends at %q", station.Name)
	}
	return l.segments[idx], nil
}

// IsPathStart reports whether station only ever appears as a left endpoint
func (l *Line) IsPathStart(station Station) bool {
	return l.HasLeftEndpoint(station) && !l.HasRightEndpoint(station)
}

// IsPathEnd reports whether station only ever appears as a right endpoint
func (l *Line) IsPathEnd(station Station) bool {
	return l.HasRightEndpoint(station) && !l.HasLeftEndpoint(station)
}

// Route lists the stations from the path start to the path end
func (l *Line) Route() []Station {
	if len(l.segments) == 0 {
		return []Station{}
	}
	route := make([]Station, 0, len(l.segments)+1)
	route = append(route, l.segments[0].Left)
	for _, s := range l.segments {
		route = append(route, s.Right)
	}
	return route
}

func (l *Line) indexByLeft(station Station) int {
	return slices.IndexFunc(l.segments, func(s Segment) bool {
		return s.Left.Same(station)
	})
}

func (l *Line) indexByRight(station Station) int {
	return slices.IndexFunc(l.segments, func(s Segment) bool {
		return s.Right.Same(station)
	})
}
