package repository

import (
	"fmt"

	"github.com/you/subway-path/models"
)

// OrderSegments rebuilds left-to-right path order from segment rows read
// in arbitrary order. It finds the single head station (a left endpoint
// that is nobody's right endpoint) and follows right -> left links from
// there. Anything that is not one simple path is rejected.
func OrderSegments(segments []models.Segment) ([]models.Segment, error) {
	if len(segments) == 0 {
		return []models.Segment{}, nil
	}

	byLeft := make(map[string]models.Segment, len(segments))
	rights := make(map[string]bool, len(segments))
	for _, s := range segments {
		left := stationKey(s.Left)
		if _, dup := byLeft[left]; dup {
			return nil, brokenPath("station %q starts more than one segment", s.Left.Name)
		}
		byLeft[left] = s

		right := stationKey(s.Right)
		if rights[right] {
			return nil, brokenPath("station %q ends more than one segment", s.Right.Name)
		}
		rights[right] = true
	}

	var heads []models.Segment
	for _, s := range segments {
		if !rights[stationKey(s.Left)] {
			heads = append(heads, s)
		}
	}
	if len(heads) != 1 {
		return nil, brokenPath("expected exactly one path start, found %d", len(heads))
	}

	ordered := make([]models.Segment, 0, len(segments))
	current := heads[0]
	for len(ordered) < len(segments) {
		ordered = append(ordered, current)
		next, ok := byLeft[stationKey(current.Right)]
		if !ok {
			break
		}
		current = next
	}

	if len(ordered) != len(segments) {
		return nil, brokenPath("%d of %d segments are not reachable from the path start",
			len(segments)-len(ordered), len(segments))
	}
	return ordered, nil
}

func stationKey(s models.Station) string {
	if s.Persisted() {
		return fmt.Sprintf("id:%d", s.ID)
	}
	return "name:" + s.Name
}

func brokenPath(format string, args ...any) error {
	return models.NewValidationError(models.CodeBrokenPath, "stored segments do not form a path: "+format, args...)
}
