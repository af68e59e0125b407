package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/you/subway-path/models"
)

// segmentRow is one persisted segment with its station names resolved
type segmentRow struct {
	LeftStationID    int64
	LeftStationName  string
	RightStationID   int64
	RightStationName string
	Distance         int
}

func (r segmentRow) toSegment() (models.Segment, error) {
	left, err := models.RestoreStation(r.LeftStationID, r.LeftStationName)
	if err != nil {
		return models.Segment{}, err
	}
	right, err := models.RestoreStation(r.RightStationID, r.RightStationName)
	if err != nil {
		return models.Segment{}, err
	}
	distance, err := models.NewDistance(r.Distance)
	if err != nil {
		return models.Segment{}, err
	}
	return models.NewSegment(left, right, distance)
}

// buildLine turns unordered rows into a Line in path order
func buildLine(id int64, name, revision string, rows []segmentRow) (*models.Line, error) {
	segments := make([]models.Segment, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSegment()
		if err != nil {
			return nil, fmt.Errorf("invalid segment row on line %d: %w", id, err)
		}
		segments = append(segments, s)
	}

	ordered, err := OrderSegments(segments)
	if err != nil {
		return nil, fmt.Errorf("failed to order segments of line %d: %w", id, err)
	}
	return models.RestoreLine(id, name, revision, ordered)
}

// storeStations swaps every unsaved station of segments for the stored
// one that ensure finds or creates by name
func storeStations(segments []models.Segment, ensure func(name string) (models.Station, error)) ([]models.Segment, error) {
	stored := make(map[string]models.Station)
	resolve := func(st models.Station) (models.Station, error) {
		if st.Persisted() {
			return st, nil
		}
		if s, ok := stored[st.Name]; ok {
			return s, nil
		}
		s, err := ensure(st.Name)
		if err != nil {
			return models.Station{}, fmt.Errorf("failed to store station %q: %w", st.Name, err)
		}
		stored[st.Name] = s
		return s, nil
	}

	out := make([]models.Segment, 0, len(segments))
	for _, seg := range segments {
		left, err := resolve(seg.Left)
		if err != nil {
			return nil, err
		}
		right, err := resolve(seg.Right)
		if err != nil {
			return nil, err
		}
		s, err := models.NewSegment(left, right, seg.Distance)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// isUniqueViolation recognises unique-constraint failures from either driver
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func lineNotFound(id int64) error {
	return models.NewNotFoundError(models.CodeLineNotFound, "line %d not found", id)
}

func duplicateLine(name string) error {
	return models.NewConflictError(models.CodeDuplicateLineName, "line %q already exists", name)
}

func duplicateStation(name string) error {
	return models.NewConflictError(models.CodeDuplicateStationName, "station %q already exists", name)
}

func staleRevision(id int64) error {
	return models.NewConflictError(models.CodeStaleRevision,
		"line %d was changed by another writer; reload and retry", id)
}
