package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/you/subway-path/internal/lock"
	"github.com/you/subway-path/internal/logging"
	"github.com/you/subway-path/internal/metrics"
	"github.com/you/subway-path/models"
)

// Store defines the persistence operations the service needs
type Store interface {
	Ping(ctx context.Context) error

	CreateStation(ctx context.Context, name string) (models.Station, error)
	FindStationByName(ctx context.Context, name string) (models.Station, error)
	GetStation(ctx context.Context, id int64) (models.Station, error)
	ListStations(ctx context.Context) ([]models.Station, error)

	CreateLine(ctx context.Context, name string) (*models.Line, error)
	ListLines(ctx context.Context) ([]*models.Line, error)
	LoadLine(ctx context.Context, id int64) (*models.Line, error)
	// SaveLine also stores any station of the line that has no id yet,
	// in the same transaction as the segments.
	SaveLine(ctx context.Context, line *models.Line) (*models.Line, error)
	DeleteLine(ctx context.Context, id int64) error
}

// Mutation names used in logs and metrics
const (
	OpAddSegment    = "add_segment"
	OpDeleteStation = "delete_station"
	OpDeleteLine    = "delete_line"
)

// LineService runs every line mutation as lock -> load -> mutate -> save,
// so one line never has two writers at once.
type LineService struct {
	store   Store
	locker  lock.Locker
	logger  *slog.Logger
	metrics *metrics.Metrics
	lockTTL time.Duration

	// lockWait caps how long a mutation queues behind another writer
	lockWait time.Duration
}

// Option configures a LineService
type Option func(*LineService)

// WithLocker replaces the in-process locker, e.g. with a RedisLocker
// shared by several API instances
func WithLocker(l lock.Locker) Option {
	return func(s *LineService) { s.locker = l }
}

// WithLogger sets the logger for mutation outcomes
func WithLogger(l *slog.Logger) Option {
	return func(s *LineService) { s.logger = l }
}

// WithMetrics enables mutation and segment-count metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LineService) { s.metrics = m }
}

// WithLockTTL bounds how long a crashed writer can keep a line locked
func WithLockTTL(ttl time.Duration) Option {
	return func(s *LineService) { s.lockTTL = ttl }
}

// WithLockTimeout bounds how long a mutation waits for the line lock
func WithLockTimeout(d time.Duration) Option {
	return func(s *LineService) { s.lockWait = d }
}

// NewLineService creates a service with an in-process locker and a
// silent logger unless options say otherwise
func NewLineService(store Store, opts ...Option) *LineService {
	s := &LineService{
		store:   store,
		locker:  lock.NewMemoryLocker(),
		logger:  logging.NewNop(),
		lockTTL: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddSegmentResult reports the line after an add and whether the
// segment was taken. A segment touching the path nowhere is ignored.
type AddSegmentResult struct {
	Line    *models.Line
	Applied bool
}

// Ping checks the store
func (s *LineService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// CreateStation stores a station that no line uses yet
func (s *LineService) CreateStation(ctx context.Context, name string) (models.Station, error) {
	station, err := s.store.CreateStation(ctx, name)
	if err != nil {
		return models.Station{}, err
	}
	s.logger.Info("station created", "station_id", station.ID, "station", station.Name)
	return station, nil
}

func (s *LineService) GetStation(ctx context.Context, id int64) (models.Station, error) {
	return s.store.GetStation(ctx, id)
}

func (s *LineService) ListStations(ctx context.Context) ([]models.Station, error) {
	return s.store.ListStations(ctx)
}

// CreateLine stores a new empty line
func (s *LineService) CreateLine(ctx context.Context, name string) (*models.Line, error) {
	line, err := s.store.CreateLine(ctx, name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("line created", "line_id", line.ID(), "line", line.Name())
	s.metrics.SetSegmentCount(line.Name(), 0)
	return line, nil
}

// GetLine loads a line with its segments in path order
func (s *LineService) GetLine(ctx context.Context, id int64) (*models.Line, error) {
	return s.store.LoadLine(ctx, id)
}

func (s *LineService) ListLines(ctx context.Context) ([]*models.Line, error) {
	return s.store.ListLines(ctx)
}

// DeleteLine removes a whole line
func (s *LineService) DeleteLine(ctx context.Context, id int64) error {
	start := time.Now()
	unlock, err := s.lock(ctx, id)
	if err != nil {
		s.finish(OpDeleteLine, id, start, err)
		return err
	}
	defer s.unlock(unlock, id)

	line, err := s.store.LoadLine(ctx, id)
	if err == nil {
		err = s.store.DeleteLine(ctx, id)
	}
	s.finish(OpDeleteLine, id, start, err)
	if err != nil {
		return err
	}

	s.metrics.ForgetLine(line.Name())
	return nil
}

// AddSegment links leftName to rightName on a line. New stations are
// stored together with the line, so a refused, ignored or failed add
// leaves none behind.
func (s *LineService) AddSegment(ctx context.Context, lineID int64, leftName, rightName string, distance int) (*AddSegmentResult, error) {
	d, err := models.NewDistance(distance)
	if err != nil {
		return nil, err
	}
	left, err := models.NewStation(leftName)
	if err != nil {
		return nil, err
	}
	right, err := models.NewStation(rightName)
	if err != nil {
		return nil, err
	}
	candidate, err := models.NewSegment(left, right, d)
	if err != nil {
		return nil, err
	}

	line, applied, err := s.mutate(ctx, OpAddSegment, lineID, func(line *models.Line) (bool, error) {
		// Unsaved stations match stored ones by name.
		before := line.SegmentCount()
		if err := line.AddSegment(candidate); err != nil {
			return false, err
		}
		return line.SegmentCount() != before, nil
	})
	if err != nil {
		return nil, err
	}

	if !applied {
		s.logger.Warn("segment does not connect to the line; ignored",
			"line_id", lineID, "left", left.Name, "right", right.Name, "distance", distance)
	}
	return &AddSegmentResult{Line: line, Applied: applied}, nil
}

// DeleteStation removes a station from a line, merging its neighbouring
// segments when it sits in the middle
func (s *LineService) DeleteStation(ctx context.Context, lineID int64, stationName string) (*models.Line, error) {
	station, err := models.NewStation(stationName)
	if err != nil {
		return nil, err
	}

	line, _, err := s.mutate(ctx, OpDeleteStation, lineID, func(line *models.Line) (bool, error) {
		stored, err := s.store.FindStationByName(ctx, station.Name)
		if err != nil {
			return false, err
		}
		if err := line.DeleteSegment(stored); err != nil {
			return false, err
		}
		return true, nil
	})
	return line, err
}

// mutate holds the line lock around load, apply and save. apply reports
// whether it changed the line; unchanged lines are not saved.
func (s *LineService) mutate(ctx context.Context, op string, lineID int64, apply func(*models.Line) (bool, error)) (*models.Line, bool, error) {
	start := time.Now()

	unlock, err := s.lock(ctx, lineID)
	if err != nil {
		s.finish(op, lineID, start, err)
		return nil, false, err
	}
	defer s.unlock(unlock, lineID)

	line, err := s.store.LoadLine(ctx, lineID)
	if err != nil {
		s.finish(op, lineID, start, err)
		return nil, false, err
	}

	applied, err := apply(line)
	if err != nil {
		s.finish(op, lineID, start, err)
		return nil, false, err
	}
	if !applied {
		s.metrics.ObserveMutation(op, metrics.OutcomeIgnored, time.Since(start))
		return line, false, nil
	}

	saved, err := s.store.SaveLine(ctx, line)
	s.finish(op, lineID, start, err)
	if err != nil {
		return nil, false, err
	}

	s.metrics.SetSegmentCount(saved.Name(), saved.SegmentCount())
	s.logger.Debug("line saved", "line_id", lineID, "revision", saved.Revision(), "segments", saved.SegmentCount())
	return saved, true, nil
}

func (s *LineService) lock(ctx context.Context, lineID int64) (lock.UnlockFunc, error) {
	if s.lockWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lockWait)
		defer cancel()
	}
	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("line:%d", lineID), s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock line %d: %w", lineID, err)
	}
	return unlock, nil
}

func (s *LineService) unlock(unlock lock.UnlockFunc, lineID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := unlock(ctx); err != nil {
		s.logger.Warn("failed to release line lock", "line_id", lineID, "error", err)
	}
}

// finish logs and counts a mutation that either succeeded or failed
func (s *LineService) finish(op string, lineID int64, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := outcomeOf(err)
	s.metrics.ObserveMutation(op, outcome, elapsed)

	switch outcome {
	case metrics.OutcomeApplied:
		s.logger.Info("line mutation applied", "op", op, "line_id", lineID, "elapsed", elapsed)
	case metrics.OutcomeError:
		s.logger.Error("line mutation failed", "op", op, "line_id", lineID, "error", err)
	default:
		s.logger.Info("line mutation refused", "op", op, "line_id", lineID,
			"outcome", outcome, "code", models.CodeOf(err), "error", err)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeApplied
	case models.IsKind(err, models.KindConflict):
		return metrics.OutcomeConflict
	case models.IsKind(err, models.KindValidation), models.IsKind(err, models.KindNotFound):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
