package service

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/subway-path/internal/metrics"
	"github.com/you/subway-path/models"
	"github.com/you/subway-path/repository"
)

func setupService(t *testing.T) (*LineService, *repository.SQLiteLineRepository, *prometheus.Registry) {
	t.Helper()

	sdb, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "subway.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })
	require.NoError(t, sdb.EnsureSchema(context.Background()))

	repo := repository.NewSQLiteLineRepository(sdb)
	reg := prometheus.NewRegistry()
	svc := NewLineService(repo, WithMetrics(metrics.New(reg)), WithLockTTL(time.Second))
	return svc, repo, reg
}

func routeNames(line *models.Line) []string {
	var names []string
	for _, s := range line.Route() {
		names = append(names, s.Name)
	}
	return names
}

func TestAddSegmentBuildsLine(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	line, err := svc.CreateLine(ctx, "Line 2")
	require.NoError(t, err)

	res, err := svc.AddSegment(ctx, line.ID(), "Jamsil", "Seolleung", 10)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	res, err = svc.AddSegment(ctx, line.ID(), "Jamsil", "Gangnam", 4)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, []string{"Jamsil", "Gangnam", "Seolleung"}, routeNames(res.Line))

	loaded, err := svc.GetLine(ctx, line.ID())
	require.NoError(t, err)
	assert.Equal(t, res.Line.Segments(), loaded.Segments())
	assert.Equal(t, 10, loaded.TotalDistance())
}

func TestAddSegmentIgnoresDisconnectedSegment(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	line, err := svc.CreateLine(ctx, "Line 2")
	require.NoError(t, err)
	_, err = svc.AddSegment(ctx, line.ID(), "A", "B", 5)
	require.NoError(t, err)

	res, err := svc.AddSegment(ctx, line.ID(), "X", "Y", 3)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, []string{"A", "B"}, routeNames(res.Line))

	// Stations of an ignored segment are never created
	_, err = repo.FindStationByName(ctx, "X")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAddSegmentRejectsBadInput(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	line, err := svc.CreateLine(ctx, "Line 2")
	require.NoError(t, err)
	_, err = svc.AddSegment(ctx, line.ID(), "A", "B", 5)
	require.NoError(t, err)

	cases := []struct {
		name        string
		left, right string
		distance    int
		code        string
	}{
		{"zero distance", "B", "C", 0, models.CodeNonPositiveDistance},
		{"blank station", " ", "C", 2, models.CodeBlankStationName},
		{"self loop", "C", "C", 2, models.CodeSameStation},
		{"split too long", "A", "C", 5, models.CodeSplitTooLong},
		{"already linked", "B", "A", 1, models.CodeStationsAlreadyLinked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddSegment(ctx, line.ID(), tc.left, tc.right, tc.distance)
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.Equal(t, tc.code, models.CodeOf(err))
		})
	}

	_, err = repo.FindStationByName(ctx, "C")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.AddSegment(ctx, 999, "A", "B", 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// racingStore saves the line once more behind the caller's back right
// before each save, as a writer that skipped the lock would.
type racingStore struct {
	*repository.SQLiteLineRepository
}

func (r racingStore) SaveLine(ctx context.Context, line *models.Line) (*models.Line, error) {
	other, err := r.LoadLine(ctx, line.ID())
	if err != nil {
		return nil, err
	}
	if _, err := r.SQLiteLineRepository.SaveLine(ctx, other); err != nil {
		return nil, err
	}
	return r.SQLiteLineRepository.SaveLine(ctx, line)
}

func TestFailedSaveLeavesNoStations(t *testing.T) {
	_, repo, _ := setupService(t)
	svc := NewLineService(racingStore{repo})
	ctx := context.Background()

	line, err := svc.CreateLine(ctx, "Line 2")
	require.NoError(t, err)

	_, err = svc.AddSegment(ctx, line.ID(), "X", "Y", 3)
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Equal(t, models.CodeStaleRevision, models.CodeOf(err))

	for _, name := range []string{"X", "Y"} {
		_, err = repo.FindStationByName(ctx, name)
		assert.ErrorIs(t, err, models.ErrNotFound, name)
	}
}

func TestAddSegmentReusesStationsFromOtherLines(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	line2, err := svc.CreateLine(ctx, "Line 2")
	require.NoError(t, err)
	line9, err := svc.CreateLine(ctx, "Line 9")
	require.NoError(t, err)

	first, err := svc.AddSegment(ctx, line2.ID(), "Jamsil", "Sports Complex", 3)
	require.NoError(t, err)
	second, err := svc.AddSegment(ctx, line9.ID(), "Sports Complex", "Samjeon", 2)
	require.NoError(t, err)

	assert.Equal(t, first.Line.Route()[1], second.Line.Route()[0])
	all, err := svc.ListStations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMergeBeyondMaxDistanceIsRejected(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	line, err := svc.CreateLine(ctx, "Line 2")
	require.NoError(t, err)
	_, err = svc.AddSegment(ctx, line.ID(), "A", "B", models.MaxDistance)
	require.NoError(t, err)
	_, err = svc.AddSegment(ctx, line.ID(), "B", "C", models.MaxDistance)
	require.NoError(t, err)

	_, err = svc.DeleteStation(ctx, line.ID(), "B")
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, models.CodeDistanceTooLong, models.CodeOf(err))

	_, err = svc.AddSegment(ctx, line.ID(), "C", "D", models.MaxDistance+1)
	assert.Equal(t, models.CodeDistanceTooLong, models.CodeOf(err))

	loaded, err := svc.GetLine(ctx, line.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, routeNames(loaded))
}

func TestDeleteStation(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	line, err := svc.CreateLine(ctx, "Line 2")
	require.NoError(t, err)
	for _, s := range [][2]string{{"A", "B"}, {"B", "C"}, {"C", "D"}} {
		_, err := svc.AddSegment(ctx, line.ID(), s[0], s[1], 3)
		require.NoError(t, err)
	}

	updated, err := svc.DeleteStation(ctx, line.ID(), "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D"}, routeNames(updated))
	assert.Equal(t, 9, updated.TotalDistance())

	updated, err = svc.DeleteStation(ctx, line.ID(), "D")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, routeNames(updated))

	_, err = svc.DeleteStation(ctx, line.ID(), "B")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.DeleteStation(ctx, line.ID(), "Nowhere")
	assert.ErrorIs(t, err, models.ErrNotFound)

	updated, err = svc.DeleteStation(ctx, line.ID(), "A")
	require.NoError(t, err)
	assert.Empty(t, updated.Route())
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	line, err := svc.CreateLine(ctx, "Line 9")
	require.NoError(t, err)
	_, err = svc.AddSegment(ctx, line.ID(), "S0", "S1", 100)
	require.NoError(t, err)

	// Writers race to split the first segment. Some lose on distance, but
	// with the line lock none of them may see a stale revision.
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.AddSegment(ctx, line.ID(), "S0", "T"+string(rune('a'+i)), 50-5*i)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	applied := 0
	for err := range errs {
		if err == nil {
			applied++
			continue
		}
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Equal(t, models.CodeSplitTooLong, models.CodeOf(err))
	}
	assert.GreaterOrEqual(t, applied, 1)

	loaded, err := svc.GetLine(ctx, line.ID())
	require.NoError(t, err)
	assert.Equal(t, 1+applied, loaded.SegmentCount())
	assert.Equal(t, 100, loaded.TotalDistance())
}

func TestDeleteLine(t *testing.T) {
	svc, _, reg := setupService(t)
	ctx := context.Background()

	line, err := svc.CreateLine(ctx, "Line 2")
	require.NoError(t, err)
	_, err = svc.CreateLine(ctx, "Line 2")
	assert.ErrorIs(t, err, models.ErrConflict)

	require.NoError(t, svc.DeleteLine(ctx, line.ID()))
	assert.ErrorIs(t, svc.DeleteLine(ctx, line.ID()), models.ErrNotFound)

	lines, err := svc.ListLines(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)
	count, err := testutil.GatherAndCount(reg, "subway_line_segments")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStations(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateStation(ctx, "Jamsil")
	require.NoError(t, err)
	_, err = svc.CreateStation(ctx, "Jamsil")
	assert.ErrorIs(t, err, models.ErrConflict)

	got, err := svc.GetStation(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	all, err := svc.ListStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Station{created}, all)

	assert.NoError(t, svc.Ping(ctx))
}

func TestMutationMetrics(t *testing.T) {
	svc, _, reg := setupService(t)
	ctx := context.Background()

	line, err := svc.CreateLine(ctx, "Line 2")
	require.NoError(t, err)
	_, err = svc.AddSegment(ctx, line.ID(), "A", "B", 5)
	require.NoError(t, err)
	_, err = svc.AddSegment(ctx, line.ID(), "X", "Y", 5)
	require.NoError(t, err)
	_, err = svc.AddSegment(ctx, line.ID(), "A", "C", 9)
	require.Error(t, err)

	expected := `
# HELP subway_line_mutations_total Line mutations by operation and outcome
# TYPE subway_line_mutations_total counter
subway_line_mutations_total{op="add_segment",outcome="applied"} 1
subway_line_mutations_total{op="add_segment",outcome="ignored"} 1
subway_line_mutations_total{op="add_segment",outcome="rejected"} 1
# HELP subway_line_segments Segments currently stored per line
# TYPE subway_line_segments gauge
subway_line_segments{line="Line 2"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"subway_line_mutations_total", "subway_line_segments"))
}
