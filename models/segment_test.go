package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDistance(t *testing.T) {
	for _, v := range []int{0, -1, -100} {
		_, err := NewDistance(v)
		assert.ErrorIs(t, err, ErrValidation, "value %d", v)
		assert.Equal(t, CodeNonPositiveDistance, CodeOf(err))
	}

	d, err := NewDistance(7)
	require.NoError(t, err)
	assert.Equal(t, 7, d.Int())

	d, err = NewDistance(MaxDistance)
	require.NoError(t, err)
	assert.Equal(t, MaxDistance, d.Int())

	_, err = NewDistance(MaxDistance + 1)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, CodeDistanceTooLong, CodeOf(err))
}

func TestDistanceArithmetic(t *testing.T) {
	sum, err := Distance(5).Add(7)
	require.NoError(t, err)
	assert.Equal(t, Distance(12), sum)

	sum, err = Distance(MaxDistance - 1).Add(1)
	require.NoError(t, err)
	assert.Equal(t, Distance(MaxDistance), sum)

	_, err = Distance(MaxDistance).Add(MaxDistance)
	assert.Equal(t, CodeDistanceTooLong, CodeOf(err))

	rest, err := Distance(7).Sub(3)
	require.NoError(t, err)
	assert.Equal(t, Distance(4), rest)

	_, err = Distance(7).Sub(7)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewSegmentRejectsSameStation(t *testing.T) {
	a := Station{ID: 1, Name: "A"}

	_, err := NewSegment(a, Station{Name: "A"}, 3)
	assert.Equal(t, CodeSameStation, CodeOf(err))

	// Two stored stations sharing a name are still the same stop.
	_, err = NewSegment(a, Station{ID: 2, Name: "A"}, 3)
	assert.Equal(t, CodeSameStation, CodeOf(err))

	_, err = NewSegment(a, Station{ID: 2, Name: "B"}, 0)
	assert.Equal(t, CodeNonPositiveDistance, CodeOf(err))
}

func TestStationIdentity(t *testing.T) {
	stored := Station{ID: 1, Name: "A"}

	assert.True(t, stored.Same(Station{ID: 1, Name: "renamed"}))
	assert.False(t, stored.Same(Station{ID: 2, Name: "A"}))
	assert.True(t, stored.Same(Station{Name: "A"}))
	assert.False(t, stored.Same(Station{Name: "B"}))

	_, err := NewStation("   ")
	assert.Equal(t, CodeBlankStationName, CodeOf(err))

	s, err := NewStation("  Gangnam ")
	require.NoError(t, err)
	assert.Equal(t, "Gangnam", s.Name)
	assert.False(t, s.Persisted())
}

func TestSegmentHasStation(t *testing.T) {
	s := Segment{Left: Station{ID: 1, Name: "A"}, Right: Station{ID: 2, Name: "B"}, Distance: 3}

	assert.True(t, s.HasStation(Station{ID: 2, Name: "B"}))
	assert.False(t, s.HasStation(Station{ID: 3, Name: "C"}))
}
