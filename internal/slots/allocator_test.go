package slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dates is a Counter over an in-memory list of scheduled dates.
type dates []time.Time

func (d dates) CountScheduled(_ context.Context, from, to time.Time) (int, error) {
	n := 0
	for _, t := range d {
		if !t.Before(from) && t.Before(to) {
			n++
		}
	}
	return n, nil
}

type failing struct{}

func (failing) CountScheduled(context.Context, time.Time, time.Time) (int, error) {
	return 0, errors.New("connection refused")
}

var monday = time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

func TestNextUnderCapacityLandsOnThisWeek(t *testing.T) {
	a := New(5, WindowWeek, 18, 0)
	got, err := a.Next(context.Background(), monday, dates{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC), got)
}

func TestNextAdvancesWhenPeriodFull(t *testing.T) {
	for _, max := range []int{5, 6} {
		for _, window := range []Window{WindowWeek, WindowDay} {
			a := New(max, window, 18, 0)
			var scheduled dates
			for i := 0; i < max; i++ {
				got, err := a.Next(context.Background(), monday, scheduled)
				require.NoError(t, err)
				require.Equal(t, time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC), got, "max=%d window=%s call=%d", max, window, i)
				scheduled = append(scheduled, got)
			}
			got, err := a.Next(context.Background(), monday, scheduled)
			require.NoError(t, err)
			assert.Equal(t, time.Date(2025, 3, 11, 18, 0, 0, 0, time.UTC), got, "max=%d window=%s", max, window)
		}
	}
}

func TestNextSkipsSeveralFullWeeks(t *testing.T) {
	a := New(1, WindowWeek, 18, 0)
	scheduled := dates{
		time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 11, 18, 0, 0, 0, time.UTC),
	}
	got, err := a.Next(context.Background(), monday, scheduled)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 18, 18, 0, 0, 0, time.UTC), got)
}

func TestNextNeverLooksBackward(t *testing.T) {
	a := New(5, WindowWeek, 18, 0)
	wednesday := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	got, err := a.Next(context.Background(), wednesday, dates{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 11, 18, 0, 0, 0, time.UTC), got)
}

func TestNextPropagatesCountError(t *testing.T) {
	_, err := New(5, WindowWeek, 18, 0).Next(context.Background(), monday, failing{})
	assert.ErrorContains(t, err, "connection refused")
}

func TestNextHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(5, WindowWeek, 18, 0).Next(ctx, monday, dates{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("day")
	require.NoError(t, err)
	assert.Equal(t, WindowDay, w)

	_, err = ParseWindow("month")
	assert.Error(t, err)
}
