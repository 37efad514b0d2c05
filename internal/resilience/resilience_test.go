package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/pkg/cache"
	"github.com/tribu-research/challenge-backend/pkg/clock"
)

var fast = RetryPolicy{Attempts: 3, Delay: time.Millisecond}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient kind", fmt.Errorf("query: %w", apperr.ErrTransient), true},
		{"connection exception", &pgconn.PgError{Code: "08006"}, true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"network", &net.DNSError{Err: "timeout", IsTimeout: true}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"not found", apperr.ErrPresentationNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	var calls int32
	v, err := Do(context.Background(), fast, nil, "op", func() (int, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return 0, apperr.ErrTransient
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.EqualValues(t, 3, calls)
}

func TestDoStopsAfterAttempts(t *testing.T) {
	var calls int32
	_, err := Do(context.Background(), fast, nil, "op", func() (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, apperr.ErrTransient
	})
	require.ErrorIs(t, err, apperr.ErrTransient)
	assert.EqualValues(t, 3, calls)
}

func TestDoDoesNotRetryPermanent(t *testing.T) {
	var calls int32
	_, err := Do(context.Background(), fast, nil, "op", func() (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, apperr.ErrPresentationNotFound
	})
	require.ErrorIs(t, err, apperr.ErrPresentationNotFound)
	assert.EqualValues(t, 1, calls)
}

type fakeSource struct {
	failures int32
	calls    int32
	week     *models.WeekPresentations
}

func (f *fakeSource) LoadCurrentWeek(context.Context, time.Time) (*models.WeekPresentations, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= atomic.LoadInt32(&f.failures) {
		return nil, apperr.ErrTransient
	}
	return f.week, nil
}

func (f *fakeSource) EmptyWeek(time.Time) *models.WeekPresentations {
	return &models.WeekPresentations{WeekStart: "04 March 2025", WeekEnd: "10 March 2025", Presentations: []models.PresentationView{}}
}

func (f *fakeSource) CurrentWeekRange(now time.Time) (time.Time, time.Time) {
	start := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 7)
}

func week(names ...string) *models.WeekPresentations {
	w := &models.WeekPresentations{WeekStart: "04 March 2025", WeekEnd: "10 March 2025"}
	for _, n := range names {
		w.Presentations = append(w.Presentations, models.PresentationView{Name: n})
	}
	return w
}

func TestCurrentWeekRecoversAfterTransientFailures(t *testing.T) {
	src := &fakeSource{failures: 2, week: week("Ana")}
	r := NewCurrentWeek(src, nil, clock.NewManual(time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)), time.Minute, fast, nil)

	got := r.CurrentWeek(context.Background())
	require.Len(t, got.Presentations, 1)
	assert.Equal(t, "Ana", got.Presentations[0].Name)
	assert.EqualValues(t, 3, src.calls)
}

func TestCurrentWeekFallsBackToEmpty(t *testing.T) {
	src := &fakeSource{failures: 100, week: week("Ana")}
	r := NewCurrentWeek(src, nil, clock.NewManual(time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)), time.Minute, fast, nil)

	got := r.CurrentWeek(context.Background())
	require.NotNil(t, got)
	assert.Empty(t, got.Presentations)
	assert.Equal(t, "04 March 2025", got.WeekStart)
	assert.EqualValues(t, 3, src.calls)
}

func TestCurrentWeekServesCache(t *testing.T) {
	src := &fakeSource{week: week("Ana", "Bo")}
	lru := cache.NewLRUCache(8, time.Minute)
	r := NewCurrentWeek(src, lru, clock.NewManual(time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)), time.Minute, fast, nil)

	first := r.CurrentWeek(context.Background())
	require.Len(t, first.Presentations, 2)

	atomic.StoreInt32(&src.failures, 100)
	second := r.CurrentWeek(context.Background())
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, src.calls)
}

func TestRefreshRewritesCache(t *testing.T) {
	src := &fakeSource{week: week("Ana")}
	lru := cache.NewLRUCache(8, time.Minute)
	r := NewCurrentWeek(src, lru, clock.NewManual(time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)), time.Minute, fast, nil)

	require.Len(t, r.CurrentWeek(context.Background()).Presentations, 1)

	src.week = week("Ana", "Bo", "Cy")
	require.NoError(t, r.Refresh(context.Background()))
	assert.Len(t, r.CurrentWeek(context.Background()).Presentations, 3)

	atomic.StoreInt32(&src.failures, 1000)
	err := r.Refresh(context.Background())
	assert.True(t, errors.Is(err, apperr.ErrTransient))
}
