package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/pkg/clock"
)

var firing = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	keys []string
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	l.keys = append(l.keys, key)
	if l.held[key] {
		return func() {}, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

type fakeWinners struct {
	weekly, monthly []time.Time
	closesMonth     bool
	monthlyErr      error
}

func (f *fakeWinners) RunWeekly(_ context.Context, now time.Time) (*models.PresentationDetail, error) {
	f.weekly = append(f.weekly, now)
	return nil, nil
}

func (f *fakeWinners) RunMonthly(_ context.Context, now time.Time) (*models.PresentationDetail, error) {
	f.monthly = append(f.monthly, now)
	return nil, f.monthlyErr
}

func (f *fakeWinners) ClosesMonth(time.Time) bool { return f.closesMonth }

type fakeWindow struct {
	opened, closed int
	err            error
}

func (f *fakeWindow) OpenVoting(context.Context, time.Time) (int, error) {
	f.opened++
	return 1, f.err
}

func (f *fakeWindow) CloseVoting(context.Context, time.Time) (int, error) {
	f.closed++
	return 1, f.err
}

type fakeArchiver struct{ calls int }

func (f *fakeArchiver) ArchivePrevious(context.Context, time.Time) error {
	f.calls++
	return nil
}

type refreshFunc func(ctx context.Context) error

func (f refreshFunc) Refresh(ctx context.Context) error { return f(ctx) }

func TestMonthlyJobSkipsMonthStillVoting(t *testing.T) {
	w := &fakeWinners{monthlyErr: apperr.Reason(apperr.ErrMonthStillVoting, "week of 2025-10-28")}
	arch := &fakeArchiver{}
	s := New(time.UTC, clock.NewManual(firing), nil, nil)
	require.NoError(t, s.RegisterAll(ChallengeJobs(Deps{Winners: w, Archiver: arch}, DefaultSpecs)))

	require.NoError(t, s.RunNow(context.Background(), JobMonthlyWinner))
	assert.Len(t, w.monthly, 1)
	assert.Zero(t, arch.calls)
}

func TestWeeklyJobSettlesMonthItCloses(t *testing.T) {
	ctx := context.Background()
	w := &fakeWinners{}
	arch := &fakeArchiver{}
	s := New(time.UTC, clock.NewManual(firing), nil, nil)
	require.NoError(t, s.RegisterAll(ChallengeJobs(Deps{Winners: w, Archiver: arch}, DefaultSpecs)))

	require.NoError(t, s.RunNow(ctx, JobWeeklyWinner))
	assert.Empty(t, w.monthly)
	assert.Zero(t, arch.calls)

	w.closesMonth = true
	require.NoError(t, s.RunNow(ctx, JobWeeklyWinner))
	assert.Len(t, w.weekly, 2)
	assert.Equal(t, []time.Time{firing}, w.monthly)
	assert.Equal(t, 1, arch.calls)
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	s := New(time.UTC, clock.NewManual(firing), nil, nil)
	err := s.Register(Job{Name: "bad", Spec: "every tuesday", Run: func(context.Context, time.Time) error { return nil }})
	require.Error(t, err)

	ok := Job{Name: "ok", Spec: "0 0 * * MON", Run: func(context.Context, time.Time) error { return nil }}
	require.NoError(t, s.Register(ok))
	require.Error(t, s.Register(ok))
}

func TestChallengeJobsRunNow(t *testing.T) {
	w := &fakeWinners{}
	pres, vids := &fakeWindow{}, &fakeWindow{}
	arch := &fakeArchiver{}
	refreshed := 0
	jobs := ChallengeJobs(Deps{
		Winners: w, Presentations: pres, Videos: vids, Archiver: arch,
		CurrentWeek: refreshFunc(func(context.Context) error { refreshed++; return nil }),
	}, DefaultSpecs)

	s := New(time.UTC, clock.NewManual(firing), nil, nil)
	require.NoError(t, s.RegisterAll(jobs))
	assert.Equal(t, []string{JobCacheRefresh, JobMonthlyWinner, JobVotingClose, JobVotingOpen, JobWeeklyWinner}, s.Jobs())

	ctx := context.Background()
	require.NoError(t, s.RunNow(ctx, JobWeeklyWinner))
	require.NoError(t, s.RunNow(ctx, JobMonthlyWinner))
	require.NoError(t, s.RunNow(ctx, JobVotingOpen))
	require.NoError(t, s.RunNow(ctx, JobVotingClose))
	require.NoError(t, s.RunNow(ctx, JobCacheRefresh))

	assert.Equal(t, []time.Time{firing}, w.weekly)
	assert.Equal(t, []time.Time{firing}, w.monthly)
	assert.Equal(t, 1, arch.calls)
	assert.Equal(t, 1, pres.opened)
	assert.Equal(t, 1, vids.opened)
	assert.Equal(t, 1, pres.closed)
	assert.Equal(t, 1, vids.closed)
	assert.Equal(t, 1, refreshed)

	assert.ErrorIs(t, s.RunNow(ctx, "nope"), ErrUnknownJob)
}

func TestVotingJobJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	pres, vids := &fakeWindow{err: boom}, &fakeWindow{}
	s := New(time.UTC, clock.NewManual(firing), nil, nil)
	require.NoError(t, s.RegisterAll(ChallengeJobs(Deps{Presentations: pres, Videos: vids}, DefaultSpecs)))

	err := s.RunNow(context.Background(), JobVotingOpen)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, vids.opened)
}

func TestSingletonSkipsWhenLockHeld(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{"job:" + JobWeeklyWinner + ":manual": true}}
	w := &fakeWinners{}
	s := New(time.UTC, clock.NewManual(firing), locker, nil)
	require.NoError(t, s.RegisterAll(ChallengeJobs(Deps{Winners: w}, DefaultSpecs)))

	require.NoError(t, s.RunNow(context.Background(), JobWeeklyWinner))
	assert.Empty(t, w.weekly)

	delete(locker.held, "job:"+JobWeeklyWinner+":manual")
	require.NoError(t, s.RunNow(context.Background(), JobWeeklyWinner))
	assert.Len(t, w.weekly, 1)
	assert.Empty(t, locker.held)
}

func TestFireLocksPerMinute(t *testing.T) {
	locker := &fakeLocker{}
	w := &fakeWinners{}
	clk := clock.NewManual(firing.Add(15 * time.Second))
	s := New(time.UTC, clk, locker, nil)
	require.NoError(t, s.RegisterAll(ChallengeJobs(Deps{Winners: w}, DefaultSpecs)))

	job := s.jobs[JobWeeklyWinner]
	s.fire(job)
	s.fire(job)
	assert.Len(t, w.weekly, 1)
	assert.Equal(t, "job:weekly-winner:2025-03-10T00:00:00Z", locker.keys[0])

	clk.Advance(7 * 24 * time.Hour)
	s.fire(job)
	assert.Len(t, w.weekly, 2)
}

func TestHandlerRun(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := &fakeWinners{}
	s := New(time.UTC, clock.NewManual(firing), nil, nil)
	require.NoError(t, s.RegisterAll(ChallengeJobs(Deps{Winners: w}, DefaultSpecs)))

	r := gin.New()
	h := NewHandler(s)
	r.POST("/admin/jobs/:name/run", h.Run)
	r.GET("/admin/jobs", h.List)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/jobs/weekly-winner/run", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, w.weekly, 1)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/jobs/unknown/run", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Jobs []string `json:"jobs"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{JobMonthlyWinner, JobWeeklyWinner}, body.Data.Jobs)
}
