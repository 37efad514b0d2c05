package videos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/memstore"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/pkg/clock"
)

var assignedAt = time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store *memstore.Store
	clock *clock.Manual
	svc   *Service
}

func newFixture() *fixture {
	store := memstore.New()
	store.Challenge().Set(models.ChallengeStatus{CurrentMonth: 3, CurrentYear: 2025})
	clk := clock.NewManual(assignedAt.Add(24 * time.Hour))
	svc := NewService(store.Videos(), store.Presentations(), store.Assignments(), store.Challenge(), clk, time.UTC, nil)
	return &fixture{store: store, clock: clk, svc: svc}
}

func (f *fixture) scheduled(t *testing.T, at time.Time) *models.Assignment {
	t.Helper()
	ctx := context.Background()
	a := &models.Assignment{ResearcherID: uuid.New(), AgentID: uuid.New(), Role: models.RolePrimary, AssignedAt: at}
	require.NoError(t, f.store.Assignments().Create(ctx, a))
	p := &models.Presentation{AssignmentID: a.ID, PresentationDate: time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC), Status: models.PresentationScheduled}
	require.NoError(t, f.store.Presentations().Insert(ctx, p))
	return a
}

func upload(a *models.Assignment) UploadRequest {
	return UploadRequest{AssignmentID: a.ID, Title: "Demo", VideoURL: "https://youtu.be/x"}
}

func TestUploadAdvancesPresentation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a := f.scheduled(t, assignedAt)

	v, err := f.svc.Upload(ctx, upload(a))
	require.NoError(t, err)
	assert.Equal(t, models.VideoUploaded, v.Status)

	p, err := f.store.Presentations().GetByAssignment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PresentationVideoUploaded, p.Status)

	_, err = f.svc.Upload(ctx, upload(a))
	assert.ErrorIs(t, err, apperr.ErrDuplicateVideo)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestSecondUploadIsDuplicateEvenWhenNoLongerEligible(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a := f.scheduled(t, assignedAt)
	first, err := f.svc.Upload(ctx, upload(a))
	require.NoError(t, err)

	f.clock.Set(time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC))
	_, err = f.svc.Upload(ctx, upload(a))
	assert.ErrorIs(t, err, apperr.ErrDuplicateVideo)
	assert.NotErrorIs(t, err, apperr.ErrUploadNotAllowed)

	require.NoError(t, f.store.Assignments().UpdateStatus(ctx, a.ID, models.AssignmentActive, models.AssignmentDone))
	_, err = f.svc.Upload(ctx, upload(a))
	assert.ErrorIs(t, err, apperr.ErrDuplicateVideo)

	got, err := f.store.Videos().GetByAssignment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = f.store.Videos().GetByAssignment(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrVideoNotFound)
}

func TestUploadEligibility(t *testing.T) {
	ctx := context.Background()

	t.Run("other challenge month", func(t *testing.T) {
		f := newFixture()
		a := f.scheduled(t, time.Date(2025, 2, 27, 10, 0, 0, 0, time.UTC))
		_, err := f.svc.Upload(ctx, upload(a))
		assert.ErrorIs(t, err, apperr.ErrUploadNotAllowed)
	})

	t.Run("inactive assignment", func(t *testing.T) {
		f := newFixture()
		a := f.scheduled(t, assignedAt)
		require.NoError(t, f.store.Assignments().UpdateStatus(ctx, a.ID, models.AssignmentActive, models.AssignmentDone))
		_, err := f.svc.Upload(ctx, upload(a))
		assert.ErrorIs(t, err, apperr.ErrUploadNotAllowed)
	})

	t.Run("last day of upload window", func(t *testing.T) {
		f := newFixture()
		a := f.scheduled(t, assignedAt)
		f.clock.Set(time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC))
		_, err := f.svc.Upload(ctx, upload(a))
		assert.NoError(t, err)
	})

	t.Run("after upload window", func(t *testing.T) {
		f := newFixture()
		a := f.scheduled(t, assignedAt)
		f.clock.Set(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC))
		_, err := f.svc.Upload(ctx, upload(a))
		assert.ErrorIs(t, err, apperr.ErrUploadNotAllowed)
	})

	t.Run("unknown assignment", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Upload(ctx, UploadRequest{AssignmentID: uuid.New()})
		assert.ErrorIs(t, err, apperr.ErrAssignmentNotFound)
	})
}

func TestVotingWindowLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a := f.scheduled(t, assignedAt)
	_, err := f.svc.Upload(ctx, upload(a))
	require.NoError(t, err)

	list, err := f.svc.InVotingPeriod(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	tuesday := time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC)
	n, err := f.svc.OpenVoting(ctx, tuesday)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.clock.Set(tuesday.Add(time.Hour))
	list, err = f.svc.InVotingPeriod(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, time.Date(2025, 3, 9, 23, 59, 59, 0, time.UTC), *list[0].VotingEnd)

	n, err = f.svc.CloseVoting(ctx, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := f.svc.CurrentMonth(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.VideoClosed, all[0].Status)
}
