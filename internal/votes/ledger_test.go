package votes

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/calendar"
	"github.com/tribu-research/challenge-backend/internal/memstore"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/pkg/clock"
)

var week10Tuesday = time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	rooms  []string
	events []string
}

func (r *recorder) Publish(room, event string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, room)
	r.events = append(r.events, event)
}

type fixture struct {
	store  *memstore.Store
	clock  *clock.Manual
	events *recorder
}

func newFixture() *fixture {
	return &fixture{
		store:  memstore.New(),
		clock:  clock.NewManual(week10Tuesday.Add(time.Hour)),
		events: &recorder{},
	}
}

func (f *fixture) ledger(opts Options) *Ledger {
	opts.Publisher = f.events
	return NewLedger(f.store.Presentations(), f.store.Videos(), f.store.Votes(), f.clock, opts, nil)
}

func (f *fixture) presentation(t *testing.T, date time.Time, status models.PresentationStatus) *models.Presentation {
	t.Helper()
	period := calendar.PeriodOf(date)
	p := &models.Presentation{
		AssignmentID: uuid.New(), PresentationDate: date, Status: status,
		Week: period.Week, Month: period.Month, Year: period.Year,
	}
	require.NoError(t, f.store.Presentations().Insert(context.Background(), p))
	return p
}

func TestRegisterVoteDuplicateInSameWeek(t *testing.T) {
	f := newFixture()
	l := f.ledger(Options{})
	p := f.presentation(t, week10Tuesday, models.PresentationVotingOpen)
	voter := uuid.New()

	res, err := l.RegisterVote(context.Background(), p.ID, voter)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Votes)
	assert.Equal(t, 1, res.MonthlyVotes)

	_, err = l.RegisterVote(context.Background(), p.ID, voter)
	assert.ErrorIs(t, err, apperr.ErrDuplicateVote)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err := f.store.Presentations().GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.WeeklyVotes)
	assert.Equal(t, 1, got.MonthlyVotes)

	assert.Equal(t, []string{"2025-03-04"}, f.events.rooms)
	assert.Equal(t, []string{EventVoteRegistered}, f.events.events)
}

func TestRegisterVotePeriodPolicyCoversWholeWeek(t *testing.T) {
	f := newFixture()
	l := f.ledger(Options{Policy: PeriodPolicy{}})
	a := f.presentation(t, week10Tuesday, models.PresentationVotingOpen)
	b := f.presentation(t, week10Tuesday, models.PresentationVotingOpen)
	voter := uuid.New()

	_, err := l.RegisterVote(context.Background(), a.ID, voter)
	require.NoError(t, err)
	_, err = l.RegisterVote(context.Background(), b.ID, voter)
	assert.ErrorIs(t, err, apperr.ErrDuplicateVote)
}

func TestRegisterVoteTargetPolicyAllowsOnePerPresentation(t *testing.T) {
	f := newFixture()
	l := f.ledger(Options{Policy: TargetPolicy{}})
	a := f.presentation(t, week10Tuesday, models.PresentationVotingOpen)
	b := f.presentation(t, week10Tuesday, models.PresentationVotingOpen)
	voter := uuid.New()

	_, err := l.RegisterVote(context.Background(), a.ID, voter)
	require.NoError(t, err)
	_, err = l.RegisterVote(context.Background(), b.ID, voter)
	require.NoError(t, err)
	_, err = l.RegisterVote(context.Background(), a.ID, voter)
	assert.ErrorIs(t, err, apperr.ErrDuplicateVote)
}

func TestRegisterVoteWindow(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want error
	}{
		{"before presentation", week10Tuesday.Add(-time.Minute), apperr.ErrVotingNotYetOpen},
		{"at presentation", week10Tuesday, nil},
		{"last second of sunday", time.Date(2025, 3, 9, 23, 59, 59, 0, time.UTC), nil},
		{"monday after", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), apperr.ErrVotingClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.clock.Set(tt.now)
			p := f.presentation(t, week10Tuesday, models.PresentationVotingOpen)

			_, err := f.ledger(Options{}).RegisterVote(context.Background(), p.ID, uuid.New())
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, apperr.ErrInvalidState)

			got, err := f.store.Presentations().GetByID(context.Background(), p.ID)
			require.NoError(t, err)
			assert.Zero(t, got.WeeklyVotes)
		})
	}
}

func TestRegisterVoteRequiresVotingOpen(t *testing.T) {
	f := newFixture()
	p := f.presentation(t, week10Tuesday, models.PresentationVideoUploaded)

	_, err := f.ledger(Options{}).RegisterVote(context.Background(), p.ID, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrVotingNotOpen)
}

func TestRegisterVoteNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.ledger(Options{}).RegisterVote(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRegisterVoteCapPerVoter(t *testing.T) {
	f := newFixture()
	l := f.ledger(Options{Policy: TargetPolicy{}, CapPerVoter: 3})
	voter := uuid.New()

	for i := 0; i < 3; i++ {
		p := f.presentation(t, week10Tuesday, models.PresentationVotingOpen)
		_, err := l.RegisterVote(context.Background(), p.ID, voter)
		require.NoError(t, err)
	}
	p := f.presentation(t, week10Tuesday, models.PresentationVotingOpen)
	_, err := l.RegisterVote(context.Background(), p.ID, voter)
	assert.ErrorIs(t, err, apperr.ErrVoteLimitExceeded)
	assert.ErrorIs(t, err, apperr.ErrCapacityExceeded)
}

func TestRegisterVoteConcurrentCountersMatchLedger(t *testing.T) {
	f := newFixture()
	l := f.ledger(Options{})
	p := f.presentation(t, week10Tuesday, models.PresentationVotingOpen)

	voters := make([]uuid.UUID, 20)
	for i := range voters {
		voters[i] = uuid.New()
	}
	var wg sync.WaitGroup
	for _, voter := range voters {
		for attempt := 0; attempt < 2; attempt++ {
			wg.Add(1)
			go func(voter uuid.UUID) {
				defer wg.Done()
				_, _ = l.RegisterVote(context.Background(), p.ID, voter)
			}(voter)
		}
	}
	wg.Wait()

	got, err := f.store.Presentations().GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	rows, err := l.Count(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, len(voters), got.WeeklyVotes)
	assert.Equal(t, rows, got.WeeklyVotes)
	assert.Equal(t, rows, got.MonthlyVotes)
}

func (f *fixture) video(t *testing.T, start, end *time.Time, status models.VideoStatus) *models.PresentationVideo {
	t.Helper()
	p := f.presentation(t, week10Tuesday, models.PresentationScheduled)
	v := &models.PresentationVideo{
		AssignmentID: p.AssignmentID, PresentationID: p.ID, Title: "demo",
		VotingStart: start, VotingEnd: end, Status: status,
	}
	require.NoError(t, f.store.Videos().Create(context.Background(), v))
	return v
}

func TestRegisterVideoVote(t *testing.T) {
	f := newFixture()
	l := f.ledger(Options{Policy: TargetPolicy{}})
	start, end := week10Tuesday, calendar.VotingEnd(week10Tuesday)
	v := f.video(t, &start, &end, models.VideoVotingOpen)
	voter := uuid.New()

	got, err := l.RegisterVideoVote(context.Background(), v.ID, voter)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Votes)

	_, err = l.RegisterVideoVote(context.Background(), v.ID, voter)
	assert.ErrorIs(t, err, apperr.ErrDuplicateVote)

	_, err = l.RegisterVideoVote(context.Background(), v.ID, uuid.New())
	require.NoError(t, err)
	n, err := l.Count(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRegisterVideoVoteRejectsOutsideWindow(t *testing.T) {
	f := newFixture()
	l := f.ledger(Options{Policy: TargetPolicy{}})

	noWindow := f.video(t, nil, nil, models.VideoUploaded)
	_, err := l.RegisterVideoVote(context.Background(), noWindow.ID, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrVotingNotOpen)

	start, end := week10Tuesday.Add(2*time.Hour), calendar.VotingEnd(week10Tuesday)
	later := f.video(t, &start, &end, models.VideoVotingOpen)
	_, err = l.RegisterVideoVote(context.Background(), later.ID, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrVotingNotYetOpen)

	f.clock.Set(end.Add(time.Second))
	_, err = l.RegisterVideoVote(context.Background(), later.ID, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrVotingClosed)

	_, err = l.RegisterVideoVote(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrVideoNotFound)
}

func TestPolicyKeys(t *testing.T) {
	voter, target := uuid.New(), uuid.New()
	week10 := Target{ID: target, Period: calendar.Period{Week: 10, Month: 3, Year: 2025}}
	week11 := Target{ID: target, Period: calendar.Period{Week: 11, Month: 3, Year: 2025}}

	assert.NotEqual(t, PeriodPolicy{}.Key(voter, week10), PeriodPolicy{}.Key(voter, week11))
	assert.Equal(t, TargetPolicy{}.Key(voter, week10), TargetPolicy{}.Key(voter, week11))
	assert.NotEqual(t, PeriodPolicy{}.Key(voter, week10), PeriodPolicy{}.Key(uuid.New(), week10))

	p, err := ParsePolicy("video")
	require.NoError(t, err)
	assert.Equal(t, PolicyVideo, p.Name())
	_, err = ParsePolicy("per-day")
	assert.Error(t, err)
}
