// Package memstore is an in-memory implementation of every repository port.
// All views share one state guarded by a single mutex, so each call is atomic
// the way a single SQL transaction is.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/internal/ports"
)

// Store holds the shared state.
type Store struct {
	mu     sync.Mutex
	slotMu sync.Mutex

	assignments   map[uuid.UUID]*models.Assignment
	presentations map[uuid.UUID]*models.Presentation
	videos        map[uuid.UUID]*models.PresentationVideo
	votes         []models.Vote
	dedup         map[string]struct{}
	challenge     *models.ChallengeStatus
}

// New returns an empty store.
func New() *Store {
	return &Store{
		assignments:   make(map[uuid.UUID]*models.Assignment),
		presentations: make(map[uuid.UUID]*models.Presentation),
		videos:        make(map[uuid.UUID]*models.PresentationVideo),
		dedup:         make(map[string]struct{}),
	}
}

// Assignments returns the assignment view.
func (s *Store) Assignments() *Assignments { return &Assignments{s} }

// Presentations returns the presentation view.
func (s *Store) Presentations() *Presentations { return &Presentations{s} }

// Videos returns the video view.
func (s *Store) Videos() *Videos { return &Videos{s} }

// Votes returns the vote ledger view.
func (s *Store) Votes() *Votes { return &Votes{s} }

// Winners returns the winner flag view.
func (s *Store) Winners() *Winners { return &Winners{s} }

// Challenge returns the challenge status view.
func (s *Store) Challenge() *Challenge { return &Challenge{s} }

var (
	_ ports.AssignmentRepository   = (*Assignments)(nil)
	_ ports.PresentationRepository = (*Presentations)(nil)
	_ ports.VideoRepository        = (*Videos)(nil)
	_ ports.VoteRepository         = (*Votes)(nil)
	_ ports.WinnerRepository       = (*Winners)(nil)
	_ ports.ChallengeRepository    = (*Challenge)(nil)
)

// detail joins p with its assignment. Caller holds s.mu.
func (s *Store) detail(p *models.Presentation) models.PresentationDetail {
	d := models.PresentationDetail{Presentation: *p}
	if a, ok := s.assignments[p.AssignmentID]; ok {
		d.ResearcherID = a.ResearcherID
		d.ResearcherName = a.ResearcherName
		d.AgentID = a.AgentID
		d.AgentName = a.AgentName
		d.Role = a.Role
	}
	return d
}

// filter returns details of presentations matching keep, ordered by date then id.
// Caller holds s.mu.
func (s *Store) filter(keep func(p *models.Presentation) bool) []models.PresentationDetail {
	out := make([]models.PresentationDetail, 0)
	for _, p := range s.presentations {
		if keep(p) {
			out = append(out, s.detail(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PresentationDate.Equal(out[j].PresentationDate) {
			return out[i].PresentationDate.Before(out[j].PresentationDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

// Assignments implements ports.AssignmentRepository.
type Assignments struct{ s *Store }

// Create inserts a.
func (r *Assignments) Create(_ context.Context, a *models.Assignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.assignments {
		if !other.IsActive() || other.AgentID != a.AgentID {
			continue
		}
		if other.ResearcherID == a.ResearcherID || (other.IsPrimary() && a.IsPrimary()) {
			return apperr.ErrDuplicateAssignment
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = models.AssignmentActive
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now()
	}
	cp := *a
	r.s.assignments[a.ID] = &cp
	return nil
}

// GetByID returns an assignment.
func (r *Assignments) GetByID(_ context.Context, id uuid.UUID) (*models.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, apperr.ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

// UpdateStatus moves an assignment from one status to another.
func (r *Assignments) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.AssignmentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return apperr.ErrAssignmentNotFound
	}
	if a.Status != from {
		return apperr.Reason(apperr.ErrInvalidTransition, "assignment is %s", a.Status)
	}
	a.Status = to
	return nil
}

// Presentations implements ports.PresentationRepository.
type Presentations struct{ s *Store }

type slotTx struct{ s *Store }

func (tx slotTx) CountScheduled(_ context.Context, from, to time.Time) (int, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	n := 0
	for _, p := range tx.s.presentations {
		if inRange(p.PresentationDate, from, to) {
			n++
		}
	}
	return n, nil
}

func (tx slotTx) InsertPresentation(_ context.Context, p *models.Presentation) error {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	for _, other := range tx.s.presentations {
		if other.AssignmentID == p.AssignmentID {
			return apperr.ErrDuplicatePresentation
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	tx.s.presentations[p.ID] = &cp
	return nil
}

// WithSlotLock serializes slot allocations.
func (r *Presentations) WithSlotLock(ctx context.Context, fn func(ctx context.Context, tx ports.SlotTx) error) error {
	r.s.slotMu.Lock()
	defer r.s.slotMu.Unlock()
	return fn(ctx, slotTx{r.s})
}

// Insert stores p directly, bypassing slot allocation. Used to seed fixtures.
func (r *Presentations) Insert(ctx context.Context, p *models.Presentation) error {
	return slotTx{r.s}.InsertPresentation(ctx, p)
}

// GetByID returns a presentation with its assignment.
func (r *Presentations) GetByID(_ context.Context, id uuid.UUID) (*models.PresentationDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.presentations[id]
	if !ok {
		return nil, apperr.ErrPresentationNotFound
	}
	d := r.s.detail(p)
	return &d, nil
}

// GetByAssignment returns the presentation of an assignment.
func (r *Presentations) GetByAssignment(_ context.Context, assignmentID uuid.UUID) (*models.Presentation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.presentations {
		if p.AssignmentID == assignmentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.ErrPresentationNotFound
}

// ListBetween returns presentations dated in [from, to).
func (r *Presentations) ListBetween(_ context.Context, from, to time.Time) ([]models.PresentationDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.filter(func(p *models.Presentation) bool { return inRange(p.PresentationDate, from, to) }), nil
}

// ListUpcoming returns presentations dated at or after from.
func (r *Presentations) ListUpcoming(_ context.Context, from time.Time, limit int) ([]models.PresentationDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.s.filter(func(p *models.Presentation) bool { return !p.PresentationDate.Before(from) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateStatus is a conditional status update.
func (r *Presentations) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.PresentationStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.presentations[id]
	if !ok {
		return apperr.ErrPresentationNotFound
	}
	if p.Status != from {
		return apperr.Reason(apperr.ErrInvalidTransition, "presentation is %s", p.Status)
	}
	p.Status = to
	return nil
}

// BulkUpdateStatus moves matching presentations in [from, to).
func (r *Presentations) BulkUpdateStatus(_ context.Context, from, to time.Time, fromStatus, toStatus models.PresentationStatus) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, p := range r.s.presentations {
		if p.Status == fromStatus && inRange(p.PresentationDate, from, to) {
			p.Status = toStatus
			n++
		}
	}
	return n, nil
}

// Videos implements ports.VideoRepository.
type Videos struct{ s *Store }

// Create inserts v and advances its presentation to VIDEO_UPLOADED.
func (r *Videos) Create(_ context.Context, v *models.PresentationVideo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.videos {
		if other.AssignmentID == v.AssignmentID {
			return apperr.ErrDuplicateVideo
		}
	}
	p, ok := r.s.presentations[v.PresentationID]
	if !ok {
		return apperr.ErrPresentationNotFound
	}
	if p.Status != models.PresentationScheduled {
		return apperr.Reason(apperr.ErrInvalidTransition, "presentation is %s", p.Status)
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = models.VideoUploaded
	}
	cp := *v
	r.s.videos[v.ID] = &cp
	p.Status = models.PresentationVideoUploaded
	return nil
}

// GetByAssignment returns the video of an assignment.
func (r *Videos) GetByAssignment(_ context.Context, assignmentID uuid.UUID) (*models.PresentationVideo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.videos {
		if v.AssignmentID == assignmentID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, apperr.ErrVideoNotFound
}

// GetByID returns a video.
func (r *Videos) GetByID(_ context.Context, id uuid.UUID) (*models.PresentationVideo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.videos[id]
	if !ok {
		return nil, apperr.ErrVideoNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *Videos) assignedIn(v *models.PresentationVideo, from, to time.Time) bool {
	a, ok := r.s.assignments[v.AssignmentID]
	return ok && inRange(a.AssignedAt, from, to)
}

// ListByAssignedBetween returns videos of assignments made in [from, to), newest upload first.
func (r *Videos) ListByAssignedBetween(_ context.Context, from, to time.Time) ([]models.PresentationVideo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.PresentationVideo, 0)
	for _, v := range r.s.videos {
		if r.assignedIn(v, from, to) {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

// OpenVoting opens uploaded videos of assignments made in [from, to).
func (r *Videos) OpenVoting(_ context.Context, from, to, start, end time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, v := range r.s.videos {
		if v.Status == models.VideoUploaded && r.assignedIn(v, from, to) {
			s, e := start, end
			v.VotingStart, v.VotingEnd = &s, &e
			v.Status = models.VideoVotingOpen
			n++
		}
	}
	return n, nil
}

// CloseVoting closes videos whose window ended before now.
func (r *Videos) CloseVoting(_ context.Context, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, v := range r.s.videos {
		if v.Status == models.VideoVotingOpen && v.VotingEnd != nil && v.VotingEnd.Before(now) {
			v.Status = models.VideoClosed
			n++
		}
	}
	return n, nil
}

// Votes implements ports.VoteRepository.
type Votes struct{ s *Store }

// admit runs the duplicate and cap checks and records v. Caller holds s.mu.
func (r *Votes) admit(v *models.Vote, limit int) error {
	if _, dup := r.s.dedup[v.DedupKey]; dup {
		return apperr.ErrDuplicateVote
	}
	if limit > 0 {
		n := 0
		for _, other := range r.s.votes {
			if other.VoterID == v.VoterID && other.Year == v.Year && other.Month == v.Month {
				n++
			}
		}
		if n >= limit {
			return apperr.Reason(apperr.ErrVoteLimitExceeded, "%d votes allowed per month", limit)
		}
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CastAt.IsZero() {
		v.CastAt = time.Now()
	}
	r.s.dedup[v.DedupKey] = struct{}{}
	r.s.votes = append(r.s.votes, *v)
	return nil
}

// CastPresentationVote records v and bumps both counters.
func (r *Votes) CastPresentationVote(_ context.Context, v *models.Vote, limit int) (*models.Presentation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if v.PresentationID == nil {
		return nil, apperr.ErrPresentationNotFound
	}
	p, ok := r.s.presentations[*v.PresentationID]
	if !ok {
		return nil, apperr.ErrPresentationNotFound
	}
	if err := r.admit(v, limit); err != nil {
		return nil, err
	}
	p.WeeklyVotes++
	p.MonthlyVotes++
	cp := *p
	return &cp, nil
}

// CastVideoVote records v and bumps the video counter.
func (r *Votes) CastVideoVote(_ context.Context, v *models.Vote, limit int) (*models.PresentationVideo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if v.VideoID == nil {
		return nil, apperr.ErrVideoNotFound
	}
	video, ok := r.s.videos[*v.VideoID]
	if !ok {
		return nil, apperr.ErrVideoNotFound
	}
	if err := r.admit(v, limit); err != nil {
		return nil, err
	}
	video.Votes++
	cp := *video
	return &cp, nil
}

// CountVotes counts vote rows referencing target.
func (r *Votes) CountVotes(_ context.Context, target uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, v := range r.s.votes {
		if (v.PresentationID != nil && *v.PresentationID == target) || (v.VideoID != nil && *v.VideoID == target) {
			n++
		}
	}
	return n, nil
}

// Winners implements ports.WinnerRepository.
type Winners struct{ s *Store }

func (r *Winners) mark(id uuid.UUID, from, to time.Time, flag func(p *models.Presentation) *bool) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	target, ok := r.s.presentations[id]
	if !ok {
		return false, apperr.ErrPresentationNotFound
	}
	for _, p := range r.s.presentations {
		if *flag(p) && inRange(p.PresentationDate, from, to) {
			return false, nil
		}
	}
	*flag(target) = true
	return true, nil
}

// MarkWeeklyWinner flags id as the weekly winner of [from, to).
func (r *Winners) MarkWeeklyWinner(_ context.Context, id uuid.UUID, from, to time.Time) (bool, error) {
	return r.mark(id, from, to, func(p *models.Presentation) *bool { return &p.WeeklyWinner })
}

// MarkMonthlyWinner flags id as the monthly winner of [from, to).
func (r *Winners) MarkMonthlyWinner(_ context.Context, id uuid.UUID, from, to time.Time) (bool, error) {
	return r.mark(id, from, to, func(p *models.Presentation) *bool { return &p.MonthlyWinner })
}

// ListWeeklyWinners returns weekly winners dated in [from, to).
func (r *Winners) ListWeeklyWinners(_ context.Context, from, to time.Time) ([]models.PresentationDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.filter(func(p *models.Presentation) bool {
		return p.WeeklyWinner && inRange(p.PresentationDate, from, to)
	}), nil
}

// ListMonthlyWinners returns monthly winners dated in [from, to).
func (r *Winners) ListMonthlyWinners(_ context.Context, from, to time.Time) ([]models.PresentationDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.filter(func(p *models.Presentation) bool {
		return p.MonthlyWinner && inRange(p.PresentationDate, from, to)
	}), nil
}

// Challenge implements ports.ChallengeRepository.
type Challenge struct{ s *Store }

// GetStatus returns the challenge status.
func (r *Challenge) GetStatus(_ context.Context) (*models.ChallengeStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.challenge == nil {
		return nil, apperr.ErrChallengeNotFound
	}
	cp := *r.s.challenge
	return &cp, nil
}

// Set replaces the challenge status.
func (r *Challenge) Set(st models.ChallengeStatus) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.challenge = &st
}
