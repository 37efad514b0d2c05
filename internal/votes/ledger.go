// Package votes is the vote ledger: it validates ballots against the voting
// window and lifecycle, enforces the configured uniqueness policy and the
// optional per-voter cap, and is the only writer of vote counters.
package votes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/calendar"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/internal/ports"
	"github.com/tribu-research/challenge-backend/pkg/clock"
)

// EventVoteRegistered is published after every accepted ballot.
const EventVoteRegistered = "vote_registered"

// PresentationGetter loads presentations.
type PresentationGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PresentationDetail, error)
}

// VideoGetter loads videos.
type VideoGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PresentationVideo, error)
}

// Options configures a Ledger.
type Options struct {
	Policy      Policy
	CapPerVoter int // votes per voter per month; 0 disables the cap
	Location    *time.Location
	Publisher   ports.EventPublisher
}

// Ledger registers votes.
type Ledger struct {
	presentations PresentationGetter
	videos        VideoGetter
	votes         ports.VoteRepository
	clock         clock.Clock
	opts          Options
	logger        *zap.Logger
}

// NewLedger creates a vote ledger.
func NewLedger(presentations PresentationGetter, videos VideoGetter, votes ports.VoteRepository, clk clock.Clock, opts Options, logger *zap.Logger) *Ledger {
	if opts.Policy == nil {
		opts.Policy = PeriodPolicy{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{presentations: presentations, videos: videos, votes: votes, clock: clk, opts: opts, logger: logger}
}

// Policy returns the active uniqueness policy.
func (l *Ledger) Policy() Policy { return l.opts.Policy }

// RegisterVote casts voter's ballot for a presentation and returns the new
// counters. Checks run in order: the presentation exists, now is inside
// [date, next Sunday 23:59:59], the presentation is VOTING_OPEN, the ballot
// is not a duplicate under the policy, the voter is under the cap.
func (l *Ledger) RegisterVote(ctx context.Context, presentationID, voter uuid.UUID) (*models.VoteResult, error) {
	p, err := l.presentations.GetByID(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	now := l.clock.Now()
	switch calendar.InVotingWindow(p.PresentationDate.In(l.opts.Location), now) {
	case -1:
		return nil, apperr.ErrVotingNotYetOpen
	case 1:
		return nil, apperr.ErrVotingClosed
	}
	if p.Status != models.PresentationVotingOpen {
		return nil, apperr.Reason(apperr.ErrVotingNotOpen, "presentation is %s", p.Status)
	}

	period := calendar.Period{Week: p.Week, Month: p.Month, Year: p.Year}
	v := &models.Vote{
		VoterID:        voter,
		PresentationID: &p.ID,
		Week:           period.Week,
		Month:          period.Month,
		Year:           period.Year,
		DedupKey:       l.opts.Policy.Key(voter, Target{ID: p.ID, Period: period}),
		CastAt:         now,
	}
	updated, err := l.votes.CastPresentationVote(ctx, v, l.opts.CapPerVoter)
	if err != nil {
		return nil, err
	}

	l.logger.Info("vote registered",
		zap.String("presentation_id", p.ID.String()),
		zap.String("voter_id", voter.String()),
		zap.String("policy", l.opts.Policy.Name()),
		zap.Int("weekly_votes", updated.WeeklyVotes),
	)
	res := &models.VoteResult{TargetID: p.ID, Votes: updated.WeeklyVotes, MonthlyVotes: updated.MonthlyVotes}
	l.publish(p.PresentationDate, res)
	return res, nil
}

// RegisterVideoVote casts voter's ballot for a video inside the video's own
// voting window and returns the updated video.
func (l *Ledger) RegisterVideoVote(ctx context.Context, videoID, voter uuid.UUID) (*models.PresentationVideo, error) {
	video, err := l.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	now := l.clock.Now()
	if video.VotingStart == nil || video.VotingEnd == nil {
		return nil, apperr.Reason(apperr.ErrVotingNotOpen, "video has no voting period")
	}
	switch {
	case now.Before(*video.VotingStart):
		return nil, apperr.ErrVotingNotYetOpen
	case now.After(*video.VotingEnd):
		return nil, apperr.ErrVotingClosed
	}
	if video.Status != models.VideoVotingOpen {
		return nil, apperr.Reason(apperr.ErrVotingNotOpen, "video is %s", video.Status)
	}

	period := calendar.PeriodOf(video.VotingStart.In(l.opts.Location))
	v := &models.Vote{
		VoterID:  voter,
		VideoID:  &video.ID,
		Week:     period.Week,
		Month:    period.Month,
		Year:     period.Year,
		DedupKey: l.opts.Policy.Key(voter, Target{ID: video.ID, Period: period}),
		CastAt:   now,
	}
	updated, err := l.votes.CastVideoVote(ctx, v, l.opts.CapPerVoter)
	if err != nil {
		return nil, err
	}

	l.logger.Info("video vote registered",
		zap.String("video_id", video.ID.String()),
		zap.String("voter_id", voter.String()),
		zap.Int("votes", updated.Votes),
	)
	l.publish(*video.VotingStart, &models.VoteResult{TargetID: video.ID, Votes: updated.Votes})
	return updated, nil
}

// Count returns the number of persisted ballots for a presentation or video.
func (l *Ledger) Count(ctx context.Context, target uuid.UUID) (int, error) {
	return l.votes.CountVotes(ctx, target)
}

func (l *Ledger) publish(date time.Time, res *models.VoteResult) {
	if l.opts.Publisher == nil {
		return
	}
	room := calendar.WeekStart(date.In(l.opts.Location)).Format(calendar.DayLayout)
	l.opts.Publisher.Publish(room, EventVoteRegistered, res)
}
