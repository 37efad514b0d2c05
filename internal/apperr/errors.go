// Package apperr defines the error taxonomy shared by the scheduling, voting
// and winner services. Every specific error wraps exactly one kind so callers
// can branch with errors.Is on either the kind or the specific error.
package apperr

import (
	"errors"
	"fmt"
)

// Kinds.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidState     = errors.New("invalid state")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrTransient        = errors.New("transient storage failure")
)

// NotFound.
var (
	ErrAssignmentNotFound   = fmt.Errorf("%w: assignment not found", ErrNotFound)
	ErrPresentationNotFound = fmt.Errorf("%w: presentation not found", ErrNotFound)
	ErrVideoNotFound        = fmt.Errorf("%w: video not found", ErrNotFound)
	ErrChallengeNotFound    = fmt.Errorf("%w: no challenge configuration found", ErrNotFound)
	ErrReportNotFound       = fmt.Errorf("%w: report not archived", ErrNotFound)
)

// Conflict.
var (
	ErrDuplicateAssignment   = fmt.Errorf("%w: agent already has an active assignment", ErrConflict)
	ErrDuplicatePresentation = fmt.Errorf("%w: assignment already has a presentation", ErrConflict)
	ErrDuplicateVote         = fmt.Errorf("%w: voter has already voted", ErrConflict)
)

// InvalidState.
var (
	ErrVotingNotYetOpen  = fmt.Errorf("%w: voting is not open yet", ErrInvalidState)
	ErrVotingClosed      = fmt.Errorf("%w: voting period has ended", ErrInvalidState)
	ErrVotingNotOpen     = fmt.Errorf("%w: presentation is not open for voting", ErrInvalidState)
	ErrDuplicateVideo    = fmt.Errorf("%w: a video has already been uploaded for this assignment", ErrInvalidState)
	ErrNotPrimary        = fmt.Errorf("%w: only primary assignments receive a presentation", ErrInvalidState)
	ErrInvalidTransition = fmt.Errorf("%w: transition not allowed", ErrInvalidState)
	ErrUploadNotAllowed  = fmt.Errorf("%w: video upload not allowed", ErrInvalidState)
	ErrMonthStillVoting  = fmt.Errorf("%w: voting for the month has not closed", ErrInvalidState)
)

// CapacityExceeded.
var (
	ErrVoteLimitExceeded = fmt.Errorf("%w: vote limit reached", ErrCapacityExceeded)
)

// Reason wraps a specific error with extra detail while keeping errors.Is working.
func Reason(err error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
}

// Kind returns the kind sentinel err belongs to, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrInvalidState, ErrCapacityExceeded, ErrTransient} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
