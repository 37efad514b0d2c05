package votes

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tribu-research/challenge-backend/internal/calendar"
)

// Policy names.
const (
	PolicyPeriod = "period"
	PolicyVideo  = "video"
)

// Target is what a ballot is cast for.
type Target struct {
	ID     uuid.UUID
	Period calendar.Period
}

// Policy derives the uniqueness key of a ballot. Two ballots with the same
// key cannot both be persisted.
type Policy interface {
	Name() string
	Key(voter uuid.UUID, t Target) string
}

// PeriodPolicy allows one vote per voter per week of a month.
type PeriodPolicy struct{}

func (PeriodPolicy) Name() string { return PolicyPeriod }

func (PeriodPolicy) Key(voter uuid.UUID, t Target) string {
	return fmt.Sprintf("period:%s:%04d-%02d-w%02d", voter, t.Period.Year, t.Period.Month, t.Period.Week)
}

// TargetPolicy allows one vote per voter per presentation or video.
type TargetPolicy struct{}

func (TargetPolicy) Name() string { return PolicyVideo }

func (TargetPolicy) Key(voter uuid.UUID, t Target) string {
	return fmt.Sprintf("target:%s:%s", voter, t.ID)
}

// ParsePolicy returns the policy configured by name.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case PolicyPeriod, "":
		return PeriodPolicy{}, nil
	case PolicyVideo:
		return TargetPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown vote policy %q", name)
	}
}
