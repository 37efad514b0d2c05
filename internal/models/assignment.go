package models

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentRole is the researcher's role on an agent.
type AssignmentRole string

const (
	RolePrimary     AssignmentRole = "PRIMARY"
	RoleContributor AssignmentRole = "CONTRIBUTOR"
)

// AssignmentStatus is the documentation status of an assignment.
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentDone      AssignmentStatus = "done"
)

// Assignment links one researcher to one agent under a role.
// At most one active PRIMARY assignment exists per agent, and at most one
// active assignment per (researcher, agent) pair.
type Assignment struct {
	ID             uuid.UUID        `json:"id"`
	ResearcherID   uuid.UUID        `json:"researcher_id"`
	ResearcherName string           `json:"researcher_name"`
	AgentID        uuid.UUID        `json:"agent_id"`
	AgentName      string           `json:"agent_name"`
	Role           AssignmentRole   `json:"role"`
	Status         AssignmentStatus `json:"status"`
	AssignedAt     time.Time        `json:"assigned_at"`
}

// IsPrimary reports whether the assignment receives a presentation.
func (a *Assignment) IsPrimary() bool { return a.Role == RolePrimary }

// IsActive reports whether documentation is still in progress.
func (a *Assignment) IsActive() bool { return a.Status == AssignmentActive }
