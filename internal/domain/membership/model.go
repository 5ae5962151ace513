package membership

import (
	"errors"
	"strings"
	"time"
)

// Role constants
const (
	RoleLeader   = "leader"
	RoleCoLeader = "co-leader"
	RoleMember   = "member"
	RoleVisitor  = "visitor"
)

// Membership status constants
const (
	StatusActive  = "active"
	StatusRemoved = "removed"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleLeader, RoleCoLeader, RoleMember, RoleVisitor}

// Domain errors
var (
	ErrInvalidRole    = errors.New("role must be one of: leader, co-leader, member, visitor")
	ErrAlreadyRemoved = errors.New("membership is already removed")
	ErrNotVisitor     = errors.New("membership is not a visitor")
)

// Membership links a participant to a cell. ParticipantID is optional: a
// local-only visitor record has a name and phone but no underlying global
// identity. At most one non-removed membership may exist per (cell,
// participant) pair; leaders and co-leaders live on the cell itself and are
// never duplicated here.
type Membership struct {
	ID            string
	CellID        string
	ParticipantID string // optional global person reference
	FullName      string
	Phone         string
	Role          string
	Status        string
	CreatedAt     time.Time
}

// Validate checks if the Membership has valid data.
// PRE: Membership struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: local-only records (no ParticipantID) must carry a name
func (m *Membership) Validate() error {
	if m.CellID == "" {
		return errors.New("membership must belong to a cell")
	}
	if !isValidRole(m.Role) {
		return ErrInvalidRole
	}
	if m.ParticipantID == "" && strings.TrimSpace(m.FullName) == "" {
		return errors.New("membership needs a participant reference or a full name")
	}
	if m.Status != StatusActive && m.Status != StatusRemoved {
		return errors.New("status must be 'active' or 'removed'")
	}
	return nil
}

// IsVisitor returns true if the membership has the visitor role.
// INVARIANT: no fields are mutated
func (m *Membership) IsVisitor() bool {
	return m.Role == RoleVisitor
}

// IsRemoved returns true if the membership has been removed.
// INVARIANT: no fields are mutated
func (m *Membership) IsRemoved() bool {
	return m.Status == StatusRemoved
}

// Remove soft-deletes the membership.
// PRE: Membership is active
// POST: Status is removed
func (m *Membership) Remove() error {
	if m.Status == StatusRemoved {
		return ErrAlreadyRemoved
	}
	m.Status = StatusRemoved
	return nil
}

// Promote changes a visitor membership to full member.
// PRE: Role is visitor
// POST: Role is member
func (m *Membership) Promote() error {
	if m.Role != RoleVisitor {
		return ErrNotVisitor
	}
	m.Role = RoleMember
	return nil
}

func isValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
