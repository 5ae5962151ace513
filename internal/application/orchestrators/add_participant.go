package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"celltrack/internal/domain/identity"
	"celltrack/internal/domain/membership"
)

var (
	// ErrParticipantInput is returned when neither visitor data nor a
	// participant reference is supplied.
	ErrParticipantInput = errors.New("either full name or participant id is required")
	// ErrAlreadyMember is returned when the participant already has an
	// active membership in the cell.
	ErrAlreadyMember = errors.New("participant is already linked to this cell")
)

// ParticipantMembershipStore defines the membership access needed to add
// a participant to a cell.
type ParticipantMembershipStore interface {
	MembershipWriteStore
	FindActive(ctx context.Context, cellID, participantID string) (membership.Membership, error)
}

// AddParticipantInput links someone to a cell: either a new local-only
// visitor (name and phone, no global identity) or an existing participant
// by id. Role defaults to visitor.
type AddParticipantInput struct {
	CellID        string
	FullName      string
	Phone         string
	ParticipantID string
	Role          string
	Caller        identity.Caller
}

// AddParticipantDeps holds dependencies for ExecuteAddParticipant.
type AddParticipantDeps struct {
	CellStore       CellLookupStore
	MembershipStore ParticipantMembershipStore
	Now             func() time.Time
	GenerateID      func() string
}

// ExecuteAddParticipant creates a membership row for the cell. At most one
// active membership may exist per (cell, participant) pair; local-only
// visitors are deduplicated by name instead.
func ExecuteAddParticipant(ctx context.Context, input AddParticipantInput, deps AddParticipantDeps) (membership.Membership, error) {
	if input.FullName == "" && input.ParticipantID == "" {
		return membership.Membership{}, ErrParticipantInput
	}

	c, err := deps.CellStore.GetByID(ctx, input.CellID)
	if err != nil {
		return membership.Membership{}, ErrCellNotFound
	}
	if !c.IsActive() {
		return membership.Membership{}, ErrCellInactive
	}

	if input.ParticipantID != "" {
		if _, err := deps.MembershipStore.FindActive(ctx, input.CellID, input.ParticipantID); err == nil {
			return membership.Membership{}, ErrAlreadyMember
		}
	} else {
		existing, err := deps.MembershipStore.ListByCellID(ctx, input.CellID)
		if err != nil {
			return membership.Membership{}, err
		}
		for _, m := range existing {
			if m.ParticipantID == "" && m.FullName == input.FullName {
				return membership.Membership{}, ErrAlreadyMember
			}
		}
	}

	// Leaders live on the cell record, never in the membership list.
	role := input.Role
	switch role {
	case "":
		role = membership.RoleVisitor
	case membership.RoleMember, membership.RoleVisitor:
	default:
		return membership.Membership{}, membership.ErrInvalidRole
	}

	m := membership.Membership{
		ID:            deps.GenerateID(),
		CellID:        input.CellID,
		ParticipantID: input.ParticipantID,
		FullName:      input.FullName,
		Phone:         input.Phone,
		Role:          role,
		Status:        membership.StatusActive,
		CreatedAt:     deps.Now(),
	}
	if err := m.Validate(); err != nil {
		return membership.Membership{}, err
	}
	if err := deps.MembershipStore.Save(ctx, m); err != nil {
		return membership.Membership{}, err
	}

	slog.Info("membership_event", "event", "participant_added",
		"cell_id", input.CellID, "membership_id", m.ID, "role", m.Role)

	return m, nil
}
