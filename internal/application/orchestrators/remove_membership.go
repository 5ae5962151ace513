package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"celltrack/internal/domain/identity"
	"celltrack/internal/domain/membership"
)

var (
	// ErrMembershipNotFound is returned when the membership does not exist.
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrMembershipCellMismatch is returned when the membership belongs to
	// a different cell than the one addressed.
	ErrMembershipCellMismatch = errors.New("membership does not belong to this cell")
)

// MembershipLookupStore defines membership access by id.
type MembershipLookupStore interface {
	GetByID(ctx context.Context, id string) (membership.Membership, error)
	Save(ctx context.Context, m membership.Membership) error
}

// RemoveMembershipInput carries the removal request.
type RemoveMembershipInput struct {
	CellID       string
	MembershipID string
	Caller       identity.Caller
}

// RemoveMembershipDeps holds dependencies for ExecuteRemoveMembership.
type RemoveMembershipDeps struct {
	MembershipStore MembershipLookupStore
}

// ExecuteRemoveMembership soft-deletes a membership. Historical attendance
// marks keep pointing at the removed row so past occurrences stay intact.
func ExecuteRemoveMembership(ctx context.Context, input RemoveMembershipInput, deps RemoveMembershipDeps) error {
	m, err := deps.MembershipStore.GetByID(ctx, input.MembershipID)
	if err != nil {
		return ErrMembershipNotFound
	}
	if m.CellID != input.CellID {
		return ErrMembershipCellMismatch
	}
	if err := m.Remove(); err != nil {
		return err
	}
	if err := deps.MembershipStore.Save(ctx, m); err != nil {
		return err
	}

	slog.Info("membership_event", "event", "membership_removed",
		"cell_id", input.CellID, "membership_id", m.ID, "role", m.Role)

	return nil
}
