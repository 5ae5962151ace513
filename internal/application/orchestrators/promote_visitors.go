package orchestrators

import (
	"context"
	"log/slog"

	"celltrack/internal/domain/cell"
	"celltrack/internal/domain/membership"
	"celltrack/internal/domain/occurrence"
	"celltrack/internal/domain/promotion"
)

// PromotionMembershipStore defines the membership store interface for promotion.
type PromotionMembershipStore interface {
	ListByCellID(ctx context.Context, cellID string) ([]membership.Membership, error)
	Save(ctx context.Context, m membership.Membership) error
}

// PromotionHistoryStore defines the attendance history lookup for promotion.
// The participant ID covers marks addressed by global identity.
type PromotionHistoryStore interface {
	MarkHistory(ctx context.Context, cellID, membershipID, participantID string) ([]occurrence.MarkStatus, error)
}

// PromotionDeps holds dependencies for the visitor promotion pass.
type PromotionDeps struct {
	MembershipStore PromotionMembershipStore
	HistoryStore    PromotionHistoryStore
	Notifications   *NotifyDeps // optional: nil skips the promotion email
}

// EvaluatePromotions runs the promotion rule for every visitor-role
// membership that has a mark in the given occurrence. Promotion is one-way
// and the evaluation is idempotent: members are skipped, so re-running after
// a promotion is a no-op.
// PRE: o was just persisted for c
// POST: promoted memberships are saved with role member
func EvaluatePromotions(ctx context.Context, c cell.Cell, o occurrence.Occurrence, deps PromotionDeps) error {
	members, err := deps.MembershipStore.ListByCellID(ctx, c.ID)
	if err != nil {
		return err
	}

	for _, m := range members {
		if !m.IsVisitor() || m.IsRemoved() {
			continue
		}
		// A mark may address the membership row or, for linked visitors,
		// the global participant. Both count.
		marked := false
		for _, mark := range o.Marks {
			if mark.MembershipID == m.ID || (m.ParticipantID != "" && mark.ParticipantID == m.ParticipantID) {
				marked = true
				break
			}
		}
		if !marked {
			continue
		}

		history, err := deps.HistoryStore.MarkHistory(ctx, c.ID, m.ID, m.ParticipantID)
		if err != nil {
			return err
		}
		if !promotion.ShouldPromote(history) {
			continue
		}

		if err := m.Promote(); err != nil {
			continue
		}
		if err := deps.MembershipStore.Save(ctx, m); err != nil {
			return err
		}
		slog.Info("promotion_event", "event", "visitor_promoted", "cell_id", c.ID, "membership_id", m.ID, "name", m.FullName)

		if deps.Notifications != nil {
			_ = EnqueuePromotionEmail(ctx, c, m, *deps.Notifications)
		}
	}
	return nil
}
