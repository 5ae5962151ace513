package orchestrators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"celltrack/internal/domain/cell"
	"celltrack/internal/domain/membership"
	"celltrack/internal/domain/occurrence"
	domainOutbox "celltrack/internal/domain/outbox"
)

// mdRenderer converts markdown notification bodies to HTML email bodies.
// Raw HTML in the input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// NotifyOutboxStore defines the outbox store interface for enqueueing.
type NotifyOutboxStore interface {
	Save(ctx context.Context, e domainOutbox.Entry) error
}

// NotifyDeps holds dependencies for notification enqueueing.
type NotifyDeps struct {
	OutboxStore NotifyOutboxStore
	// Recipients receives the notifications; typically the cell leadership
	// or the approve-edits holders, resolved by the caller.
	Recipients []string
	Now        func() time.Time
	GenerateID func() string
}

// promotionEmailPayload is the replayable payload for a promotion email.
type promotionEmailPayload struct {
	To           []string `json:"to"`
	CellID       string   `json:"cell_id"`
	CellName     string   `json:"cell_name"`
	MembershipID string   `json:"membership_id"`
	VisitorName  string   `json:"visitor_name"`
}

// pendingEditEmailPayload is the replayable payload for a pending-edit email.
type pendingEditEmailPayload struct {
	To           []string `json:"to"`
	CellID       string   `json:"cell_id"`
	CellName     string   `json:"cell_name"`
	OccurrenceID string   `json:"occurrence_id"`
	Date         string   `json:"date"`
	FieldGroup   string   `json:"field_group"`
	RequestedBy  string   `json:"requested_by"`
}

// EnqueuePromotionEmail queues a notification that a visitor was promoted.
// Delivery happens out of band via the outbox so a provider outage never
// fails the attendance save that triggered the promotion.
// PRE: m was just promoted
// POST: an outbox entry is persisted
func EnqueuePromotionEmail(ctx context.Context, c cell.Cell, m membership.Membership, deps NotifyDeps) error {
	if len(deps.Recipients) == 0 {
		return nil
	}
	payload, err := json.Marshal(promotionEmailPayload{
		To:           deps.Recipients,
		CellID:       c.ID,
		CellName:     c.Name,
		MembershipID: m.ID,
		VisitorName:  m.FullName,
	})
	if err != nil {
		return err
	}
	entry := domainOutbox.Entry{
		ID:          deps.GenerateID(),
		ActionType:  domainOutbox.ActionTypePromotionEmail,
		Payload:     string(payload),
		Status:      domainOutbox.StatusPending,
		MaxAttempts: 5,
		CreatedAt:   deps.Now(),
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := deps.OutboxStore.Save(ctx, entry); err != nil {
		return err
	}
	slog.Info("notify_event", "event", "promotion_email_enqueued", "cell_id", c.ID, "membership_id", m.ID)
	return nil
}

// EnqueuePendingEditEmail queues a notification that a late change was
// parked pending approval.
// PRE: o carries a pending edit
// POST: an outbox entry is persisted
func EnqueuePendingEditEmail(ctx context.Context, c cell.Cell, o occurrence.Occurrence, deps NotifyDeps) error {
	if len(deps.Recipients) == 0 || o.PendingEdit == nil {
		return nil
	}
	payload, err := json.Marshal(pendingEditEmailPayload{
		To:           deps.Recipients,
		CellID:       c.ID,
		CellName:     c.Name,
		OccurrenceID: o.ID,
		Date:         o.Date.Format(cell.DateFormat),
		FieldGroup:   string(o.PendingEdit.Group),
		RequestedBy:  o.PendingEdit.RequestedBy,
	})
	if err != nil {
		return err
	}
	entry := domainOutbox.Entry{
		ID:          deps.GenerateID(),
		ActionType:  domainOutbox.ActionTypePendingEditEmail,
		Payload:     string(payload),
		Status:      domainOutbox.StatusPending,
		MaxAttempts: 5,
		CreatedAt:   deps.Now(),
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := deps.OutboxStore.Save(ctx, entry); err != nil {
		return err
	}
	slog.Info("notify_event", "event", "pending_edit_email_enqueued", "cell_id", c.ID, "occurrence_id", o.ID)
	return nil
}

// renderMarkdown converts a markdown body to HTML for the email provider.
func renderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
