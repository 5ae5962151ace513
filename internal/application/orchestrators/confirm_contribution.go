package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"celltrack/internal/domain/identity"
	"celltrack/internal/domain/occurrence"
)

var (
	// ErrOccurrenceLookup is returned when the occurrence does not exist.
	ErrOccurrenceLookup = errors.New("occurrence not found")
	// ErrConfirmNotAllowed is returned when the caller lacks the confirm
	// capability.
	ErrConfirmNotAllowed = errors.New("caller cannot confirm contributions")
)

// OccurrenceLookupStore defines lookup and save access for workflow steps
// that address an occurrence by id.
type OccurrenceLookupStore interface {
	GetByID(ctx context.Context, id string) (occurrence.Occurrence, error)
	Save(ctx context.Context, o occurrence.Occurrence) error
}

// ConfirmContributionInput carries the confirm request.
type ConfirmContributionInput struct {
	OccurrenceID string
	Caller       identity.Caller
}

// ConfirmContributionDeps holds dependencies for ExecuteConfirmContribution.
type ConfirmContributionDeps struct {
	OccurrenceStore OccurrenceLookupStore
	Now             func() time.Time
}

// ExecuteConfirmContribution transitions a filled contribution to confirmed,
// recording the confirmer and the confirmation time. The confirm capability
// works at any time, before or after the cutoff.
// PRE: input.OccurrenceID is non-empty
// POST: on success the occurrence is confirmed and persisted
func ExecuteConfirmContribution(ctx context.Context, input ConfirmContributionInput, deps ConfirmContributionDeps) (occurrence.Occurrence, error) {
	if !input.Caller.Has(identity.CapConfirmPD) && !input.Caller.IsAdmin() {
		return occurrence.Occurrence{}, ErrConfirmNotAllowed
	}

	o, err := deps.OccurrenceStore.GetByID(ctx, input.OccurrenceID)
	if err != nil {
		return occurrence.Occurrence{}, ErrOccurrenceLookup
	}

	now := deps.Now()
	if err := o.ConfirmContribution(input.Caller.AccountID, now, input.Caller.IsAdmin()); err != nil {
		return occurrence.Occurrence{}, err
	}
	o.UpdatedAt = now

	if err := deps.OccurrenceStore.Save(ctx, o); err != nil {
		return occurrence.Occurrence{}, err
	}

	slog.Info("contribution_event", "event", "contribution_confirmed",
		"occurrence_id", o.ID, "cell_id", o.CellID,
		"value", o.ContributionValue, "confirmed_by", input.Caller.AccountID)

	return o, nil
}
