package orchestrators

import (
	"context"
	"testing"

	"celltrack/internal/domain/identity"
	"celltrack/internal/domain/occurrence"
)

func TestExecuteConfirmContribution(t *testing.T) {
	confirmer := identity.Caller{
		AccountID:    "acct-2",
		Capabilities: []identity.Capability{identity.CapConfirmPD},
	}

	filled := marchOccurrence("occ-1", "2024-03-06")
	filled.ContributionValue = 150
	filled.ContributionStatus = occurrence.ContributionFilled

	t.Run("confirms a filled value", func(t *testing.T) {
		occs := newMockOccurrenceStore(filled)
		o, err := ExecuteConfirmContribution(context.Background(), ConfirmContributionInput{
			OccurrenceID: "occ-1",
			Caller:       confirmer,
		}, ConfirmContributionDeps{OccurrenceStore: occs, Now: testClock})
		if err != nil {
			t.Fatalf("ExecuteConfirmContribution() error = %v", err)
		}
		if o.ContributionStatus != occurrence.ContributionConfirmed {
			t.Errorf("status = %q, want confirmed", o.ContributionStatus)
		}
		if o.ConfirmedBy != "acct-2" || !o.ConfirmedAt.Equal(fixedNow) {
			t.Errorf("confirmer not recorded: by=%q at=%v", o.ConfirmedBy, o.ConfirmedAt)
		}
		if saved, _ := occs.lastSaved(); saved.ContributionStatus != occurrence.ContributionConfirmed {
			t.Error("confirmation was not persisted")
		}
	})

	t.Run("requires the confirm capability", func(t *testing.T) {
		occs := newMockOccurrenceStore(filled)
		_, err := ExecuteConfirmContribution(context.Background(), ConfirmContributionInput{
			OccurrenceID: "occ-1",
			Caller:       identity.Caller{AccountID: "acct-1"},
		}, ConfirmContributionDeps{OccurrenceStore: occs, Now: testClock})
		if err != ErrConfirmNotAllowed {
			t.Errorf("error = %v, want ErrConfirmNotAllowed", err)
		}
	})

	t.Run("admin confirms without the capability", func(t *testing.T) {
		occs := newMockOccurrenceStore(filled)
		admin := identity.Caller{AccountID: "admin", Capabilities: []identity.Capability{identity.CapAdministrator}}
		if _, err := ExecuteConfirmContribution(context.Background(), ConfirmContributionInput{
			OccurrenceID: "occ-1",
			Caller:       admin,
		}, ConfirmContributionDeps{OccurrenceStore: occs, Now: testClock}); err != nil {
			t.Errorf("admin confirm error = %v", err)
		}
	})

	t.Run("unknown occurrence", func(t *testing.T) {
		occs := newMockOccurrenceStore()
		_, err := ExecuteConfirmContribution(context.Background(), ConfirmContributionInput{
			OccurrenceID: "occ-9",
			Caller:       confirmer,
		}, ConfirmContributionDeps{OccurrenceStore: occs, Now: testClock})
		if err != ErrOccurrenceLookup {
			t.Errorf("error = %v, want ErrOccurrenceLookup", err)
		}
	})

	t.Run("unfilled value", func(t *testing.T) {
		occs := newMockOccurrenceStore(marchOccurrence("occ-1", "2024-03-06"))
		_, err := ExecuteConfirmContribution(context.Background(), ConfirmContributionInput{
			OccurrenceID: "occ-1",
			Caller:       confirmer,
		}, ConfirmContributionDeps{OccurrenceStore: occs, Now: testClock})
		if err != occurrence.ErrNothingToConfirm {
			t.Errorf("error = %v, want ErrNothingToConfirm", err)
		}
	})

	t.Run("double confirm", func(t *testing.T) {
		occs := newMockOccurrenceStore(filled)
		deps := ConfirmContributionDeps{OccurrenceStore: occs, Now: testClock}
		input := ConfirmContributionInput{OccurrenceID: "occ-1", Caller: confirmer}

		if _, err := ExecuteConfirmContribution(context.Background(), input, deps); err != nil {
			t.Fatalf("first confirm error = %v", err)
		}
		if _, err := ExecuteConfirmContribution(context.Background(), input, deps); err != occurrence.ErrAlreadyConfirmed {
			t.Errorf("second confirm error = %v, want ErrAlreadyConfirmed", err)
		}
	})
}
