package occurrence

import (
	"errors"
	"time"
)

// Contribution errors. Permission errors mean the caller lacked the rights;
// precondition errors mean the value was not in a confirmable state.
var (
	ErrNegativeValue    = errors.New("contribution value cannot be negative")
	ErrCutoffPassed     = errors.New("contribution is read-only after the cutoff date")
	ErrAlreadyConfirmed = errors.New("contribution is already confirmed")
	ErrNothingToConfirm = errors.New("contribution has not been filled")
)

// FillContribution sets or updates the monetary value for the occurrence.
// A zero value is valid and distinct from unset: it records that no
// collection occurred. Writes after the cutoff date are rejected for
// non-administrators; once confirmed only administrators may amend, and the
// amendment keeps the confirmed status.
// PRE: cutoff is the externally configured PD cutoff (zero means no cutoff)
// POST: value and FilledBy are set; status becomes filled unless it was
// already confirmed by an admin amendment
func (o *Occurrence) FillContribution(value float64, filledBy string, now, cutoff time.Time, admin bool) error {
	if value < 0 {
		return ErrNegativeValue
	}
	if o.ContributionStatus == ContributionConfirmed && !admin {
		return ErrAlreadyConfirmed
	}
	if !admin && !cutoff.IsZero() && now.After(cutoff) {
		return ErrCutoffPassed
	}

	o.ContributionValue = value
	o.FilledBy = filledBy
	if o.ContributionStatus != ContributionConfirmed {
		o.ContributionStatus = ContributionFilled
	}
	return nil
}

// ConfirmContribution transitions a filled value to confirmed, recording the
// confirmer identity and timestamp. Confirmation is allowed before or after
// the cutoff. Double-confirming requires administrator rights.
// PRE: the capability check (confirm-pd) has been done by the caller
// POST: status is confirmed, ConfirmedBy/ConfirmedAt are set
func (o *Occurrence) ConfirmContribution(confirmedBy string, now time.Time, admin bool) error {
	switch o.ContributionStatus {
	case ContributionUnset, ContributionRejected:
		return ErrNothingToConfirm
	case ContributionConfirmed:
		if !admin {
			return ErrAlreadyConfirmed
		}
	}
	o.ContributionStatus = ContributionConfirmed
	o.ConfirmedBy = confirmedBy
	o.ConfirmedAt = now
	return nil
}

// RejectContribution moves a filled, unconfirmed value to rejected.
// PRE: status is filled
// POST: status is rejected
func (o *Occurrence) RejectContribution() error {
	if o.ContributionStatus == ContributionConfirmed {
		return ErrAlreadyConfirmed
	}
	if o.ContributionStatus != ContributionFilled {
		return ErrNothingToConfirm
	}
	o.ContributionStatus = ContributionRejected
	return nil
}

// EffectiveContributionStatus resolves the derived pending state: a filled
// value whose cutoff has passed without confirmation reads as pending.
// INVARIANT: no fields are mutated
func (o *Occurrence) EffectiveContributionStatus(now, cutoff time.Time) ContributionStatus {
	if o.ContributionStatus == ContributionFilled && !cutoff.IsZero() && now.After(cutoff) {
		return ContributionPending
	}
	return o.ContributionStatus
}
