package membership

import "errors"

// ErrAmbiguousRef is returned when a Ref does not carry exactly one identity.
var ErrAmbiguousRef = errors.New("participant ref must carry exactly one of membership ID or participant ID")

// Ref addresses one conceptual person by whichever identity the caller has at
// hand: either a membership row or a global participant. Exactly one of the
// two fields is set; the two modes are mutually exclusive for the same
// identity.
type Ref struct {
	MembershipID  string
	ParticipantID string
}

// ByMembership builds a Ref addressing a person by membership row.
func ByMembership(id string) Ref { return Ref{MembershipID: id} }

// ByParticipant builds a Ref addressing a person by global participant ID.
func ByParticipant(id string) Ref { return Ref{ParticipantID: id} }

// Validate checks that the ref carries exactly one identity.
// POST: Returns ErrAmbiguousRef if zero or both fields are set
func (r Ref) Validate() error {
	if (r.MembershipID == "") == (r.ParticipantID == "") {
		return ErrAmbiguousRef
	}
	return nil
}

// Key returns a stable string key for the ref, used for in-flight
// deduplication of toggles.
// PRE: ref is valid
func (r Ref) Key() string {
	if r.MembershipID != "" {
		return "m:" + r.MembershipID
	}
	return "p:" + r.ParticipantID
}

// Resolve returns true if the ref addresses the given membership row, in
// either addressing mode.
// INVARIANT: never matches on empty identifiers
func (r Ref) Resolve(m Membership) bool {
	if r.MembershipID != "" && r.MembershipID == m.ID {
		return true
	}
	if r.ParticipantID != "" && r.ParticipantID == m.ParticipantID {
		return true
	}
	return false
}
