package identity

// Capability is a named grant attached to a caller by the external
// authentication collaborator. The engine performs authorization checks only;
// it never resolves who the caller is.
type Capability string

// Known capabilities.
const (
	// CapAdministrator bypasses date validation, the edit window policy and
	// the contribution cutoff.
	CapAdministrator Capability = "administrator"
	// CapApproveEdits allows applying edits parked as pending.
	CapApproveEdits Capability = "approve-edits"
	// CapConfirmPD allows confirming a filled contribution value.
	CapConfirmPD Capability = "confirm-pd"
)

// ValidCapabilities contains all capability values the engine understands.
var ValidCapabilities = []Capability{CapAdministrator, CapApproveEdits, CapConfirmPD}

// Caller is the resolved identity every operation implicitly receives.
// Direct-leadership of a cell is not a stored capability: it is derived by
// comparing ParticipantID against the cell's leader and co-leader refs.
type Caller struct {
	AccountID     string
	ParticipantID string
	Capabilities  []Capability
}

// Has returns true if the caller holds the given capability.
// INVARIANT: Caller fields are not mutated
func (c Caller) Has(cap Capability) bool {
	for _, g := range c.Capabilities {
		if g == cap {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the caller holds the administrator capability.
func (c Caller) IsAdmin() bool {
	return c.Has(CapAdministrator)
}
