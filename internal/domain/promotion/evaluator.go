package promotion

import "celltrack/internal/domain/occurrence"

// Window sizes for the promotion rules.
const (
	consecutiveWindow = 3 // Rule A: trailing marks that must all be present
	toleranceWindow   = 5 // Rule B: trailing marks examined
	tolerancePresent  = 4 // Rule B: presents required within the window
)

// ShouldPromote decides whether a visitor's attendance history earns
// promotion to full member. History is the visitor's explicit marks in
// chronological order, most recent last; unmarked occurrences are skipped by
// the caller and ignored here. Promotion fires when the last 3 marks are all
// present (Rule A) or at least 4 of the last 5 marks are present (Rule B).
// Evaluation is idempotent and promotion is one-way; the caller is
// responsible for not re-promoting an existing member.
// PRE: history is ordered oldest to newest
// POST: no inputs are mutated
func ShouldPromote(history []occurrence.MarkStatus) bool {
	marks := history[:0:0]
	for _, s := range history {
		if s == occurrence.MarkPresent || s == occurrence.MarkAbsent {
			marks = append(marks, s)
		}
	}

	// Rule A: strict consecutive presence in the trailing window of 3.
	if len(marks) >= consecutiveWindow {
		all := true
		for _, s := range marks[len(marks)-consecutiveWindow:] {
			if s != occurrence.MarkPresent {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}

	// Rule B: at most one absence tolerated within the trailing window of 5.
	window := marks
	if len(window) > toleranceWindow {
		window = window[len(window)-toleranceWindow:]
	}
	present := 0
	for _, s := range window {
		if s == occurrence.MarkPresent {
			present++
		}
	}
	return present >= tolerancePresent
}
