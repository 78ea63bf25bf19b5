package track

import "github.com/kalambet/huntd/internal/extract"

// strongForward reports whether s signals a fresh pipeline attempt when
// seen against a previously rejected process.
func strongForward(s extract.Status) bool {
	switch s {
	case extract.StatusApplied, extract.StatusAssessment, extract.StatusInterview, extract.StatusOffer:
		return true
	}
	return false
}

// nextStatus computes the status a matched process ends up with after a
// message proposing proposed. An active pipeline cannot "re-apply": a
// second applied-confirmation (or an unknown) is downgraded to plain
// communication before the rank comparison. REJECTED is always allowed.
// The returned signaled value is what this specific message contributed,
// recorded in the event even when the process status does not move.
func nextStatus(current, proposed extract.Status, active bool) (next, signaled extract.Status) {
	if active && (proposed == extract.StatusApplied || proposed == extract.StatusUnknown) {
		proposed = extract.StatusCommunication
	}
	signaled = proposed
	if proposed == extract.StatusRejected {
		return extract.StatusRejected, signaled
	}
	if proposed.Rank() > current.Rank() {
		return proposed, signaled
	}
	return current, signaled
}
