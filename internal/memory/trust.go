package memory

import (
	"time"

	"github.com/sells-group/invoice-cli/internal/model"
)

// Trust model constants. Confidence only ever moves in bounded steps and is
// clamped to [ConfidenceFloor, ConfidenceCap] on learning paths.
const (
	// TrustFloor is the minimum decayed confidence below which a stored
	// entry is never applied.
	TrustFloor = 0.65

	// CreationBaseline is the confidence a fresh entry starts at before the
	// first approval step is applied.
	CreationBaseline = 0.60

	ApprovalStep  = 0.10
	RejectionStep = 0.15

	ConfidenceCap   = 0.95
	ConfidenceFloor = 0.20

	// DisableRejects is the reject count at which an entry is disabled.
	// Disabling is terminal for the entry; only an administrative reset
	// revives it.
	DisableRejects = 2
)

// Resolution-memory confidence shaping.
const (
	ResolutionBoost    = 0.15
	ResolutionPenalty  = 0.20
	resolutionMinVotes = 2
)

// Usable reports whether a vendor-memory entry may be trusted at the given
// instant: active, fewer than two rejections, stored confidence at the trust
// floor, and decayed confidence still at the trust floor.
func Usable(e *model.VendorMemoryEntry, now time.Time) bool {
	if e == nil {
		return false
	}
	return usable(string(e.Status), e.RejectCount, e.Confidence, e.LastUsedAt, now)
}

// UsableCorrection is Usable for correction-memory entries.
func UsableCorrection(e *model.CorrectionMemoryEntry, now time.Time) bool {
	if e == nil {
		return false
	}
	return usable(string(e.Status), e.RejectCount, e.Confidence, e.LastUsedAt, now)
}

func usable(status string, rejectCount int, confidence float64, lastUsed, now time.Time) bool {
	if status != string(model.MemoryActive) {
		return false
	}
	if rejectCount >= DisableRejects {
		return false
	}
	if confidence < TrustFloor {
		return false
	}
	return Decayed(confidence, DaysSince(lastUsed, now)) >= TrustFloor
}

// Approve applies the approval step: confidence up by ApprovalStep capped at
// ConfidenceCap, support count up, status forced active, lastUsedAt = now.
func Approve(confidence float64) float64 {
	c := confidence + ApprovalStep
	if c > ConfidenceCap {
		c = ConfidenceCap
	}
	return c
}

// Reject applies the rejection step: confidence down by RejectionStep,
// floored at ConfidenceFloor.
func Reject(confidence float64) float64 {
	c := confidence - RejectionStep
	if c < ConfidenceFloor {
		c = ConfidenceFloor
	}
	return c
}

// ShapeConfidence adjusts a heuristic's base confidence by the vendor's
// resolution-memory tally for the strategy key. Two or more approvals with
// zero rejections boost; any rejection penalizes; otherwise the base stands.
func ShapeConfidence(base float64, entry *model.ResolutionMemoryEntry) float64 {
	if entry == nil {
		return base
	}
	t := entry.Tally
	switch {
	case t.RejectedCount >= 1:
		c := base - ResolutionPenalty
		if c < ConfidenceFloor {
			c = ConfidenceFloor
		}
		return c
	case t.ApprovedCount >= resolutionMinVotes && t.RejectedCount == 0:
		c := base + ResolutionBoost
		if c > ConfidenceCap {
			c = ConfidenceCap
		}
		return c
	default:
		return base
	}
}

// ResolutionDisabled reports whether a resolution entry has crossed its
// disable threshold: two-plus rejections with zero approvals. A single
// rejection never disables a strategy class.
func ResolutionDisabled(e *model.ResolutionMemoryEntry) bool {
	if e == nil {
		return false
	}
	return e.Tally.RejectedCount >= DisableRejects && e.Tally.ApprovedCount == 0
}
