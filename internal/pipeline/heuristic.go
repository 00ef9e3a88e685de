package pipeline

import (
	"time"

	"github.com/sells-group/invoice-cli/internal/memory"
	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/registry"
)

// Candidate is one value a heuristic proposes for a missing or inconsistent
// field, before confidence shaping.
type Candidate struct {
	Field  string
	From   string
	To     string
	Reason string
	Source string

	// Pattern identifies the vendor-memory pattern the detection matched
	// (e.g. the raw-text label); it keys learning later.
	Pattern string

	// MemoryBacked is set when a trusted vendor-memory entry of the
	// heuristic's kind vouched for this detection.
	MemoryBacked bool

	// ConfidenceOverride, when > 0, replaces the heuristic's base confidence
	// (used for memory trust above the memory-backed band and for
	// correction-memory fallbacks).
	ConfidenceOverride float64

	// UsedCorrection is the correction-memory entry whose stored value was
	// consulted and trusted, if any; rejected runs penalize exactly these.
	UsedCorrection *model.CorrectionMemoryEntry

	// SKU is set for line-item quantity candidates so approval can write
	// correction memory at SKU granularity.
	SKU string
}

// Heuristic is one independently gated detector in the fixed catalogue. The
// engine shapes each candidate's confidence through resolution memory and
// turns it into a proposed correction.
type Heuristic interface {
	// Kind is the vendor-memory kind this heuristic reads and learns.
	Kind() string
	// StrategyKey is the resolution-memory key this heuristic exercises.
	StrategyKey() string
	// Detect returns zero or more candidates. It never fails: malformed
	// input and failed matches simply produce no candidates.
	Detect(rc *RunContext) []Candidate
	// BaseConfidence is the starting confidence before shaping.
	BaseConfidence(memoryBacked bool) float64
}

// MemorySkip records a stored entry that was consulted but not trusted, for
// the audit trail.
type MemorySkip struct {
	Store  string
	Key    string
	Reason string
}

// RunContext carries one invocation's inputs and recalled memory through the
// Apply phase.
type RunContext struct {
	Invoice   model.Invoice
	Reference model.ReferenceData
	Profile   registry.VendorProfile
	Now       time.Time

	VendorMemory     []model.VendorMemoryEntry
	CorrectionMemory []model.CorrectionMemoryEntry

	skips []MemorySkip
}

// TrustedVendorEntry returns the usable vendor-memory entry for (kind,
// pattern), or nil. An existing but untrusted entry is recorded as a skip.
func (rc *RunContext) TrustedVendorEntry(kind, pattern string) *model.VendorMemoryEntry {
	for i := range rc.VendorMemory {
		e := &rc.VendorMemory[i]
		if e.Kind != kind || e.Pattern != pattern {
			continue
		}
		if memory.Usable(e, rc.Now) {
			return e
		}
		rc.skips = append(rc.skips, MemorySkip{
			Store:  "vendor",
			Key:    e.Vendor + "/" + e.Kind + "/" + e.Pattern,
			Reason: skipReason(string(e.Status), e.RejectCount, e.Confidence, memory.Decayed(e.Confidence, memory.DaysSince(e.LastUsedAt, rc.Now))),
		})
	}
	return nil
}

// TrustedCorrection returns the usable correction-memory entry for the key,
// or nil. An existing but untrusted entry is recorded as a skip.
func (rc *RunContext) TrustedCorrection(fieldPath, patternType, patternValue string) *model.CorrectionMemoryEntry {
	for i := range rc.CorrectionMemory {
		e := &rc.CorrectionMemory[i]
		if e.FieldPath != fieldPath || e.PatternType != patternType || e.PatternValue != patternValue {
			continue
		}
		if memory.UsableCorrection(e, rc.Now) {
			return e
		}
		rc.skips = append(rc.skips, MemorySkip{
			Store:  "correction",
			Key:    e.Vendor + "/" + e.FieldPath + "/" + e.PatternType + "/" + e.PatternValue,
			Reason: skipReason(string(e.Status), e.RejectCount, e.Confidence, memory.Decayed(e.Confidence, memory.DaysSince(e.LastUsedAt, rc.Now))),
		})
	}
	return nil
}

// Skips returns the memory entries consulted but not trusted this run.
func (rc *RunContext) Skips() []MemorySkip {
	return rc.skips
}

func skipReason(status string, rejectCount int, confidence, decayed float64) string {
	switch {
	case status != string(model.MemoryActive):
		return "status " + status
	case rejectCount >= memory.DisableRejects:
		return "reject count at disable threshold"
	case confidence < memory.TrustFloor:
		return "stored confidence below trust floor"
	default:
		_ = decayed
		return "decayed confidence below trust floor"
	}
}

// Catalogue returns the fixed, ordered heuristic catalogue.
func Catalogue() []Heuristic {
	return []Heuristic{
		&serviceDateHeuristic{},
		&purchaseOrderHeuristic{},
		&vatTotalsHeuristic{},
		&quantityHeuristic{},
		&currencyHeuristic{},
		&skontoHeuristic{},
		&freightSKUHeuristic{},
	}
}
