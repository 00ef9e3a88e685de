package memory

import (
	"time"

	"github.com/sells-group/invoice-cli/internal/model"
)

// ApproveVendorEntry returns the entry after an approval. A nil existing
// entry is created at the baseline first, so a first approval lands at
// baseline + step.
func ApproveVendorEntry(existing *model.VendorMemoryEntry, vendor, kind, pattern string, now time.Time) model.VendorMemoryEntry {
	e := model.VendorMemoryEntry{
		Vendor:     vendor,
		Kind:       kind,
		Pattern:    pattern,
		Confidence: CreationBaseline,
	}
	if existing != nil {
		e = *existing
	}
	e.Confidence = Approve(e.Confidence)
	e.SupportCount++
	e.Status = model.MemoryActive
	e.LastUsedAt = now
	return e
}

// RejectVendorEntry returns the entry after a rejection: confidence stepped
// down, reject count up, disabled at the threshold.
func RejectVendorEntry(e model.VendorMemoryEntry, now time.Time) model.VendorMemoryEntry {
	e.Confidence = Reject(e.Confidence)
	e.RejectCount++
	if e.RejectCount >= DisableRejects {
		e.Status = model.MemoryDisabled
	}
	e.LastUsedAt = now
	return e
}

// ApproveCorrectionEntry upserts a correction-memory entry with the learned
// replacement value.
func ApproveCorrectionEntry(existing *model.CorrectionMemoryEntry, vendor, fieldPath, patternType, patternValue, value string, now time.Time) model.CorrectionMemoryEntry {
	e := model.CorrectionMemoryEntry{
		Vendor:       vendor,
		FieldPath:    fieldPath,
		PatternType:  patternType,
		PatternValue: patternValue,
		Confidence:   CreationBaseline,
	}
	if existing != nil {
		e = *existing
	}
	e.Value = value
	e.Confidence = Approve(e.Confidence)
	e.SupportCount++
	e.Status = model.MemoryActive
	e.LastUsedAt = now
	return e
}

// RejectCorrectionEntry steps a correction-memory entry down after its stored
// value was used in a rejected result.
func RejectCorrectionEntry(e model.CorrectionMemoryEntry, now time.Time) model.CorrectionMemoryEntry {
	e.Confidence = Reject(e.Confidence)
	e.RejectCount++
	if e.RejectCount >= DisableRejects {
		e.Status = model.MemoryDisabled
	}
	e.LastUsedAt = now
	return e
}

// RecordResolution folds a human decision into the (vendor, strategyKey)
// tally. Unlike the other stores, resolution memory learns from rejections
// as well as approvals.
func RecordResolution(existing *model.ResolutionMemoryEntry, vendor, strategyKey, decision, invoiceID string, now time.Time) model.ResolutionMemoryEntry {
	e := model.ResolutionMemoryEntry{
		Vendor:      vendor,
		StrategyKey: strategyKey,
		Confidence:  CreationBaseline,
		Status:      model.MemoryActive,
	}
	if existing != nil {
		e = *existing
	}
	e.Tally.LastDecision = decision
	e.Tally.LastInvoiceID = invoiceID
	switch decision {
	case model.DecisionApproved:
		e.Tally.ApprovedCount++
		e.Confidence = Approve(e.Confidence)
	case model.DecisionRejected:
		e.Tally.RejectedCount++
		e.Confidence = Reject(e.Confidence)
		e.RejectCount++
	}
	if ResolutionDisabled(&e) {
		e.Status = model.MemoryDisabled
	}
	e.LastUsedAt = now
	return e
}
