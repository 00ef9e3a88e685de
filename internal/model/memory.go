package model

import "time"

// MemoryStatus is the lifecycle state of a learned memory entry.
type MemoryStatus string

const (
	MemoryActive   MemoryStatus = "active"
	MemorySuspect  MemoryStatus = "suspect"
	MemoryDisabled MemoryStatus = "disabled"
)

// VendorMemoryEntry records learned trust in one extraction strategy instance
// for one vendor, keyed by (vendor, kind, pattern).
type VendorMemoryEntry struct {
	Vendor       string       `json:"vendor"`
	Kind         string       `json:"kind"`
	Pattern      string       `json:"pattern"`
	Confidence   float64      `json:"confidence"`
	SupportCount int          `json:"support_count"`
	RejectCount  int          `json:"reject_count"`
	Status       MemoryStatus `json:"status"`
	LastUsedAt   time.Time    `json:"last_used_at"`
}

// CorrectionMemoryEntry records a learned literal replacement value for one
// vendor, keyed at field granularity: (vendor, fieldPath, patternType,
// patternValue). Value is an opaque string and may itself be JSON.
type CorrectionMemoryEntry struct {
	Vendor       string       `json:"vendor"`
	FieldPath    string       `json:"field_path"`
	PatternType  string       `json:"pattern_type"`
	PatternValue string       `json:"pattern_value"`
	Value        string       `json:"value"`
	Confidence   float64      `json:"confidence"`
	SupportCount int          `json:"support_count"`
	RejectCount  int          `json:"reject_count"`
	Status       MemoryStatus `json:"status"`
	LastUsedAt   time.Time    `json:"last_used_at"`
}

// ResolutionTally is the embedded approve/reject record of a resolution
// memory entry.
type ResolutionTally struct {
	ApprovedCount int    `json:"approved_count"`
	RejectedCount int    `json:"rejected_count"`
	LastDecision  string `json:"last_decision,omitempty"`
	LastInvoiceID string `json:"last_invoice_id,omitempty"`
}

// ResolutionMemoryEntry tracks strategy-class trust per (vendor, strategyKey),
// independent of which concrete memory entry produced a correction.
type ResolutionMemoryEntry struct {
	Vendor      string          `json:"vendor"`
	StrategyKey string          `json:"strategy_key"`
	Tally       ResolutionTally `json:"tally"`
	Confidence  float64         `json:"confidence"`
	RejectCount int             `json:"reject_count"`
	Status      MemoryStatus    `json:"status"`
	LastUsedAt  time.Time       `json:"last_used_at"`
}
