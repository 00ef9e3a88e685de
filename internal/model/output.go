package model

// Correction sources, recorded on every proposed correction.
const (
	SourceRawTextHeuristic = "rawText_heuristic"
	SourceVendorMemory     = "vendor_memory"
	SourceCorrectionMemory = "correction_memory"
	SourceReferenceData    = "reference_data"
)

// Correction is one proposed field-level fix.
type Correction struct {
	Field       string  `json:"field"`
	From        string  `json:"from,omitempty"`
	To          string  `json:"to"`
	Source      string  `json:"source"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
	StrategyKey string  `json:"strategy_key"`
}

// MemoryMutation describes one memory-store write performed during Learn.
type MemoryMutation struct {
	Store      string  `json:"store"` // vendor | correction | resolution
	Action     string  `json:"action"`
	Key        string  `json:"key"`
	Confidence float64 `json:"confidence"`
}

// Pipeline phase names, in execution order.
const (
	PhaseRecall = "recall"
	PhaseApply  = "apply"
	PhaseDecide = "decide"
	PhaseLearn  = "learn"
)

// PhaseTrace is the structured audit record of one pipeline phase.
type PhaseTrace struct {
	Name     string         `json:"name"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PipelineOutput is the full result of one pipeline invocation, serialized
// for downstream review tooling.
type PipelineOutput struct {
	RunID           string           `json:"run_id"`
	InvoiceID       string           `json:"invoice_id"`
	Vendor          string           `json:"vendor"`
	Fields          Fields           `json:"fields"`
	LineItems       []LineItem       `json:"line_items,omitempty"`
	Corrections     []Correction     `json:"corrections"`
	RequiresReview  bool             `json:"requires_human_review"`
	Reasoning       string           `json:"reasoning"`
	ConfidenceScore float64          `json:"confidence_score"`
	IsDuplicate     bool             `json:"is_duplicate"`
	DuplicateOf     string           `json:"duplicate_of,omitempty"`
	Mutations       []MemoryMutation `json:"memory_mutations,omitempty"`
	Phases          []PhaseTrace     `json:"phases"`
}
