package model

import "time"

// InvoiceRun is one processing attempt. Immutable after creation except for
// the duplicate fields, which are set once by the duplicate guard.
type InvoiceRun struct {
	ID            string    `json:"id"`
	InvoiceID     string    `json:"invoice_id"`
	Vendor        string    `json:"vendor"`
	Dataset       string    `json:"dataset,omitempty"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	Fingerprint   string    `json:"fingerprint"`
	IsDuplicate   bool      `json:"is_duplicate"`
	DuplicateOf   string    `json:"duplicate_of,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// DuplicateRecord is one detected duplicate submission, immutable once
// written.
type DuplicateRecord struct {
	ID          string    `json:"id"`
	InvoiceID   string    `json:"invoice_id"`
	Vendor      string    `json:"vendor"`
	Fingerprint string    `json:"fingerprint"`
	DuplicateOf string    `json:"duplicate_of"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// LearningEvent marks an invoice as learned; one row per invoice id enforces
// Learn-phase idempotence.
type LearningEvent struct {
	InvoiceID string    `json:"invoice_id"`
	Decision  string    `json:"decision"`
	CreatedAt time.Time `json:"created_at"`
}

// Audit event types emitted by the pipeline and administrative operations.
const (
	AuditRunCreated        = "run_created"
	AuditDuplicateDetected = "duplicate_detected"
	AuditMemorySkipped     = "memory_skipped"
	AuditMemoryCreated     = "memory_created"
	AuditMemoryUpdated     = "memory_updated"
	AuditMemoryDisabled    = "memory_disabled"
	AuditMemoryReset       = "memory_reset"
	AuditLearningApplied   = "learning_applied"
	AuditLearningNoop      = "learning_noop"
)

// AuditEvent is one append-only observability record. The pipeline writes
// these but never reads them back.
type AuditEvent struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	EventType  string         `json:"event_type"`
	Vendor     string         `json:"vendor,omitempty"`
	InvoiceID  string         `json:"invoice_id,omitempty"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
