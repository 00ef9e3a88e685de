// Package store persists pipeline runs, the three memory stores, duplicate
// records, learning events and the audit log. Two backends implement the
// same interface: SQLite for single-operator use and Postgres for shared
// deployments.
package store

import (
	"context"

	"github.com/sells-group/invoice-cli/internal/model"
)

// RunFilter narrows ListRuns. Zero values mean "no constraint"; Limit 0
// falls back to a backend default.
type RunFilter struct {
	Vendor         string
	DuplicatesOnly bool
	Limit          int
	Offset         int
}

// Store is the persistence contract shared by both backends. Lookups for
// absent rows return (nil, nil); errors are reserved for the backend itself
// failing.
type Store interface {
	// Runs.
	CreateRun(ctx context.Context, run model.InvoiceRun) error
	GetRun(ctx context.Context, runID string) (*model.InvoiceRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.InvoiceRun, error)
	// ListRunsByInvoiceNumber returns every run for (vendor, invoiceNumber)
	// ordered by creation time ascending, duplicates included.
	ListRunsByInvoiceNumber(ctx context.Context, vendor, invoiceNumber string) ([]model.InvoiceRun, error)
	MarkRunDuplicate(ctx context.Context, runID, duplicateOf string) error

	// Vendor memory: learned extraction patterns per (vendor, kind, pattern).
	GetVendorMemory(ctx context.Context, vendor, kind, pattern string) (*model.VendorMemoryEntry, error)
	ListVendorMemory(ctx context.Context, vendor string) ([]model.VendorMemoryEntry, error)
	UpsertVendorMemory(ctx context.Context, e model.VendorMemoryEntry) error

	// Correction memory: confirmed replacement values per field pattern.
	GetCorrectionMemory(ctx context.Context, vendor, fieldPath, patternType, patternValue string) (*model.CorrectionMemoryEntry, error)
	ListCorrectionMemory(ctx context.Context, vendor string) ([]model.CorrectionMemoryEntry, error)
	UpsertCorrectionMemory(ctx context.Context, e model.CorrectionMemoryEntry) error

	// Resolution memory: approval/rejection tallies per (vendor, strategy).
	GetResolutionMemory(ctx context.Context, vendor, strategyKey string) (*model.ResolutionMemoryEntry, error)
	UpsertResolutionMemory(ctx context.Context, e model.ResolutionMemoryEntry) error

	// Duplicate log.
	CreateDuplicateRecord(ctx context.Context, rec model.DuplicateRecord) error
	// ListDuplicateRecordsByFingerprint returns matches ordered by creation
	// time ascending.
	ListDuplicateRecordsByFingerprint(ctx context.Context, vendor, fingerprint string) ([]model.DuplicateRecord, error)

	// Learning idempotence: at most one learning pass per invoice.
	HasLearned(ctx context.Context, invoiceID string) (bool, error)
	MarkLearned(ctx context.Context, ev model.LearningEvent) error

	// Audit log, append-only.
	AppendAudit(ctx context.Context, ev model.AuditEvent) error
	ListAudit(ctx context.Context, invoiceID string) ([]model.AuditEvent, error)

	Migrate(ctx context.Context) error
	Close() error
}
