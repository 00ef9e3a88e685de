package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testRun(id, invoiceID string, createdAt time.Time) model.InvoiceRun {
	return model.InvoiceRun{
		ID:            id,
		InvoiceID:     invoiceID,
		Vendor:        "acme",
		Dataset:       "2024-q1",
		InvoiceNumber: "R-42",
		Fingerprint:   "fp-1",
		CreatedAt:     createdAt,
	}
}

func TestSQLiteRuns(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, st.CreateRun(ctx, testRun("run-1", "inv-1", base)))
	require.NoError(t, st.CreateRun(ctx, testRun("run-2", "inv-2", base.Add(time.Hour))))

	got, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "inv-1", got.InvoiceID)
	assert.Equal(t, "2024-q1", got.Dataset)
	assert.Equal(t, base, got.CreatedAt)

	missing, err := st.GetRun(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing, "absent rows are nil, not errors")

	// Ordered ascending so the earliest run is the canonical original.
	runs, err := st.ListRunsByInvoiceNumber(ctx, "acme", "R-42")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)

	require.NoError(t, st.MarkRunDuplicate(ctx, "run-2", "run-1"))
	got, err = st.GetRun(ctx, "run-2")
	require.NoError(t, err)
	assert.True(t, got.IsDuplicate)
	assert.Equal(t, "run-1", got.DuplicateOf)

	assert.Error(t, st.MarkRunDuplicate(ctx, "nope", "run-1"))

	dups, err := st.ListRuns(ctx, RunFilter{Vendor: "acme", DuplicatesOnly: true})
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, "run-2", dups[0].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-2", limited[0].ID, "listing is newest first")
}

func TestSQLiteVendorMemory(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	missing, err := st.GetVendorMemory(ctx, "acme", "k", "p")
	require.NoError(t, err)
	assert.Nil(t, missing)

	e := model.VendorMemoryEntry{
		Vendor: "acme", Kind: "serviceDate_from_label", Pattern: "Leistungsdatum",
		Confidence: 0.70, SupportCount: 1, Status: model.MemoryActive, LastUsedAt: now,
	}
	require.NoError(t, st.UpsertVendorMemory(ctx, e))

	got, err := st.GetVendorMemory(ctx, "acme", "serviceDate_from_label", "Leistungsdatum")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e, *got)

	// Upsert overwrites in place.
	e.Confidence = 0.80
	e.SupportCount = 2
	require.NoError(t, st.UpsertVendorMemory(ctx, e))
	got, err = st.GetVendorMemory(ctx, "acme", "serviceDate_from_label", "Leistungsdatum")
	require.NoError(t, err)
	assert.InDelta(t, 0.80, got.Confidence, 1e-9)
	assert.Equal(t, 2, got.SupportCount)

	entries, err := st.ListVendorMemory(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = st.ListVendorMemory(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLiteVendorMemory_NeverUsedRoundTrips(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	e := model.VendorMemoryEntry{
		Vendor: "acme", Kind: "k", Pattern: "p",
		Confidence: 0.60, Status: model.MemoryActive,
	}
	require.NoError(t, st.UpsertVendorMemory(ctx, e))

	got, err := st.GetVendorMemory(ctx, "acme", "k", "p")
	require.NoError(t, err)
	assert.True(t, got.LastUsedAt.IsZero(), "zero lastUsedAt must survive the round trip")
}

func TestSQLiteCorrectionMemory(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	missing, err := st.GetCorrectionMemory(ctx, "acme", "currency", "vendor_default", "default")
	require.NoError(t, err)
	assert.Nil(t, missing)

	e := model.CorrectionMemoryEntry{
		Vendor: "acme", FieldPath: "currency", PatternType: "vendor_default", PatternValue: "default",
		Value: "EUR", Confidence: 0.70, SupportCount: 1, Status: model.MemoryActive, LastUsedAt: now,
	}
	require.NoError(t, st.UpsertCorrectionMemory(ctx, e))

	got, err := st.GetCorrectionMemory(ctx, "acme", "currency", "vendor_default", "default")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e, *got)

	e.Value = "USD"
	require.NoError(t, st.UpsertCorrectionMemory(ctx, e))
	got, err = st.GetCorrectionMemory(ctx, "acme", "currency", "vendor_default", "default")
	require.NoError(t, err)
	assert.Equal(t, "USD", got.Value)

	entries, err := st.ListCorrectionMemory(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSQLiteResolutionMemory(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	missing, err := st.GetResolutionMemory(ctx, "acme", "service-date-from-label")
	require.NoError(t, err)
	assert.Nil(t, missing)

	e := model.ResolutionMemoryEntry{
		Vendor: "acme", StrategyKey: "service-date-from-label",
		Confidence: 0.70, Status: model.MemoryActive, LastUsedAt: now,
		Tally: model.ResolutionTally{
			ApprovedCount: 2, RejectedCount: 1,
			LastDecision: model.DecisionApproved, LastInvoiceID: "inv-9",
		},
	}
	require.NoError(t, st.UpsertResolutionMemory(ctx, e))

	got, err := st.GetResolutionMemory(ctx, "acme", "service-date-from-label")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.Tally, got.Tally)
	assert.Equal(t, model.MemoryActive, got.Status)
}

func TestSQLiteDuplicateRecords(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := func(id string, at time.Time) model.DuplicateRecord {
		return model.DuplicateRecord{
			ID: id, InvoiceID: "inv-" + id, Vendor: "acme",
			Fingerprint: "fp-1", DuplicateOf: "run-1", Reason: "same invoice number", CreatedAt: at,
		}
	}
	require.NoError(t, st.CreateDuplicateRecord(ctx, rec("a", base.Add(time.Minute))))
	require.NoError(t, st.CreateDuplicateRecord(ctx, rec("b", base)))

	recs, err := st.ListDuplicateRecordsByFingerprint(ctx, "acme", "fp-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID, "earliest record first")

	recs, err = st.ListDuplicateRecordsByFingerprint(ctx, "acme", "fp-other")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSQLiteLearningEvents(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	learned, err := st.HasLearned(ctx, "inv-1")
	require.NoError(t, err)
	assert.False(t, learned)

	ev := model.LearningEvent{InvoiceID: "inv-1", Decision: model.DecisionApproved, CreatedAt: time.Now().UTC()}
	require.NoError(t, st.MarkLearned(ctx, ev))

	learned, err = st.HasLearned(ctx, "inv-1")
	require.NoError(t, err)
	assert.True(t, learned)

	// A second mark is a silent no-op.
	require.NoError(t, st.MarkLearned(ctx, ev))
}

func TestSQLiteAudit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, st.AppendAudit(ctx, model.AuditEvent{
		ID: "ev-2", Timestamp: base.Add(time.Second), EventType: model.AuditLearningApplied,
		Vendor: "acme", InvoiceID: "inv-1",
	}))
	require.NoError(t, st.AppendAudit(ctx, model.AuditEvent{
		ID: "ev-1", Timestamp: base, EventType: model.AuditRunCreated,
		Vendor: "acme", InvoiceID: "inv-1", EntityType: "run", EntityID: "run-1",
		Metadata: map[string]any{"fingerprint": "fp-1"},
	}))

	events, err := st.ListAudit(ctx, "inv-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ev-1", events[0].ID, "ordered by timestamp")
	assert.Equal(t, "fp-1", events[0].Metadata["fingerprint"])
	assert.Nil(t, events[1].Metadata)

	events, err = st.ListAudit(ctx, "inv-other")
	require.NoError(t, err)
	assert.Empty(t, events)
}
