package dupe

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/store"
)

var guardNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestGuard(t *testing.T) (*Guard, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "guard.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return NewGuard(st), st
}

func invoiceWithNumber(id, number string) model.Invoice {
	return model.Invoice{
		ID:     id,
		Vendor: "Acme GmbH",
		Fields: model.Fields{
			InvoiceNumber: model.S(number),
			Currency:      model.S("EUR"),
			GrossTotal:    model.N(119),
		},
		RawText: "Rechnung " + number,
	}
}

func TestFingerprint(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		inv := invoiceWithNumber("inv-1", "R-1001")
		assert.Equal(t, Fingerprint(inv), Fingerprint(inv))
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		a := invoiceWithNumber("inv-1", "R-1001")
		b := invoiceWithNumber("inv-2", "r-1001")
		b.Vendor = "  ACME   GmbH "
		b.RawText = "RECHNUNG\t R-1001"
		assert.Equal(t, Fingerprint(a), Fingerprint(b))
	})

	t.Run("invoice number changes the fingerprint", func(t *testing.T) {
		a := invoiceWithNumber("inv-1", "R-1001")
		b := invoiceWithNumber("inv-1", "R-1002")
		assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
	})

	t.Run("net total backs a missing gross total", func(t *testing.T) {
		inv := invoiceWithNumber("inv-1", "R-1001")
		inv.Fields.GrossTotal = model.Num{}
		inv.Fields.NetTotal = model.N(100)
		assert.Contains(t, Fingerprint(inv), "|100.00|")
	})

	t.Run("raw text contributes only its first 220 runes", func(t *testing.T) {
		prefix := strings.Repeat("x ", 150)
		a := invoiceWithNumber("inv-1", "R-1001")
		a.RawText = prefix + "tail one"
		b := invoiceWithNumber("inv-2", "R-1001")
		b.RawText = prefix + "tail two"
		assert.Equal(t, Fingerprint(a), Fingerprint(b))
	})
}

func TestGuard_Detect(t *testing.T) {
	ctx := context.Background()

	seedRun := func(t *testing.T, st store.Store, id, invoiceID, number string, isDup bool, dupOf string, at time.Time) {
		t.Helper()
		require.NoError(t, st.CreateRun(ctx, model.InvoiceRun{
			ID:            id,
			InvoiceID:     invoiceID,
			Vendor:        "Acme GmbH",
			InvoiceNumber: number,
			Fingerprint:   "fp-" + number,
			IsDuplicate:   isDup,
			DuplicateOf:   dupOf,
			CreatedAt:     at,
		}))
	}

	t.Run("first submission is clean", func(t *testing.T) {
		g, _ := newTestGuard(t)
		det, err := g.Detect(ctx, invoiceWithNumber("inv-1", "R-1001"), guardNow)
		require.NoError(t, err)
		assert.False(t, det.IsDuplicate)
		assert.NotEmpty(t, det.Fingerprint)
	})

	t.Run("same vendor and invoice number is a duplicate", func(t *testing.T) {
		g, st := newTestGuard(t)
		seedRun(t, st, "run-1", "inv-1", "R-1001", false, "", guardNow.Add(-time.Hour))

		det, err := g.Detect(ctx, invoiceWithNumber("inv-2", "R-1001"), guardNow)
		require.NoError(t, err)
		assert.True(t, det.IsDuplicate)
		assert.Equal(t, "inv-1", det.DuplicateOf)
		assert.Contains(t, det.Reason, `invoice number "R-1001" already processed`)
	})

	t.Run("explicit duplicate marker sharpens the reason", func(t *testing.T) {
		g, st := newTestGuard(t)
		seedRun(t, st, "run-1", "inv-1", "R-1001", false, "", guardNow.Add(-time.Hour))

		inv := invoiceWithNumber("inv-2", "R-1001")
		inv.RawText = "Duplikat der Rechnung R-1001"
		det, err := g.Detect(ctx, inv, guardNow)
		require.NoError(t, err)
		assert.True(t, det.IsDuplicate)
		assert.Contains(t, det.Reason, "explicit duplicate marker")
	})

	t.Run("reprocessing the same invoice is not a duplicate", func(t *testing.T) {
		g, st := newTestGuard(t)
		seedRun(t, st, "run-1", "inv-1", "R-1001", false, "", guardNow.Add(-time.Hour))

		det, err := g.Detect(ctx, invoiceWithNumber("inv-1", "R-1001"), guardNow)
		require.NoError(t, err)
		assert.False(t, det.IsDuplicate)
	})

	t.Run("duplicate chain collapses to the root original", func(t *testing.T) {
		g, st := newTestGuard(t)
		// Only duplicate runs carry this number; each points at inv-root.
		seedRun(t, st, "run-1", "inv-1", "R-1001", true, "inv-root", guardNow.Add(-2*time.Hour))
		seedRun(t, st, "run-2", "inv-2", "R-1001", true, "inv-root", guardNow.Add(-time.Hour))

		det, err := g.Detect(ctx, invoiceWithNumber("inv-3", "R-1001"), guardNow)
		require.NoError(t, err)
		assert.True(t, det.IsDuplicate)
		assert.Equal(t, "inv-root", det.DuplicateOf)
		assert.Contains(t, det.Reason, "duplicate submission chain")
	})

	t.Run("fingerprint match without an invoice number", func(t *testing.T) {
		g, st := newTestGuard(t)

		inv := invoiceWithNumber("inv-2", "")
		inv.Fields.InvoiceNumber = model.Str{}
		require.NoError(t, st.CreateDuplicateRecord(ctx, model.DuplicateRecord{
			ID:          "rec-1",
			InvoiceID:   "inv-9",
			Vendor:      "Acme GmbH",
			Fingerprint: Fingerprint(inv),
			DuplicateOf: "inv-1",
			Reason:      "seed",
			CreatedAt:   guardNow.Add(-time.Hour),
		}))

		det, err := g.Detect(ctx, inv, guardNow)
		require.NoError(t, err)
		assert.True(t, det.IsDuplicate)
		assert.Equal(t, "inv-1", det.DuplicateOf)
		assert.Contains(t, det.Reason, "fingerprint matches duplicate record")
	})

	t.Run("cue alone never marks a duplicate", func(t *testing.T) {
		g, _ := newTestGuard(t)
		inv := invoiceWithNumber("inv-1", "R-1001")
		inv.RawText = "Duplikat? Bitte prüfen."
		det, err := g.Detect(ctx, inv, guardNow)
		require.NoError(t, err)
		assert.False(t, det.IsDuplicate)
	})
}

func TestGuard_Commit(t *testing.T) {
	ctx := context.Background()
	g, st := newTestGuard(t)

	run := model.InvoiceRun{
		ID:            "run-1",
		InvoiceID:     "inv-2",
		Vendor:        "Acme GmbH",
		InvoiceNumber: "R-1001",
		Fingerprint:   "fp-1",
		IsDuplicate:   true,
		DuplicateOf:   "inv-1",
		CreatedAt:     guardNow,
	}
	require.NoError(t, st.CreateRun(ctx, run))

	det := Detection{IsDuplicate: true, DuplicateOf: "inv-1", Reason: "test", Fingerprint: "fp-1"}
	rec, err := g.Commit(ctx, run, det, guardNow)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "inv-2", rec.InvoiceID)
	assert.Equal(t, "inv-1", rec.DuplicateOf)

	recs, err := st.ListDuplicateRecordsByFingerprint(ctx, "Acme GmbH", "fp-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	got, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsDuplicate)
	assert.Equal(t, "inv-1", got.DuplicateOf)
}
