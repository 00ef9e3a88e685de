// Package dupe detects duplicate invoice submissions before the pipeline
// spends any work on them.
package dupe

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/store"
)

const fingerprintTextLen = 220

// cueRe matches explicit duplicate markers in raw invoice text. A cue alone
// never marks an invoice duplicate; it only sharpens the reason text when a
// corroborating match exists.
var cueRe = regexp.MustCompile(`(?i)\b(duplicate(\s+submission)?|duplikat|doppelte?\s+rechnung|rechnungskopie)\b`)

// Guard checks incoming invoices against prior runs and the duplicate log.
type Guard struct {
	store store.Store
}

// NewGuard creates a Guard backed by the given store.
func NewGuard(st store.Store) *Guard {
	return &Guard{store: st}
}

// Detection is the outcome of a duplicate check.
type Detection struct {
	IsDuplicate bool   `json:"is_duplicate"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// Fingerprint builds the deterministic duplicate-detection key: normalized
// vendor, invoice number, currency, first available total, and the first 220
// normalized characters of raw text, pipe-delimited. Identical invoices
// fingerprint identically regardless of field presentation.
func Fingerprint(inv model.Invoice) string {
	total := ""
	switch {
	case inv.Fields.GrossTotal.Set:
		total = strconv.FormatFloat(inv.Fields.GrossTotal.Value, 'f', 2, 64)
	case inv.Fields.NetTotal.Set:
		total = strconv.FormatFloat(inv.Fields.NetTotal.Value, 'f', 2, 64)
	}

	text := normalize(inv.RawText)
	if runes := []rune(text); len(runes) > fingerprintTextLen {
		text = string(runes[:fingerprintTextLen])
	}

	return strings.Join([]string{
		normalize(inv.Vendor),
		normalize(inv.Fields.InvoiceNumber.Value),
		normalize(inv.Fields.Currency.Value),
		total,
		text,
	}, "|")
}

// normalize lowercases and collapses all whitespace runs to single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Detect runs the duplicate decision chain, first match wins:
//
//  1. same vendor and non-empty invoice number among prior non-duplicate
//     runs — the earliest such run is the canonical original;
//  2. same vendor and invoice number among any prior run, collapsing the
//     prior run's own duplicate-of pointer to the root original;
//  3. same vendor and fingerprint in the duplicate-record log, for
//     submissions without a reliable invoice number;
//  4. otherwise not a duplicate.
func (g *Guard) Detect(ctx context.Context, inv model.Invoice, now time.Time) (Detection, error) {
	det := Detection{Fingerprint: Fingerprint(inv)}

	invoiceNumber := strings.TrimSpace(inv.Fields.InvoiceNumber.Value)
	if invoiceNumber != "" {
		runs, err := g.store.ListRunsByInvoiceNumber(ctx, inv.Vendor, invoiceNumber)
		if err != nil {
			return det, err
		}
		// Exclude any run of this same invoice (reprocessing is not a
		// duplicate submission).
		prior := runs[:0:0]
		for _, r := range runs {
			if r.InvoiceID != inv.ID {
				prior = append(prior, r)
			}
		}

		for _, r := range prior {
			if r.IsDuplicate {
				continue
			}
			det.IsDuplicate = true
			det.DuplicateOf = r.InvoiceID
			det.Reason = fmt.Sprintf("invoice number %q already processed for vendor %q as invoice %s", invoiceNumber, inv.Vendor, r.InvoiceID)
			if cueRe.MatchString(inv.RawText) {
				det.Reason += "; raw text carries an explicit duplicate marker"
			}
			return det, nil
		}

		if len(prior) > 0 {
			// Only duplicate runs share this number: collapse the chain to
			// the earliest run's own original.
			root := prior[0].InvoiceID
			if prior[0].DuplicateOf != "" {
				root = prior[0].DuplicateOf
			}
			det.IsDuplicate = true
			det.DuplicateOf = root
			det.Reason = fmt.Sprintf("invoice number %q matches a prior duplicate submission chain rooted at invoice %s", invoiceNumber, root)
			return det, nil
		}
	}

	recs, err := g.store.ListDuplicateRecordsByFingerprint(ctx, inv.Vendor, det.Fingerprint)
	if err != nil {
		return det, err
	}
	for _, rec := range recs {
		if rec.InvoiceID == inv.ID {
			continue
		}
		det.IsDuplicate = true
		det.DuplicateOf = rec.DuplicateOf
		det.Reason = fmt.Sprintf("fingerprint matches duplicate record %s (original invoice %s)", rec.ID, rec.DuplicateOf)
		return det, nil
	}

	return det, nil
}

// Commit persists the duplicate determination: a DuplicateRecord first (the
// durable fact), then the run's duplicate flag. A failed flag update is
// swallowed — the record already carries the decision.
func (g *Guard) Commit(ctx context.Context, run model.InvoiceRun, det Detection, now time.Time) (model.DuplicateRecord, error) {
	rec := model.DuplicateRecord{
		ID:          uuid.New().String(),
		InvoiceID:   run.InvoiceID,
		Vendor:      run.Vendor,
		Fingerprint: det.Fingerprint,
		DuplicateOf: det.DuplicateOf,
		Reason:      det.Reason,
		CreatedAt:   now.UTC(),
	}
	if err := g.store.CreateDuplicateRecord(ctx, rec); err != nil {
		return rec, err
	}
	if err := g.store.MarkRunDuplicate(ctx, run.ID, det.DuplicateOf); err != nil {
		zap.L().Warn("dupe: failed to mark run duplicate",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
	return rec, nil
}
