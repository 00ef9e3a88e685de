package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/memory"
	"github.com/sells-group/invoice-cli/internal/model"
)

// learn folds a reviewer's verdict into the memory stores. It is idempotent
// per invoice: a second verdict for the same invoice is a no-op.
func (e *Engine) learn(ctx context.Context, now time.Time, inv model.Invoice, decision model.HumanDecision, appliedList []applied) ([]model.MemoryMutation, string, error) {
	done, err := e.store.HasLearned(ctx, inv.ID)
	if err != nil {
		return nil, "", eris.Wrap(err, "pipeline: learning check")
	}
	if done {
		e.audit.Event(ctx, now, model.AuditLearningNoop, inv.Vendor, inv.ID, "invoice", inv.ID, map[string]any{
			"reason": "verdict already learned for this invoice",
		})
		return nil, "noop", nil
	}

	covered := appliedList[:0:0]
	for _, a := range appliedList {
		if decision.Covers(a.corr.Field) {
			covered = append(covered, a)
		}
	}

	var mutations []model.MemoryMutation
	record := func(m model.MemoryMutation, eventType string) {
		mutations = append(mutations, m)
		e.audit.Event(ctx, now, eventType, inv.Vendor, inv.ID, m.Store, m.Key, map[string]any{
			"action":     m.Action,
			"confidence": m.Confidence,
		})
	}

	switch decision.Decision {
	case model.DecisionApproved:
		if err := e.learnApproval(ctx, now, inv, covered, record); err != nil {
			return nil, "", err
		}
	case model.DecisionRejected:
		if err := e.learnRejection(ctx, now, inv, covered, record); err != nil {
			return nil, "", err
		}
	default:
		return nil, "", eris.Errorf("pipeline: unknown decision %q", decision.Decision)
	}

	// Resolution memory tallies the verdict per exercised strategy, for
	// approvals and rejections alike.
	seen := make(map[string]struct{})
	for _, a := range covered {
		key := a.heur.StrategyKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		existing, err := e.store.GetResolutionMemory(ctx, inv.Vendor, key)
		if err != nil {
			return nil, "", eris.Wrapf(err, "pipeline: resolution memory for %s", key)
		}
		entry := memory.RecordResolution(existing, inv.Vendor, key, decision.Decision, inv.ID, now)
		if err := e.store.UpsertResolutionMemory(ctx, entry); err != nil {
			return nil, "", eris.Wrapf(err, "pipeline: upsert resolution memory for %s", key)
		}
		record(model.MemoryMutation{
			Store:      "resolution",
			Action:     upsertAction(existing != nil),
			Key:        inv.Vendor + "/" + key,
			Confidence: entry.Confidence,
		}, memoryEventType(existing != nil, entry.Status))
	}

	if err := e.store.MarkLearned(ctx, model.LearningEvent{
		InvoiceID: inv.ID,
		Decision:  decision.Decision,
		CreatedAt: now.UTC(),
	}); err != nil {
		return nil, "", eris.Wrap(err, "pipeline: mark learned")
	}
	e.audit.Event(ctx, now, model.AuditLearningApplied, inv.Vendor, inv.ID, "invoice", inv.ID, map[string]any{
		"decision":  decision.Decision,
		"mutations": len(mutations),
	})
	zap.L().Info("pipeline: verdict learned",
		zap.String("invoice_id", inv.ID),
		zap.String("decision", decision.Decision),
		zap.Int("mutations", len(mutations)),
	)
	return mutations, "completed", nil
}

// learnApproval reinforces the vendor-memory pattern behind every covered
// correction and stores reusable replacement values in correction memory.
func (e *Engine) learnApproval(ctx context.Context, now time.Time, inv model.Invoice, covered []applied, record func(model.MemoryMutation, string)) error {
	seenVendor := make(map[string]struct{})
	seenCorrection := make(map[string]struct{})
	for _, a := range covered {
		kind, pattern := a.heur.Kind(), a.cand.Pattern
		vkey := kind + "/" + pattern
		if _, ok := seenVendor[vkey]; !ok {
			seenVendor[vkey] = struct{}{}
			existing, err := e.store.GetVendorMemory(ctx, inv.Vendor, kind, pattern)
			if err != nil {
				return eris.Wrapf(err, "pipeline: vendor memory for %s", vkey)
			}
			entry := memory.ApproveVendorEntry(existing, inv.Vendor, kind, pattern, now)
			if err := e.store.UpsertVendorMemory(ctx, entry); err != nil {
				return eris.Wrapf(err, "pipeline: upsert vendor memory for %s", vkey)
			}
			record(model.MemoryMutation{
				Store:      "vendor",
				Action:     upsertAction(existing != nil),
				Key:        inv.Vendor + "/" + vkey,
				Confidence: entry.Confidence,
			}, memoryEventType(existing != nil, entry.Status))
		}

		fieldPath, ptype, pvalue, ok := correctionKey(a.cand, a.corr)
		if !ok {
			continue
		}
		ckey := fieldPath + "/" + ptype + "/" + pvalue
		if _, dup := seenCorrection[ckey]; dup {
			continue
		}
		seenCorrection[ckey] = struct{}{}
		existing, err := e.store.GetCorrectionMemory(ctx, inv.Vendor, fieldPath, ptype, pvalue)
		if err != nil {
			return eris.Wrapf(err, "pipeline: correction memory for %s", ckey)
		}
		entry := memory.ApproveCorrectionEntry(existing, inv.Vendor, fieldPath, ptype, pvalue, a.corr.To, now)
		if err := e.store.UpsertCorrectionMemory(ctx, entry); err != nil {
			return eris.Wrapf(err, "pipeline: upsert correction memory for %s", ckey)
		}
		record(model.MemoryMutation{
			Store:      "correction",
			Action:     upsertAction(existing != nil),
			Key:        inv.Vendor + "/" + ckey,
			Confidence: entry.Confidence,
		}, memoryEventType(existing != nil, entry.Status))
	}
	return nil
}

// learnRejection steps down the stored entries behind the covered
// corrections. Entries that were never stored have nothing to penalize.
func (e *Engine) learnRejection(ctx context.Context, now time.Time, inv model.Invoice, covered []applied, record func(model.MemoryMutation, string)) error {
	seenVendor := make(map[string]struct{})
	seenCorrection := make(map[string]struct{})
	for _, a := range covered {
		kind, pattern := a.heur.Kind(), a.cand.Pattern
		vkey := kind + "/" + pattern
		if _, ok := seenVendor[vkey]; !ok {
			seenVendor[vkey] = struct{}{}
			existing, err := e.store.GetVendorMemory(ctx, inv.Vendor, kind, pattern)
			if err != nil {
				return eris.Wrapf(err, "pipeline: vendor memory for %s", vkey)
			}
			if existing != nil {
				entry := memory.RejectVendorEntry(*existing, now)
				if err := e.store.UpsertVendorMemory(ctx, entry); err != nil {
					return eris.Wrapf(err, "pipeline: upsert vendor memory for %s", vkey)
				}
				record(model.MemoryMutation{
					Store:      "vendor",
					Action:     "rejected",
					Key:        inv.Vendor + "/" + vkey,
					Confidence: entry.Confidence,
				}, rejectEventType(entry.Status))
			}
		}

		if a.cand.UsedCorrection == nil {
			continue
		}
		used := a.cand.UsedCorrection
		ckey := used.FieldPath + "/" + used.PatternType + "/" + used.PatternValue
		if _, dup := seenCorrection[ckey]; dup {
			continue
		}
		seenCorrection[ckey] = struct{}{}
		entry := memory.RejectCorrectionEntry(*used, now)
		if err := e.store.UpsertCorrectionMemory(ctx, entry); err != nil {
			return eris.Wrapf(err, "pipeline: upsert correction memory for %s", ckey)
		}
		record(model.MemoryMutation{
			Store:      "correction",
			Action:     "rejected",
			Key:        inv.Vendor + "/" + ckey,
			Confidence: entry.Confidence,
		}, rejectEventType(entry.Status))
	}
	return nil
}

// correctionKey maps an approved correction to its reusable correction-memory
// key. Values tied to a single invoice (dates, totals, PO numbers) are not
// stored; only vendor-stable replacements are.
func correctionKey(cand Candidate, corr model.Correction) (fieldPath, patternType, patternValue string, ok bool) {
	switch {
	case cand.SKU != "":
		return fieldPathLineQty, "sku", cand.SKU, true
	case corr.Field == model.FieldCurrency:
		return model.FieldCurrency, "vendor_default", "default", true
	case corr.Field == model.FieldPaymentTerms:
		return model.FieldPaymentTerms, "vendor_default", "default", true
	case cand.Pattern == "freight":
		return fieldPathLineSKU, "line_kind", "freight", true
	default:
		return "", "", "", false
	}
}

func upsertAction(existed bool) string {
	if existed {
		return "updated"
	}
	return "created"
}

func memoryEventType(existed bool, status model.MemoryStatus) string {
	if status == model.MemoryDisabled {
		return model.AuditMemoryDisabled
	}
	if existed {
		return model.AuditMemoryUpdated
	}
	return model.AuditMemoryCreated
}

func rejectEventType(status model.MemoryStatus) string {
	if status == model.MemoryDisabled {
		return model.AuditMemoryDisabled
	}
	return model.AuditMemoryUpdated
}
