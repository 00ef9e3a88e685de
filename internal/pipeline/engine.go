// Package pipeline runs the four-phase correction pipeline for one invoice:
// recall stored memory, apply the heuristic catalogue, decide whether a human
// must review, and learn from an accompanying verdict.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/audit"
	"github.com/sells-group/invoice-cli/internal/dupe"
	"github.com/sells-group/invoice-cli/internal/memory"
	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/registry"
	"github.com/sells-group/invoice-cli/internal/store"
)

const (
	// DefaultReviewThreshold gates auto-approval: any correction below it
	// sends the invoice to review.
	DefaultReviewThreshold = 0.75

	// baselineConfidence is the aggregate score of an invoice that needed
	// no corrections at all.
	baselineConfidence = 0.90

	// duplicateConfidence is the fixed score of a short-circuited duplicate.
	duplicateConfidence = 0.20
)

// Input is one pipeline invocation. Now is the logical clock for the whole
// run; a zero Now means wall time. Decision, when present, is a reviewer's
// verdict on this invoice's previously proposed corrections.
type Input struct {
	Invoice   model.Invoice
	Reference model.ReferenceData
	Decision  *model.HumanDecision
	Now       time.Time
}

// Engine wires the duplicate guard, memory stores and heuristic catalogue
// into the four-phase pipeline.
type Engine struct {
	store           store.Store
	guard           *dupe.Guard
	audit           *audit.Recorder
	registry        *registry.VendorRegistry
	heuristics      []Heuristic
	reviewThreshold float64
}

// New creates an Engine. A zero reviewThreshold selects the default.
func New(st store.Store, reg *registry.VendorRegistry, reviewThreshold float64) *Engine {
	if reg == nil {
		reg = registry.Default()
	}
	if reviewThreshold <= 0 {
		reviewThreshold = DefaultReviewThreshold
	}
	return &Engine{
		store:           st,
		guard:           dupe.NewGuard(st),
		audit:           audit.NewRecorder(st),
		registry:        reg,
		heuristics:      Catalogue(),
		reviewThreshold: reviewThreshold,
	}
}

// applied pairs a proposed correction with the candidate and heuristic that
// produced it, so the Learn phase knows what to reinforce or penalize.
type applied struct {
	corr model.Correction
	cand Candidate
	heur Heuristic
}

// Process runs one invoice through the pipeline. Store write failures on the
// run record or memory mutations fail the invocation; audit-log appends never
// do.
func (e *Engine) Process(ctx context.Context, in Input) (*model.PipelineOutput, error) {
	inv := in.Invoice
	if inv.ID == "" || inv.Vendor == "" {
		return nil, eris.New("pipeline: invoice id and vendor are required")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	log := zap.L().With(
		zap.String("invoice_id", inv.ID),
		zap.String("vendor", inv.Vendor),
	)
	log.Info("pipeline: processing invoice")

	det, err := e.guard.Detect(ctx, inv, now)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: duplicate check")
	}

	run := model.InvoiceRun{
		ID:            uuid.New().String(),
		InvoiceID:     inv.ID,
		Vendor:        inv.Vendor,
		Dataset:       inv.Dataset,
		InvoiceNumber: inv.Fields.InvoiceNumber.Value,
		Fingerprint:   det.Fingerprint,
		IsDuplicate:   det.IsDuplicate,
		DuplicateOf:   det.DuplicateOf,
		CreatedAt:     now,
	}
	if err := e.store.CreateRun(ctx, run); err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	e.audit.Event(ctx, now, model.AuditRunCreated, inv.Vendor, inv.ID, "run", run.ID, map[string]any{
		"fingerprint": det.Fingerprint,
	})

	out := &model.PipelineOutput{
		RunID:     run.ID,
		InvoiceID: inv.ID,
		Vendor:    inv.Vendor,
		Fields:    inv.Fields,
		LineItems: inv.LineItems,
	}

	if det.IsDuplicate {
		if _, err := e.guard.Commit(ctx, run, det, now); err != nil {
			return nil, eris.Wrap(err, "pipeline: record duplicate")
		}
		e.audit.Event(ctx, now, model.AuditDuplicateDetected, inv.Vendor, inv.ID, "run", run.ID, map[string]any{
			"duplicate_of": det.DuplicateOf,
			"reason":       det.Reason,
		})
		log.Warn("pipeline: duplicate submission", zap.String("duplicate_of", det.DuplicateOf))

		out.IsDuplicate = true
		out.DuplicateOf = det.DuplicateOf
		out.RequiresReview = true
		out.ConfidenceScore = duplicateConfidence
		out.Reasoning = det.Reason
		out.Corrections = []model.Correction{}
		for _, name := range []string{model.PhaseRecall, model.PhaseApply, model.PhaseDecide, model.PhaseLearn} {
			out.Phases = append(out.Phases, model.PhaseTrace{
				Name:     name,
				Status:   "skipped",
				Metadata: map[string]any{"reason": "duplicate submission"},
			})
		}
		return out, nil
	}

	trace := func(name, status string, md map[string]any) {
		out.Phases = append(out.Phases, model.PhaseTrace{Name: name, Status: status, Metadata: md})
	}

	// Recall.
	rc := &RunContext{
		Invoice:   inv,
		Reference: in.Reference,
		Profile:   e.registry.Profile(inv.Vendor),
		Now:       now,
	}
	rc.VendorMemory, err = e.store.ListVendorMemory(ctx, inv.Vendor)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: recall vendor memory")
	}
	rc.CorrectionMemory, err = e.store.ListCorrectionMemory(ctx, inv.Vendor)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: recall correction memory")
	}
	trace(model.PhaseRecall, "completed", map[string]any{
		"vendor_entries":     len(rc.VendorMemory),
		"correction_entries": len(rc.CorrectionMemory),
	})

	// Apply.
	appliedList, err := e.apply(ctx, rc)
	if err != nil {
		return nil, err
	}
	for _, skip := range rc.Skips() {
		e.audit.Event(ctx, now, model.AuditMemorySkipped, inv.Vendor, inv.ID, skip.Store, skip.Key, map[string]any{
			"reason": skip.Reason,
		})
	}
	out.Corrections = make([]model.Correction, 0, len(appliedList))
	for _, a := range appliedList {
		out.Corrections = append(out.Corrections, a.corr)
	}
	trace(model.PhaseApply, "completed", map[string]any{
		"corrections":    len(out.Corrections),
		"memory_skipped": len(rc.Skips()),
	})

	// Decide.
	v := decide(inv, out.Corrections, e.reviewThreshold)
	out.RequiresReview = v.requiresReview
	out.ConfidenceScore = v.confidence
	out.Reasoning = v.reasoning()
	trace(model.PhaseDecide, "completed", map[string]any{
		"requires_review": v.requiresReview,
		"confidence":      v.confidence,
	})

	// Learn.
	if in.Decision == nil || in.Decision.InvoiceID != inv.ID {
		trace(model.PhaseLearn, "skipped", map[string]any{"reason": "no verdict supplied"})
	} else {
		mutations, status, err := e.learn(ctx, now, inv, *in.Decision, appliedList)
		if err != nil {
			return nil, err
		}
		out.Mutations = mutations
		trace(model.PhaseLearn, status, map[string]any{"mutations": len(mutations)})
	}

	log.Info("pipeline: done",
		zap.Int("corrections", len(out.Corrections)),
		zap.Bool("requires_review", out.RequiresReview),
		zap.Float64("confidence", out.ConfidenceScore),
	)
	return out, nil
}

// apply runs the catalogue in its fixed order, shaping every candidate's
// confidence through the vendor's resolution tally for that strategy. Every
// correction-memory entry a heuristic consulted and trusted is marked used,
// resetting its decay clock.
func (e *Engine) apply(ctx context.Context, rc *RunContext) ([]applied, error) {
	var result []applied
	touched := map[string]bool{}
	for _, h := range e.heuristics {
		cands := h.Detect(rc)
		if len(cands) == 0 {
			continue
		}
		res, err := e.store.GetResolutionMemory(ctx, rc.Invoice.Vendor, h.StrategyKey())
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: resolution memory for %s", h.StrategyKey())
		}
		for _, cand := range cands {
			if used := cand.UsedCorrection; used != nil {
				key := used.FieldPath + "/" + used.PatternType + "/" + used.PatternValue
				if !touched[key] {
					touched[key] = true
					used.LastUsedAt = rc.Now
					if err := e.store.UpsertCorrectionMemory(ctx, *used); err != nil {
						return nil, eris.Wrapf(err, "pipeline: mark correction memory used for %s", key)
					}
				}
			}
			base := cand.ConfidenceOverride
			if base == 0 {
				base = h.BaseConfidence(cand.MemoryBacked)
			}
			result = append(result, applied{
				corr: model.Correction{
					Field:       cand.Field,
					From:        cand.From,
					To:          cand.To,
					Source:      cand.Source,
					Confidence:  memory.ShapeConfidence(base, res),
					Reason:      cand.Reason,
					StrategyKey: h.StrategyKey(),
				},
				cand: cand,
				heur: h,
			})
		}
	}
	return result, nil
}
