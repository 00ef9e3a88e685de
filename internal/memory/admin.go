package memory

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/audit"
	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/store"
)

// Admin performs the operator-only memory mutations: disabling an entry out
// of band and resetting a disabled entry back to the creation baseline.
// Disabling through rejections is terminal; these are the only revival path.
type Admin struct {
	store store.Store
	audit *audit.Recorder
}

// NewAdmin creates an Admin backed by the given store.
func NewAdmin(st store.Store) *Admin {
	return &Admin{store: st, audit: audit.NewRecorder(st)}
}

// DisableVendorEntry force-disables a vendor-memory entry.
func (a *Admin) DisableVendorEntry(ctx context.Context, vendor, kind, pattern string, now time.Time) error {
	e, err := a.store.GetVendorMemory(ctx, vendor, kind, pattern)
	if err != nil {
		return eris.Wrap(err, "memory: get vendor entry")
	}
	if e == nil {
		return eris.Errorf("memory: no vendor entry %s/%s/%s", vendor, kind, pattern)
	}
	e.Status = model.MemoryDisabled
	e.LastUsedAt = now
	if err := a.store.UpsertVendorMemory(ctx, *e); err != nil {
		return eris.Wrap(err, "memory: disable vendor entry")
	}
	a.audit.Event(ctx, now, model.AuditMemoryDisabled, vendor, "", "vendor", vendor+"/"+kind+"/"+pattern, map[string]any{
		"operator": true,
	})
	return nil
}

// ResetVendorEntry revives an entry at the creation baseline with cleared
// counters, as if freshly learned.
func (a *Admin) ResetVendorEntry(ctx context.Context, vendor, kind, pattern string, now time.Time) error {
	e, err := a.store.GetVendorMemory(ctx, vendor, kind, pattern)
	if err != nil {
		return eris.Wrap(err, "memory: get vendor entry")
	}
	if e == nil {
		return eris.Errorf("memory: no vendor entry %s/%s/%s", vendor, kind, pattern)
	}
	e.Confidence = CreationBaseline
	e.SupportCount = 0
	e.RejectCount = 0
	e.Status = model.MemoryActive
	e.LastUsedAt = now
	if err := a.store.UpsertVendorMemory(ctx, *e); err != nil {
		return eris.Wrap(err, "memory: reset vendor entry")
	}
	a.audit.Event(ctx, now, model.AuditMemoryReset, vendor, "", "vendor", vendor+"/"+kind+"/"+pattern, map[string]any{
		"operator": true,
	})
	return nil
}

// DisableCorrectionEntry force-disables a correction-memory entry.
func (a *Admin) DisableCorrectionEntry(ctx context.Context, vendor, fieldPath, patternType, patternValue string, now time.Time) error {
	e, err := a.store.GetCorrectionMemory(ctx, vendor, fieldPath, patternType, patternValue)
	if err != nil {
		return eris.Wrap(err, "memory: get correction entry")
	}
	if e == nil {
		return eris.Errorf("memory: no correction entry %s/%s/%s/%s", vendor, fieldPath, patternType, patternValue)
	}
	e.Status = model.MemoryDisabled
	e.LastUsedAt = now
	if err := a.store.UpsertCorrectionMemory(ctx, *e); err != nil {
		return eris.Wrap(err, "memory: disable correction entry")
	}
	a.audit.Event(ctx, now, model.AuditMemoryDisabled, vendor, "", "correction", vendor+"/"+fieldPath+"/"+patternType+"/"+patternValue, map[string]any{
		"operator": true,
	})
	return nil
}

// ResetCorrectionEntry revives a correction entry at the creation baseline.
// The stored replacement value survives the reset.
func (a *Admin) ResetCorrectionEntry(ctx context.Context, vendor, fieldPath, patternType, patternValue string, now time.Time) error {
	e, err := a.store.GetCorrectionMemory(ctx, vendor, fieldPath, patternType, patternValue)
	if err != nil {
		return eris.Wrap(err, "memory: get correction entry")
	}
	if e == nil {
		return eris.Errorf("memory: no correction entry %s/%s/%s/%s", vendor, fieldPath, patternType, patternValue)
	}
	e.Confidence = CreationBaseline
	e.SupportCount = 0
	e.RejectCount = 0
	e.Status = model.MemoryActive
	e.LastUsedAt = now
	if err := a.store.UpsertCorrectionMemory(ctx, *e); err != nil {
		return eris.Wrap(err, "memory: reset correction entry")
	}
	a.audit.Event(ctx, now, model.AuditMemoryReset, vendor, "", "correction", vendor+"/"+fieldPath+"/"+patternType+"/"+patternValue, map[string]any{
		"operator": true,
	})
	return nil
}

// ResetResolution clears a strategy's tally for a vendor, reviving a
// disabled strategy class.
func (a *Admin) ResetResolution(ctx context.Context, vendor, strategyKey string, now time.Time) error {
	e, err := a.store.GetResolutionMemory(ctx, vendor, strategyKey)
	if err != nil {
		return eris.Wrap(err, "memory: get resolution entry")
	}
	if e == nil {
		return eris.Errorf("memory: no resolution entry %s/%s", vendor, strategyKey)
	}
	e.Tally = model.ResolutionTally{}
	e.Confidence = CreationBaseline
	e.RejectCount = 0
	e.Status = model.MemoryActive
	e.LastUsedAt = now
	if err := a.store.UpsertResolutionMemory(ctx, *e); err != nil {
		return eris.Wrap(err, "memory: reset resolution entry")
	}
	a.audit.Event(ctx, now, model.AuditMemoryReset, vendor, "", "resolution", vendor+"/"+strategyKey, map[string]any{
		"operator": true,
	})
	return nil
}
