// Package audit appends pipeline and administrative events to the audit log.
// The log is an observability sink: the pipeline writes it and never reads
// it back, and a failed append never fails the surrounding operation.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/store"
)

// Recorder writes audit events to the store and mirrors them to the logger.
type Recorder struct {
	store store.Store
}

// NewRecorder creates a Recorder backed by the given store.
func NewRecorder(st store.Store) *Recorder {
	return &Recorder{store: st}
}

// Event appends one audit event at the given logical instant. Append failures
// are logged and swallowed.
func (r *Recorder) Event(ctx context.Context, now time.Time, eventType, vendor, invoiceID, entityType, entityID string, metadata map[string]any) {
	ev := model.AuditEvent{
		ID:         uuid.New().String(),
		Timestamp:  now.UTC(),
		EventType:  eventType,
		Vendor:     vendor,
		InvoiceID:  invoiceID,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
	}
	if err := r.store.AppendAudit(ctx, ev); err != nil {
		zap.L().Warn("audit: append failed",
			zap.String("event_type", eventType),
			zap.String("invoice_id", invoiceID),
			zap.Error(err),
		)
		return
	}
	zap.L().Debug("audit: event",
		zap.String("event_type", eventType),
		zap.String("vendor", vendor),
		zap.String("invoice_id", invoiceID),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
	)
}
