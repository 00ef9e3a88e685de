package pipeline

import (
	"fmt"

	"github.com/sells-group/invoice-cli/internal/model"
)

// quantityHeuristic reconciles billed line quantities against the vendor's
// delivery notes. When no delivery note covers a line with a missing
// quantity, a trusted correction-memory entry keyed by SKU supplies the
// recommended value at a reduced confidence.
type quantityHeuristic struct{}

const (
	kindQuantity     = "qty_from_delivery_note"
	strategyQuantity = "qty-to-delivery-note"

	qtyBase       = 0.68
	qtyMemoryBase = 0.85

	// Correction-memory fallback runs without a live delivery note, so it
	// starts below either detection base.
	qtyFallbackBase = 0.62

	fieldPathLineQty = "lineItems[].qty"
)

func (h *quantityHeuristic) Kind() string        { return kindQuantity }
func (h *quantityHeuristic) StrategyKey() string { return strategyQuantity }

func (h *quantityHeuristic) BaseConfidence(memoryBacked bool) float64 {
	if memoryBacked {
		return qtyMemoryBase
	}
	return qtyBase
}

func (h *quantityHeuristic) Detect(rc *RunContext) []Candidate {
	memoryBacked := rc.TrustedVendorEntry(kindQuantity, "delivery_note") != nil
	var cands []Candidate
	for i := range rc.Invoice.LineItems {
		li := &rc.Invoice.LineItems[i]
		if li.SKU == "" {
			continue
		}
		field := fmt.Sprintf("lineItems[%d].qty", i)
		delivered, found := h.deliveredQty(rc, li.SKU)
		switch {
		case found && li.Qty.Set && li.Qty.Value != delivered:
			cands = append(cands, Candidate{
				Field:        field,
				From:         formatAmount(li.Qty.Value),
				To:           formatAmount(delivered),
				Pattern:      "delivery_note",
				Source:       model.SourceReferenceData,
				MemoryBacked: memoryBacked,
				SKU:          li.SKU,
				Reason:       fmt.Sprintf("delivery note records %s of SKU %s, invoice bills %s", formatAmount(delivered), li.SKU, formatAmount(li.Qty.Value)),
			})
		case found && !li.Qty.Set:
			cands = append(cands, Candidate{
				Field:        field,
				To:           formatAmount(delivered),
				Pattern:      "delivery_note",
				Source:       model.SourceReferenceData,
				MemoryBacked: memoryBacked,
				SKU:          li.SKU,
				Reason:       fmt.Sprintf("missing quantity for SKU %s taken from the delivery note", li.SKU),
			})
		case !found && !li.Qty.Set:
			e := rc.TrustedCorrection(fieldPathLineQty, "sku", li.SKU)
			if e == nil {
				continue
			}
			cands = append(cands, Candidate{
				Field:              field,
				To:                 e.Value,
				Pattern:            "delivery_note",
				Source:             model.SourceCorrectionMemory,
				ConfidenceOverride: qtyFallbackBase,
				UsedCorrection:     e,
				SKU:                li.SKU,
				Reason:             fmt.Sprintf("no delivery note covers SKU %s; previously confirmed quantity reused", li.SKU),
			})
		}
	}
	return cands
}

// deliveredQty sums deliveries of the SKU across the vendor's notes,
// restricted to the invoice's PO when both sides name one.
func (h *quantityHeuristic) deliveredQty(rc *RunContext, sku string) (float64, bool) {
	po := rc.Invoice.Fields.PONumber
	total, found := 0.0, false
	for _, dn := range rc.Reference.DeliveryNotes {
		if dn.Vendor != rc.Invoice.Vendor {
			continue
		}
		if po.Set && dn.PONumber != "" && dn.PONumber != po.Value {
			continue
		}
		for _, line := range dn.Lines {
			if line.SKU == sku {
				total += line.QtyDelivered
				found = true
			}
		}
	}
	return total, found
}
