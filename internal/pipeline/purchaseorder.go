package pipeline

import (
	"fmt"
	"time"

	"github.com/sells-group/invoice-cli/internal/model"
)

// purchaseOrderHeuristic infers a missing PO number by matching invoice line
// SKUs against the vendor's open purchase orders inside a 30-day date window.
// Only a unique match is ever proposed.
type purchaseOrderHeuristic struct{}

const (
	kindPurchaseOrder     = "po_from_sku_window"
	strategyPurchaseOrder = "po-by-sku-date-window"

	poBase       = 0.70
	poMemoryBase = 0.86

	poWindowDays = 30
)

func (h *purchaseOrderHeuristic) Kind() string        { return kindPurchaseOrder }
func (h *purchaseOrderHeuristic) StrategyKey() string { return strategyPurchaseOrder }

func (h *purchaseOrderHeuristic) BaseConfidence(memoryBacked bool) float64 {
	if memoryBacked {
		return poMemoryBase
	}
	return poBase
}

func (h *purchaseOrderHeuristic) Detect(rc *RunContext) []Candidate {
	f := rc.Invoice.Fields
	if f.PONumber.Set || !f.InvoiceDate.Set || len(rc.Reference.PurchaseOrders) == 0 {
		return nil
	}
	invDate, err := time.Parse("2006-01-02", f.InvoiceDate.Value)
	if err != nil {
		return nil
	}
	skus := make(map[string]struct{})
	for _, li := range rc.Invoice.LineItems {
		if li.SKU != "" {
			skus[li.SKU] = struct{}{}
		}
	}
	if len(skus) == 0 {
		return nil
	}

	var matched *model.PurchaseOrder
	var overlap int
	for i := range rc.Reference.PurchaseOrders {
		po := &rc.Reference.PurchaseOrders[i]
		if po.Vendor != rc.Invoice.Vendor {
			continue
		}
		poDate, err := time.Parse("2006-01-02", po.Date)
		if err != nil {
			continue
		}
		days := invDate.Sub(poDate).Hours() / 24
		if days < -poWindowDays || days > poWindowDays {
			continue
		}
		n := 0
		for _, line := range po.Lines {
			if _, ok := skus[line.SKU]; ok {
				n++
			}
		}
		if n == 0 {
			continue
		}
		if matched != nil {
			// Ambiguous: two candidate POs both overlap. Never guess.
			return nil
		}
		matched = po
		overlap = n
	}
	if matched == nil {
		return nil
	}
	cand := Candidate{
		Field:        model.FieldPONumber,
		To:           matched.Number,
		Pattern:      "sku_window",
		Source:       model.SourceReferenceData,
		MemoryBacked: rc.TrustedVendorEntry(kindPurchaseOrder, "sku_window") != nil,
		Reason:       fmt.Sprintf("unique PO %s shares %d SKU(s) within %d days of the invoice date", matched.Number, overlap, poWindowDays),
	}
	return []Candidate{cand}
}
