package model

// POLine is one line of a reference purchase order.
type POLine struct {
	SKU string  `json:"sku"`
	Qty float64 `json:"qty"`
}

// PurchaseOrder is reference data supplied by the ordering system.
type PurchaseOrder struct {
	Number string   `json:"number"`
	Vendor string   `json:"vendor"`
	Date   string   `json:"date"` // ISO 8601 date
	Lines  []POLine `json:"lines,omitempty"`
}

// DeliveryLine is one line of a delivery note.
type DeliveryLine struct {
	SKU          string  `json:"sku"`
	QtyDelivered float64 `json:"qty_delivered"`
}

// DeliveryNote records what was actually delivered against a PO.
type DeliveryNote struct {
	Number   string         `json:"number"`
	Vendor   string         `json:"vendor"`
	PONumber string         `json:"po_number,omitempty"`
	Lines    []DeliveryLine `json:"lines,omitempty"`
}

// ReferenceData bundles the external records the heuristics reconcile against.
type ReferenceData struct {
	PurchaseOrders []PurchaseOrder `json:"purchase_orders,omitempty"`
	DeliveryNotes  []DeliveryNote  `json:"delivery_notes,omitempty"`
}

// Decision values on a human review verdict.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// HumanDecision is a reviewer's verdict on a prior run's proposed
// corrections. Fields names the corrected field paths the verdict covers;
// empty means all of them.
type HumanDecision struct {
	InvoiceID string   `json:"invoice_id"`
	Decision  string   `json:"decision"`
	Fields    []string `json:"fields,omitempty"`
}

// Covers reports whether the verdict applies to the given field path.
func (d HumanDecision) Covers(field string) bool {
	if len(d.Fields) == 0 {
		return true
	}
	for _, f := range d.Fields {
		if f == field {
			return true
		}
	}
	return false
}
