package model

// Fields is the normalized invoice field schema. Every value is explicitly
// optional; alias resolution happens once at ingestion (DecodeInvoice), never
// inside heuristics.
type Fields struct {
	InvoiceNumber Str `json:"invoice_number"`
	InvoiceDate   Str `json:"invoice_date"`
	ServiceDate   Str `json:"service_date"`
	Currency      Str `json:"currency"`
	NetTotal      Num `json:"net_total"`
	GrossTotal    Num `json:"gross_total"`
	TaxRate       Num `json:"tax_rate"`
	TaxAmount     Num `json:"tax_amount"`
	PONumber      Str `json:"po_number"`
	PaymentTerms  Str `json:"payment_terms"`
}

// LineItem is one invoice line after normalization.
type LineItem struct {
	SKU         string `json:"sku,omitempty"`
	Description string `json:"description,omitempty"`
	Qty         Num    `json:"qty"`
	UnitPrice   Num    `json:"unit_price"`
}

// Invoice is one extracted invoice as supplied by the ingestion collaborator.
type Invoice struct {
	ID        string     `json:"id"`
	Vendor    string     `json:"vendor"`
	Dataset   string     `json:"dataset,omitempty"`
	RawText   string     `json:"raw_text,omitempty"`
	Fields    Fields     `json:"fields"`
	LineItems []LineItem `json:"line_items,omitempty"`
}

// Field paths used by corrections and the review decision. PO number alone
// tolerates a high-confidence suggestion in place of a value.
const (
	FieldInvoiceNumber = "invoiceNumber"
	FieldInvoiceDate   = "invoiceDate"
	FieldServiceDate   = "serviceDate"
	FieldCurrency      = "currency"
	FieldNetTotal      = "netTotal"
	FieldGrossTotal    = "grossTotal"
	FieldTaxAmount     = "taxAmount"
	FieldPONumber      = "poNumber"
	FieldPaymentTerms  = "paymentTerms"
)

// Has reports whether the named field carries a value.
func (f Fields) Has(field string) bool {
	switch field {
	case FieldInvoiceNumber:
		return f.InvoiceNumber.Set
	case FieldInvoiceDate:
		return f.InvoiceDate.Set
	case FieldServiceDate:
		return f.ServiceDate.Set
	case FieldCurrency:
		return f.Currency.Set
	case FieldNetTotal:
		return f.NetTotal.Set
	case FieldGrossTotal:
		return f.GrossTotal.Set
	case FieldTaxAmount:
		return f.TaxAmount.Set
	case FieldPONumber:
		return f.PONumber.Set
	case FieldPaymentTerms:
		return f.PaymentTerms.Set
	default:
		return false
	}
}
