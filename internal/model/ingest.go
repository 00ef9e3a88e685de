package model

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
)

// rawInvoice is the wire shape accepted from upstream extractors. Field names
// vary by extractor version, so fields arrives as a loose map and is resolved
// against a fixed alias table exactly once, here.
type rawInvoice struct {
	ID        string           `json:"id"`
	Vendor    string           `json:"vendor"`
	Dataset   string           `json:"dataset"`
	RawText   string           `json:"raw_text"`
	Fields    map[string]any   `json:"fields"`
	LineItems []map[string]any `json:"line_items"`
}

// Alias fallback order per normalized field. First present key wins.
var fieldAliases = map[string][]string{
	FieldInvoiceNumber: {"invoice_number", "invoiceNumber", "invoice_no", "number"},
	FieldInvoiceDate:   {"invoice_date", "invoiceDate", "date"},
	FieldServiceDate:   {"service_date", "serviceDate", "performance_date", "leistungsdatum"},
	FieldCurrency:      {"currency", "currency_code"},
	FieldNetTotal:      {"net_total", "net_amount", "net", "subtotal"},
	FieldGrossTotal:    {"gross_total", "gross_amount", "gross", "total", "total_amount"},
	"taxRate":          {"tax_rate", "vat_rate", "taxRate"},
	FieldTaxAmount:     {"tax_amount", "vat_amount", "tax"},
	FieldPONumber:      {"po_number", "purchase_order", "purchase_order_number", "order_number"},
	FieldPaymentTerms:  {"payment_terms", "terms", "discount_terms"},
}

// DecodeInvoice parses an upstream invoice document into the normalized
// schema. Malformed scalar values become unset fields; only a structurally
// invalid document or a missing identifier is an error.
func DecodeInvoice(data []byte) (Invoice, error) {
	var raw rawInvoice
	if err := json.Unmarshal(data, &raw); err != nil {
		return Invoice{}, eris.Wrap(err, "model: decode invoice")
	}
	if raw.ID == "" {
		return Invoice{}, eris.New("model: invoice id is required")
	}
	if raw.Vendor == "" {
		return Invoice{}, eris.New("model: invoice vendor is required")
	}

	inv := Invoice{
		ID:      raw.ID,
		Vendor:  raw.Vendor,
		Dataset: raw.Dataset,
		RawText: raw.RawText,
	}

	inv.Fields = Fields{
		InvoiceNumber: resolveStr(raw.Fields, fieldAliases[FieldInvoiceNumber]),
		InvoiceDate:   resolveStr(raw.Fields, fieldAliases[FieldInvoiceDate]),
		ServiceDate:   resolveStr(raw.Fields, fieldAliases[FieldServiceDate]),
		Currency:      resolveStr(raw.Fields, fieldAliases[FieldCurrency]),
		NetTotal:      resolveNum(raw.Fields, fieldAliases[FieldNetTotal]),
		GrossTotal:    resolveNum(raw.Fields, fieldAliases[FieldGrossTotal]),
		TaxRate:       resolveNum(raw.Fields, fieldAliases["taxRate"]),
		TaxAmount:     resolveNum(raw.Fields, fieldAliases[FieldTaxAmount]),
		PONumber:      resolveStr(raw.Fields, fieldAliases[FieldPONumber]),
		PaymentTerms:  resolveStr(raw.Fields, fieldAliases[FieldPaymentTerms]),
	}

	for _, li := range raw.LineItems {
		inv.LineItems = append(inv.LineItems, LineItem{
			SKU:         stringAt(li, "sku"),
			Description: stringAt(li, "description"),
			Qty:         numAt(li, "qty", "quantity"),
			UnitPrice:   numAt(li, "unit_price", "price"),
		})
	}

	return inv, nil
}

func resolveStr(fields map[string]any, aliases []string) Str {
	for _, key := range aliases {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		s := fmt.Sprintf("%v", v)
		if s != "" {
			return S(s)
		}
	}
	return Str{}
}

func resolveNum(fields map[string]any, aliases []string) Num {
	for _, key := range aliases {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return N(t)
		case int:
			return N(float64(t))
		case string:
			if n := ParseNum(t); n.Set {
				return n
			}
		}
	}
	return Num{}
}

func stringAt(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func numAt(m map[string]any, keys ...string) Num {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return N(t)
		case string:
			if n := ParseNum(t); n.Set {
				return n
			}
		}
	}
	return Num{}
}
