package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInvoice_AliasResolution(t *testing.T) {
	doc := []byte(`{
		"id": "inv-1",
		"vendor": "ACME GmbH",
		"raw_text": "Rechnung...",
		"fields": {
			"invoice_no": "R-2024-042",
			"date": "2024-03-01",
			"net_amount": "1.234,56",
			"vat_rate": 19,
			"purchase_order": "PO-7",
			"currency_code": "EUR"
		},
		"line_items": [
			{"sku": "SKU-1", "description": "Widget", "quantity": 3, "price": "411,52"}
		]
	}`)

	inv, err := DecodeInvoice(doc)
	require.NoError(t, err)

	assert.Equal(t, "inv-1", inv.ID)
	assert.Equal(t, "ACME GmbH", inv.Vendor)
	assert.Equal(t, S("R-2024-042"), inv.Fields.InvoiceNumber)
	assert.Equal(t, S("2024-03-01"), inv.Fields.InvoiceDate)
	assert.Equal(t, S("EUR"), inv.Fields.Currency)
	assert.Equal(t, S("PO-7"), inv.Fields.PONumber)
	assert.Equal(t, N(1234.56), inv.Fields.NetTotal)
	assert.Equal(t, N(19), inv.Fields.TaxRate)
	assert.False(t, inv.Fields.ServiceDate.Set)
	assert.False(t, inv.Fields.GrossTotal.Set)

	require.Len(t, inv.LineItems, 1)
	assert.Equal(t, "SKU-1", inv.LineItems[0].SKU)
	assert.Equal(t, N(3), inv.LineItems[0].Qty)
	assert.Equal(t, N(411.52), inv.LineItems[0].UnitPrice)
}

func TestDecodeInvoice_FirstAliasWins(t *testing.T) {
	doc := []byte(`{
		"id": "inv-2",
		"vendor": "acme",
		"fields": {"invoice_number": "primary", "number": "fallback"}
	}`)

	inv, err := DecodeInvoice(doc)
	require.NoError(t, err)
	assert.Equal(t, S("primary"), inv.Fields.InvoiceNumber)
}

func TestDecodeInvoice_MalformedValuesBecomeUnset(t *testing.T) {
	doc := []byte(`{
		"id": "inv-3",
		"vendor": "acme",
		"fields": {"net_total": "n/a", "gross_total": null}
	}`)

	inv, err := DecodeInvoice(doc)
	require.NoError(t, err)
	assert.False(t, inv.Fields.NetTotal.Set)
	assert.False(t, inv.Fields.GrossTotal.Set)
}

func TestDecodeInvoice_Errors(t *testing.T) {
	_, err := DecodeInvoice([]byte(`{`))
	assert.Error(t, err)

	_, err = DecodeInvoice([]byte(`{"vendor": "acme"}`))
	assert.Error(t, err, "missing id")

	_, err = DecodeInvoice([]byte(`{"id": "inv-4"}`))
	assert.Error(t, err, "missing vendor")
}

func TestFieldsHas(t *testing.T) {
	f := Fields{InvoiceNumber: S("R-1"), NetTotal: N(100)}

	assert.True(t, f.Has(FieldInvoiceNumber))
	assert.True(t, f.Has(FieldNetTotal))
	assert.False(t, f.Has(FieldGrossTotal))
	assert.False(t, f.Has(FieldPONumber))
	assert.False(t, f.Has("unknownField"))
}

func TestHumanDecisionCovers(t *testing.T) {
	all := HumanDecision{InvoiceID: "inv-1", Decision: DecisionApproved}
	assert.True(t, all.Covers(FieldServiceDate))

	partial := HumanDecision{InvoiceID: "inv-1", Decision: DecisionRejected, Fields: []string{FieldCurrency}}
	assert.True(t, partial.Covers(FieldCurrency))
	assert.False(t, partial.Covers(FieldServiceDate))
}
