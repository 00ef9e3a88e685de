package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadInput(t *testing.T) {
	invoice := writeFile(t, "invoice.json", `{
		"id": "inv-001",
		"vendor": "Acme GmbH",
		"fields": {"invoice_number": "R-1001", "net_amount": "1.234,56"}
	}`)
	reference := writeFile(t, "reference.json", `{
		"purchase_orders": [{"number": "PO-1", "vendor": "Acme GmbH", "date": "2024-03-01"}]
	}`)
	decision := writeFile(t, "decision.json", `{"invoice_id": "inv-001", "decision": "approved"}`)

	in, err := loadInput(invoice, reference, decision, "2024-06-01T12:00:00Z")
	require.NoError(t, err)

	assert.Equal(t, "inv-001", in.Invoice.ID)
	assert.Equal(t, "R-1001", in.Invoice.Fields.InvoiceNumber.Value)
	assert.InDelta(t, 1234.56, in.Invoice.Fields.NetTotal.Value, 1e-9)
	require.Len(t, in.Reference.PurchaseOrders, 1)
	require.NotNil(t, in.Decision)
	assert.Equal(t, "approved", in.Decision.Decision)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), in.Now)
}

func TestLoadInput_InvoiceOnly(t *testing.T) {
	invoice := writeFile(t, "invoice.json", `{"id": "inv-001", "vendor": "Acme GmbH", "fields": {}}`)

	in, err := loadInput(invoice, "", "", "")
	require.NoError(t, err)
	assert.Nil(t, in.Decision)
	assert.Empty(t, in.Reference.PurchaseOrders)
	assert.True(t, in.Now.IsZero())
}

func TestLoadInput_Errors(t *testing.T) {
	invoice := writeFile(t, "invoice.json", `{"id": "inv-001", "vendor": "Acme GmbH", "fields": {}}`)

	_, err := loadInput(filepath.Join(t.TempDir(), "missing.json"), "", "", "")
	require.Error(t, err)

	_, err = loadInput(writeFile(t, "bad.json", `{"vendor": "no id"}`), "", "", "")
	require.Error(t, err)

	_, err = loadInput(invoice, "", "", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse --now")
}
