package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/pipeline"
	"github.com/sells-group/invoice-cli/internal/store"
)

func newTestRouter(t *testing.T, rps float64) http.Handler {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return newRouter(st, pipeline.New(st, nil, 0), rps)
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(t, 0)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_ProcessInvoice(t *testing.T) {
	h := newTestRouter(t, 0)

	body := `{"invoice": {"id": "inv-001", "vendor": "Acme GmbH", "raw_text": "Leistungsdatum: 05.03.2024", "fields": {"invoice_number": "R-1001", "invoice_date": "2024-03-10", "currency": "EUR", "net_total": 100, "gross_total": 119, "po_number": "PO-77"}}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoices/process", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var out model.PipelineOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, "inv-001", out.InvoiceID)
	require.Len(t, out.Corrections, 1)
	assert.Equal(t, "2024-03-05", out.Corrections[0].To)

	t.Run("runs are listable", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?vendor=Acme+GmbH", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var runs []model.InvoiceRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, out.RunID, runs[0].ID)
	})

	t.Run("run is retrievable", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/"+out.RunID, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var run model.InvoiceRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
		assert.Equal(t, "inv-001", run.InvoiceID)
	})

	t.Run("audit trail is exposed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/inv-001/audit", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var events []model.AuditEvent
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
		assert.NotEmpty(t, events)
	})
}

func TestRouter_ProcessRejectsBadPayloads(t *testing.T) {
	h := newTestRouter(t, 0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoices/process", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoices/process", strings.NewReader(`{"invoice": {"vendor": "Acme GmbH"}}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_UnknownRunIs404(t *testing.T) {
	h := newTestRouter(t, 0)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	h := newTestRouter(t, 1) // burst of 2

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}
