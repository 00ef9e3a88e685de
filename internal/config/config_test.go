package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "invoice.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 10, cfg.Server.RequestsPerSecond, 1e-9)
	assert.Equal(t, 5, cfg.Batch.MaxConcurrentInvoices)
	assert.InDelta(t, 0.75, cfg.Pipeline.ReviewThreshold, 1e-9)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("INVOICE_STORE_DRIVER", "postgres")
	t.Setenv("INVOICE_STORE_DATABASE_URL", "postgres://localhost/invoices")
	t.Setenv("INVOICE_REGISTRY_PATH", "vendors.yaml")
	t.Setenv("INVOICE_PIPELINE_REVIEW_THRESHOLD", "0.8")
	t.Setenv("INVOICE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/invoices", cfg.Store.DatabaseURL)
	assert.Equal(t, "vendors.yaml", cfg.Registry.Path)
	assert.InDelta(t, 0.8, cfg.Pipeline.ReviewThreshold, 1e-9)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "shouting", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
