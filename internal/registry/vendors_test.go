package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vendors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeRegistry(t, `
vendors:
  - name: Acme GmbH
    service_date_labels: ["Leistungszeitraum"]
    freight_sku: SHIP-01
    currency_hint: EUR
  - name: Sparse AG
`)

	r, err := Load(path)
	require.NoError(t, err)

	acme := r.Profile("Acme GmbH")
	assert.Equal(t, []string{"Leistungszeitraum"}, acme.ServiceDateLabels)
	assert.Equal(t, "SHIP-01", acme.FreightSKU)
	assert.Equal(t, "EUR", acme.CurrencyHint)

	// Omitted profile fields fall back to the defaults.
	sparse := r.Profile("Sparse AG")
	assert.Equal(t, defaultProfile.ServiceDateLabels, sparse.ServiceDateLabels)
	assert.Equal(t, "FREIGHT", sparse.FreightSKU)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeRegistry(t, "vendors: [not a profile"))
	require.Error(t, err)

	_, err = Load(writeRegistry(t, "vendors:\n  - freight_sku: X\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without name")
}

func TestProfile_Lookup(t *testing.T) {
	path := writeRegistry(t, `
vendors:
  - name: Acme GmbH
    freight_sku: SHIP-01
`)
	r, err := Load(path)
	require.NoError(t, err)

	t.Run("vendor names are case and whitespace insensitive", func(t *testing.T) {
		assert.Equal(t, "SHIP-01", r.Profile("  acme gmbh ").FreightSKU)
	})

	t.Run("unknown vendors get the defaults", func(t *testing.T) {
		p := r.Profile("Unknown Ltd")
		assert.Equal(t, "Unknown Ltd", p.Name)
		assert.Equal(t, "FREIGHT", p.FreightSKU)
		assert.NotEmpty(t, p.ServiceDateLabels)
	})

	t.Run("default registry has no vendor profiles", func(t *testing.T) {
		p := Default().Profile("Acme GmbH")
		assert.Equal(t, "FREIGHT", p.FreightSKU)
	})
}
