// Package registry loads per-vendor extraction profiles. The fixed set of
// supported vendors is configuration, not code: each profile names the
// service-date labels, freight SKU, and currency hint its heuristics use.
package registry

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// VendorProfile holds the vendor-specific pattern knowledge the heuristic
// catalogue consults.
type VendorProfile struct {
	Name              string   `yaml:"name"`
	ServiceDateLabels []string `yaml:"service_date_labels"`
	FreightSKU        string   `yaml:"freight_sku"`
	CurrencyHint      string   `yaml:"currency_hint"`
}

// defaultProfile backs vendors without an explicit profile.
var defaultProfile = VendorProfile{
	ServiceDateLabels: []string{"Leistungsdatum", "Leistungszeitraum", "Lieferdatum", "Service Date"},
	FreightSKU:        "FREIGHT",
}

// VendorRegistry resolves vendor names to profiles, falling back to the
// defaults for unknown vendors.
type VendorRegistry struct {
	profiles map[string]VendorProfile
}

type registryFile struct {
	Vendors []VendorProfile `yaml:"vendors"`
}

// Load reads a vendor registry from a YAML file.
func Load(path string) (*VendorRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read %s", path)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "registry: parse %s", path)
	}

	r := Default()
	for _, p := range f.Vendors {
		if p.Name == "" {
			return nil, eris.Errorf("registry: vendor profile without name in %s", path)
		}
		if len(p.ServiceDateLabels) == 0 {
			p.ServiceDateLabels = defaultProfile.ServiceDateLabels
		}
		if p.FreightSKU == "" {
			p.FreightSKU = defaultProfile.FreightSKU
		}
		r.profiles[normalizeVendor(p.Name)] = p
	}
	return r, nil
}

// Default returns a registry with no vendor-specific profiles; every vendor
// resolves to the built-in defaults.
func Default() *VendorRegistry {
	return &VendorRegistry{profiles: make(map[string]VendorProfile)}
}

// Profile returns the profile for a vendor, or the defaults if none exists.
func (r *VendorRegistry) Profile(vendor string) VendorProfile {
	if p, ok := r.profiles[normalizeVendor(vendor)]; ok {
		return p
	}
	p := defaultProfile
	p.Name = vendor
	return p
}

func normalizeVendor(vendor string) string {
	return strings.ToLower(strings.TrimSpace(vendor))
}
