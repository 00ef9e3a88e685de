package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/currency"

	"github.com/sells-group/invoice-cli/internal/model"
)

// currencyHeuristic recovers a missing currency from codes or symbols in the
// raw text, validating every candidate as a real ISO 4217 unit. Without a
// text match it falls back to a trusted vendor-default correction entry.
type currencyHeuristic struct{}

const (
	kindCurrency     = "currency_from_text"
	strategyCurrency = "currency-from-text"

	currencyBase         = 0.60
	currencyMemoryBase   = 0.82
	currencyFallbackBase = 0.62
)

var currencyCodeRe = regexp.MustCompile(`\b([A-Z]{3})\b`)

// Symbol fallbacks, checked in order when no ISO code appears.
var currencySymbols = []struct{ sym, code string }{
	{"€", "EUR"},
	{"£", "GBP"},
	{"$", "USD"},
}

func (h *currencyHeuristic) Kind() string        { return kindCurrency }
func (h *currencyHeuristic) StrategyKey() string { return strategyCurrency }

func (h *currencyHeuristic) BaseConfidence(memoryBacked bool) float64 {
	if memoryBacked {
		return currencyMemoryBase
	}
	return currencyBase
}

func (h *currencyHeuristic) Detect(rc *RunContext) []Candidate {
	if rc.Invoice.Fields.Currency.Set {
		return nil
	}
	if code, reason, ok := h.fromText(rc.Invoice.RawText); ok {
		return []Candidate{{
			Field:        model.FieldCurrency,
			To:           code,
			Pattern:      "text_match",
			Source:       model.SourceRawTextHeuristic,
			MemoryBacked: rc.TrustedVendorEntry(kindCurrency, "text_match") != nil,
			Reason:       reason,
		}}
	}
	if e := rc.TrustedCorrection(model.FieldCurrency, "vendor_default", "default"); e != nil {
		return []Candidate{{
			Field:              model.FieldCurrency,
			To:                 e.Value,
			Pattern:            "text_match",
			Source:             model.SourceCorrectionMemory,
			ConfidenceOverride: currencyFallbackBase,
			UsedCorrection:     e,
			Reason:             "no currency in raw text; vendor default from confirmed corrections",
		}}
	}
	return nil
}

func (h *currencyHeuristic) fromText(raw string) (code, reason string, ok bool) {
	for _, m := range currencyCodeRe.FindAllString(raw, -1) {
		if _, err := currency.ParseISO(m); err == nil {
			return m, fmt.Sprintf("ISO currency code %s found in raw text", m), true
		}
	}
	for _, s := range currencySymbols {
		if strings.Contains(raw, s.sym) {
			return s.code, fmt.Sprintf("currency symbol %s found in raw text", s.sym), true
		}
	}
	return "", "", false
}
