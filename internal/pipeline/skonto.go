package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sells-group/invoice-cli/internal/model"
)

// skontoHeuristic extracts early-payment discount terms (Skonto) from the
// raw text and normalizes them to "<pct>% / <days> days". Without a text
// match it falls back to a trusted vendor-default correction entry.
type skontoHeuristic struct{}

const (
	kindSkonto     = "skonto_from_text"
	strategySkonto = "skonto-from-text"

	skontoBase         = 0.65
	skontoMemoryBase   = 0.83
	skontoFallbackBase = 0.62
)

var (
	skontoDeRe = regexp.MustCompile(`(?i)([0-9]+(?:[.,][0-9]+)?)\s*%\s*Skonto(?:\D{0,40}?([0-9]+)\s*Tag)?`)
	skontoEnRe = regexp.MustCompile(`(?i)([0-9]+(?:\.[0-9]+)?)\s*%\s*discount(?:\s+if\s+paid)?\s+within\s+([0-9]+)\s+days`)
)

func (h *skontoHeuristic) Kind() string        { return kindSkonto }
func (h *skontoHeuristic) StrategyKey() string { return strategySkonto }

func (h *skontoHeuristic) BaseConfidence(memoryBacked bool) float64 {
	if memoryBacked {
		return skontoMemoryBase
	}
	return skontoBase
}

func (h *skontoHeuristic) Detect(rc *RunContext) []Candidate {
	if rc.Invoice.Fields.PaymentTerms.Set {
		return nil
	}
	if terms, ok := h.fromText(rc.Invoice.RawText); ok {
		return []Candidate{{
			Field:        model.FieldPaymentTerms,
			To:           terms,
			Pattern:      "skonto",
			Source:       model.SourceRawTextHeuristic,
			MemoryBacked: rc.TrustedVendorEntry(kindSkonto, "skonto") != nil,
			Reason:       "early-payment discount terms found in raw text",
		}}
	}
	if e := rc.TrustedCorrection(model.FieldPaymentTerms, "vendor_default", "default"); e != nil {
		return []Candidate{{
			Field:              model.FieldPaymentTerms,
			To:                 e.Value,
			Pattern:            "skonto",
			Source:             model.SourceCorrectionMemory,
			ConfidenceOverride: skontoFallbackBase,
			UsedCorrection:     e,
			Reason:             "no terms in raw text; vendor default from confirmed corrections",
		}}
	}
	return nil
}

func (h *skontoHeuristic) fromText(raw string) (string, bool) {
	for _, re := range []*regexp.Regexp{skontoDeRe, skontoEnRe} {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		pct := strings.ReplaceAll(m[1], ",", ".")
		if m[2] == "" {
			return fmt.Sprintf("%s%%", pct), true
		}
		return fmt.Sprintf("%s%% / %s days", pct, m[2]), true
	}
	return "", false
}
