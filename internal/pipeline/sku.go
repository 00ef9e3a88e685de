package pipeline

import (
	"fmt"
	"regexp"

	"github.com/sells-group/invoice-cli/internal/model"
)

// freightSKUHeuristic assigns an SKU to freight and shipping lines that
// arrive without one. A trusted correction-memory entry for the vendor's
// freight lines wins over the registry's fixed mapping.
type freightSKUHeuristic struct{}

const (
	kindFreightSKU     = "sku_freight"
	strategyFreightSKU = "sku-for-freight"

	freightBase       = 0.58
	freightMemoryBase = 0.82

	fieldPathLineSKU = "lineItems[].sku"
)

// Prefix match on purpose: German compounds ("Versandkosten", "Frachtpauschale")
// never end on a word boundary after the stem.
var freightDescRe = regexp.MustCompile(`(?i)\b(fracht|versand|shipping|freight|transport|porto)`)

func (h *freightSKUHeuristic) Kind() string        { return kindFreightSKU }
func (h *freightSKUHeuristic) StrategyKey() string { return strategyFreightSKU }

func (h *freightSKUHeuristic) BaseConfidence(memoryBacked bool) float64 {
	if memoryBacked {
		return freightMemoryBase
	}
	return freightBase
}

func (h *freightSKUHeuristic) Detect(rc *RunContext) []Candidate {
	var cands []Candidate
	for i := range rc.Invoice.LineItems {
		li := &rc.Invoice.LineItems[i]
		if li.SKU != "" || !freightDescRe.MatchString(li.Description) {
			continue
		}
		field := fmt.Sprintf("lineItems[%d].sku", i)
		if e := rc.TrustedCorrection(fieldPathLineSKU, "line_kind", "freight"); e != nil {
			cands = append(cands, Candidate{
				Field:              field,
				To:                 e.Value,
				Pattern:            "freight",
				Source:             model.SourceCorrectionMemory,
				ConfidenceOverride: freightMemoryBase,
				UsedCorrection:     e,
				Reason:             fmt.Sprintf("freight line %q mapped to previously confirmed SKU", li.Description),
			})
			continue
		}
		if rc.Profile.FreightSKU == "" {
			continue
		}
		cands = append(cands, Candidate{
			Field:   field,
			To:      rc.Profile.FreightSKU,
			Pattern: "freight",
			Source:  model.SourceRawTextHeuristic,
			Reason:  fmt.Sprintf("freight line %q mapped to the registry freight SKU", li.Description),
		})
	}
	return cands
}
