package pipeline

import (
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/sells-group/invoice-cli/internal/model"
)

// vatTotalsHeuristic reconciles net, gross and tax amount on invoices whose
// raw text declares VAT-inclusive pricing. All arithmetic is exact decimal;
// a proposal is only raised when the stored value is absent or off by more
// than one cent.
type vatTotalsHeuristic struct{}

const (
	kindVAT     = "vat_inclusive_totals"
	strategyVAT = "vat-inclusive-total"

	vatBase       = 0.66
	vatMemoryBase = 0.84
)

var (
	vatInclusiveRe = regexp.MustCompile(`(?i)\b(inkl\.?\s*MwSt|inklusive\s+Mehrwertsteuer|incl\.?\s*VAT|VAT\s+included|prices?\s+include)\b`)
	grossAmountRe  = regexp.MustCompile(`(?i)(?:Gesamtbetrag|Rechnungsbetrag|Total(?:\s+amount)?)\s*[:\s]\s*(?:EUR|USD|GBP|CHF|€|\$|£)?\s*([0-9][0-9.,]*)`)

	centTolerance = decimal.NewFromFloat(0.01)
)

func (h *vatTotalsHeuristic) Kind() string        { return kindVAT }
func (h *vatTotalsHeuristic) StrategyKey() string { return strategyVAT }

func (h *vatTotalsHeuristic) BaseConfidence(memoryBacked bool) float64 {
	if memoryBacked {
		return vatMemoryBase
	}
	return vatBase
}

func (h *vatTotalsHeuristic) Detect(rc *RunContext) []Candidate {
	f := rc.Invoice.Fields
	if !f.TaxRate.Set || !vatInclusiveRe.MatchString(rc.Invoice.RawText) {
		return nil
	}
	rate := decimal.NewFromFloat(f.TaxRate.Value).Div(decimal.NewFromInt(100))

	var net, gross decimal.Decimal
	switch {
	case f.NetTotal.Set:
		net = decimal.NewFromFloat(f.NetTotal.Value)
		gross = net.Mul(rate.Add(decimal.NewFromInt(1))).Round(2)
	case f.GrossTotal.Set:
		gross = decimal.NewFromFloat(f.GrossTotal.Value)
		net = gross.Div(rate.Add(decimal.NewFromInt(1))).Round(2)
	default:
		// Neither total present: recover gross from the raw text.
		m := grossAmountRe.FindStringSubmatch(rc.Invoice.RawText)
		if m == nil {
			return nil
		}
		g := model.ParseNum(m[1])
		if !g.Set {
			return nil
		}
		gross = decimal.NewFromFloat(g.Value)
		net = gross.Div(rate.Add(decimal.NewFromInt(1))).Round(2)
	}
	tax := gross.Sub(net)

	memoryBacked := rc.TrustedVendorEntry(kindVAT, "inclusive_pricing") != nil
	var cands []Candidate
	if c, ok := h.totalCandidate(model.FieldGrossTotal, f.GrossTotal, gross, memoryBacked); ok {
		cands = append(cands, c)
	}
	if c, ok := h.totalCandidate(model.FieldNetTotal, f.NetTotal, net, memoryBacked); ok {
		cands = append(cands, c)
	}
	if c, ok := h.totalCandidate(model.FieldTaxAmount, f.TaxAmount, tax, memoryBacked); ok {
		cands = append(cands, c)
	}
	return cands
}

func (h *vatTotalsHeuristic) totalCandidate(field string, current model.Num, want decimal.Decimal, memoryBacked bool) (Candidate, bool) {
	from := ""
	if current.Set {
		delta := decimal.NewFromFloat(current.Value).Sub(want).Abs()
		if delta.LessThanOrEqual(centTolerance) {
			return Candidate{}, false
		}
		from = formatAmount(current.Value)
	}
	return Candidate{
		Field:        field,
		From:         from,
		To:           want.StringFixed(2),
		Pattern:      "inclusive_pricing",
		Source:       model.SourceRawTextHeuristic,
		MemoryBacked: memoryBacked,
		Reason:       "raw text declares VAT-inclusive pricing; totals recomputed from the tax rate",
	}, true
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
