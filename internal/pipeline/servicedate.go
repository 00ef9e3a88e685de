package pipeline

import (
	"fmt"
	"regexp"
	"time"

	"github.com/sells-group/invoice-cli/internal/memory"
	"github.com/sells-group/invoice-cli/internal/model"
)

// serviceDateHeuristic recovers a missing service date from a labelled date
// in the raw invoice text. Which labels a vendor uses is learned as vendor
// memory of kind "serviceDate_from_label", keyed by the label itself.
type serviceDateHeuristic struct{}

const (
	kindServiceDate     = "serviceDate_from_label"
	strategyServiceDate = "service-date-from-label"

	serviceDateBase       = 0.55
	serviceDateMemoryBase = 0.82
)

// Accepts "05.03.2024", "2024-03-05" and "05/03/2024" after a label.
var serviceDateValueRe = `([0-9]{1,2}\.[0-9]{1,2}\.[0-9]{4}|[0-9]{4}-[0-9]{2}-[0-9]{2}|[0-9]{1,2}/[0-9]{1,2}/[0-9]{4})`

func (h *serviceDateHeuristic) Kind() string        { return kindServiceDate }
func (h *serviceDateHeuristic) StrategyKey() string { return strategyServiceDate }

func (h *serviceDateHeuristic) BaseConfidence(memoryBacked bool) float64 {
	if memoryBacked {
		return serviceDateMemoryBase
	}
	return serviceDateBase
}

func (h *serviceDateHeuristic) Detect(rc *RunContext) []Candidate {
	if rc.Invoice.Fields.ServiceDate.Set || rc.Invoice.RawText == "" {
		return nil
	}
	for _, label := range rc.Profile.ServiceDateLabels {
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(label) + `\s*[:\s]\s*` + serviceDateValueRe)
		if err != nil {
			continue
		}
		m := re.FindStringSubmatch(rc.Invoice.RawText)
		if m == nil {
			continue
		}
		iso, ok := normalizeDate(m[1])
		if !ok {
			continue
		}
		cand := Candidate{
			Field:   model.FieldServiceDate,
			To:      iso,
			Pattern: label,
			Source:  model.SourceRawTextHeuristic,
			Reason:  fmt.Sprintf("date %q follows label %q in raw text", m[1], label),
		}
		if e := rc.TrustedVendorEntry(kindServiceDate, label); e != nil {
			cand.MemoryBacked = true
			cand.Source = model.SourceVendorMemory
			// A trusted entry proposes at the memory-backed band at minimum;
			// heavily reinforced entries carry their decayed trust above it.
			if d := memory.Decayed(e.Confidence, memory.DaysSince(e.LastUsedAt, rc.Now)); d > serviceDateMemoryBase {
				cand.ConfidenceOverride = d
			}
			cand.Reason = fmt.Sprintf("label %q previously confirmed for this vendor", label)
		}
		return []Candidate{cand}
	}
	return nil
}

// normalizeDate converts a matched date to ISO 8601, rejecting impossible
// calendar dates.
func normalizeDate(s string) (string, bool) {
	for _, layout := range []string{"02.01.2006", "2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
