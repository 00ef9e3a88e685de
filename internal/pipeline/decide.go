package pipeline

import (
	"fmt"
	"strings"

	"github.com/sells-group/invoice-cli/internal/model"
)

// criticalFields must each carry a value or a proposed correction for the
// invoice to clear review. The PO number is the one exception that demands a
// high-confidence proposal rather than any proposal: an inferred PO drives
// payment matching, so a weak guess is worse than an explicit gap.
var criticalFields = []string{
	model.FieldInvoiceNumber,
	model.FieldInvoiceDate,
	model.FieldCurrency,
	model.FieldNetTotal,
	model.FieldGrossTotal,
	model.FieldPONumber,
}

type verdict struct {
	requiresReview bool
	confidence     float64
	reasons        []string
}

func (v verdict) reasoning() string {
	if len(v.reasons) == 0 {
		return "all corrections meet the review threshold and every critical field is covered"
	}
	return strings.Join(v.reasons, "; ")
}

// decide computes the aggregate confidence (the minimum across corrections,
// or the no-correction baseline) and flags review on any weak correction or
// uncovered critical field.
func decide(inv model.Invoice, corrections []model.Correction, threshold float64) verdict {
	v := verdict{confidence: baselineConfidence}

	for i, c := range corrections {
		if i == 0 || c.Confidence < v.confidence {
			v.confidence = c.Confidence
		}
		if c.Confidence < threshold {
			v.requiresReview = true
			v.reasons = append(v.reasons, fmt.Sprintf("correction to %s at %.2f is below the review threshold", c.Field, c.Confidence))
		}
	}

	for _, field := range criticalFields {
		if inv.Fields.Has(field) {
			continue
		}
		if coveredByCorrection(field, corrections, threshold) {
			continue
		}
		v.requiresReview = true
		v.reasons = append(v.reasons, fmt.Sprintf("critical field %s is missing", field))
	}
	return v
}

// coveredByCorrection reports whether a proposal fills the missing field.
// Every field accepts any proposal except the PO number, which must clear
// the review threshold.
func coveredByCorrection(field string, corrections []model.Correction, threshold float64) bool {
	for _, c := range corrections {
		if c.Field != field {
			continue
		}
		if field == model.FieldPONumber {
			return c.Confidence >= threshold
		}
		return true
	}
	return false
}
