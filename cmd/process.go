package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/pipeline"
)

var (
	processInvoicePath   string
	processReferencePath string
	processDecisionPath  string
	processNow           string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the correction pipeline for a single invoice",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		reg, err := initRegistry()
		if err != nil {
			return eris.Wrap(err, "load vendor registry")
		}

		in, err := loadInput(processInvoicePath, processReferencePath, processDecisionPath, processNow)
		if err != nil {
			return err
		}

		engine := pipeline.New(st, reg, cfg.Pipeline.ReviewThreshold)
		out, err := engine.Process(ctx, in)
		if err != nil {
			return eris.Wrap(err, "process invoice")
		}

		zap.L().Info("processing complete",
			zap.String("invoice_id", out.InvoiceID),
			zap.Bool("requires_review", out.RequiresReview),
			zap.Bool("is_duplicate", out.IsDuplicate),
			zap.Float64("confidence", out.ConfidenceScore),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// loadInput assembles a pipeline input from the given JSON files. Reference
// and decision are optional; an empty now string means wall time.
func loadInput(invoicePath, referencePath, decisionPath, now string) (pipeline.Input, error) {
	var in pipeline.Input

	data, err := os.ReadFile(invoicePath)
	if err != nil {
		return in, eris.Wrap(err, "read invoice file")
	}
	inv, err := model.DecodeInvoice(data)
	if err != nil {
		return in, eris.Wrap(err, "decode invoice")
	}
	in.Invoice = inv

	if referencePath != "" {
		data, err := os.ReadFile(referencePath)
		if err != nil {
			return in, eris.Wrap(err, "read reference file")
		}
		if err := json.Unmarshal(data, &in.Reference); err != nil {
			return in, eris.Wrap(err, "decode reference data")
		}
	}

	if decisionPath != "" {
		data, err := os.ReadFile(decisionPath)
		if err != nil {
			return in, eris.Wrap(err, "read decision file")
		}
		var d model.HumanDecision
		if err := json.Unmarshal(data, &d); err != nil {
			return in, eris.Wrap(err, "decode decision")
		}
		in.Decision = &d
	}

	if now != "" {
		t, err := time.Parse(time.RFC3339, now)
		if err != nil {
			return in, eris.Wrap(err, "parse --now")
		}
		in.Now = t
	}

	return in, nil
}

func init() {
	processCmd.Flags().StringVar(&processInvoicePath, "invoice", "", "path to the invoice JSON (required)")
	processCmd.Flags().StringVar(&processReferencePath, "reference", "", "path to reference data JSON (POs and delivery notes)")
	processCmd.Flags().StringVar(&processDecisionPath, "decision", "", "path to a reviewer verdict JSON to learn from")
	processCmd.Flags().StringVar(&processNow, "now", "", "logical clock override, RFC 3339 (for replays)")
	_ = processCmd.MarkFlagRequired("invoice")
	rootCmd.AddCommand(processCmd)
}
