package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/pipeline"
)

var (
	batchDir           string
	batchReferencePath string
	batchConcurrency   int
	batchNow           string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process a directory of invoice JSON files",
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

		var ref model.ReferenceData
		if batchReferencePath != "" {
			data, err := os.ReadFile(batchReferencePath)
			if err != nil {
				return eris.Wrap(err, "read reference file")
			}
			if err := json.Unmarshal(data, &ref); err != nil {
				return eris.Wrap(err, "decode reference data")
			}
		}

		var now time.Time
		if batchNow != "" {
			now, err = time.Parse(time.RFC3339, batchNow)
			if err != nil {
				return eris.Wrap(err, "parse --now")
			}
		}

		paths, err := filepath.Glob(filepath.Join(batchDir, "*.json"))
		if err != nil {
			return eris.Wrap(err, "list invoice files")
		}
		sort.Strings(paths)
		if len(paths) == 0 {
			zap.L().Warn("no invoice files found", zap.String("dir", batchDir))
			return nil
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentInvoices
		}

		engine := pipeline.New(st, reg, cfg.Pipeline.ReviewThreshold)

		var mu sync.Mutex
		outputs := make([]*model.PipelineOutput, 0, len(paths))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for _, path := range paths {
			path := path
			g.Go(func() error {
				data, err := os.ReadFile(path)
				if err != nil {
					return eris.Wrapf(err, "read %s", path)
				}
				inv, err := model.DecodeInvoice(data)
				if err != nil {
					return eris.Wrapf(err, "decode %s", path)
				}
				out, err := engine.Process(gctx, pipeline.Input{
					Invoice:   inv,
					Reference: ref,
					Now:       now,
				})
				if err != nil {
					return eris.Wrapf(err, "process %s", path)
				}
				mu.Lock()
				outputs = append(outputs, out)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		sort.Slice(outputs, func(i, j int) bool { return outputs[i].InvoiceID < outputs[j].InvoiceID })

		review, duplicates := 0, 0
		for _, out := range outputs {
			if out.RequiresReview {
				review++
			}
			if out.IsDuplicate {
				duplicates++
			}
		}
		zap.L().Info("batch complete",
			zap.Int("invoices", len(outputs)),
			zap.Int("requires_review", review),
			zap.Int("duplicates", duplicates),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outputs)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "dir", "", "directory of invoice JSON files (required)")
	batchCmd.Flags().StringVar(&batchReferencePath, "reference", "", "path to reference data JSON shared by the batch")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max invoices in flight (default from config)")
	batchCmd.Flags().StringVar(&batchNow, "now", "", "logical clock override, RFC 3339")
	_ = batchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(batchCmd)
}
