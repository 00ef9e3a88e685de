package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/store"
)

var (
	exportOut    string
	exportVendor string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history and vendor memory to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runs, err := st.ListRuns(ctx, store.RunFilter{Vendor: exportVendor, Limit: exportLimit})
		if err != nil {
			return eris.Wrap(err, "export: list runs")
		}

		f := xlsx.NewFile()
		if err := addRunsSheet(f, runs); err != nil {
			return err
		}
		if exportVendor != "" {
			vm, err := st.ListVendorMemory(ctx, exportVendor)
			if err != nil {
				return eris.Wrap(err, "export: list vendor memory")
			}
			cm, err := st.ListCorrectionMemory(ctx, exportVendor)
			if err != nil {
				return eris.Wrap(err, "export: list correction memory")
			}
			if err := addMemorySheet(f, vm, cm); err != nil {
				return err
			}
		}

		if err := f.Save(exportOut); err != nil {
			return eris.Wrap(err, "export: save workbook")
		}

		zap.L().Info("export complete",
			zap.String("path", exportOut),
			zap.Int("runs", len(runs)),
		)
		fmt.Fprintf(os.Stderr, "Wrote %s (%d runs).\n", exportOut, len(runs))
		return nil
	},
}

func addRunsSheet(f *xlsx.File, runs []model.InvoiceRun) error {
	sheet, err := f.AddSheet("Runs")
	if err != nil {
		return eris.Wrap(err, "export: add runs sheet")
	}
	header := sheet.AddRow()
	for _, h := range []string{"Run ID", "Invoice ID", "Vendor", "Invoice No", "Duplicate", "Duplicate Of", "Created"} {
		header.AddCell().SetString(h)
	}
	for _, r := range runs {
		row := sheet.AddRow()
		row.AddCell().SetString(r.ID)
		row.AddCell().SetString(r.InvoiceID)
		row.AddCell().SetString(r.Vendor)
		row.AddCell().SetString(r.InvoiceNumber)
		row.AddCell().SetString(strconv.FormatBool(r.IsDuplicate))
		row.AddCell().SetString(r.DuplicateOf)
		row.AddCell().SetString(r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func addMemorySheet(f *xlsx.File, vm []model.VendorMemoryEntry, cm []model.CorrectionMemoryEntry) error {
	sheet, err := f.AddSheet("Memory")
	if err != nil {
		return eris.Wrap(err, "export: add memory sheet")
	}
	header := sheet.AddRow()
	for _, h := range []string{"Store", "Key", "Value", "Confidence", "Support", "Rejects", "Status", "Last Used"} {
		header.AddCell().SetString(h)
	}
	for _, e := range vm {
		row := sheet.AddRow()
		row.AddCell().SetString("vendor")
		row.AddCell().SetString(e.Kind + "/" + e.Pattern)
		row.AddCell().SetString("")
		row.AddCell().SetFloat(e.Confidence)
		row.AddCell().SetInt(e.SupportCount)
		row.AddCell().SetInt(e.RejectCount)
		row.AddCell().SetString(string(e.Status))
		row.AddCell().SetString(formatLastUsed(e.LastUsedAt))
	}
	for _, e := range cm {
		row := sheet.AddRow()
		row.AddCell().SetString("correction")
		row.AddCell().SetString(e.FieldPath + "/" + e.PatternType + "/" + e.PatternValue)
		row.AddCell().SetString(e.Value)
		row.AddCell().SetFloat(e.Confidence)
		row.AddCell().SetInt(e.SupportCount)
		row.AddCell().SetInt(e.RejectCount)
		row.AddCell().SetString(string(e.Status))
		row.AddCell().SetString(formatLastUsed(e.LastUsedAt))
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "invoice-export.xlsx", "output workbook path")
	exportCmd.Flags().StringVar(&exportVendor, "vendor", "", "restrict to one vendor and include its memory sheet")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 1000, "max runs to export")
	rootCmd.AddCommand(exportCmd)
}
