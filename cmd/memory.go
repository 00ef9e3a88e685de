package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/invoice-cli/internal/memory"
	"github.com/sells-group/invoice-cli/internal/model"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and administer the memory stores",
}

// -- memory list --

var memoryListCmd = &cobra.Command{
	Use:   "list <vendor>",
	Short: "List a vendor's memory entries",
	Args:  cobra.ExactArgs(1),
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

		vendor := args[0]
		vm, err := st.ListVendorMemory(ctx, vendor)
		if err != nil {
			return eris.Wrap(err, "list vendor memory")
		}
		cm, err := st.ListCorrectionMemory(ctx, vendor)
		if err != nil {
			return eris.Wrap(err, "list correction memory")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"vendor_memory":     vm,
				"correction_memory": cm,
			})
		}

		formatMemoryList(os.Stdout, vm, cm)
		return nil
	},
}

// -- memory disable --

var memoryDisableCmd = &cobra.Command{
	Use:   "disable <vendor> <kind> <pattern>",
	Short: "Force-disable a vendor-memory entry",
	Args:  cobra.ExactArgs(3),
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

		admin := memory.NewAdmin(st)
		if err := admin.DisableVendorEntry(ctx, args[0], args[1], args[2], time.Now().UTC()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Disabled %s/%s/%s.\n", args[0], args[1], args[2])
		return nil
	},
}

// -- memory reset --

var memoryResetCmd = &cobra.Command{
	Use:   "reset <vendor> <kind> <pattern>",
	Short: "Reset a vendor-memory entry to the creation baseline",
	Long:  "Revives a disabled entry with cleared support and reject counters. This is the only path back for an entry disabled by repeated rejections.",
	Args:  cobra.ExactArgs(3),
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

		admin := memory.NewAdmin(st)
		if err := admin.ResetVendorEntry(ctx, args[0], args[1], args[2], time.Now().UTC()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Reset %s/%s/%s.\n", args[0], args[1], args[2])
		return nil
	},
}

// -- memory disable-correction / reset-correction --

var memoryDisableCorrectionCmd = &cobra.Command{
	Use:   "disable-correction <vendor> <field-path> <pattern-type> <pattern-value>",
	Short: "Force-disable a correction-memory entry",
	Args:  cobra.ExactArgs(4),
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

		admin := memory.NewAdmin(st)
		if err := admin.DisableCorrectionEntry(ctx, args[0], args[1], args[2], args[3], time.Now().UTC()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Disabled %s/%s/%s/%s.\n", args[0], args[1], args[2], args[3])
		return nil
	},
}

var memoryResetCorrectionCmd = &cobra.Command{
	Use:   "reset-correction <vendor> <field-path> <pattern-type> <pattern-value>",
	Short: "Reset a correction-memory entry to the creation baseline",
	Args:  cobra.ExactArgs(4),
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

		admin := memory.NewAdmin(st)
		if err := admin.ResetCorrectionEntry(ctx, args[0], args[1], args[2], args[3], time.Now().UTC()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Reset %s/%s/%s/%s.\n", args[0], args[1], args[2], args[3])
		return nil
	},
}

// -- memory reset-strategy --

var memoryResetStrategyCmd = &cobra.Command{
	Use:   "reset-strategy <vendor> <strategy-key>",
	Short: "Clear a vendor's resolution tally for a strategy",
	Args:  cobra.ExactArgs(2),
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

		admin := memory.NewAdmin(st)
		if err := admin.ResetResolution(ctx, args[0], args[1], time.Now().UTC()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Reset strategy %s for %s.\n", args[1], args[0])
		return nil
	},
}

func formatMemoryList(w io.Writer, vm []model.VendorMemoryEntry, cm []model.CorrectionMemoryEntry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STORE\tKEY\tVALUE\tCONF\tSUPPORT\tREJECT\tSTATUS\tLAST USED")
	for _, e := range vm {
		fmt.Fprintf(tw, "vendor\t%s/%s\t-\t%.2f\t%d\t%d\t%s\t%s\n",
			e.Kind, e.Pattern, e.Confidence, e.SupportCount, e.RejectCount, e.Status, formatLastUsed(e.LastUsedAt))
	}
	for _, e := range cm {
		fmt.Fprintf(tw, "correction\t%s/%s/%s\t%s\t%.2f\t%d\t%d\t%s\t%s\n",
			e.FieldPath, e.PatternType, e.PatternValue, e.Value, e.Confidence, e.SupportCount, e.RejectCount, e.Status, formatLastUsed(e.LastUsedAt))
	}
	tw.Flush()
}

func formatLastUsed(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02")
}

func init() {
	memoryListCmd.Flags().Bool("json", false, "emit JSON instead of a table")

	memoryCmd.AddCommand(memoryListCmd)
	memoryCmd.AddCommand(memoryDisableCmd)
	memoryCmd.AddCommand(memoryResetCmd)
	memoryCmd.AddCommand(memoryDisableCorrectionCmd)
	memoryCmd.AddCommand(memoryResetCorrectionCmd)
	memoryCmd.AddCommand(memoryResetStrategyCmd)
	rootCmd.AddCommand(memoryCmd)
}
