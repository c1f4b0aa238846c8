// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdiddy/org2anki/internal/ledger"
	"github.com/pdiddy/org2anki/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [dest]",
	Short: "Show recorded conversions",
	Long: `History lists the conversions recorded in the ledger of an export
directory (default: the current directory), most recent first. Filter
with --status or --prefix; use --json for machine-readable output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	l, err := openHistoryLedger(cmd, args)
	if err != nil {
		return err
	}
	defer l.Close()

	entries, err := l.List(cmd.Context(), listOptsFromFlags(cmd))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatHistory(cmd.OutOrStdout(), entries, jsonOutput)
}

func formatHistory(w io.Writer, entries []ledger.Entry, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No conversions recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-9s  %5s  %6s  %-8s  %-14s  %s\n",
		"Status", "Cards", "Clozes", "Media", "Converted", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 90))

	for _, e := range entries {
		mediaSize := "-"
		if e.Images > 0 {
			mediaSize = humanize.Bytes(uint64(e.MediaBytes))
		}
		fmt.Fprintf(w, "%-9s  %5d  %6d  %-8s  %-14s  %s\n",
			e.Status, e.Cards, e.Clozes, mediaSize, humanize.Time(e.ConvertedAt), e.Source)
		if e.Error != "" {
			fmt.Fprintf(w, "           error: %s\n", e.Error)
		}
	}

	fmt.Fprintf(w, "\n%d conversions\n", len(entries))
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export [dest]",
	Short: "Export the conversion history to YAML or JSON",
	Long: `Export writes the recorded conversions (or a filtered subset) with a
summary of cards, clozes, and media to report.yaml or report.json next to
the ledger.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	l, err := openHistoryLedger(cmd, args)
	if err != nil {
		return err
	}
	defer l.Close()

	opts := listOptsFromFlags(cmd)

	var path string
	switch format {
	case "yaml", "":
		path, err = l.ExportYAML(cmd.Context(), opts)
	case "json":
		path, err = l.ExportJSON(cmd.Context(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

func openHistoryLedger(cmd *cobra.Command, args []string) (*ledger.Ledger, error) {
	path, _ := cmd.Flags().GetString("ledger")
	if path == "" {
		dest := "."
		if len(args) > 0 {
			dest = args[0]
		}
		path = ledger.DefaultPath(dest)
	}
	if _, err := os.Stat(path); err != nil {
		abs, _ := filepath.Abs(path)
		return nil, fmt.Errorf("no conversion history at %s", abs)
	}
	return ledger.Open(path)
}

func listOptsFromFlags(cmd *cobra.Command) ledger.ListOptions {
	status, _ := cmd.Flags().GetString("status")
	prefix, _ := cmd.Flags().GetString("prefix")
	limit, _ := cmd.Flags().GetInt("limit")
	return ledger.ListOptions{
		Status: types.ConversionStatus(status),
		Prefix: prefix,
		Limit:  limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	historyCmd.PersistentFlags().String("ledger", "", "ledger path (default: <dest>/.org2anki/ledger.db)")
	historyCmd.PersistentFlags().String("status", "", "filter by status: converted, empty, failed")
	historyCmd.PersistentFlags().String("prefix", "", "filter by source path prefix")

	historyCmd.Flags().Int("limit", 0, "maximum entries (0 = default of 50, negative = all)")
	historyCmd.Flags().Bool("json", false, "output entries as JSON")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().Int("limit", 0, "maximum entries to export (0 = all)")

	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
