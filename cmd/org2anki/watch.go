// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/org2anki/internal/convert"
	"github.com/pdiddy/org2anki/internal/ledger"
)

var watchCmd = &cobra.Command{
	Use:   "watch <src-dir> <dest-dir>",
	Short: "Reconvert org files whenever they change",
	Long: `Watch converts every org file under src-dir once, then keeps running and
reconverts files as they are written. Changes are collected for a short
quiet period so an editor's save burst produces a single conversion.
New subdirectories are watched as they appear. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(2),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	bindConversionFlags(cmd)

	src, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	dest, err := filepath.Abs(args[1])
	if err != nil {
		return err
	}

	cfg, err := conversionConfig(dest)
	if err != nil {
		return err
	}

	logger := newLogger()
	opts := []convert.Option{convert.WithLogger(logger)}
	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return err
		}
		defer l.Close()
		opts = append(opts, convert.WithLedger(l))
	}
	c := convert.New(cfg, opts...)

	w, err := c.NewWatcher(src, dest, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer w.Close()

	if skip, _ := cmd.Flags().GetBool("skip-initial"); !skip {
		files, err := convert.Discover(src, cfg.Include, cfg.Exclude)
		if err != nil {
			return err
		}
		jobs, err := convert.Jobs(src, dest, files)
		if err != nil {
			return err
		}
		c.ConvertBatch(cmd.Context(), jobs, cmd.OutOrStdout())
	}

	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl-C to stop)\n", args[0])
	logger.Info("watching", "src", src, "dest", dest, "incremental", viper.GetBool("incremental"))
	return w.Run(cmd.Context())
}

func init() {
	watchCmd.Flags().Bool("skip-initial", false, "do not convert everything before watching")
	addConversionFlags(watchCmd.Flags())

	rootCmd.AddCommand(watchCmd)
}
