// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/org2anki/internal/convert"
	"github.com/pdiddy/org2anki/internal/ledger"
	"github.com/pdiddy/org2anki/internal/media"
	"github.com/pdiddy/org2anki/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert <src> <dest>",
	Short: "Convert org files into flashcard import files",
	Long: `Convert parses an org file (or, with --recursive, every org file under a
directory) and writes card.txt and cloze.txt for each into dest, mirroring
the source layout without the .org extension.

The header directive "#+org2anki: none" restricts a document to leaves
tagged :sr:; the default converts every leaf not tagged :nosr:. Images
referenced from answers are copied into the media directory.

Every run is recorded in a ledger under dest/.org2anki; --incremental
skips files that have not changed since they were last converted.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	bindConversionFlags(cmd)

	src, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	dest, err := filepath.Abs(args[1])
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	recursive := viper.GetBool("recursive")
	switch {
	case recursive && !info.IsDir():
		return fmt.Errorf("%s is not a directory", args[0])
	case !recursive && info.IsDir():
		return fmt.Errorf("%s is a directory: use --recursive", args[0])
	}

	cfg, err := conversionConfig(dest)
	if err != nil {
		return err
	}

	files := []string{src}
	if recursive {
		files, err = convert.Discover(src, cfg.Include, cfg.Exclude)
		if err != nil {
			return err
		}
	}
	jobs, err := convert.Jobs(src, dest, files)
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

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "== Generating Anki card(s) from %s (recursive=%t): %s\n", kind(recursive), recursive, args[0])
	result := c.ConvertBatch(cmd.Context(), jobs, out)
	if result.Images > 0 {
		fmt.Fprintf(out, "== Copied %d image(s) (%s) to %s\n",
			result.Images, humanize.Bytes(uint64(result.MediaBytes)), c.Config().Media.Dir)
	}
	if result.Warnings > 0 {
		fmt.Fprintf(out, "== %d warning(s); rerun with --verbose for details\n", result.Warnings)
	}
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed)
	}
	return nil
}

func kind(recursive bool) string {
	if recursive {
		return "dir"
	}
	return "file"
}

// conversionFlags maps config keys to the flags that override them.
var conversionFlags = map[string]string{
	"layout":                "layout",
	"media.dir":             "media-dir",
	"media.disabled":        "no-media",
	"tags.include":          "include-tag",
	"tags.exclude":          "exclude-tag",
	"export.line_separator": "separator",
	"include":               "include",
	"exclude":               "exclude",
	"jobs":                  "jobs",
	"incremental":           "incremental",
	"ledger_path":           "ledger",
	"no_ledger":             "no-ledger",
	"recursive":             "recursive",
}

// bindConversionFlags binds cmd's conversion flags to their config keys.
// Binding happens when a command runs so convert and watch can share key
// names.
func bindConversionFlags(cmd *cobra.Command) {
	for key, name := range conversionFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}

func addConversionFlags(fs *pflag.FlagSet) {
	fs.String("layout", string(types.LayoutOutline), "card layout: outline (leaf headings) or separator (front :: back lines)")
	fs.String("media-dir", "", "flashcard media directory images are copied into (default: the default profile's collection.media)")
	fs.Bool("no-media", false, "leave image references as text instead of copying them")
	fs.String("include-tag", types.DefaultIncludeTag, "tag selecting leaves when a document says #+org2anki: none")
	fs.String("exclude-tag", types.DefaultExcludeTag, "tag removing leaves when a document says #+org2anki: all")
	fs.String("separator", types.DefaultLineSeparator, "string joining answer lines in card.txt")
	fs.StringSlice("include", []string{types.DefaultIncludeGlob}, "glob selecting files in a recursive run (repeatable)")
	fs.StringSlice("exclude", nil, "glob removing files from a recursive run (repeatable)")
	fs.Int("jobs", 1, "number of files converted at once")
	fs.Bool("incremental", false, "skip files unchanged since the last recorded conversion")
	fs.String("ledger", "", "conversion ledger path (default: <dest>/.org2anki/ledger.db)")
	fs.Bool("no-ledger", false, "do not record conversions")
}

// conversionConfig assembles the run configuration from flags, config
// file, and environment.
func conversionConfig(dest string) (types.ConvertConfig, error) {
	cfg := types.ConvertConfig{
		Layout: types.Layout(viper.GetString("layout")),
		Tags: types.TagConfig{
			Include: viper.GetString("tags.include"),
			Exclude: viper.GetString("tags.exclude"),
		},
		Media: types.MediaConfig{
			Dir:      viper.GetString("media.dir"),
			Disabled: viper.GetBool("media.disabled"),
		},
		Export: types.ExportConfig{
			LineSeparator: viper.GetString("export.line_separator"),
		},
		Include:     viper.GetStringSlice("include"),
		Exclude:     viper.GetStringSlice("exclude"),
		Jobs:        viper.GetInt("jobs"),
		Incremental: viper.GetBool("incremental"),
	}
	if cfg.Layout != "" && !cfg.Layout.Valid() {
		return cfg, fmt.Errorf("unknown layout %q: use outline or separator", cfg.Layout)
	}
	if !viper.GetBool("no_ledger") {
		cfg.LedgerPath = viper.GetString("ledger_path")
		if cfg.LedgerPath == "" {
			cfg.LedgerPath = ledger.DefaultPath(dest)
		}
	}
	cfg = cfg.WithDefaults()
	if cfg.Media.Dir == "" {
		cfg.Media.Dir = media.DefaultDir()
	}
	return cfg, nil
}

func init() {
	convertCmd.Flags().BoolP("recursive", "r", false, "convert every org file under src instead of a single file")
	addConversionFlags(convertCmd.Flags())

	rootCmd.AddCommand(convertCmd)
}
