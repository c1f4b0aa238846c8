// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns org files into flashcard import files, one file at
// a time or as a batch over a directory tree.
package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/org2anki/internal/cards"
	"github.com/pdiddy/org2anki/internal/export"
	"github.com/pdiddy/org2anki/internal/ledger"
	"github.com/pdiddy/org2anki/internal/media"
	"github.com/pdiddy/org2anki/internal/orgtree"
	"github.com/pdiddy/org2anki/pkg/types"
)

// Converter converts org files according to a ConvertConfig.
type Converter struct {
	cfg      types.ConvertConfig
	walker   *cards.Walker
	scanner  *cards.SeparatorScanner
	exporter *export.Exporter
	ledger   *ledger.Ledger
	embedder cards.Embedder
	log      *log.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLedger records results in l and, when the config asks for
// incremental runs, skips files l knows to be unchanged.
func WithLedger(l *ledger.Ledger) Option {
	return func(c *Converter) { c.ledger = l }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Converter) { c.log = l }
}

// WithEmbedder replaces the media store built from the config.
func WithEmbedder(e cards.Embedder) Option {
	return func(c *Converter) { c.embedder = e }
}

// New returns a converter for cfg. Zero config fields take their defaults.
func New(cfg types.ConvertConfig, opts ...Option) *Converter {
	c := &Converter{cfg: cfg.WithDefaults()}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = log.New(io.Discard)
	}
	if c.embedder == nil && !c.cfg.Media.Disabled {
		dir := c.cfg.Media.Dir
		if dir == "" {
			dir = media.DefaultDir()
		}
		c.embedder = media.NewStore(dir)
	}

	genOpts := []cards.GeneratorOption{cards.WithLogger(c.log)}
	if c.embedder != nil {
		genOpts = append(genOpts, cards.WithEmbedder(c.embedder))
	}
	gen := cards.NewGenerator(genOpts...)
	c.walker = cards.NewWalker(gen, c.cfg.Tags, c.log)
	c.scanner = cards.NewSeparatorScanner(gen, c.log)
	c.exporter = export.New(c.cfg.Export.LineSeparator)
	return c
}

// Config returns the effective configuration.
func (c *Converter) Config() types.ConvertConfig {
	return c.cfg
}

// Deck parses the org file at path and returns its cards without writing
// anything except copied media.
func (c *Converter) Deck(path string) (types.Deck, error) {
	if c.cfg.Layout == types.LayoutSeparator {
		f, err := os.Open(path)
		if err != nil {
			return types.Deck{}, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		return c.scanner.Scan(path, f)
	}

	doc, err := orgtree.Load(path)
	if err != nil {
		return types.Deck{}, err
	}
	return c.walker.Convert(doc)
}

// ConvertFile converts src and writes its import files into dst. Errors
// never escape; they are carried on the result with ConversionFailed.
func (c *Converter) ConvertFile(ctx context.Context, src, dst string) types.FileResult {
	res := types.FileResult{Source: src, ExportDir: dst}
	fail := func(err error) types.FileResult {
		res.Status = types.ConversionFailed
		res.Err = err
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	info, err := os.Stat(src)
	if err != nil {
		return fail(fmt.Errorf("stat %s: %w", src, err))
	}
	res.ModTime = info.ModTime()

	if c.cfg.Incremental && c.ledger != nil {
		unchanged, err := c.ledger.Unchanged(ctx, src, res.ModTime)
		if err != nil {
			c.log.Warn("ledger lookup failed, converting anyway", "file", src, "err", err)
		} else if unchanged {
			res.Status = types.ConversionSkipped
			return res
		}
	}

	deck, err := c.Deck(src)
	if err != nil {
		return fail(err)
	}
	res.Cards = len(deck.Basic)
	res.Clozes = len(deck.Clozes)
	res.Images = deck.Images
	res.MediaBytes = deck.MediaBytes
	res.Warnings = deck.Warnings

	written, err := c.exporter.WriteDeck(dst, deck)
	if err != nil {
		return fail(err)
	}
	if len(written) == 0 {
		res.Status = types.ConversionEmpty
		return res
	}
	c.log.Debug("exported", "file", src, "to", dst, "files", len(written))
	res.Status = types.ConversionConverted
	return res
}

// Job pairs a source file with its export directory.
type Job struct {
	Source    string
	ExportDir string
}

// Jobs builds the job list for files found under root, exporting into dest.
func Jobs(root, dest string, files []string) ([]Job, error) {
	jobs := make([]Job, 0, len(files))
	for _, f := range files {
		dir, err := ExportPath(root, dest, f)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, Job{Source: f, ExportDir: dir})
	}
	return jobs, nil
}

// ConvertBatch converts jobs on at most Jobs workers, printing one status
// line per file to w in job order, then a summary line. Per-file results
// are summed after every worker has finished. A cancelled context stops
// new files from starting.
func (c *Converter) ConvertBatch(ctx context.Context, jobs []Job, w io.Writer) types.BatchResult {
	results := c.run(ctx, jobs)

	var batch types.BatchResult
	for _, r := range results {
		batch.Add(r)
		printStatus(w, r)
	}

	if c.ledger != nil {
		if err := c.ledger.RecordAll(ctx, results); err != nil {
			c.log.Error("recording conversions", "ledger", c.ledger.Path(), "err", err)
		}
	}

	fmt.Fprintf(w, "== Successfully generated %d basic card(s) and %d cloze card(s) from %d file(s)\n",
		batch.Cards, batch.Clozes, batch.Converted)
	return batch
}

// run converts jobs concurrently and returns the results of the jobs that
// were started, in job order.
func (c *Converter) run(ctx context.Context, jobs []Job) []types.FileResult {
	results := make([]types.FileResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Jobs)

	started := 0
	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		started++
		i, job := i, job
		g.Go(func() error {
			results[i] = c.ConvertFile(gctx, job.Source, job.ExportDir)
			return nil
		})
	}
	_ = g.Wait()

	if started < len(jobs) {
		c.log.Warn("conversion cancelled", "remaining", len(jobs)-started)
	}
	return results[:started]
}

func printStatus(w io.Writer, r types.FileResult) {
	name := filepath.Base(r.Source)
	switch r.Status {
	case types.ConversionConverted:
		fmt.Fprintf(w, "converted: %s -> %s (%s)\n", r.Source, r.ExportDir, describe(r))
	case types.ConversionEmpty:
		fmt.Fprintf(w, "empty:     %s (no cards)\n", r.Source)
	case types.ConversionSkipped:
		fmt.Fprintf(w, "skipped: %s (unchanged)\n", name)
	case types.ConversionFailed:
		fmt.Fprintf(w, "failed:  %s (%v)\n", r.Source, r.Err)
	}
}

func describe(r types.FileResult) string {
	s := fmt.Sprintf("%d card(s), %d cloze(s)", r.Cards, r.Clozes)
	if r.Images > 0 {
		s += fmt.Sprintf(", %d image(s), %s", r.Images, humanize.Bytes(uint64(r.MediaBytes)))
	}
	if n := len(r.Warnings); n > 0 {
		s += fmt.Sprintf(", %d warning(s)", n)
	}
	return s
}
