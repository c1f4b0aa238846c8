// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cards turns org documents into basic and cloze flashcards.
//
// Two layouts are supported. The outline layout (Walker) makes one basic
// card per leaf heading, with the heading as front and the body lines as
// back. The separator layout (SeparatorScanner) makes a card from every
// "front :: back" line, reading multi-line answers from the indented block
// under a "front ::" line. Both layouts run every answer line through the
// same pipeline: bullet stripping, cloze extraction, image substitution.
package cards

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/org2anki/internal/cloze"
	"github.com/pdiddy/org2anki/internal/media"
	"github.com/pdiddy/org2anki/pkg/types"
)

// Embedder replaces an image reference in a line with an embed tag.
// *media.Store implements it.
type Embedder interface {
	Embed(line, docDir string) (string, *media.Copied, error)
}

// Generator applies the per-line pipeline to answer text.
type Generator struct {
	extractor *cloze.Extractor
	embedder  Embedder
	log       *log.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithEmbedder enables image substitution through e.
func WithEmbedder(e Embedder) GeneratorOption {
	return func(g *Generator) { g.embedder = e }
}

// WithMatchers replaces the default cloze families.
func WithMatchers(m ...cloze.Matcher) GeneratorOption {
	return func(g *Generator) { g.extractor = cloze.NewExtractor(m...) }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *log.Logger) GeneratorOption {
	return func(g *Generator) { g.log = l }
}

// NewGenerator returns a generator using the default cloze families and no
// image substitution unless options say otherwise.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{extractor: cloze.NewExtractor()}
	for _, o := range opts {
		o(g)
	}
	if g.log == nil {
		g.log = log.New(io.Discard)
	}
	return g
}

// Generated is everything one leaf node contributes to a deck.
type Generated struct {
	Card     types.BasicCard
	Clozes   []types.ClozeCard
	Copied   []media.Copied
	Warnings []string
}

// Generate builds the basic card and cloze cards for node. docDir is the
// directory relative image references resolve against. Only media I/O
// failures are returned as errors.
func (g *Generator) Generate(node types.Node, docDir string) (Generated, error) {
	out := Generated{Card: types.BasicCard{Front: node.Heading}}
	if strings.TrimSpace(node.Body) == "" {
		out.Warnings = append(out.Warnings, fmt.Sprintf("heading %q has an empty answer", node.Heading))
		return out, nil
	}

	for _, raw := range strings.Split(node.Body, "\n") {
		line, err := g.answerLine(cloze.StripBullet(raw), docDir, &out)
		if err != nil {
			return Generated{}, fmt.Errorf("heading %q: %w", node.Heading, err)
		}
		out.Card.Back = append(out.Card.Back, line)
	}
	return out, nil
}

// answerLine runs cloze extraction and then image substitution on one
// line. Extraction sees the marked text; substitution sees the clean text
// so image paths inside spans are never split by the cloze patterns.
func (g *Generator) answerLine(line, docDir string, out *Generated) (string, error) {
	res := g.extractor.Extract(line)
	if res.Found() {
		out.Clozes = append(out.Clozes, types.ClozeCard{Text: res.Marked})
		g.log.Debug("cloze", "family", res.Family, "spans", res.Spans)
	}
	return g.embed(res.Clean, docDir, out)
}

func (g *Generator) embed(line, docDir string, out *Generated) (string, error) {
	if g.embedder == nil {
		return line, nil
	}
	embedded, copied, err := g.embedder.Embed(line, docDir)
	switch {
	case errors.Is(err, media.ErrMissing), errors.Is(err, media.ErrNotImage):
		out.Warnings = append(out.Warnings, err.Error())
		g.log.Warn("image skipped, leaving reference", "err", err)
		return line, nil
	case err != nil:
		return "", err
	}
	if copied != nil {
		out.Copied = append(out.Copied, *copied)
		g.log.Debug("copied image", "source", copied.Source, "name", copied.Name)
	}
	return embedded, nil
}
