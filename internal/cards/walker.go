// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cards

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/org2anki/pkg/types"
)

// Directive is the header keyword selecting the inclusion policy,
// e.g. "#+org2anki: none".
const Directive = "#+org2anki:"

// Walker selects the leaf headings of a document and turns each into cards.
type Walker struct {
	gen  *Generator
	tags types.TagConfig
	log  *log.Logger
}

// NewWalker returns a walker that generates cards with gen and filters
// leaves by tags. A nil logger discards diagnostics.
func NewWalker(gen *Generator, tags types.TagConfig, logger *log.Logger) *Walker {
	if tags.Include == "" {
		tags.Include = types.DefaultIncludeTag
	}
	if tags.Exclude == "" {
		tags.Exclude = types.DefaultExcludeTag
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Walker{gen: gen, tags: tags, log: logger}
}

// Policy reads the inclusion directive from the document header. The
// first directive line wins. An unrecognized value yields IncludeAll and a
// warning.
func Policy(doc types.Document) (types.InclusionPolicy, string) {
	for _, line := range strings.Split(doc.Header().Body, "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		rest, ok := strings.CutPrefix(line, Directive)
		if !ok {
			continue
		}
		value := ""
		if fields := strings.Fields(rest); len(fields) > 0 {
			value = fields[0]
		}
		policy, ok := types.ParseInclusionPolicy(value)
		if !ok {
			return types.IncludeAll, fmt.Sprintf("unrecognized %s mode %q, including all cards", Directive, value)
		}
		return policy, ""
	}
	return types.IncludeAll, ""
}

// Leaves returns the nodes at the document's maximum depth that policy
// admits, in document order.
func (w *Walker) Leaves(doc types.Document, policy types.InclusionPolicy) []types.Node {
	maxDepth := doc.MaxDepth()
	if maxDepth == 0 {
		return nil
	}
	var leaves []types.Node
	for _, n := range doc.Headings() {
		if n.Depth != maxDepth {
			continue
		}
		switch policy {
		case types.IncludeAll:
			if n.HasTag(w.tags.Exclude) {
				continue
			}
		case types.IncludeTagged:
			if !n.HasTag(w.tags.Include) {
				continue
			}
		}
		leaves = append(leaves, n)
	}
	return leaves
}

// Convert generates the deck for doc. Two leaves with the same heading
// produce one basic card: the later leaf wins and keeps the earlier
// leaf's position. A warning names every such collision. Cloze cards of
// both leaves are kept.
func (w *Walker) Convert(doc types.Document) (types.Deck, error) {
	var deck types.Deck

	policy, warning := Policy(doc)
	if warning != "" {
		deck.Warn(warning)
		w.log.Warn(warning, "file", doc.Path)
	}

	docDir := filepath.Dir(doc.Path)
	for _, node := range w.Leaves(doc, policy) {
		g, err := w.gen.Generate(node, docDir)
		if err != nil {
			return types.Deck{}, err
		}
		addGenerated(&deck, g, w.log, doc.Path)
	}
	return deck, nil
}

// addGenerated folds one generated card set into deck.
func addGenerated(deck *types.Deck, g Generated, logger *log.Logger, path string) {
	if deck.PutBasic(g.Card) {
		msg := fmt.Sprintf("duplicate heading %q, keeping the last card", g.Card.Front)
		deck.Warn(msg)
		logger.Warn(msg, "file", path)
	}
	deck.Clozes = append(deck.Clozes, g.Clozes...)
	for _, c := range g.Copied {
		deck.Images++
		deck.MediaBytes += c.Bytes
	}
	for _, warning := range g.Warnings {
		deck.Warn(warning)
	}
}
