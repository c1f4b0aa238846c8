// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes a deck as flashcard import files: card.txt for
// basic cards and cloze.txt for cloze cards. Fields are separated by ';'
// and are not escaped.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/org2anki/pkg/types"
)

const (
	// CardFile holds basic cards, one per line.
	CardFile = "card.txt"
	// ClozeFile holds cloze cards, one per line.
	ClozeFile = "cloze.txt"
)

// Exporter serializes decks.
type Exporter struct {
	// LineSeparator joins the answer lines of a basic card.
	LineSeparator string
}

// New returns an exporter joining answer lines with sep, or with
// types.DefaultLineSeparator when sep is empty.
func New(sep string) *Exporter {
	if sep == "" {
		sep = types.DefaultLineSeparator
	}
	return &Exporter{LineSeparator: sep}
}

// WriteCards writes one `<front>; "<back>";` line per card.
func (e *Exporter) WriteCards(w io.Writer, cards []types.BasicCard) error {
	bw := bufio.NewWriter(w)
	for _, c := range cards {
		fmt.Fprintf(bw, "%s; \"%s\";\n", c.Front, strings.Join(c.Back, e.LineSeparator))
	}
	return bw.Flush()
}

// WriteClozes writes one `<text>;` line per cloze card.
func (e *Exporter) WriteClozes(w io.Writer, clozes []types.ClozeCard) error {
	bw := bufio.NewWriter(w)
	for _, c := range clozes {
		fmt.Fprintf(bw, "%s;\n", c.Text)
	}
	return bw.Flush()
}

// WriteDeck writes deck into dir, creating dir when the deck has any cards.
// Each file is written only when it has content; a file left by an earlier
// run whose list is now empty is removed. It returns the paths written.
func (e *Exporter) WriteDeck(dir string, deck types.Deck) ([]string, error) {
	cardPath := filepath.Join(dir, CardFile)
	clozePath := filepath.Join(dir, ClozeFile)
	if deck.IsEmpty() {
		if err := removeStale(cardPath); err != nil {
			return nil, err
		}
		return nil, removeStale(clozePath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory %s: %w", dir, err)
	}

	var written []string
	if len(deck.Basic) > 0 {
		if err := writeFile(cardPath, func(w io.Writer) error { return e.WriteCards(w, deck.Basic) }); err != nil {
			return written, err
		}
		written = append(written, cardPath)
	} else if err := removeStale(cardPath); err != nil {
		return written, err
	}
	if len(deck.Clozes) > 0 {
		if err := writeFile(clozePath, func(w io.Writer) error { return e.WriteClozes(w, deck.Clozes) }); err != nil {
			return written, err
		}
		written = append(written, clozePath)
	} else if err := removeStale(clozePath); err != nil {
		return written, err
	}
	return written, nil
}

// removeStale deletes an export file that no longer has content.
func removeStale(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale %s: %w", path, err)
	}
	return nil
}

func writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := fill(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
