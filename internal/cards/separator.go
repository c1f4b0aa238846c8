// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cards

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/org2anki/pkg/types"
)

const (
	// Separator splits a card line into front and back.
	Separator = " ::"

	// BlockIndent is how much deeper than its card line an answer block
	// is indented. Tabs expand to the same width.
	BlockIndent = 2

	frontTrim = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~ \t"
)

// SeparatorScanner reads cards written as "front :: back" lines, or as a
// "front ::" line followed by an indented answer block.
type SeparatorScanner struct {
	gen *Generator
	log *log.Logger
}

// NewSeparatorScanner returns a scanner that processes lines with gen.
func NewSeparatorScanner(gen *Generator, logger *log.Logger) *SeparatorScanner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &SeparatorScanner{gen: gen, log: logger}
}

type scanState int

const (
	scanningForCard scanState = iota
	consumingAnswerBlock
)

// scan holds the cursor and state of one pass over a document.
type scan struct {
	*SeparatorScanner

	lines     []string
	pos       int
	state     scanState
	threshold int
	card      types.BasicCard
	docDir    string
	path      string
	deck      types.Deck
}

// Scan reads the document at path from r and returns its deck.
func (s *SeparatorScanner) Scan(path string, r io.Reader) (types.Deck, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return types.Deck{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return s.ScanLines(path, lines)
}

// ScanLines runs the scanner over lines. Every line outside an answer
// block is checked for clozes; a line containing the separator starts a
// card. An empty back opens an answer block that lasts while lines are
// indented at least BlockIndent deeper than the card line.
func (s *SeparatorScanner) ScanLines(path string, lines []string) (types.Deck, error) {
	st := &scan{
		SeparatorScanner: s,
		lines:            lines,
		docDir:           filepath.Dir(path),
		path:             path,
	}

	for st.pos < len(st.lines) {
		var err error
		switch st.state {
		case scanningForCard:
			err = st.scanLine()
		case consumingAnswerBlock:
			err = st.consumeLine()
		}
		if err != nil {
			return types.Deck{}, fmt.Errorf("line %d: %w", st.pos, err)
		}
	}
	if st.state == consumingAnswerBlock {
		st.finishCard()
	}
	return st.deck, nil
}

func (st *scan) scanLine() error {
	raw := st.lines[st.pos]
	st.pos++

	line := cardClozeLine(st, raw)

	front, back, ok := strings.Cut(line, Separator)
	if !ok {
		return nil
	}
	// Only the text between the first and a second separator is the back.
	back, _, _ = strings.Cut(back, Separator)
	st.card = types.BasicCard{Front: strings.TrimLeft(front, frontTrim)}

	back = strings.TrimSpace(back)
	if back == "" {
		st.threshold = Indentation(raw) + BlockIndent
		st.state = consumingAnswerBlock
		return nil
	}

	g := Generated{}
	back, err := st.gen.embed(back, st.docDir, &g)
	if err != nil {
		return err
	}
	st.card.Back = []string{back}
	st.collect(g)
	st.finishCard()
	return nil
}

func (st *scan) consumeLine() error {
	raw := st.lines[st.pos]
	if Indentation(raw) < st.threshold {
		st.finishCard()
		st.state = scanningForCard
		return nil
	}
	st.pos++

	g := Generated{}
	line, err := st.gen.answerLine(cleanBullet(raw), st.docDir, &g)
	if err != nil {
		return err
	}
	clozes := g.Clozes[:0]
	for _, c := range g.Clozes {
		if c.Text = dropFront(c.Text); c.Text != "" {
			clozes = append(clozes, c)
		}
	}
	g.Clozes = clozes
	st.card.Back = append(st.card.Back, strings.TrimSpace(line))
	st.collect(g)
	return nil
}

// cardClozeLine extracts a cloze from a line outside an answer block and
// returns the line's clean text. A cloze that sits only in the card front
// leaves nothing to ask and is dropped.
func cardClozeLine(st *scan, raw string) string {
	res := st.gen.extractor.Extract(cleanBullet(raw))
	if !res.Found() {
		return raw
	}
	if text := dropFront(res.Marked); text != "" {
		st.deck.Clozes = append(st.deck.Clozes, types.ClozeCard{Text: text})
	}
	return res.Clean
}

// collect folds clozes, copies, and warnings from one answer line into the
// deck being built.
func (st *scan) collect(g Generated) {
	st.deck.Clozes = append(st.deck.Clozes, g.Clozes...)
	for _, c := range g.Copied {
		st.deck.Images++
		st.deck.MediaBytes += c.Bytes
	}
	for _, w := range g.Warnings {
		st.deck.Warn(w)
	}
}

func (st *scan) finishCard() {
	if st.card.Front == "" && len(st.card.Back) == 0 {
		return
	}
	if len(st.card.Back) == 0 {
		st.deck.Warn(fmt.Sprintf("card %q has an empty answer", st.card.Front))
	}
	addGenerated(&st.deck, Generated{Card: st.card}, st.log, st.path)
	st.card = types.BasicCard{}
}

// dropFront removes a card front from cloze text: everything up to and
// including the last separator.
func dropFront(text string) string {
	if i := strings.LastIndex(text, Separator); i >= 0 {
		text = text[i+len(Separator):]
	}
	return strings.TrimSpace(text)
}

// cleanBullet strips leading indentation and outline bullets.
func cleanBullet(line string) string {
	return strings.TrimLeft(line, "-+ \t")
}

// Indentation returns the column of the first non-blank character of
// line, expanding tabs to BlockIndent-wide stops. Blank lines have
// indentation 0.
func Indentation(line string) int {
	col := 0
	for _, r := range line {
		switch r {
		case ' ':
			col++
		case '\t':
			col += BlockIndent - col%BlockIndent
		default:
			return col
		}
	}
	return 0
}
