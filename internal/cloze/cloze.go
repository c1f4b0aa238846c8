// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cloze finds cloze-marked spans inside a line of org text and
// renders the line either clean (markers stripped) or marked (spans wrapped
// in reveal annotations).
//
// Two marker families are recognized. Family A wraps spans in '=' and
// reveals every span of a line together; family B wraps spans in '~' and
// reveals each span on its own card.
package cloze

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Numbering assigns reveal groups to the spans of one line.
type Numbering int

const (
	// SharedGroup puts every span of a line in reveal group 1.
	SharedGroup Numbering = iota
	// IncrementingGroup numbers spans 1, 2, 3, ... from left to right.
	IncrementingGroup
)

// group returns the reveal group of the i-th (zero-based) span of a line.
func (n Numbering) group(i int) int {
	if n == IncrementingGroup {
		return i + 1
	}
	return 1
}

// Matcher locates the spans of one marker family.
type Matcher struct {
	// Name identifies the family in logs ("equal", "tilde").
	Name      string
	Marker    byte
	Numbering Numbering
	pattern   *regexp.Regexp
}

// Span edges exclude '=' for every family, and whitespace includes the
// Unicode space separators.
const (
	edgeClass  = `[^=+\-*/\s\p{Z}]`
	solidClass = `[^\s\p{Z}]`
)

// NewMatcher builds a matcher for spans delimited by marker. A span is
// either a run whose first and last characters are neither whitespace, '=',
// nor one of + - * /, or a single non-whitespace run.
func NewMatcher(name string, marker byte, numbering Numbering) Matcher {
	m := regexp.QuoteMeta(string(marker))
	expr := fmt.Sprintf(`(%[1]s%[2]s+?.*?%[2]s+?%[1]s)|(%[1]s%[3]s+?%[1]s)`, m, edgeClass, solidClass)
	return Matcher{
		Name:      name,
		Marker:    marker,
		Numbering: numbering,
		pattern:   regexp.MustCompile(expr),
	}
}

var (
	// Equal is family A: =span=, all spans reveal together.
	Equal = NewMatcher("equal", '=', SharedGroup)
	// Tilde is family B: ~span~, each span reveals separately.
	Tilde = NewMatcher("tilde", '~', IncrementingGroup)
)

// DefaultMatchers lists the families in the order they are tried.
func DefaultMatchers() []Matcher {
	return []Matcher{Equal, Tilde}
}

// Match reports whether line contains at least one span of the family.
func (m Matcher) Match(line string) bool {
	return m.pattern.MatchString(line)
}

// Parse splits line at every non-overlapping leftmost span of the family.
func (m Matcher) Parse(line string) ParsedLine {
	p := ParsedLine{Numbering: m.Numbering}
	prev := 0
	for _, loc := range m.pattern.FindAllStringIndex(line, -1) {
		start, end := loc[0], loc[1]
		p.Segments = append(p.Segments, line[prev:start])
		p.Spans = append(p.Spans, len(p.Segments))
		p.Segments = append(p.Segments, line[start+1:end-1])
		prev = end
	}
	p.Segments = append(p.Segments, line[prev:])
	return p
}

// ParsedLine is a line decomposed into alternating literal and span
// segments: [literal, span, literal, ..., span, literal]. Span segments
// hold the text between the markers.
type ParsedLine struct {
	Segments  []string
	Spans     []int
	Numbering Numbering
}

// HasSpans reports whether any span was found.
func (p ParsedLine) HasSpans() bool {
	return len(p.Spans) > 0
}

// Clean concatenates all segments with the markers removed.
func (p ParsedLine) Clean() string {
	return strings.Join(p.Segments, "")
}

// Marked concatenates all segments with each span wrapped in a reveal
// annotation, {{cN::span}}.
func (p ParsedLine) Marked() string {
	spans := make(map[int]int, len(p.Spans))
	for i, idx := range p.Spans {
		spans[idx] = i
	}
	var b strings.Builder
	for idx, seg := range p.Segments {
		i, ok := spans[idx]
		if !ok {
			b.WriteString(seg)
			continue
		}
		b.WriteString("{{c")
		b.WriteString(strconv.Itoa(p.Numbering.group(i)))
		b.WriteString("::")
		b.WriteString(seg)
		b.WriteString("}}")
	}
	return b.String()
}

// Result is the outcome of extracting clozes from one line.
type Result struct {
	// Clean is the line with markers stripped, or the input line when no
	// span was found.
	Clean string

	// Marked is the cloze text; empty when no span was found.
	Marked string

	// Family names the matcher that produced the spans.
	Family string

	// Spans is the number of spans found.
	Spans int
}

// Found reports whether the line produced a cloze.
func (r Result) Found() bool {
	return r.Spans > 0
}

// Extractor tries an ordered list of matchers against a line. The first
// matcher that finds a span wins; later matchers never see that line.
type Extractor struct {
	matchers []Matcher
}

// NewExtractor returns an extractor over matchers, or over the default
// families when none are given.
func NewExtractor(matchers ...Matcher) *Extractor {
	if len(matchers) == 0 {
		matchers = DefaultMatchers()
	}
	return &Extractor{matchers: matchers}
}

// Extract runs the matchers over line in order.
func (e *Extractor) Extract(line string) Result {
	for _, m := range e.matchers {
		p := m.Parse(line)
		if !p.HasSpans() {
			continue
		}
		return Result{
			Clean:  p.Clean(),
			Marked: p.Marked(),
			Family: m.Name,
			Spans:  len(p.Spans),
		}
	}
	return Result{Clean: line}
}

// StripBullet removes a leading run of '-', '+', and ' ' (outline bullet
// markers). Text after the first other character is untouched.
func StripBullet(line string) string {
	return strings.TrimLeft(line, "-+ ")
}
