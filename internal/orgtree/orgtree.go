// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orgtree loads an org-mode file into a flat, ordered sequence of
// heading nodes. It understands only what card generation needs: heading
// depth, heading text, tags, and the body text under each heading.
package orgtree

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pdiddy/org2anki/pkg/types"
)

var (
	// headingPattern matches "*** Heading text".
	headingPattern = regexp.MustCompile(`^(\*+)\s+(.*?)\s*$`)

	// tagsPattern matches a trailing tag group such as ":drill:nosr:".
	tagsPattern = regexp.MustCompile(`\s+(:[\w@#%:]+:)$`)

	// priorityPattern matches a leading priority cookie such as "[#A]".
	priorityPattern = regexp.MustCompile(`^\[#[A-Za-z0-9]\]\s*`)

	// planningPattern matches a planning line directly under a heading.
	planningPattern = regexp.MustCompile(`^\s*(SCHEDULED|DEADLINE|CLOSED):`)
)

// todoKeywords are dropped from the start of a heading.
var todoKeywords = []string{"TODO", "DONE"}

// Load reads and parses the org file at path.
func Load(path string) (types.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Document{}, fmt.Errorf("opening org file %s: %w", path, err)
	}
	defer f.Close()
	return Parse(path, f)
}

// Parse reads org text from r. The returned document always has a header
// node at index 0 holding the text before the first heading.
func Parse(path string, r io.Reader) (types.Document, error) {
	doc := types.Document{Path: path}

	var (
		current = types.Node{}
		body    []string
		// preamble is true until the first body line that is not part of
		// a property drawer or planning line.
		preamble bool
		inDrawer bool
	)

	flush := func() {
		current.Body = joinBody(body)
		doc.Nodes = append(doc.Nodes, current)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")

		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flush()
			current = parseHeading(len(m[1]), m[2])
			body = nil
			preamble = true
			inDrawer = false
			continue
		}

		if preamble {
			trimmed := strings.TrimSpace(line)
			switch {
			case inDrawer:
				if strings.EqualFold(trimmed, ":END:") {
					inDrawer = false
				}
				continue
			case strings.EqualFold(trimmed, ":PROPERTIES:"):
				inDrawer = true
				continue
			case planningPattern.MatchString(line):
				continue
			}
			preamble = false
		}

		body = append(body, line)
	}
	if err := sc.Err(); err != nil {
		return types.Document{}, fmt.Errorf("reading org file %s: %w", path, err)
	}
	flush()

	return doc, nil
}

// parseHeading splits heading text into keyword-free title and tags.
func parseHeading(depth int, text string) types.Node {
	n := types.Node{Depth: depth}

	if m := tagsPattern.FindStringSubmatchIndex(text); m != nil {
		group := text[m[2]:m[3]]
		for _, tag := range strings.Split(strings.Trim(group, ":"), ":") {
			if tag != "" {
				n.Tags = append(n.Tags, tag)
			}
		}
		text = text[:m[0]]
	} else if strings.HasPrefix(text, ":") && strings.HasSuffix(text, ":") && len(text) > 1 && !strings.ContainsAny(text, " \t") {
		// A heading made only of tags.
		for _, tag := range strings.Split(strings.Trim(text, ":"), ":") {
			if tag != "" {
				n.Tags = append(n.Tags, tag)
			}
		}
		text = ""
	}

	for _, kw := range todoKeywords {
		if text == kw {
			text = ""
			break
		}
		if strings.HasPrefix(text, kw+" ") {
			text = strings.TrimSpace(text[len(kw):])
			break
		}
	}
	text = priorityPattern.ReplaceAllString(text, "")

	n.Heading = strings.TrimSpace(text)
	return n
}

// joinBody joins body lines, dropping leading and trailing blank lines.
func joinBody(lines []string) string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
