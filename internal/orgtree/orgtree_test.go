// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orgtree

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/org2anki/pkg/types"
)

const sampleOrg = `#+TITLE: Geography
#+org2anki: all

* Europe
** Capitals
*** France :sr:
- =Paris=
- on the Seine

*** TODO [#A] Germany :nosr:drill:
:PROPERTIES:
:ID: 1234
:END:
SCHEDULED: <2026-01-01 Thu>
Berlin
* Asia
`

func TestParse(t *testing.T) {
	doc, err := Parse("geo.org", strings.NewReader(sampleOrg))
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 6)
	assert.Equal(t, "geo.org", doc.Path)

	header := doc.Header()
	assert.Equal(t, 0, header.Depth)
	assert.Equal(t, "#+TITLE: Geography\n#+org2anki: all", header.Body)

	want := []types.Node{
		{Heading: "Europe", Depth: 1},
		{Heading: "Capitals", Depth: 2},
		{Heading: "France", Depth: 3, Tags: []string{"sr"}, Body: "- =Paris=\n- on the Seine"},
		{Heading: "Germany", Depth: 3, Tags: []string{"nosr", "drill"}, Body: "Berlin"},
		{Heading: "Asia", Depth: 1},
	}
	assert.Equal(t, want, doc.Headings())
	assert.Equal(t, 3, doc.MaxDepth())
}

func TestParse_NoHeadings(t *testing.T) {
	doc, err := Parse("plain.org", strings.NewReader("just some text\n\n"))
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, "just some text", doc.Header().Body)
	assert.Empty(t, doc.Headings())
	assert.Equal(t, 0, doc.MaxDepth())
}

func TestParse_BodyKeepsInteriorBlankLines(t *testing.T) {
	doc, err := Parse("x.org", strings.NewReader("* Q\n\nline one\n\nline two\n\n\n"))
	require.NoError(t, err)
	assert.Equal(t, "line one\n\nline two", doc.Nodes[1].Body)
}

func TestParse_DrawerOnlyDirectlyUnderHeading(t *testing.T) {
	doc, err := Parse("x.org", strings.NewReader("* Q\ntext\n:PROPERTIES:\n:END:\n"))
	require.NoError(t, err)
	assert.Equal(t, "text\n:PROPERTIES:\n:END:", doc.Nodes[1].Body)
}

func TestParseHeading(t *testing.T) {
	tests := []struct {
		text     string
		wantHead string
		wantTags []string
	}{
		{text: "Plain heading", wantHead: "Plain heading"},
		{text: "Tagged   :a:b:", wantHead: "Tagged", wantTags: []string{"a", "b"}},
		{text: "DONE Finished", wantHead: "Finished"},
		{text: "TODOS are not keywords", wantHead: "TODOS are not keywords"},
		{text: "[#B] Prioritized", wantHead: "Prioritized"},
		{text: "Ratio 1:2 stays", wantHead: "Ratio 1:2 stays"},
		{text: ":only:", wantTags: []string{"only"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			n := parseHeading(2, tt.text)
			assert.Equal(t, tt.wantHead, n.Heading)
			assert.Equal(t, tt.wantTags, n.Tags)
			assert.Equal(t, 2, n.Depth)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.org")
	require.NoError(t, os.WriteFile(path, []byte("* A\n** B\nanswer\r\n"), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Path)
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, "answer", doc.Nodes[2].Body)

	_, err = Load(filepath.Join(t.TempDir(), "missing.org"))
	assert.Error(t, err)
}
