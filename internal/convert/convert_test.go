// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/org2anki/internal/export"
	"github.com/pdiddy/org2anki/internal/ledger"
	"github.com/pdiddy/org2anki/internal/media"
	"github.com/pdiddy/org2anki/pkg/types"
)

const deckOrg = `#+title: Biology
* Cells
** Organelles
*** Mitochondria
The =powerhouse= of the cell
*** Ribosome
- builds proteins
`

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newTestConverter(opts ...Option) *Converter {
	return New(types.ConvertConfig{Media: types.MediaConfig{Disabled: true}}, opts...)
}

func TestConvertFile(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		create     bool
		wantStatus types.ConversionStatus
		wantCards  int
		wantClozes int
	}{
		{
			name:       "cards and clozes",
			content:    deckOrg,
			create:     true,
			wantStatus: types.ConversionConverted,
			wantCards:  2,
			wantClozes: 1,
		},
		{
			name:       "no headings",
			content:    "just some prose\n",
			create:     true,
			wantStatus: types.ConversionEmpty,
		},
		{
			name:       "missing source",
			wantStatus: types.ConversionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "bio.org")
			if tt.create {
				writeFile(t, src, tt.content)
			}
			dst := filepath.Join(dir, "out", "bio")

			r := newTestConverter().ConvertFile(context.Background(), src, dst)

			assert.Equal(t, tt.wantStatus, r.Status)
			assert.Equal(t, tt.wantCards, r.Cards)
			assert.Equal(t, tt.wantClozes, r.Clozes)
			if tt.wantStatus == types.ConversionFailed {
				assert.Error(t, r.Err)
			} else {
				assert.NoError(t, r.Err)
			}
			if tt.wantStatus != types.ConversionConverted {
				_, err := os.Stat(dst)
				assert.True(t, os.IsNotExist(err), "export dir must not exist")
			}
		})
	}
}

func TestConvertFile_Output(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "bio.org"), deckOrg)
	dst := filepath.Join(dir, "out", "bio")

	r := newTestConverter().ConvertFile(context.Background(), src, dst)
	require.Equal(t, types.ConversionConverted, r.Status, "err: %v", r.Err)

	assert.Equal(t,
		"Mitochondria; \"The powerhouse of the cell\";\nRibosome; \"builds proteins\";\n",
		readFile(t, filepath.Join(dst, export.CardFile)))
	assert.Equal(t,
		"The {{c1::powerhouse}} of the cell;\n",
		readFile(t, filepath.Join(dst, export.ClozeFile)))
}

func TestConvertFile_SeparatorLayout(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "chem.org"), "* Chemistry\n- Water :: H2O\n- Salt ::\n  - NaCl\n  - ~table~ salt\n")
	dst := filepath.Join(dir, "out")

	c := New(types.ConvertConfig{Layout: types.LayoutSeparator, Media: types.MediaConfig{Disabled: true}})
	r := c.ConvertFile(context.Background(), src, dst)
	require.Equal(t, types.ConversionConverted, r.Status, "err: %v", r.Err)

	assert.Equal(t, 2, r.Cards)
	assert.Equal(t, 1, r.Clozes)
	assert.Equal(t,
		"Water; \"H2O\";\nSalt; \"NaCl<br>table salt\";\n",
		readFile(t, filepath.Join(dst, export.CardFile)))
}

func TestConvertFile_CopiesMedia(t *testing.T) {
	dir := t.TempDir()
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"></svg>`
	writeFile(t, filepath.Join(dir, "img", "cell.svg"), svg)
	src := writeFile(t, filepath.Join(dir, "bio.org"), "* Cell\n[[file:img/cell.svg]]\n")
	mediaDir := filepath.Join(dir, "media")

	c := New(types.ConvertConfig{Media: types.MediaConfig{Dir: mediaDir}})
	r := c.ConvertFile(context.Background(), src, filepath.Join(dir, "out"))
	require.Equal(t, types.ConversionConverted, r.Status, "err: %v", r.Err)

	assert.Equal(t, 1, r.Images)
	assert.Equal(t, int64(len(svg)), r.MediaBytes)

	name := media.Name(filepath.Join(dir, "img", "cell.svg"))
	assert.Equal(t, svg, readFile(t, filepath.Join(mediaDir, name)))
	assert.Contains(t, readFile(t, filepath.Join(dir, "out", export.CardFile)), media.EmbedTag(name))
}

func TestConvertFile_MissingImageWarns(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "bio.org"), "* Cell\n[[file:nowhere.png]]\n")

	c := New(types.ConvertConfig{Media: types.MediaConfig{Dir: filepath.Join(dir, "media")}})
	r := c.ConvertFile(context.Background(), src, filepath.Join(dir, "out"))

	assert.Equal(t, types.ConversionConverted, r.Status)
	assert.Len(t, r.Warnings, 1)
	assert.Equal(t, "Cell; \"[[file:nowhere.png]]\";\n", readFile(t, filepath.Join(dir, "out", export.CardFile)))
}

func TestConvertFile_ReconvertDropsStaleClozes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "bio.org"), "* Q\nThe =old= fact\n")
	dst := filepath.Join(dir, "out", "bio")
	c := newTestConverter()

	first := c.ConvertFile(ctx, src, dst)
	require.Equal(t, types.ConversionConverted, first.Status, "err: %v", first.Err)
	assert.Equal(t, "The {{c1::old}} fact;\n", readFile(t, filepath.Join(dst, export.ClozeFile)))

	writeFile(t, src, "* Q\nThe new fact\n")
	second := c.ConvertFile(ctx, src, dst)
	require.Equal(t, types.ConversionConverted, second.Status, "err: %v", second.Err)
	assert.Equal(t, 0, second.Clozes)
	assert.Equal(t, "Q; \"The new fact\";\n", readFile(t, filepath.Join(dst, export.CardFile)))
	_, err := os.Stat(filepath.Join(dst, export.ClozeFile))
	assert.True(t, os.IsNotExist(err), "cloze file from the first run must be gone")

	writeFile(t, src, "no headings left\n")
	third := c.ConvertFile(ctx, src, dst)
	assert.Equal(t, types.ConversionEmpty, third.Status)
	_, err = os.Stat(filepath.Join(dst, export.CardFile))
	assert.True(t, os.IsNotExist(err), "card file from earlier runs must be gone")
}

func TestConvertFile_Incremental(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "bio.org"), deckOrg)
	dst := filepath.Join(dir, "out", "bio")

	l, err := ledger.Open(ledger.DefaultPath(filepath.Join(dir, "out")))
	require.NoError(t, err)
	defer l.Close()

	c := New(types.ConvertConfig{Incremental: true, Media: types.MediaConfig{Disabled: true}}, WithLedger(l))

	first := c.ConvertFile(ctx, src, dst)
	require.Equal(t, types.ConversionConverted, first.Status)
	require.NoError(t, l.Record(ctx, first))

	second := c.ConvertFile(ctx, src, dst)
	assert.Equal(t, types.ConversionSkipped, second.Status)

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(src, later, later))
	third := c.ConvertFile(ctx, src, dst)
	assert.Equal(t, types.ConversionConverted, third.Status)
}

func TestConvertFile_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "bio.org"), deckOrg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestConverter().ConvertFile(ctx, src, filepath.Join(dir, "out"))
	assert.Equal(t, types.ConversionFailed, r.Status)
	assert.ErrorIs(t, r.Err, context.Canceled)
}

func TestConvertBatch(t *testing.T) {
	root := t.TempDir()
	dest := t.TempDir()
	names := []string{"a.org", "b.org", "c.org", "d.org", "e.org"}
	var files []string
	for _, n := range names {
		files = append(files, writeFile(t, filepath.Join(root, n), deckOrg))
	}
	files = append(files, writeFile(t, filepath.Join(root, "prose.org"), "nothing here\n"))
	files = append(files, filepath.Join(root, "gone.org"))

	jobs, err := Jobs(root, dest, files)
	require.NoError(t, err)

	c := New(types.ConvertConfig{Jobs: 4, Media: types.MediaConfig{Disabled: true}})
	var out bytes.Buffer
	result := c.ConvertBatch(context.Background(), jobs, &out)

	assert.Equal(t, 5, result.Converted)
	assert.Equal(t, 1, result.Empty)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 7, result.Total())
	assert.True(t, result.HasFailures())
	assert.Equal(t, 10, result.Cards)
	assert.Equal(t, 5, result.Clozes)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 8)
	for i, n := range names {
		assert.True(t, strings.HasPrefix(lines[i], "converted: "+filepath.Join(root, n)), "line %d: %s", i, lines[i])
	}
	assert.True(t, strings.HasPrefix(lines[5], "empty:"), lines[5])
	assert.True(t, strings.HasPrefix(lines[6], "failed:"), lines[6])
	assert.Equal(t, "== Successfully generated 10 basic card(s) and 5 cloze card(s) from 5 file(s)", lines[7])

	for _, n := range names {
		_, err := os.Stat(filepath.Join(dest, strings.TrimSuffix(n, ".org"), export.CardFile))
		assert.NoError(t, err)
	}
}

func TestConvertBatch_RecordsLedger(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dest := t.TempDir()
	src := writeFile(t, filepath.Join(root, "bio.org"), deckOrg)

	l, err := ledger.Open(ledger.DefaultPath(dest))
	require.NoError(t, err)
	defer l.Close()

	jobs, err := Jobs(root, dest, []string{src})
	require.NoError(t, err)

	c := New(types.ConvertConfig{Incremental: true, Media: types.MediaConfig{Disabled: true}}, WithLedger(l))
	var out bytes.Buffer
	first := c.ConvertBatch(ctx, jobs, &out)
	assert.Equal(t, 1, first.Converted)

	entries, err := l.List(ctx, ledger.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, src, entries[0].Source)
	assert.Equal(t, 2, entries[0].Cards)

	out.Reset()
	second := c.ConvertBatch(ctx, jobs, &out)
	assert.Equal(t, 1, second.Skipped)
	assert.Contains(t, out.String(), "skipped: bio.org (unchanged)")
	assert.Contains(t, out.String(), "from 0 file(s)")
}

func TestConvertBatch_CancelledBeforeStart(t *testing.T) {
	root := t.TempDir()
	src := writeFile(t, filepath.Join(root, "bio.org"), deckOrg)
	jobs, err := Jobs(root, t.TempDir(), []string{src, src})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	result := newTestConverter().ConvertBatch(ctx, jobs, &out)
	assert.Equal(t, 0, result.Total())
	assert.Contains(t, out.String(), "from 0 file(s)")
}
