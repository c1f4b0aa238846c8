// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/org2anki/internal/export"
	"github.com/pdiddy/org2anki/pkg/types"
)

func TestDiscover(t *testing.T) {
	root := filepath.Join(t.TempDir(), "notes")
	for _, rel := range []string{
		"a.org",
		"notes.org",
		"bio/cell.org",
		"bio/bio.org",
		"bio/draft/scratch.org",
		"chem/salt.org",
		"chem/readme.md",
	} {
		writeFile(t, filepath.Join(root, rel), "* x\n")
	}
	abs := func(rels ...string) []string {
		var out []string
		for _, r := range rels {
			out = append(out, filepath.Join(root, filepath.FromSlash(r)))
		}
		return out
	}

	tests := []struct {
		name     string
		includes []string
		excludes []string
		want     []string
	}{
		{
			name: "default pattern",
			want: abs("a.org", "bio/cell.org", "bio/draft/scratch.org", "chem/salt.org"),
		},
		{
			name:     "include subtree",
			includes: []string{"bio/**/*.org"},
			want:     abs("bio/cell.org", "bio/draft/scratch.org"),
		},
		{
			name:     "exclude directory",
			excludes: []string{"**/draft/**"},
			want:     abs("a.org", "bio/cell.org", "chem/salt.org"),
		},
		{
			name:     "exclude by base name",
			excludes: []string{"salt.org"},
			want:     abs("a.org", "bio/cell.org", "bio/draft/scratch.org"),
		},
		{
			name:     "overlapping includes are deduplicated",
			includes: []string{"**/*.org", "bio/*.org"},
			want:     abs("a.org", "bio/cell.org", "bio/draft/scratch.org", "chem/salt.org"),
		},
		{
			name:     "non-org matches are ignored",
			includes: []string{"chem/*"},
			want:     abs("chem/salt.org"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Discover(root, tt.includes, tt.excludes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscover_InvalidPattern(t *testing.T) {
	_, err := Discover(t.TempDir(), []string{"[unclosed"}, nil)
	assert.Error(t, err)
}

func TestIsIndexFile(t *testing.T) {
	tests := []struct {
		root, path string
		want       bool
	}{
		{"/n/notes", "/n/notes/notes.org", true},
		{"/n/notes", "/n/notes/bio/bio.org", true},
		{"/n/notes", "/n/notes/bio/notes.org", true},
		{"/n/notes", "/n/notes/bio/cell.org", false},
		{"/n/notes/", "/n/notes/a.org", false},
	}
	for _, tt := range tests {
		if got := IsIndexFile(tt.root, tt.path); got != tt.want {
			t.Errorf("IsIndexFile(%q, %q) = %v, want %v", tt.root, tt.path, got, tt.want)
		}
	}
}

func TestExportPath(t *testing.T) {
	root := t.TempDir()
	single := writeFile(t, filepath.Join(root, "bio", "cell.org"), "* x\n")

	tests := []struct {
		name, root, file string
		want             string
		wantErr          bool
	}{
		{"nested file", root, filepath.Join(root, "bio", "cell.org"), filepath.Join("/out", "bio", "cell"), false},
		{"top-level file", root, filepath.Join(root, "a.org"), filepath.Join("/out", "a"), false},
		{"single file root", single, single, filepath.Join("/out", "cell"), false},
		{"outside root", filepath.Join(root, "bio"), filepath.Join(root, "a.org"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExportPath(tt.root, "/out", tt.file)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatcher_ReconvertsChangedFiles(t *testing.T) {
	root := t.TempDir()
	dest := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", ".keep"), "")

	c := newTestConverter()
	var out syncBuffer
	w, err := c.NewWatcher(root, dest, &out)
	require.NoError(t, err)
	defer w.Close()
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writeFile(t, filepath.Join(root, "sub", "bio.org"), deckOrg)
	writeFile(t, filepath.Join(root, "sub", "notes.txt"), "ignored")

	cardFile := filepath.Join(dest, "sub", "bio", export.CardFile)
	require.Eventually(t, func() bool {
		_, err := os.Stat(cardFile)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Contains(t, out.String(), "converted: ")
	assert.NotContains(t, out.String(), "notes.txt")
}

func TestNewWatcher_RequiresDirectory(t *testing.T) {
	file := writeFile(t, filepath.Join(t.TempDir(), "a.org"), "")
	_, err := New(types.ConvertConfig{}).NewWatcher(file, t.TempDir(), &bytes.Buffer{})
	assert.Error(t, err)
}
