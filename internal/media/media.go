// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package media finds image references in answer lines, copies the images
// into the flashcard application's media directory, and replaces each
// reference with an embed tag pointing at the copy.
package media

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/otiai10/copy"
)

// Suffix is appended to every copied media file name.
const Suffix = ".o2a"

// imagePattern matches an org link to an image ([[file:a.png]],
// [[a.png]], [[file:a.png][caption]]) or a bare path token ending in an
// image extension. Group 1 is the linked path, group 2 the bare path.
var imagePattern = regexp.MustCompile(
	`\[\[((?:file:)?[^\[\]\s]+\.(?i:png|jpe?g|gif|svg|bmp|webp))\](?:\[[^\]]*\])?\]` +
		`|(\S+\.(?i:png|jpe?g|gif|svg|bmp|webp))\b`)

// Reference is an image reference located in a line.
type Reference struct {
	// Start and End delimit the whole reference, brackets included.
	Start, End int

	// Path is the referenced path with any "file:" prefix removed.
	Path string
}

// Find returns the first image reference in line.
func Find(line string) (Reference, bool) {
	m := imagePattern.FindStringSubmatchIndex(line)
	if m == nil {
		return Reference{}, false
	}
	var path string
	switch {
	case m[2] >= 0:
		path = line[m[2]:m[3]]
	case m[4] >= 0:
		path = line[m[4]:m[5]]
	}
	return Reference{
		Start: m[0],
		End:   m[1],
		Path:  strings.TrimPrefix(path, "file:"),
	}, true
}

// Name returns the media file name for an image at the resolved source
// path: the hex encoding of the path plus Suffix. Distinct sources never
// share a name.
func Name(source string) string {
	return hex.EncodeToString([]byte(source)) + Suffix
}

// EmbedTag returns the tag that displays name inside a card. The quotes
// are doubled because the tag ends up inside a quoted import field.
func EmbedTag(name string) string {
	return `<img src=""` + name + `"" />`
}

// Copied describes a media file written by Embed.
type Copied struct {
	Source string
	Name   string
	Bytes  int64
}

// Store copies images into Dir.
type Store struct {
	Dir string
}

// NewStore returns a store writing into dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Embed looks for an image reference in line. When the referenced file
// exists (relative paths resolve against docDir) it is copied into the
// store and the reference is replaced with an embed tag. A reference to a
// missing file leaves the line unchanged and returns ErrMissing wrapped
// with the path; a file whose content is not an image does the same with
// ErrNotImage. Any other error is an I/O failure reading or copying.
func (s *Store) Embed(line, docDir string) (string, *Copied, error) {
	ref, ok := Find(line)
	if !ok {
		return line, nil, nil
	}

	source := ref.Path
	if !filepath.IsAbs(source) {
		source = filepath.Join(docDir, source)
	}
	source = filepath.Clean(source)

	info, err := os.Stat(source)
	if err != nil || info.IsDir() {
		return line, nil, fmt.Errorf("%w: %s", ErrMissing, ref.Path)
	}

	mt, err := mimetype.DetectFile(source)
	if err != nil {
		return line, nil, fmt.Errorf("detecting type of %s: %w", source, err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return line, nil, fmt.Errorf("%w: %s is %s", ErrNotImage, ref.Path, mt.String())
	}

	name := Name(source)
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return line, nil, fmt.Errorf("creating media directory %s: %w", s.Dir, err)
	}
	if err := copy.Copy(source, filepath.Join(s.Dir, name)); err != nil {
		return line, nil, fmt.Errorf("copying %s to media directory: %w", source, err)
	}

	out := line[:ref.Start] + EmbedTag(name) + line[ref.End:]
	return out, &Copied{Source: source, Name: name, Bytes: info.Size()}, nil
}

// ErrMissing reports an image reference whose file does not exist.
var ErrMissing = errors.New("media file not found")

// ErrNotImage reports an image reference whose file holds something else.
var ErrNotImage = errors.New("media file is not an image")

// DefaultDir returns the media directory of the default flashcard profile.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "collection.media")
	}
	return filepath.Join(home, ".local", "share", "Anki2", "User 1", "collection.media")
}
