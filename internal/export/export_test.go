// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/org2anki/pkg/types"
)

func TestWriteCards(t *testing.T) {
	cards := []types.BasicCard{
		{Front: "Capitals", Back: []string{"Paris", "Berlin"}},
		{Front: "Empty", Back: nil},
		{Front: `Quote "this"; ok`, Back: []string{"a;b"}},
	}
	var buf bytes.Buffer
	require.NoError(t, New("").WriteCards(&buf, cards))

	want := "Capitals; \"Paris<br>Berlin\";\n" +
		"Empty; \"\";\n" +
		"Quote \"this\"; ok; \"a;b\";\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCards_CustomSeparator(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("<br/>").WriteCards(&buf, []types.BasicCard{{Front: "Q", Back: []string{"a", "b"}}}))
	assert.Equal(t, "Q; \"a<br/>b\";\n", buf.String())
}

func TestWriteClozes(t *testing.T) {
	var buf bytes.Buffer
	err := New("").WriteClozes(&buf, []types.ClozeCard{
		{Text: "The {{c1::mitochondria}} is the powerhouse"},
		{Text: "{{c1::Paris}} is the capital of {{c2::France}}"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"The {{c1::mitochondria}} is the powerhouse;\n{{c1::Paris}} is the capital of {{c2::France}};\n",
		buf.String())
}

func TestWriteDeck(t *testing.T) {
	t.Run("writes both files", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out", "deck")
		deck := types.Deck{
			Basic:  []types.BasicCard{{Front: "Q", Back: []string{"A"}}},
			Clozes: []types.ClozeCard{{Text: "{{c1::A}}"}},
		}
		written, err := New("").WriteDeck(dir, deck)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, CardFile), filepath.Join(dir, ClozeFile)}, written)

		data, err := os.ReadFile(filepath.Join(dir, CardFile))
		require.NoError(t, err)
		assert.Equal(t, "Q; \"A\";\n", string(data))
	})

	t.Run("skips the cloze file when there are no clozes", func(t *testing.T) {
		dir := t.TempDir()
		_, err := New("").WriteDeck(dir, types.Deck{Basic: []types.BasicCard{{Front: "Q"}}})
		require.NoError(t, err)
		_, err = os.Stat(filepath.Join(dir, ClozeFile))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("empty deck creates nothing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "never")
		written, err := New("").WriteDeck(dir, types.Deck{})
		require.NoError(t, err)
		assert.Empty(t, written)
		_, err = os.Stat(dir)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("removes files left by an earlier run", func(t *testing.T) {
		dir := t.TempDir()
		e := New("")
		_, err := e.WriteDeck(dir, types.Deck{
			Basic:  []types.BasicCard{{Front: "Q", Back: []string{"A"}}},
			Clozes: []types.ClozeCard{{Text: "The {{c1::old}} fact"}},
		})
		require.NoError(t, err)

		written, err := e.WriteDeck(dir, types.Deck{Basic: []types.BasicCard{{Front: "Q", Back: []string{"B"}}}})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, CardFile)}, written)
		_, err = os.Stat(filepath.Join(dir, ClozeFile))
		assert.True(t, os.IsNotExist(err), "stale cloze file must be removed")

		written, err = e.WriteDeck(dir, types.Deck{})
		require.NoError(t, err)
		assert.Empty(t, written)
		_, err = os.Stat(filepath.Join(dir, CardFile))
		assert.True(t, os.IsNotExist(err), "stale card file must be removed")
	})

	t.Run("unwritable directory fails", func(t *testing.T) {
		parent := t.TempDir()
		blocker := filepath.Join(parent, "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
		_, err := New("").WriteDeck(filepath.Join(blocker, "deck"), types.Deck{Basic: []types.BasicCard{{Front: "Q"}}})
		assert.Error(t, err)
	})
}
