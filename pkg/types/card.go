// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// BasicCard is a front/back flashcard built from a leaf heading and its body.
type BasicCard struct {
	// Front is the question text (the heading).
	Front string `json:"front" yaml:"front"`

	// Back holds one entry per answer line, already cloze-cleaned and
	// image-substituted.
	Back []string `json:"back" yaml:"back"`
}

// ClozeCard is a single line of text with reveal annotations
// ({{c1::...}}) around its hidden spans.
type ClozeCard struct {
	Text string `json:"text" yaml:"text"`
}

// Deck collects the cards generated from one document.
type Deck struct {
	// Basic holds basic cards in the order their fronts first appeared.
	Basic []BasicCard `json:"basic" yaml:"basic"`

	// Clozes holds cloze cards in generation order.
	Clozes []ClozeCard `json:"clozes" yaml:"clozes"`

	// Images counts media files copied while generating the deck.
	Images int `json:"images" yaml:"images"`

	// MediaBytes is the total size of the copied media files.
	MediaBytes int64 `json:"media_bytes" yaml:"media_bytes"`

	// Warnings lists non-fatal problems found while generating the deck.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// fronts maps a card front to its index in Basic.
	fronts map[string]int
}

// IsEmpty reports whether the deck has no cards of either kind.
func (d *Deck) IsEmpty() bool {
	return len(d.Basic) == 0 && len(d.Clozes) == 0
}

// PutBasic adds card to the deck. A card whose front matches an existing
// card replaces it in place and PutBasic returns true.
func (d *Deck) PutBasic(card BasicCard) (replaced bool) {
	if d.fronts == nil {
		d.fronts = make(map[string]int, len(d.Basic))
		for i, c := range d.Basic {
			d.fronts[c.Front] = i
		}
	}
	if i, ok := d.fronts[card.Front]; ok {
		d.Basic[i] = card
		return true
	}
	d.fronts[card.Front] = len(d.Basic)
	d.Basic = append(d.Basic, card)
	return false
}

// Warn appends a warning message to the deck.
func (d *Deck) Warn(msg string) {
	d.Warnings = append(d.Warnings, msg)
}
