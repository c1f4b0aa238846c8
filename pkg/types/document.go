// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Node is one heading of an org-mode outline together with the text
// directly beneath it. The header node (text before the first heading)
// has Depth 0; every heading node has Depth >= 1.
type Node struct {
	// Heading is the heading text without stars, keywords, or tags.
	Heading string `json:"heading" yaml:"heading"`

	// Body is the raw multi-line text under the heading.
	Body string `json:"body" yaml:"body"`

	// Depth is the number of leading stars on the heading line.
	Depth int `json:"depth" yaml:"depth"`

	// Tags lists the heading's tags in source order.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// HasTag reports whether the node carries tag.
func (n Node) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Document is a parsed org-mode file. Nodes[0] is always the header node.
type Document struct {
	// Path is the file the document was loaded from. Relative media
	// references resolve against its directory.
	Path string `json:"path" yaml:"path"`

	Nodes []Node `json:"nodes" yaml:"nodes"`
}

// Header returns the document-level header node.
func (d Document) Header() Node {
	if len(d.Nodes) == 0 {
		return Node{}
	}
	return d.Nodes[0]
}

// Headings returns every node except the header node.
func (d Document) Headings() []Node {
	if len(d.Nodes) <= 1 {
		return nil
	}
	return d.Nodes[1:]
}

// MaxDepth returns the deepest heading level in the document, or 0 when
// the document has no headings.
func (d Document) MaxDepth() int {
	max := 0
	for _, n := range d.Headings() {
		if n.Depth > max {
			max = n.Depth
		}
	}
	return max
}
