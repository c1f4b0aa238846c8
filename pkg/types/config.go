package types

import "fmt"

// InclusionPolicy decides which leaf headings of a document become cards.
// It is resolved once per document from the header directive.
type InclusionPolicy int

const (
	// IncludeAll converts every leaf except those tagged with the exclude tag.
	IncludeAll InclusionPolicy = iota
	// IncludeTagged converts only leaves tagged with the include tag.
	IncludeTagged
)

func (p InclusionPolicy) String() string {
	switch p {
	case IncludeAll:
		return "all"
	case IncludeTagged:
		return "none"
	default:
		return fmt.Sprintf("InclusionPolicy(%d)", int(p))
	}
}

// ParseInclusionPolicy maps a header directive value ("all" or "none") to
// a policy. The boolean is false for unrecognized values.
func ParseInclusionPolicy(s string) (InclusionPolicy, bool) {
	switch s {
	case "all":
		return IncludeAll, true
	case "none":
		return IncludeTagged, true
	default:
		return IncludeAll, false
	}
}

// Layout selects how cards are written in the source document.
type Layout string

const (
	// LayoutOutline turns leaf headings into cards.
	LayoutOutline Layout = "outline"
	// LayoutSeparator turns "front :: back" lines into cards.
	LayoutSeparator Layout = "separator"
)

// Valid reports whether l names a known layout.
func (l Layout) Valid() bool {
	return l == LayoutOutline || l == LayoutSeparator
}

// TagConfig names the tags that steer the inclusion policies.
type TagConfig struct {
	// Include marks a leaf for conversion under IncludeTagged (default "sr").
	Include string `json:"include" yaml:"include"`

	// Exclude removes a leaf from conversion under IncludeAll (default "nosr").
	Exclude string `json:"exclude" yaml:"exclude"`
}

// MediaConfig holds settings for copying embedded images.
type MediaConfig struct {
	// Dir is the flashcard application's media directory.
	Dir string `json:"dir" yaml:"dir"`

	// Disabled turns image substitution off; references stay as text.
	Disabled bool `json:"disabled" yaml:"disabled"`
}

// ExportConfig holds settings for writing import files.
type ExportConfig struct {
	// LineSeparator joins answer lines inside one basic card (default "<br>").
	LineSeparator string `json:"line_separator" yaml:"line_separator"`
}

// ConvertConfig groups every setting of a conversion run.
type ConvertConfig struct {
	Layout Layout       `json:"layout" yaml:"layout"`
	Tags   TagConfig    `json:"tags" yaml:"tags"`
	Media  MediaConfig  `json:"media" yaml:"media"`
	Export ExportConfig `json:"export" yaml:"export"`

	// Include lists glob patterns (relative to the source root) selecting
	// files in a recursive run (default "**/*.org").
	Include []string `json:"include" yaml:"include"`

	// Exclude lists glob patterns removing files from a recursive run.
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	// Jobs bounds the number of files converted at once (default 1).
	Jobs int `json:"jobs" yaml:"jobs"`

	// Incremental skips files the ledger recorded with the same mod time.
	Incremental bool `json:"incremental" yaml:"incremental"`

	// LedgerPath is the SQLite history database. Empty disables the ledger.
	LedgerPath string `json:"ledger_path" yaml:"ledger_path"`
}

const (
	DefaultIncludeTag    = "sr"
	DefaultExcludeTag    = "nosr"
	DefaultLineSeparator = "<br>"
	DefaultIncludeGlob   = "**/*.org"
)

// WithDefaults returns a copy of c with zero fields set to their defaults.
func (c ConvertConfig) WithDefaults() ConvertConfig {
	if c.Layout == "" {
		c.Layout = LayoutOutline
	}
	if c.Tags.Include == "" {
		c.Tags.Include = DefaultIncludeTag
	}
	if c.Tags.Exclude == "" {
		c.Tags.Exclude = DefaultExcludeTag
	}
	if c.Export.LineSeparator == "" {
		c.Export.LineSeparator = DefaultLineSeparator
	}
	if len(c.Include) == 0 {
		c.Include = []string{DefaultIncludeGlob}
	}
	if c.Jobs <= 0 {
		c.Jobs = 1
	}
	return c
}
