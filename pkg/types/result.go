// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConversionStatus indicates the outcome of converting one org file.
type ConversionStatus string

const (
	ConversionConverted ConversionStatus = "converted"
	ConversionEmpty     ConversionStatus = "empty"
	ConversionSkipped   ConversionStatus = "skipped"
	ConversionFailed    ConversionStatus = "failed"
)

// FileResult holds the outcome of converting a single org file. It is the
// unit summed into a BatchResult; nothing else carries run counters.
type FileResult struct {
	// Source is the org file that was converted.
	Source string `json:"source" yaml:"source"`

	// ExportDir is the directory card.txt and cloze.txt were written to.
	ExportDir string `json:"export_dir" yaml:"export_dir"`

	Status ConversionStatus `json:"status" yaml:"status"`

	// ModTime is the source file's modification time at conversion.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`

	Cards      int   `json:"cards" yaml:"cards"`
	Clozes     int   `json:"clozes" yaml:"clozes"`
	Images     int   `json:"images" yaml:"images"`
	MediaBytes int64 `json:"media_bytes" yaml:"media_bytes"`

	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// Err is set when Status is ConversionFailed.
	Err error `json:"-" yaml:"-"`
}

// BatchResult sums the FileResults of one run.
type BatchResult struct {
	Converted int
	Empty     int
	Skipped   int
	Failed    int

	Cards      int
	Clozes     int
	Images     int
	MediaBytes int64
	Warnings   int
}

// Add folds r into the batch totals.
func (b *BatchResult) Add(r FileResult) {
	switch r.Status {
	case ConversionConverted:
		b.Converted++
	case ConversionEmpty:
		b.Empty++
	case ConversionSkipped:
		b.Skipped++
	case ConversionFailed:
		b.Failed++
	}
	b.Cards += r.Cards
	b.Clozes += r.Clozes
	b.Images += r.Images
	b.MediaBytes += r.MediaBytes
	b.Warnings += len(r.Warnings)
}

// Total returns the number of files processed.
func (b BatchResult) Total() int {
	return b.Converted + b.Empty + b.Skipped + b.Failed
}

// HasFailures reports whether any file failed conversion.
func (b BatchResult) HasFailures() bool {
	return b.Failed > 0
}
