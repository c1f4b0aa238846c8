// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/org2anki/pkg/types"
)

// Report is the exported form of the ledger.
type Report struct {
	Summary ReportSummary `json:"summary" yaml:"summary"`
	Entries []Entry       `json:"entries" yaml:"entries"`
}

// ReportSummary totals the exported entries.
type ReportSummary struct {
	Files      int   `json:"files" yaml:"files"`
	Cards      int   `json:"cards" yaml:"cards"`
	Clozes     int   `json:"clozes" yaml:"clozes"`
	Images     int   `json:"images" yaml:"images"`
	MediaBytes int64 `json:"media_bytes" yaml:"media_bytes"`
	Failed     int   `json:"failed" yaml:"failed"`
}

// BuildReport collects the entries matching opts into a report. Unlike
// List, a zero limit means no limit.
func (l *Ledger) BuildReport(ctx context.Context, opts ListOptions) (Report, error) {
	if opts.Limit == 0 {
		opts.Limit = -1
	}
	entries, err := l.List(ctx, opts)
	if err != nil {
		return Report{}, fmt.Errorf("querying for export: %w", err)
	}

	r := Report{Entries: entries}
	for _, e := range entries {
		r.Summary.Files++
		r.Summary.Cards += e.Cards
		r.Summary.Clozes += e.Clozes
		r.Summary.Images += e.Images
		r.Summary.MediaBytes += e.MediaBytes
		if e.Status == types.ConversionFailed {
			r.Summary.Failed++
		}
	}
	return r, nil
}

// ExportYAML writes the report next to the database as report.yaml and
// returns the path written.
func (l *Ledger) ExportYAML(ctx context.Context, opts ListOptions) (string, error) {
	r, err := l.BuildReport(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(&r)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(filepath.Dir(l.path), "report.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the report next to the database as report.json and
// returns the path written.
func (l *Ledger) ExportJSON(ctx context.Context, opts ListOptions) (string, error) {
	r, err := l.BuildReport(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(filepath.Dir(l.path), "report.json")
	return path, os.WriteFile(path, data, 0o644)
}
