// This file implements the per-owner JSONL export.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Export file names written by ExportOwner.
const (
	EntriesFile     = "entries.jsonl"
	TermsFile       = "terms.jsonl"
	LinksFile       = "links.jsonl"
	AttachmentsFile = "attachments.jsonl"
)

// ExportSummary counts the records written per file.
type ExportSummary struct {
	Dir         string `json:"dir"`
	Entries     int    `json:"entries"`
	Terms       int    `json:"terms"`
	Links       int    `json:"links"`
	Attachments int    `json:"attachments"`
}

// ExportOwner writes all rows of owner as JSONL files into dir, creating
// dir if needed. Each file is replaced atomically.
func (b *Backend) ExportOwner(ctx context.Context, owner, dir string) (ExportSummary, error) {
	sum := ExportSummary{Dir: dir}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sum, fmt.Errorf("create export dir: %w", err)
	}

	entries, err := b.entries.ListByOwner(ctx, owner)
	if err != nil {
		return sum, err
	}
	if err := writeJSONL(filepath.Join(dir, EntriesFile), entries); err != nil {
		return sum, fmt.Errorf("export entries: %w", err)
	}
	sum.Entries = len(entries)

	terms, err := b.terms.ListByOwner(ctx, owner)
	if err != nil {
		return sum, err
	}
	if err := writeJSONL(filepath.Join(dir, TermsFile), terms); err != nil {
		return sum, fmt.Errorf("export terms: %w", err)
	}
	sum.Terms = len(terms)

	links, err := b.links.ListByOwner(ctx, owner)
	if err != nil {
		return sum, err
	}
	if err := writeJSONL(filepath.Join(dir, LinksFile), links); err != nil {
		return sum, fmt.Errorf("export links: %w", err)
	}
	sum.Links = len(links)

	attachments, err := b.attachments.ListByOwner(ctx, owner)
	if err != nil {
		return sum, err
	}
	if err := writeJSONL(filepath.Join(dir, AttachmentsFile), attachments); err != nil {
		return sum, fmt.Errorf("export attachments: %w", err)
	}
	sum.Attachments = len(attachments)

	return sum, nil
}
