// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest maintains the list of converted tests that the viewer
// loads to populate its test picker.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/pdiddy/mockexam/pkg/types"
)

// DefaultFile is the manifest filename inside the output directory.
const DefaultFile = "test_manifest.json"

// Load reads the manifest at path. A missing file is an empty manifest.
func Load(path string) ([]types.ManifestEntry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var entries []types.ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return entries, nil
}

// Save writes entries to path atomically.
func Save(path string, entries []types.ManifestEntry) error {
	if entries == nil {
		entries = []types.ManifestEntry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// Upsert records entry in the manifest at path. An entry with the same
// Filename is replaced in place; otherwise entry is appended. Re-recording
// an unchanged source (same checksum) keeps the original ConvertedAt, so
// the manifest does not churn on repeated runs.
func Upsert(path string, entry types.ManifestEntry) error {
	entries, err := Load(path)
	if err != nil {
		return err
	}
	return Save(path, upsert(entries, entry))
}

func upsert(entries []types.ManifestEntry, entry types.ManifestEntry) []types.ManifestEntry {
	for i, e := range entries {
		if e.Filename != entry.Filename {
			continue
		}
		if e.Checksum != "" && e.Checksum == entry.Checksum && !e.ConvertedAt.IsZero() {
			entry.ConvertedAt = e.ConvertedAt
		}
		entries[i] = entry
		return entries
	}
	return append(entries, entry)
}

// Remove drops the entry for filename, if present.
func Remove(path, filename string) error {
	entries, err := Load(path)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.Filename != filename {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return Save(path, kept)
}
