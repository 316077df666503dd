// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/renameio/v2"
	"go.yaml.in/yaml/v3"
)

// ExportEntry is one question in a bank export.
type ExportEntry struct {
	Set           string   `json:"set" yaml:"set"`
	SetName       string   `json:"setName,omitempty" yaml:"set_name,omitempty"`
	Number        int      `json:"number" yaml:"number"`
	Text          string   `json:"text" yaml:"text"`
	Options       []string `json:"options" yaml:"options"`
	CorrectOption int      `json:"correctOption" yaml:"correct_option"`
	Answer        string   `json:"answer" yaml:"answer"`
	Explanation   string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Subject       string   `json:"subject,omitempty" yaml:"subject,omitempty"`
	Topic         string   `json:"topic,omitempty" yaml:"topic,omitempty"`
}

const exportLimit = 100000

// ExportYAML writes the matching questions to bank/export.yaml and returns
// the path written.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.bankDir, "export.yaml")
	return path, renameio.WriteFile(path, data, 0o644)
}

// ExportJSON writes the matching questions to bank/export.json and returns
// the path written.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(s.bankDir, "export.json")
	return path, renameio.WriteFile(path, buf.Bytes(), 0o644)
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	opts.MaxResults = exportLimit
	results, err := s.Retrieve(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(results))
	for i, r := range results {
		entries[i] = ExportEntry{
			Set:           r.SourceSet,
			SetName:       r.SetName,
			Number:        r.ID,
			Text:          r.Text,
			Options:       r.Options,
			CorrectOption: r.CorrectOption,
			Answer:        r.CorrectLabel(),
			Explanation:   r.Explanation,
			Subject:       r.Subject,
			Topic:         r.Topic,
		}
	}

	return entries, nil
}
