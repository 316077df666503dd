// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mockexam/internal/bank"
	"github.com/pdiddy/mockexam/pkg/types"
)

func TestReadURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	list := "# level 1\nhttps://example.com/a.pdf\n\n  https://example.com/b.pdf  \n"
	require.NoError(t, os.WriteFile(path, []byte(list), 0o644))

	urls, err := readURLs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a.pdf", "https://example.com/b.pdf"}, urls)

	_, err = readURLs(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ऑप्...", truncate("ऑप्शन ए सही है", 6))
	assert.Equal(t, "a b c", oneLine("a\n  b\tc "))
}

func TestFormatSearchOutput(t *testing.T) {
	results := []bank.QueryResult{{
		Question: types.Question{
			ID: 4, Text: "Which river\nflows west?", Options: []string{"Narmada", "Godavari", "Krishna", "Kaveri"},
			CorrectOption: 0, Subject: "Geography", SourceSet: "SFG-2026-Test-3",
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, formatSearchOutput(&buf, results, false))
	out := buf.String()
	assert.Contains(t, out, "Which river flows west?")
	assert.Contains(t, out, "a) Narmada")
	assert.Contains(t, out, "1 results")

	buf.Reset()
	require.NoError(t, formatSearchOutput(&buf, nil, false))
	assert.Equal(t, "No results found.\n", buf.String())

	buf.Reset()
	require.NoError(t, formatSearchOutput(&buf, results, true))
	assert.True(t, strings.HasPrefix(buf.String(), "[\n  {\n    \"id\": 4,"))
}

func TestConversionConfig(t *testing.T) {
	v := viper.GetViper()
	setDefaults(v)
	t.Cleanup(viper.Reset)

	viper.Set("backend", "pdftotext")
	cfg, err := conversionConfig()
	require.NoError(t, err)
	assert.Equal(t, types.BackendPdftotext, cfg.Backend)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, "tests", cfg.OutputDir)
	assert.Equal(t, "test_manifest.json", cfg.ManifestFile)
	assert.True(t, cfg.RemoveProcessed)
}
