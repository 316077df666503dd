// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mockexam/pkg/types"
)

func TestLoad_Missing(t *testing.T) {
	entries, err := Load(filepath.Join(t.TempDir(), DefaultFile))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing manifest")
}

func TestLoad_LegacyEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	legacy := `[{"name": "SFG 2026 Test 1", "filename": "SFG-2026-Test-1.json"}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "SFG 2026 Test 1", entries[0].Name)
	assert.True(t, entries[0].ConvertedAt.IsZero())
}

func TestUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tests", DefaultFile)
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	require.NoError(t, Upsert(path, types.ManifestEntry{Name: "Test 1", Filename: "test-1.json", QuestionCount: 50, Checksum: "aa", ConvertedAt: t1}))
	require.NoError(t, Upsert(path, types.ManifestEntry{Name: "Test 2", Filename: "test-2.json", QuestionCount: 40, Checksum: "bb", ConvertedAt: t1}))

	// Same source again: entry stays in place and keeps its timestamp.
	require.NoError(t, Upsert(path, types.ManifestEntry{Name: "Test 1", Filename: "test-1.json", QuestionCount: 50, Checksum: "aa", ConvertedAt: t2}))

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "test-1.json", entries[0].Filename)
	assert.Equal(t, "test-2.json", entries[1].Filename)
	assert.True(t, entries[0].ConvertedAt.Equal(t1))

	// Changed source: entry is replaced.
	require.NoError(t, Upsert(path, types.ManifestEntry{Name: "Test 1", Filename: "test-1.json", QuestionCount: 49, Checksum: "cc", ConvertedAt: t2}))
	entries, err = Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 49, entries[0].QuestionCount)
	assert.True(t, entries[0].ConvertedAt.Equal(t2))
}

func TestSave_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, Save(path, []types.ManifestEntry{{Name: "A & B", Filename: "a.json"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"name\": \"A & B\",\n    \"filename\": \"a.json\"\n  }\n]\n", string(data))

	require.NoError(t, Save(path, nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, Save(path, []types.ManifestEntry{
		{Name: "A", Filename: "a.json"},
		{Name: "B", Filename: "b.json"},
	}))

	require.NoError(t, Remove(path, "a.json"))
	require.NoError(t, Remove(path, "missing.json"))

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.json", entries[0].Filename)
}
