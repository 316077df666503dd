package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mockexam/internal/manifest"
	"github.com/pdiddy/mockexam/internal/paper"
	"github.com/pdiddy/mockexam/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()

	testsDir := filepath.Join(tmpDir, "tests")
	if err := os.MkdirAll(testsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(types.BankConfig{
		BankDir:    filepath.Join(tmpDir, "bank"),
		TestsDir:   testsDir,
		MaxResults: 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store, testsDir
}

func writeSet(t *testing.T, testsDir, setID string, questions []types.Question) {
	t.Helper()
	data, err := paper.Marshal(questions)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(testsDir, setID+".json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// touch moves the file's modification time forward so Ingest sees a change.
func touch(t *testing.T, testsDir, setID string) {
	t.Helper()
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(filepath.Join(testsDir, setID+".json"), later, later); err != nil {
		t.Fatal(err)
	}
}

func sampleQuestions(setID string) []types.Question {
	return []types.Question{
		{
			ID: 1, Text: "Which article of the Constitution abolishes untouchability?",
			Options:       []string{"Article 14", "Article 15", "Article 17", "Article 21"},
			CorrectOption: 2, Explanation: "Article 17 abolishes untouchability.",
			Subject: "Polity", Topic: "Fundamental Rights", SourceSet: setID,
		},
		{
			ID: 2, Text: "Which river flows through a rift valley?",
			Options:       []string{"Narmada", "Godavari", "Krishna", "Kaveri"},
			CorrectOption: 0, Explanation: "The Narmada flows west through a rift valley.",
			Subject: "Geography", Topic: "Rivers", SourceSet: setID,
		},
		{
			ID: 3, Text: "The Preamble was amended by which amendment?",
			Options:       []string{"24th", "42nd", "44th", "52nd"},
			CorrectOption: 1, Explanation: "The 42nd amendment added socialist and secular.",
			Subject: "Polity", Topic: "Preamble", SourceSet: setID,
		},
	}
}

func ingest(t *testing.T, store *Store) (IngestSummary, string) {
	t.Helper()
	var buf bytes.Buffer
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	return summary, buf.String()
}

// --- tests ---

func TestIngest_NewSets(t *testing.T) {
	store, testsDir := testSetup(t)
	writeSet(t, testsDir, "SFG-2026-Test-1", sampleQuestions("SFG-2026-Test-1"))
	writeSet(t, testsDir, "SFG-2026-Test-2", sampleQuestions("SFG-2026-Test-2")[:2])
	if err := manifest.Save(filepath.Join(testsDir, manifest.DefaultFile), []types.ManifestEntry{
		{Name: "Level 1 Test 1", Filename: "SFG-2026-Test-1.json"},
	}); err != nil {
		t.Fatal(err)
	}

	summary, out := ingest(t, store)
	if summary.Indexed != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %+v\n%s", summary, out)
	}
	if !strings.Contains(out, "indexing SFG-2026-Test-1 (3 questions)") {
		t.Errorf("output missing indexing line:\n%s", out)
	}

	sets, err := store.Sets(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 2 {
		t.Fatalf("got %d sets, want 2", len(sets))
	}
	if sets[0].Name != "Level 1 Test 1" || sets[0].QuestionCount != 3 {
		t.Errorf("set 0 = %+v", sets[0])
	}
	if sets[1].Name != "SFG 2026 Test 2" || sets[1].QuestionCount != 2 {
		t.Errorf("set 1 = %+v (name should fall back to the filename title)", sets[1])
	}

	if _, err := os.Stat(filepath.Join(store.bankDir, "export.yaml")); err != nil {
		t.Errorf("export.yaml not written: %v", err)
	}
}

func TestIngest_Incremental(t *testing.T) {
	store, testsDir := testSetup(t)
	writeSet(t, testsDir, "set-a", sampleQuestions("set-a"))

	ingest(t, store)

	summary, _ := ingest(t, store)
	if summary.Skipped != 1 || summary.Indexed != 0 {
		t.Fatalf("second run summary = %+v, want 1 skipped", summary)
	}

	writeSet(t, testsDir, "set-a", sampleQuestions("set-a")[:1])
	touch(t, testsDir, "set-a")
	summary, _ = ingest(t, store)
	if summary.Updated != 1 {
		t.Fatalf("third run summary = %+v, want 1 updated", summary)
	}

	results, err := store.Retrieve(context.Background(), QueryOptions{SetID: "set-a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("got %d questions after update, want 1", len(results))
	}
}

func TestIngest_RemovesDeletedSets(t *testing.T) {
	store, testsDir := testSetup(t)
	writeSet(t, testsDir, "keep", sampleQuestions("keep"))
	writeSet(t, testsDir, "drop", sampleQuestions("drop"))
	ingest(t, store)

	if err := os.Remove(filepath.Join(testsDir, "drop.json")); err != nil {
		t.Fatal(err)
	}
	summary, out := ingest(t, store)
	if summary.Removed != 1 {
		t.Fatalf("summary = %+v, want 1 removed", summary)
	}
	if !strings.Contains(out, "removed  drop") {
		t.Errorf("output = %q", out)
	}

	results, err := store.Retrieve(context.Background(), QueryOptions{Query: "rift"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].SourceSet != "keep" {
		t.Errorf("results = %+v, want only set keep", results)
	}
}

func TestIngest_InvalidFile(t *testing.T) {
	store, testsDir := testSetup(t)
	bad := `[{"id": 1, "text": "x", "options": ["a", "b"], "correctOption": 0, "sourceSet": "bad"}]`
	if err := os.WriteFile(filepath.Join(testsDir, "bad.json"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	writeSet(t, testsDir, "good", sampleQuestions("good"))

	summary, out := ingest(t, store)
	if summary.Failed != 1 || summary.Indexed != 1 {
		t.Fatalf("summary = %+v\n%s", summary, out)
	}
	if !strings.Contains(out, "failed   bad") {
		t.Errorf("output = %q", out)
	}
}

func TestIngest_MissingDir(t *testing.T) {
	store, err := NewStore(types.BankConfig{
		BankDir:  filepath.Join(t.TempDir(), "bank"),
		TestsDir: filepath.Join(t.TempDir(), "nope"),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.Ingest(context.Background(), &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for missing tests directory")
	}
}

func TestRetrieve(t *testing.T) {
	store, testsDir := testSetup(t)
	writeSet(t, testsDir, "set-a", sampleQuestions("set-a"))
	writeSet(t, testsDir, "set-b", sampleQuestions("set-b"))
	ingest(t, store)

	tests := []struct {
		name  string
		opts  QueryOptions
		count int
	}{
		{"full text", QueryOptions{Query: "untouchability"}, 2},
		{"full text matches options", QueryOptions{Query: "Godavari"}, 2},
		{"subject filter", QueryOptions{Subject: "polity"}, 4},
		{"topic filter", QueryOptions{Topic: "Rivers"}, 2},
		{"set filter", QueryOptions{SetID: "set-b"}, 3},
		{"text and set", QueryOptions{Query: "Preamble", SetID: "set-a"}, 1},
		{"subject and topic", QueryOptions{Subject: "Polity", Topic: "Preamble"}, 2},
		{"no match", QueryOptions{Query: "photosynthesis"}, 0},
		{"max results", QueryOptions{MaxResults: 2}, 2},
		{"everything", QueryOptions{}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Retrieve(context.Background(), tt.opts)
			if err != nil {
				t.Fatalf("Retrieve: %v", err)
			}
			if len(results) != tt.count {
				t.Errorf("got %d results, want %d", len(results), tt.count)
			}
		})
	}
}

func TestRetrieve_RoundTripsQuestion(t *testing.T) {
	store, testsDir := testSetup(t)
	want := sampleQuestions("set-a")
	writeSet(t, testsDir, "set-a", want)
	ingest(t, store)

	got, err := store.Question(context.Background(), "set-a", 3)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != want[2].Text || got.CorrectOption != 1 || got.Options[1] != "42nd" {
		t.Errorf("question = %+v", got)
	}
	if got.SetName != "set a" {
		t.Errorf("SetName = %q", got.SetName)
	}

	_, err = store.Question(context.Background(), "set-a", 99)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestQueryOptions_IsEmpty(t *testing.T) {
	if !(QueryOptions{MaxResults: 5}).IsEmpty() {
		t.Error("max results alone should be empty")
	}
	if (QueryOptions{Topic: "Rivers"}).IsEmpty() {
		t.Error("topic filter should not be empty")
	}
}

func TestExport(t *testing.T) {
	store, testsDir := testSetup(t)
	writeSet(t, testsDir, "set-a", sampleQuestions("set-a"))
	ingest(t, store)

	path, err := store.ExportYAML(context.Background(), QueryOptions{Subject: "Polity"})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var fromYAML []ExportEntry
	if err := yaml.Unmarshal(data, &fromYAML); err != nil {
		t.Fatal(err)
	}
	if len(fromYAML) != 2 {
		t.Fatalf("YAML export has %d entries, want 2", len(fromYAML))
	}
	if fromYAML[0].Answer != "c" || fromYAML[0].Set != "set-a" {
		t.Errorf("entry = %+v", fromYAML[0])
	}

	path, err = store.ExportJSON(context.Background(), QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var fromJSON []ExportEntry
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		t.Fatal(err)
	}
	if len(fromJSON) != 3 {
		t.Errorf("JSON export has %d entries, want 3", len(fromJSON))
	}
}
