// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bank indexes converted question files in a local SQLite
// database with full-text search, so questions from every test can be
// searched, filtered and exported together.
package bank

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/mockexam/internal/manifest"
	"github.com/pdiddy/mockexam/internal/paper"
	"github.com/pdiddy/mockexam/pkg/types"
)

const (
	dbFile            = "bank.db"
	defaultMaxResults = 20
)

// Store manages the question bank SQLite database.
type Store struct {
	db         *sql.DB
	bankDir    string
	testsDir   string
	maxResults int
}

// NewStore opens or creates the database at cfg.BankDir/bank.db and
// creates the schema if it does not exist.
func NewStore(cfg types.BankConfig) (*Store, error) {
	if cfg.BankDir == "" {
		cfg.BankDir = "bank"
	}
	if cfg.TestsDir == "" {
		cfg.TestsDir = "tests"
	}
	if err := os.MkdirAll(cfg.BankDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating bank directory: %w", err)
	}

	dbPath := filepath.Join(cfg.BankDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{
		db:         db,
		bankDir:    cfg.BankDir,
		testsDir:   cfg.TestsDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sets (
			id TEXT PRIMARY KEY,
			name TEXT,
			filename TEXT,
			checksum TEXT,
			converted_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			set_id TEXT NOT NULL REFERENCES sets(id),
			number INTEGER NOT NULL,
			text TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_option INTEGER NOT NULL,
			explanation TEXT,
			subject TEXT,
			topic TEXT,
			UNIQUE(set_id, number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_subject ON questions(subject)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_topic ON questions(topic)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			set_id TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table kept in sync by triggers.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='questions_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE questions_fts USING fts5(text, options, explanation, content=questions, content_rowid=rowid)`,
			`CREATE TRIGGER questions_ai AFTER INSERT ON questions BEGIN
				INSERT INTO questions_fts(rowid, text, options, explanation)
				VALUES (new.rowid, new.text, new.options, new.explanation);
			END`,
			`CREATE TRIGGER questions_ad AFTER DELETE ON questions BEGIN
				INSERT INTO questions_fts(questions_fts, rowid, text, options, explanation)
				VALUES ('delete', old.rowid, old.text, old.options, old.explanation);
			END`,
			`CREATE TRIGGER questions_au AFTER UPDATE ON questions BEGIN
				INSERT INTO questions_fts(questions_fts, rowid, text, options, explanation)
				VALUES ('delete', old.rowid, old.text, old.options, old.explanation);
				INSERT INTO questions_fts(rowid, text, options, explanation)
				VALUES (new.rowid, new.text, new.options, new.explanation);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from a bank indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Removed int
	Failed  int
}

// Total returns the number of question files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest indexes every question file in the tests directory. Files whose
// modification time is unchanged since the last run are skipped; changed
// files replace their questions; sets whose file disappeared are dropped.
// On changes it refreshes export.yaml.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	entries, err := os.ReadDir(s.testsDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading tests directory %s: %w", s.testsDir, err)
	}

	sets, err := manifestIndex(s.testsDir)
	if err != nil {
		fmt.Fprintf(w, "warning: %v\n", err)
	}

	var summary IngestSummary
	present := make(map[string]bool)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || name == manifest.DefaultFile {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		setID := strings.TrimSuffix(name, ".json")
		present[setID] = true

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", setID, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE set_id = ?`, setID,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped  %s\n", setID)
			summary.Skipped++
			continue
		}

		isUpdate := err == nil

		questions, err := readQuestions(filepath.Join(s.testsDir, name))
		if err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", setID, err)
			summary.Failed++
			continue
		}

		meta, ok := sets[name]
		if !ok {
			meta = types.ManifestEntry{Name: paper.Title(name), Filename: name}
		}

		if err := s.ingestSet(ctx, setID, meta, questions, modTime); err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", setID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated  %s (%d questions)\n", setID, len(questions))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d questions)\n", setID, len(questions))
			summary.Indexed++
		}
	}

	removed, err := s.pruneMissing(ctx, present)
	if err != nil {
		return summary, err
	}
	for _, id := range removed {
		fmt.Fprintf(w, "removed  %s\n", id)
	}
	summary.Removed = len(removed)

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, removed: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Removed, summary.Failed)

	if summary.Indexed > 0 || summary.Updated > 0 || summary.Removed > 0 {
		if _, err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

// readQuestions loads and schema-checks one converted question file.
func readQuestions(path string) ([]types.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := paper.ValidateJSON(data); err != nil {
		return nil, err
	}
	var questions []types.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("decoding questions: %w", err)
	}
	return questions, nil
}

// manifestIndex maps output filenames to their manifest entries.
func manifestIndex(testsDir string) (map[string]types.ManifestEntry, error) {
	entries, err := manifest.Load(filepath.Join(testsDir, manifest.DefaultFile))
	if err != nil {
		return nil, err
	}
	idx := make(map[string]types.ManifestEntry, len(entries))
	for _, e := range entries {
		idx[e.Filename] = e
	}
	return idx, nil
}

func (s *Store) ingestSet(ctx context.Context, setID string, meta types.ManifestEntry, questions []types.Question, modTime string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE set_id = ?`, setID); err != nil {
		return fmt.Errorf("deleting old questions: %w", err)
	}

	convertedAt := ""
	if !meta.ConvertedAt.IsZero() {
		convertedAt = meta.ConvertedAt.UTC().Format(time.RFC3339)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sets (id, name, filename, checksum, converted_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, filename=excluded.filename,
			checksum=excluded.checksum, converted_at=excluded.converted_at`,
		setID, meta.Name, meta.Filename, meta.Checksum, convertedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting set: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO questions (set_id, number, text, options, correct_option, explanation, subject, topic)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, q := range questions {
		optionsJSON, _ := json.Marshal(q.Options)
		_, err := stmt.ExecContext(ctx,
			setID, q.ID, q.Text, string(optionsJSON), q.CorrectOption,
			q.Explanation, q.Subject, q.Topic,
		)
		if err != nil {
			return fmt.Errorf("inserting question %d: %w", q.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (set_id, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(set_id) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		setID, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}

// pruneMissing deletes indexed sets whose question file is gone.
func (s *Store) pruneMissing(ctx context.Context, present map[string]bool) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT set_id FROM indexing_status ORDER BY set_id`)
	if err != nil {
		return nil, fmt.Errorf("listing indexed sets: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning set id: %w", err)
		}
		if !present[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range stale {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("beginning transaction: %w", err)
		}
		for _, q := range []string{
			`DELETE FROM questions WHERE set_id = ?`,
			`DELETE FROM sets WHERE id = ?`,
			`DELETE FROM indexing_status WHERE set_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("removing set %s: %w", id, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("removing set %s: %w", id, err)
		}
	}
	return stale, nil
}
