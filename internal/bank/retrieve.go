// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bank

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/mockexam/pkg/types"
)

// QueryOptions holds parameters for bank queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string, matched against question
	// text, options and explanation.
	Query string

	// Subject and Topic filter on the paper's metadata tags
	// (case-insensitive).
	Subject string
	Topic   string

	// SetID filters by source set.
	SetID string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Subject == "" && q.Topic == "" && q.SetID == ""
}

// QueryResult is a stored question with the name of its set.
type QueryResult struct {
	types.Question
	SetName string `json:"setName" yaml:"set_name"`
}

// Retrieve queries the bank with optional full-text search and filters.
// Full-text results are ranked by relevance; filter-only results are
// ordered by set and question number.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT q.set_id, q.number, q.text, q.options, q.correct_option,
				q.explanation, q.subject, q.topic, st.name
			FROM questions_fts
			JOIN questions q ON q.rowid = questions_fts.rowid
			LEFT JOIN sets st ON q.set_id = st.id
			WHERE questions_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT q.set_id, q.number, q.text, q.options, q.correct_option,
				q.explanation, q.subject, q.topic, st.name
			FROM questions q
			LEFT JOIN sets st ON q.set_id = st.id
			WHERE 1=1`)
	}

	if opts.Subject != "" {
		qb.WriteString(` AND q.subject = ? COLLATE NOCASE`)
		args = append(args, opts.Subject)
	}
	if opts.Topic != "" {
		qb.WriteString(` AND q.topic = ? COLLATE NOCASE`)
		args = append(args, opts.Topic)
	}
	if opts.SetID != "" {
		qb.WriteString(` AND q.set_id = ?`)
		args = append(args, opts.SetID)
	}

	if useFTS {
		qb.WriteString(` ORDER BY questions_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY q.set_id, q.number`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying question bank: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr          QueryResult
			optionsJSON string
			explanation sql.NullString
			subject     sql.NullString
			topic       sql.NullString
			setName     sql.NullString
		)

		if err := rows.Scan(
			&qr.SourceSet, &qr.ID, &qr.Text, &optionsJSON, &qr.CorrectOption,
			&explanation, &subject, &topic, &setName,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if err := json.Unmarshal([]byte(optionsJSON), &qr.Options); err != nil {
			return nil, fmt.Errorf("decoding options of %s/%d: %w", qr.SourceSet, qr.ID, err)
		}
		qr.Explanation = explanation.String
		qr.Subject = subject.String
		qr.Topic = topic.String
		qr.SetName = setName.String

		results = append(results, qr)
	}

	return results, rows.Err()
}

// Question returns one question by set and number.
func (s *Store) Question(ctx context.Context, setID string, number int) (QueryResult, error) {
	results, err := s.Retrieve(ctx, QueryOptions{SetID: setID, MaxResults: exportLimit})
	if err != nil {
		return QueryResult{}, err
	}
	for _, r := range results {
		if r.ID == number {
			return r, nil
		}
	}
	return QueryResult{}, fmt.Errorf("question %s/%d: %w", setID, number, ErrNotFound)
}

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// SetInfo summarizes one indexed set.
type SetInfo struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	QuestionCount int    `json:"questionCount" yaml:"question_count"`
}

// Sets lists the indexed sets with their question counts.
func (s *Store) Sets(ctx context.Context) ([]SetInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT st.id, COALESCE(st.name, ''), count(q.rowid)
		FROM sets st
		LEFT JOIN questions q ON q.set_id = st.id
		GROUP BY st.id
		ORDER BY st.id`)
	if err != nil {
		return nil, fmt.Errorf("listing sets: %w", err)
	}
	defer rows.Close()

	var sets []SetInfo
	for rows.Next() {
		var si SetInfo
		if err := rows.Scan(&si.ID, &si.Name, &si.QuestionCount); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		sets = append(sets, si)
	}
	return sets, rows.Err()
}
