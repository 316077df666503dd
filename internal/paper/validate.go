// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package paper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pdiddy/mockexam/pkg/types"
)

// Schema is the JSON Schema of a converted question file.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://mockexam.local/question-set.schema.json",
  "title": "Mock test question set",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["id", "text", "options", "correctOption", "sourceSet"],
    "properties": {
      "id": {"type": "integer", "minimum": 1},
      "text": {"type": "string", "minLength": 1},
      "options": {
        "type": "array",
        "minItems": 4,
        "maxItems": 4,
        "items": {"type": "string", "minLength": 1}
      },
      "correctOption": {"type": "integer", "minimum": 0, "maximum": 3},
      "explanation": {"type": "string"},
      "subject": {"type": "string"},
      "topic": {"type": "string"},
      "sourceSet": {"type": "string", "minLength": 1}
    }
  }
}
`

var validate = validator.New()

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("question-set.schema.json", Schema)
	})
	return schema, schemaErr
}

// Validate checks the record invariants: at least one question, unique
// ids, a non-empty prompt, exactly four non-empty options and a correct
// option that resolves.
func Validate(questions []types.Question) error {
	if len(questions) == 0 {
		return &ParseError{Err: ErrNoQuestions}
	}
	seen := make(map[int]bool, len(questions))
	for i, q := range questions {
		if err := validate.Struct(q); err != nil {
			return &ParseError{Question: i + 1, Err: fmt.Errorf("%w: %v", ErrMalformedBlock, err)}
		}
		if seen[q.ID] {
			return &ParseError{Question: i + 1, Err: fmt.Errorf("%w: id %d", ErrDuplicateNumber, q.ID)}
		}
		seen[q.ID] = true
	}
	return nil
}

// Marshal encodes questions as the output JSON document: a two-space
// indented array with a trailing newline and HTML left unescaped. The
// encoding is deterministic, so unchanged input yields identical bytes.
// The result is checked against Schema before it is returned.
func Marshal(questions []types.Question) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(questions); err != nil {
		return nil, fmt.Errorf("encoding questions: %w", err)
	}
	if err := ValidateJSON(buf.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ValidateJSON checks an encoded question file against Schema.
func ValidateJSON(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling question schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decoding question JSON: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return &ParseError{Err: fmt.Errorf("%w: %v", ErrMalformedBlock, err)}
	}
	return nil
}
