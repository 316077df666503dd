// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package paper

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by ParseError. Match them with errors.Is.
var (
	ErrNotPDF          = errors.New("input is not a PDF document")
	ErrNoQuestions     = errors.New("no questions found")
	ErrMissingAnswer   = errors.New("missing answer key")
	ErrMalformedBlock  = errors.New("malformed question block")
	ErrDuplicateNumber = errors.New("duplicate question number")
)

// ParseError reports that a source paper does not follow the expected
// layout. It is never retried.
type ParseError struct {
	// Source is the PDF filename, when known.
	Source string
	// Question is the 1-based block position the error refers to, or 0.
	Question int
	Err      error
}

func (e *ParseError) Error() string {
	msg := "parse error"
	if e.Source != "" {
		msg += " in " + e.Source
	}
	if e.Question > 0 {
		msg += fmt.Sprintf(" (question %d)", e.Question)
	}
	return msg + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// WithSource returns err with the source filename attached when err is a
// ParseError that does not carry one yet.
func WithSource(err error, source string) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Source == "" {
		cp := *pe
		cp.Source = source
		return &cp
	}
	return err
}
