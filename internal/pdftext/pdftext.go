// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftext extracts the plain text of a PDF with pluggable
// backends: a pure-Go reader, poppler's pdftotext, or the markitdown
// container image.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/mockexam/internal/paper"
	"github.com/pdiddy/mockexam/pkg/types"
)

// sniffLen is how far into a file the %PDF- header may appear.
const sniffLen = 1024

var pdfMagic = []byte("%PDF-")

// Extractor returns the text content of a PDF file. Different backends
// (native, pdftotext, markitdown) implement this interface.
type Extractor interface {
	// Name identifies the backend in logs.
	Name() string

	// Text reads the PDF at pdfPath and returns its text, pages separated
	// by newlines. Input that is not a readable PDF yields a
	// *paper.ParseError; I/O failures are returned as-is.
	Text(ctx context.Context, pdfPath string) (string, error)
}

// CheckPDF verifies that the file at path is non-empty and carries a PDF
// header. Empty and non-PDF files fail with a *paper.ParseError wrapping
// paper.ErrNotPDF.
func CheckPDF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if n == 0 {
		return &paper.ParseError{Err: fmt.Errorf("%w: empty file", paper.ErrNotPDF)}
	}
	if !HasPDFHeader(head[:n]) {
		return &paper.ParseError{Err: paper.ErrNotPDF}
	}
	return nil
}

// HasPDFHeader reports whether the %PDF- marker appears within the first
// 1024 bytes of head.
func HasPDFHeader(head []byte) bool {
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return bytes.Contains(head, pdfMagic)
}

// New builds the extractor for backend. The markitdown backend needs a
// working container runtime, and pdftotext needs the binary on PATH.
func New(ctx context.Context, backend types.TextBackend) (Extractor, error) {
	switch backend {
	case types.BackendNative, "":
		return NativeExtractor{}, nil
	case types.BackendPdftotext:
		return NewPdftotextExtractor()
	case types.BackendMarkitdown:
		return NewMarkitdownExtractor(ctx)
	default:
		return nil, fmt.Errorf("unsupported text backend %q: use native, pdftotext, or markitdown", backend)
	}
}

// unreadable wraps a backend failure on a file that passed CheckPDF.
func unreadable(err error) error {
	return &paper.ParseError{Err: fmt.Errorf("%w: %v", paper.ErrNotPDF, err)}
}
