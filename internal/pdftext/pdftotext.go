// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

const binPdftotext = "pdftotext"

// commandRunner abstracts running a binary and collecting stdout, so tests
// can stand in for poppler.
type commandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PdftotextExtractor shells out to poppler's pdftotext, which keeps the
// reading order of multi-column papers better than the native reader.
type PdftotextExtractor struct {
	run commandRunner
}

// NewPdftotextExtractor checks that pdftotext is on PATH.
func NewPdftotextExtractor() (*PdftotextExtractor, error) {
	if _, err := exec.LookPath(binPdftotext); err != nil {
		return nil, fmt.Errorf("%s not found on PATH (install poppler-utils): %w", binPdftotext, err)
	}
	return &PdftotextExtractor{run: execRunner{}}, nil
}

func (e *PdftotextExtractor) Name() string { return binPdftotext }

func (e *PdftotextExtractor) Text(ctx context.Context, pdfPath string) (string, error) {
	if err := CheckPDF(pdfPath); err != nil {
		return "", err
	}

	out, err := e.run.Output(ctx, binPdftotext, "-enc", "UTF-8", pdfPath, "-")
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", unreadable(fmt.Errorf("%s: %s", binPdftotext, exitErr.Stderr))
		}
		return "", fmt.Errorf("running %s: %w", binPdftotext, err)
	}
	return string(out), nil
}
