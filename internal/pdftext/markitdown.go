// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/pdiddy/mockexam/internal/container"
)

const imageMarkitdown = "markitdown:latest"

// MarkitdownExtractor pipes PDFs through the markitdown container image.
// It depends on a container.Runtime (docker or podman) injected at
// construction time.
type MarkitdownExtractor struct {
	runtime container.Runtime
}

// NewMarkitdownExtractor detects a container runtime and verifies that the
// markitdown image exists locally.
func NewMarkitdownExtractor(ctx context.Context) (*MarkitdownExtractor, error) {
	rt, err := container.DetectRuntime(ctx)
	if err != nil {
		return nil, err
	}
	return newMarkitdownExtractor(ctx, rt)
}

func newMarkitdownExtractor(ctx context.Context, rt container.Runtime) (*MarkitdownExtractor, error) {
	if err := rt.ImageExists(ctx, imageMarkitdown); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownExtractor{runtime: rt}, nil
}

func (m *MarkitdownExtractor) Name() string { return "markitdown" }

func (m *MarkitdownExtractor) Text(ctx context.Context, pdfPath string) (string, error) {
	if err := CheckPDF(pdfPath); err != nil {
		return "", err
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := m.runtime.Run(ctx, imageMarkitdown, f, &out); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", unreadable(err)
	}
	return out.String(), nil
}
