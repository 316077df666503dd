// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// NativeExtractor reads PDFs in-process with github.com/ledongthuc/pdf.
// Text is rebuilt row by row from glyph positions so that question, option
// and tag lines keep their own lines.
type NativeExtractor struct{}

func (NativeExtractor) Name() string { return "native" }

func (NativeExtractor) Text(ctx context.Context, pdfPath string) (text string, err error) {
	if err := CheckPDF(pdfPath); err != nil {
		return "", err
	}

	// The reader panics on some malformed xref tables and content streams.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", unreadable(fmt.Errorf("%v", rec))
		}
	}()

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", unreadable(err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		writeRows(&b, groupRows(p.Content().Text))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// rowTolerance is how far apart, in points, two glyph baselines may be and
// still belong to the same row.
const rowTolerance = 2.0

// groupRows buckets glyphs into rows by baseline, top to bottom. Glyph
// positions come from the full text matrix, so lines placed with Td, TD,
// T* or ' keep their own rows. Control characters (TJ emits a trailing
// newline glyph) are dropped.
func groupRows(texts []pdf.Text) [][]pdf.Text {
	glyphs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		t.S = strings.Map(func(r rune) rune {
			if r == '\t' {
				return ' '
			}
			if unicode.IsControl(r) || r == utf8.RuneError {
				return -1
			}
			return r
		}, t.S)
		if t.S != "" {
			glyphs = append(glyphs, t)
		}
	}
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].Y > glyphs[j].Y })

	var rows [][]pdf.Text
	for _, g := range glyphs {
		if n := len(rows); n > 0 && rows[n-1][0].Y-g.Y <= rowTolerance {
			rows[n-1] = append(rows[n-1], g)
			continue
		}
		rows = append(rows, []pdf.Text{g})
	}
	return rows
}

// writeRows writes each row's glyphs left to right. A space is inserted
// where the gap between two runs is wider than a fraction of the font size,
// since many PDFs position words without space glyphs.
func writeRows(b *strings.Builder, rows [][]pdf.Text) {
	for _, words := range rows {
		sort.SliceStable(words, func(i, j int) bool { return words[i].X < words[j].X })

		var line strings.Builder
		for i, w := range words {
			if i > 0 {
				prev := words[i-1]
				gap := w.X - (prev.X + prev.W)
				if gap > 0.15*w.FontSize && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(w.S, " ") {
					line.WriteByte(' ')
				}
			}
			line.WriteString(w.S)
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteString("\n")
	}
}
