// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mockexam/internal/paper"
)

// buildPDF returns a single-page PDF whose page content stream is content.
// The page uses Helvetica as /F1.
func buildPDF(content string) []byte {
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 842] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

func pdfString(s string) string {
	return "(" + strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(s) + ")"
}

const (
	top     = 800
	leading = 14
)

// Each placement lays out one line per entry using a different set of text
// positioning operators.
var placements = map[string]func(lines []string) string{
	"Tm": func(lines []string) string {
		var b strings.Builder
		b.WriteString("BT /F1 10 Tf\n")
		for i, l := range lines {
			fmt.Fprintf(&b, "1 0 0 1 50 %d Tm %s Tj\n", top-i*leading, pdfString(l))
		}
		b.WriteString("ET")
		return b.String()
	},
	"Td": func(lines []string) string {
		var b strings.Builder
		fmt.Fprintf(&b, "BT /F1 10 Tf 50 %d Td\n", top)
		for i, l := range lines {
			if i > 0 {
				fmt.Fprintf(&b, "0 -%d Td ", leading)
			}
			fmt.Fprintf(&b, "%s Tj\n", pdfString(l))
		}
		b.WriteString("ET")
		return b.String()
	},
	"TD and T*": func(lines []string) string {
		var b strings.Builder
		fmt.Fprintf(&b, "BT /F1 10 Tf 50 %d Td\n", top+leading)
		for i, l := range lines {
			if i == 0 {
				fmt.Fprintf(&b, "0 -%d TD ", leading)
			} else {
				b.WriteString("T* ")
			}
			fmt.Fprintf(&b, "%s Tj\n", pdfString(l))
		}
		b.WriteString("ET")
		return b.String()
	},
	"quote": func(lines []string) string {
		var b strings.Builder
		fmt.Fprintf(&b, "BT /F1 10 Tf %d TL 50 %d Td\n", leading, top+leading)
		for _, l := range lines {
			fmt.Fprintf(&b, "%s '\n", pdfString(l))
		}
		b.WriteString("ET")
		return b.String()
	},
}

func samplePaperLines() []string {
	lines := []string{"SFG 2026 | Test 1"}
	for i := 1; i <= 3; i++ {
		lines = append(lines,
			fmt.Sprintf("Q.%d) What is item %d?", i, i),
			"a) one", "b) two", "c) three", "d) four",
			"Ans) b",
		)
	}
	return lines
}

func TestNative_LinePlacement(t *testing.T) {
	lines := samplePaperLines()
	parser, err := paper.NewParser(paper.DefaultLayout())
	require.NoError(t, err)

	for name, place := range placements {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "paper.pdf", buildPDF(place(lines)))

			text, err := NativeExtractor{}.Text(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, lines, strings.Split(strings.TrimRight(text, "\n"), "\n"))

			qs, err := parser.Parse(text, "paper")
			require.NoError(t, err)
			require.Len(t, qs, 3)
			assert.Equal(t, "What is item 2?", qs[1].Text)
			assert.Equal(t, []string{"one", "two", "three", "four"}, qs[1].Options)
			assert.Equal(t, 1, qs[1].CorrectOption)
		})
	}
}

func TestNative_RowAssembly(t *testing.T) {
	content := "BT /F1 10 Tf 50 800 Td (Q.1\\) What) Tj 60 0 Td (is it?) Tj ET\n" +
		"BT /F1 10 Tf 50 780 Td [(a\\) on) -20 (e)] TJ ET"
	path := writeFile(t, "rows.pdf", buildPDF(content))

	text, err := NativeExtractor{}.Text(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Q.1) What is it?\na) one\n\n", text)
}
