package paper

import (
	"path/filepath"
	"strings"
)

// SourceSet derives the set identifier from a PDF filename:
// "uploads/SFG-2026-Test_3.pdf" becomes "SFG-2026-Test_3".
func SourceSet(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Title derives a human-readable test name from a PDF filename:
// "SFG-2026-Test_3.pdf" becomes "SFG 2026 Test 3".
func Title(filename string) string {
	return strings.NewReplacer("-", " ", "_", " ").Replace(SourceSet(filename))
}
