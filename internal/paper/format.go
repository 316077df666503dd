// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package paper

import (
	"regexp"
	"strings"
)

const noExplanation = "No explanation provided."

var numberedItemRe = regexp.MustCompile(`\n\s*(\d+\.)\s+`)

// formatExplanation renders explanation text as the small HTML subset the
// viewer displays: layout keywords open a bold paragraph and numbered
// points get a line break.
func (p *Parser) formatExplanation(text string) string {
	if text == "" {
		return noExplanation
	}

	for _, re := range p.g.keywords {
		text = re.ReplaceAllString(text, "<br><br><b>${1}</b>")
	}
	text = numberedItemRe.ReplaceAllString(text, "<br><b>${1}</b> ")
	text = strings.ReplaceAll(text, "<br><br><br>", "<br><br>")

	text = strings.TrimSpace(text)
	for strings.HasPrefix(text, "<br>") {
		text = strings.TrimSpace(strings.TrimPrefix(text, "<br>"))
	}
	return text
}
