// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package paper

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Layout describes the printed furniture of a question paper that must be
// stripped before parsing, plus the phrases that get emphasised in
// explanations. The zero value is not useful; start from DefaultLayout.
type Layout struct {
	// Name labels the layout in logs.
	Name string `yaml:"name"`

	// HeaderPrefixes drops every line that starts with one of these strings.
	HeaderPrefixes []string `yaml:"header_prefixes"`

	// FooterPattern is a regular expression matched case-insensitively
	// across line breaks; every match is removed.
	FooterPattern string `yaml:"footer_pattern"`

	// FooterStrings are removed verbatim wherever they occur. They catch
	// footer fragments the pattern misses after OCR damage.
	FooterStrings []string `yaml:"footer_strings"`

	// AnswerKeyHeadings are the headings that introduce a separate answer
	// key section (matched case-insensitively on a line of their own).
	AnswerKeyHeadings []string `yaml:"answer_key_headings"`

	// ExplanationKeywords are regular expression fragments rendered bold on
	// a new paragraph inside explanations.
	ExplanationKeywords []string `yaml:"explanation_keywords"`

	// DefaultSubject and DefaultTopic fill in missing metadata tags.
	DefaultSubject string `yaml:"default_subject"`
	DefaultTopic   string `yaml:"default_topic"`
}

// DefaultLayout returns the Forum IAS SFG question paper layout.
func DefaultLayout() Layout {
	return Layout{
		Name:           "forumias-sfg",
		HeaderPrefixes: []string{"SFG 2026"},
		FooterPattern:  `Forum\s+Learning\s+Centre\s*:.*?helpdesk@forumias\.academy`,
		FooterStrings: []string{
			"9311740400, 9311740900",
			"https://academy.forumias.com",
			"admissions@forumias.academy",
			"helpdesk@forumias.academy",
			"Plot No. 36, 4th Floor",
			"Hyderabad - 1st & 2nd Floor, SM Plaza",
		},
		AnswerKeyHeadings: []string{"Answer Key", "Answers"},
		ExplanationKeywords: []string{
			"Statement I is correct", "Statement II is correct",
			"Statement 1 is correct", "Statement 2 is correct",
			"Statement I is incorrect", "Statement II is incorrect",
			"Statement 1 is incorrect", "Statement 2 is incorrect",
			"Hence option .*? is correct", "Thus,", "Therefore,",
		},
		DefaultSubject: "General",
		DefaultTopic:   "GS",
	}
}

// LoadLayout reads a YAML layout file. Keys missing from the file keep
// their DefaultLayout values; list keys present in the file replace the
// defaults entirely.
func LoadLayout(path string) (Layout, error) {
	l := DefaultLayout()
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("reading layout %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("parsing layout %s: %w", path, err)
	}
	return l, nil
}

// grammar holds the compiled form of a Layout.
type grammar struct {
	headers   []*regexp.Regexp
	footer    *regexp.Regexp
	keyHead   *regexp.Regexp
	keywords  []*regexp.Regexp
	footerRaw []string
}

func (l Layout) compile() (*grammar, error) {
	g := &grammar{footerRaw: l.FooterStrings}

	for _, p := range l.HeaderPrefixes {
		g.headers = append(g.headers, regexp.MustCompile(`(?m)^[ \t]*`+regexp.QuoteMeta(p)+`.*$`))
	}

	if l.FooterPattern != "" {
		re, err := regexp.Compile(`(?is)` + l.FooterPattern)
		if err != nil {
			return nil, fmt.Errorf("compiling footer pattern: %w", err)
		}
		g.footer = re
	}

	if len(l.AnswerKeyHeadings) > 0 {
		alts := make([]string, len(l.AnswerKeyHeadings))
		for i, h := range l.AnswerKeyHeadings {
			alts[i] = regexp.QuoteMeta(h)
		}
		g.keyHead = regexp.MustCompile(`(?im)^[ \t]*(?:` + strings.Join(alts, "|") + `)[ \t]*:?[ \t]*$`)
	}

	for _, kw := range l.ExplanationKeywords {
		re, err := regexp.Compile(`(?i)(` + kw + `)`)
		if err != nil {
			return nil, fmt.Errorf("compiling explanation keyword %q: %w", kw, err)
		}
		g.keywords = append(g.keywords, re)
	}

	return g, nil
}
