// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package paper turns the extracted text of a question paper into
// normalized question records.
//
// A paper is a sequence of blocks introduced by "Q.N)" lines. Each block
// holds the prompt, four lettered options, an optional "Ans)" tag, an
// optional "Exp)" explanation and "Subject:)"/"Topic:)" tags. Answers that
// are not given inline are looked up in a separate answer key section.
package paper

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/mockexam/pkg/types"
)

var (
	pageNumberRe = regexp.MustCompile(`\[\d+\]`)
	pageMarkerRe = regexp.MustCompile(`(?i)---\s*PAGE\s*\d+\s*---`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)

	questionRe = regexp.MustCompile(`(?m)^[ \t]*Q\.[ \t]*(\d+)[ \t]*[).]`)

	explanationRe    = regexp.MustCompile(`(?is)\b(?:Exp|Explanation)[ \t]*[):][ \t]*(.*)`)
	expAnswerRe      = regexp.MustCompile(`(?i)(?:Option\s*)?\b([a-d])\s+is\s+the\s+correct\s+answer`)
	expAnswerStripRe = regexp.MustCompile(`(?i)(?:Option\s*)?\b[a-d]\s+is\s+the\s+correct\s+answer[.\s]*`)
	ansTagRe         = regexp.MustCompile(`(?i)\b(?:Ans|Answer)[ \t]*[):][ \t]*\(?([a-d])\b`)
	ansLineRe        = regexp.MustCompile(`(?im)^[ \t]*(?:Ans|Answer)[ \t]*[):].*$`)
	metaTailRe       = regexp.MustCompile(`(?s)(?:Subject:\)|Topic:\)|Source:\)).*`)
	subjectRe        = regexp.MustCompile(`Subject:\)[ \t]*(.*)`)
	topicRe          = regexp.MustCompile(`Topic:\)[ \t]*(.*)`)

	optionStartRe  = regexp.MustCompile(`\n[ \t]*a[).]`)
	optionsEndRe   = regexp.MustCompile(`(?i)\n[ \t]*(?:Ans|Answer|Exp|Explanation|Subject:|Topic:|Source:)[ \t]*[):]`)
	optionLineRe   = regexp.MustCompile(`(?m)^[ \t]*\(?([a-dA-D])[).]`)
	optionInlineRe = regexp.MustCompile(`(?:^|\s)\(?([a-d])[).]\s`)
	extraOptionRe  = regexp.MustCompile(`(?:^|\s)\(?[eE][).](?:\s|$)`)

	keyEntryRe = regexp.MustCompile(`(?i)\b(?:Q\.\s*)?(\d{1,3})\s*[.):\-]?\s*\(?([a-d])\b`)
)

// Parser parses question papers of one Layout. A Parser is safe for
// concurrent use.
type Parser struct {
	layout Layout
	g      *grammar
}

// NewParser compiles the layout into a Parser.
func NewParser(l Layout) (*Parser, error) {
	g, err := l.compile()
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", l.Name, err)
	}
	return &Parser{layout: l, g: g}, nil
}

// Layout returns the layout the parser was built from.
func (p *Parser) Layout() Layout { return p.layout }

// block is one "Q.N)" section of the paper with the marker removed.
type block struct {
	number int
	body   string
}

// rawQuestion is a parsed block before answers are resolved.
type rawQuestion struct {
	number      int
	text        string
	options     []string
	answer      int // -1 until resolved
	explanation string
	subject     string
	topic       string
}

// answerKey maps printed question numbers to option indexes.
type answerKey map[int]int

// Parse extracts the questions in text and stamps each with sourceSet.
// It fails with a *ParseError when the text does not follow the layout,
// when no question is found, or when any question has no answer.
func (p *Parser) Parse(text, sourceSet string) ([]types.Question, error) {
	text = p.clean(text)
	body, key := p.splitAnswerKey(text)

	blocks := splitBlocks(body)
	if len(blocks) == 0 {
		return nil, &ParseError{Err: ErrNoQuestions}
	}

	raws := make([]rawQuestion, 0, len(blocks))
	for i, b := range blocks {
		rq, err := p.parseBlock(b)
		if err != nil {
			return nil, &ParseError{Question: i + 1, Err: err}
		}
		raws = append(raws, rq)
	}

	if err := resolveAnswers(raws, key); err != nil {
		return nil, err
	}

	questions := make([]types.Question, len(raws))
	for i, rq := range raws {
		questions[i] = types.Question{
			ID:            i + 1,
			Text:          rq.text,
			Options:       rq.options,
			CorrectOption: rq.answer,
			Explanation:   rq.explanation,
			Subject:       rq.subject,
			Topic:         rq.topic,
			SourceSet:     sourceSet,
		}
	}

	if err := Validate(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// clean strips page markers, running headers and the institute footer.
func (p *Parser) clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = pageNumberRe.ReplaceAllString(text, "")
	text = pageMarkerRe.ReplaceAllString(text, "")

	for _, re := range p.g.headers {
		text = re.ReplaceAllString(text, "")
	}
	if p.g.footer != nil {
		text = p.g.footer.ReplaceAllString(text, "")
	}
	for _, junk := range p.g.footerRaw {
		if junk != "" {
			text = strings.ReplaceAll(text, junk, "")
		}
	}

	return blankRunRe.ReplaceAllString(text, "\n\n")
}

// splitAnswerKey detaches the answer key section, printed either after the
// last question or ahead of the first one.
func (p *Parser) splitAnswerKey(text string) (string, answerKey) {
	if p.g.keyHead == nil {
		return text, nil
	}
	locs := p.g.keyHead.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text, nil
	}
	head := locs[len(locs)-1]

	if first := questionRe.FindStringIndex(text); first != nil && head[0] < first[0] {
		return text[:head[0]] + text[first[0]:], parseAnswerKey(text[head[1]:first[0]])
	}
	return text[:head[0]], parseAnswerKey(text[head[1]:])
}

func parseAnswerKey(section string) answerKey {
	key := make(answerKey)
	for _, m := range keyEntryRe.FindAllStringSubmatch(section, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		key[n] = labelIndex(m[2])
	}
	return key
}

// splitBlocks cuts text at every "Q.N)" marker. Text before the first
// marker is preamble and is dropped.
func splitBlocks(text string) []block {
	locs := questionRe.FindAllStringSubmatchIndex(text, -1)
	blocks := make([]block, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		n, _ := strconv.Atoi(text[loc[2]:loc[3]])
		blocks = append(blocks, block{number: n, body: text[loc[1]:end]})
	}
	return blocks
}

func (p *Parser) parseBlock(b block) (rawQuestion, error) {
	body := strings.TrimRight(b.body, " \t\n")
	rq := rawQuestion{number: b.number, answer: -1}

	// Explanation first: the preferred answer source lives inside it.
	if m := explanationRe.FindStringSubmatch(body); m != nil {
		rq.explanation = strings.TrimSpace(m[1])
	}
	if m := expAnswerRe.FindStringSubmatch(rq.explanation); m != nil {
		rq.answer = labelIndex(m[1])
	} else if m := ansTagRe.FindStringSubmatch(body); m != nil {
		rq.answer = labelIndex(m[1])
	}

	exp := expAnswerStripRe.ReplaceAllString(rq.explanation, "")
	exp = ansLineRe.ReplaceAllString(exp, "")
	exp = strings.TrimSpace(metaTailRe.ReplaceAllString(exp, ""))
	rq.explanation = p.formatExplanation(exp)

	rq.subject = p.layout.DefaultSubject
	if m := subjectRe.FindStringSubmatch(body); m != nil && strings.TrimSpace(m[1]) != "" {
		rq.subject = strings.TrimSpace(m[1])
	}
	rq.topic = p.layout.DefaultTopic
	if m := topicRe.FindStringSubmatch(body); m != nil && strings.TrimSpace(m[1]) != "" {
		rq.topic = strings.TrimSpace(m[1])
	}

	start := optionsStart(body)
	if start < 0 {
		return rq, fmt.Errorf("%w: no options found", ErrMalformedBlock)
	}

	rq.text = normalizeLines(body[:start])
	if rq.text == "" {
		return rq, fmt.Errorf("%w: empty question text", ErrMalformedBlock)
	}

	region := body[start:]
	if loc := optionsEndRe.FindStringIndex(region); loc != nil {
		region = region[:loc[0]]
	}

	opts, ok := splitOptions(region)
	if !ok {
		return rq, fmt.Errorf("%w: expected options a) to d)", ErrMalformedBlock)
	}
	if extraOptionRe.MatchString(opts[types.OptionCount-1]) {
		return rq, fmt.Errorf("%w: more than four options", ErrMalformedBlock)
	}
	rq.options = opts
	return rq, nil
}

// optionsStart returns the offset of option a) in body, or -1. Options
// normally start on their own line; short papers print them inline after
// the prompt.
func optionsStart(body string) int {
	if loc := optionStartRe.FindStringIndex(body); loc != nil {
		return loc[0]
	}
	for _, loc := range optionInlineRe.FindAllStringSubmatchIndex(body, -1) {
		if body[loc[2]:loc[3]] == "a" {
			return loc[0]
		}
	}
	return -1
}

// splitOptions cuts region into options a) to d). Line-leading labels win;
// inline labels are the fallback. Labels must appear in order, and the
// text after d) up to the end of region belongs to d); parseBlock rejects
// an e) label found there.
func splitOptions(region string) ([]string, bool) {
	if opts, ok := cutOptions(region, optionLineRe.FindAllStringSubmatchIndex(region, -1)); ok {
		return opts, true
	}
	return cutOptions(region, optionInlineRe.FindAllStringSubmatchIndex(region, -1))
}

func cutOptions(region string, locs [][]int) ([]string, bool) {
	picked := make([][]int, 0, types.OptionCount)
	for _, loc := range locs {
		if len(picked) == types.OptionCount {
			break
		}
		label := strings.ToLower(region[loc[2]:loc[3]])
		if label == types.OptionLabels[len(picked)] {
			picked = append(picked, loc)
		}
	}
	if len(picked) != types.OptionCount {
		return nil, false
	}

	opts := make([]string, types.OptionCount)
	for i, loc := range picked {
		end := len(region)
		if i+1 < len(picked) {
			end = picked[i+1][0]
		}
		opts[i] = strings.Join(strings.Fields(region[loc[1]:end]), " ")
		if opts[i] == "" {
			return nil, false
		}
	}
	return opts, true
}

// resolveAnswers fills answers missing from blocks out of the answer key.
func resolveAnswers(raws []rawQuestion, key answerKey) error {
	seen := make(map[int]int, len(raws))
	for _, rq := range raws {
		seen[rq.number]++
	}

	var missing []int
	for i := range raws {
		if raws[i].answer >= 0 {
			continue
		}
		n := raws[i].number
		if seen[n] > 1 {
			return &ParseError{
				Question: i + 1,
				Err:      fmt.Errorf("%w: Q.%d appears %d times", ErrDuplicateNumber, n, seen[n]),
			}
		}
		idx, ok := key[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		raws[i].answer = idx
	}

	if len(missing) > 0 {
		sort.Ints(missing)
		return &ParseError{Err: fmt.Errorf("%w for question(s) %s", ErrMissingAnswer, joinInts(missing))}
	}
	return nil
}

// labelIndex maps an option label (a-d, any case) to its index, or -1.
func labelIndex(label string) int {
	label = strings.ToLower(label)
	for i, l := range types.OptionLabels {
		if l == label {
			return i
		}
	}
	return -1
}

// normalizeLines trims every line and drops blank ones.
func normalizeLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
