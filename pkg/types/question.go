// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// OptionCount is the number of answer options every question carries.
const OptionCount = 4

// OptionLabels maps an option index to its printed label.
var OptionLabels = [OptionCount]string{"a", "b", "c", "d"}

// ConversionStatus indicates the outcome of converting one uploaded PDF.
type ConversionStatus string

const (
	ConversionNone   ConversionStatus = "none"
	ConversionDone   ConversionStatus = "converted"
	ConversionFailed ConversionStatus = "failed"
)

// Question is one multiple-choice record as consumed by the viewer.
type Question struct {
	// ID is the 1-based position of the question in the source paper.
	ID int `json:"id" yaml:"id" validate:"min=1"`

	// Text is the question prompt.
	Text string `json:"text" yaml:"text" validate:"required"`

	// Options holds the four answer options in label order (a-d).
	Options []string `json:"options" yaml:"options" validate:"len=4,dive,required"`

	// CorrectOption is the zero-based index of the right answer in Options.
	CorrectOption int `json:"correctOption" yaml:"correct_option" validate:"min=0,max=3"`

	// Explanation is HTML-formatted explanation text.
	Explanation string `json:"explanation" yaml:"explanation"`

	// Subject and Topic come from the paper's metadata tags.
	Subject string `json:"subject" yaml:"subject"`
	Topic   string `json:"topic" yaml:"topic"`

	// SourceSet identifies the paper the question was taken from.
	SourceSet string `json:"sourceSet" yaml:"source_set" validate:"required"`
}

// CorrectLabel returns the printed label ("a".."d") of the correct option.
func (q Question) CorrectLabel() string {
	if q.CorrectOption < 0 || q.CorrectOption >= OptionCount {
		return ""
	}
	return OptionLabels[q.CorrectOption]
}

// Document is the result of converting one source PDF.
type Document struct {
	// Source is the base filename of the PDF (e.g. "sfg-2026-test-3.pdf").
	Source string `json:"source" yaml:"source"`

	// SourceSet is derived from Source and stamped on every question.
	SourceSet string `json:"sourceSet" yaml:"source_set"`

	// Checksum is the hex SHA-256 of the source bytes.
	Checksum string `json:"checksum" yaml:"checksum"`

	// ConvertedAt records when the conversion ran.
	ConvertedAt time.Time `json:"convertedAt" yaml:"converted_at"`

	Questions []Question `json:"questions" yaml:"questions"`
}

// ManifestEntry lists one converted test for the viewer.
type ManifestEntry struct {
	Name          string    `json:"name"`
	Filename      string    `json:"filename"`
	SourceSet     string    `json:"sourceSet,omitempty"`
	QuestionCount int       `json:"questionCount,omitempty"`
	ConvertedAt   time.Time `json:"convertedAt,omitzero"`
	Checksum      string    `json:"checksum,omitempty"`
}
