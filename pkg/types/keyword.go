// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// KeywordLabel classifies a medical entity mention.
type KeywordLabel string

const (
	LabelProblem   KeywordLabel = "PROBLEM"
	LabelTreatment KeywordLabel = "TREATMENT"
	LabelTest      KeywordLabel = "TEST"
	LabelAnatomy   KeywordLabel = "ANATOMY"
	LabelOther     KeywordLabel = "OTHER"
)

// Labels lists every keyword label in bucket order.
var Labels = []KeywordLabel{LabelProblem, LabelTreatment, LabelTest, LabelAnatomy, LabelOther}

// Valid reports whether l is one of the five defined labels.
func (l KeywordLabel) Valid() bool {
	switch l {
	case LabelProblem, LabelTreatment, LabelTest, LabelAnatomy, LabelOther:
		return true
	}
	return false
}

// Keyword is a labeled medical entity mention extracted from a transcript.
// Text is a verbatim substring of the source (case preserved). Score is a
// confidence proxy in [0,1]; dictionary matches always carry 1.0.
type Keyword struct {
	Text  string       `json:"text" yaml:"text"`
	Label KeywordLabel `json:"label" yaml:"label"`
	Score float64      `json:"score" yaml:"score"`
}

// KeywordTexts returns the bare text of each keyword, in input order.
func KeywordTexts(keywords []Keyword) []string {
	texts := make([]string, len(keywords))
	for i, k := range keywords {
		texts[i] = k.Text
	}
	return texts
}

// Vocabulary maps a keyword label to its seed term list. It backs the
// rule-based extraction path.
type Vocabulary map[KeywordLabel][]string

// TermCount returns the total number of terms across all categories.
func (v Vocabulary) TermCount() int {
	n := 0
	for _, terms := range v {
		n += len(terms)
	}
	return n
}
