// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

var (
	errMissingID    = errors.New("template id is required")
	errSectionCount = errors.New("template must define exactly the four SOAP sections")
)

// Canonical SOAP section names, in note order.
const (
	SectionSubjective = "subjective"
	SectionObjective  = "objective"
	SectionAssessment = "assessment"
	SectionPlan       = "plan"
)

// SOAPSections lists the four canonical section names in note order.
var SOAPSections = []string{SectionSubjective, SectionObjective, SectionAssessment, SectionPlan}

// Template is a SOAP note skeleton. Keywords seed the embedding used for
// retrieval; Sections maps each canonical section name to text that may
// contain bracketed placeholder tokens such as [SYMPTOMS].
type Template struct {
	ID       string            `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Keywords []string          `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Sections map[string]string `json:"template" yaml:"template"`
}

// Validate checks that the template has an ID and exactly the four
// canonical SOAP sections.
func (t Template) Validate() error {
	if t.ID == "" {
		return errMissingID
	}
	if len(t.Sections) != len(SOAPSections) {
		return errSectionCount
	}
	for _, name := range SOAPSections {
		if _, ok := t.Sections[name]; !ok {
			return errSectionCount
		}
	}
	return nil
}

// SOAPNote is the final output artifact of a pipeline run.
type SOAPNote struct {
	Subjective string `json:"subjective" yaml:"subjective"`
	Objective  string `json:"objective" yaml:"objective"`
	Assessment string `json:"assessment" yaml:"assessment"`
	Plan       string `json:"plan" yaml:"plan"`
}

// Section returns the text of the named canonical section.
func (n SOAPNote) Section(name string) string {
	switch name {
	case SectionSubjective:
		return n.Subjective
	case SectionObjective:
		return n.Objective
	case SectionAssessment:
		return n.Assessment
	case SectionPlan:
		return n.Plan
	}
	return ""
}

// SetSection assigns text to the named canonical section. Unknown names
// are ignored.
func (n *SOAPNote) SetSection(name, text string) {
	switch name {
	case SectionSubjective:
		n.Subjective = text
	case SectionObjective:
		n.Objective = text
	case SectionAssessment:
		n.Assessment = text
	case SectionPlan:
		n.Plan = text
	}
}
