// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fill

import (
	"regexp"
	"strings"

	"github.com/nateginn/chiron/pkg/types"
)

// sectionHeaders maps each note section to the headers a model response
// may use for it. The uppercased section name itself is always tried first.
var sectionHeaders = map[string][]string{
	types.SectionSubjective: {"S:", "HISTORY", "HPI"},
	types.SectionObjective:  {"O:", "PHYSICAL EXAM", "EXAMINATION"},
	types.SectionAssessment: {"A:", "IMPRESSION", "DIAGNOSIS"},
	types.SectionPlan:       {"P:", "TREATMENT", "RECOMMENDATIONS"},
}

// sectionEndRe marks the start of the next section: a blank line or a
// line beginning with an all-caps header.
var sectionEndRe = regexp.MustCompile(`\n\n|\n[A-Z][A-Z ]*:`)

// ParseResponse extracts the four note sections from free-form model
// output. Sections it cannot locate are left empty.
func ParseResponse(text string) types.SOAPNote {
	var note types.SOAPNote
	for _, name := range types.SOAPSections {
		headers := append([]string{strings.ToUpper(name)}, sectionHeaders[name]...)
		for _, h := range headers {
			if body := extractSection(text, h); body != "" {
				note.SetSection(name, body)
				break
			}
		}
	}
	return note
}

// extractSection finds the header in text and returns the content up to
// the next section boundary. Headers ending in ':' must match the colon;
// bare headers allow an optional one.
func extractSection(text, header string) string {
	pattern := `(?i)\b` + regexp.QuoteMeta(header)
	if !strings.HasSuffix(header, ":") {
		pattern += `:?`
	}
	pattern += `[ \t]*`

	re, err := regexp.Compile(pattern)
	if err != nil {
		return ""
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return ""
	}

	rest := text[loc[1]:]
	if end := sectionEndRe.FindStringIndex(rest); end != nil {
		rest = rest[:end[0]]
	}
	return strings.TrimSpace(rest)
}
