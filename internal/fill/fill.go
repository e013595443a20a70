// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fill substitutes placeholder tokens in a SOAP template with
// content derived from the transcript and extracted keywords.
package fill

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nateginn/chiron/pkg/types"
)

// Filler fills template sections. The strategy is fixed at construction:
// a non-nil chat backend selects generative filling with the rule table
// as fallback; a nil backend selects the rule table directly. Fill never
// fails outward.
type Filler struct {
	backend ChatBackend
	w       io.Writer
}

// NewFiller returns a Filler. backend may be nil.
func NewFiller(backend ChatBackend, w io.Writer) *Filler {
	return &Filler{backend: backend, w: w}
}

// Fill produces the four SOAP sections from the template. A template
// with no sections yields the literal empty-note fallback.
func (f *Filler) Fill(ctx context.Context, tpl types.Template, transcription string, keywords []types.Keyword) types.SOAPNote {
	if len(tpl.Sections) == 0 {
		fmt.Fprintf(f.w, "warning: template %s has no sections, using empty note\n", tpl.ID)
		return EmptyNote()
	}

	if f.backend != nil {
		note, err := f.fillWithModel(ctx, tpl, transcription, keywords)
		if err == nil {
			return note
		}
		fmt.Fprintf(f.w, "warning: generative fill failed, falling back to rules: %v\n", err)
	}

	return FillWithRules(tpl, transcription, keywords)
}

// FillWithRules substitutes every recognized placeholder in each section
// using the fixed rule table. It is deterministic: identical inputs
// yield byte-identical output. Sections without placeholders pass
// through verbatim.
func FillWithRules(tpl types.Template, transcription string, keywords []types.Keyword) types.SOAPNote {
	in := RuleInput{
		Transcript: transcription,
		Buckets:    bucketKeywords(keywords),
	}

	var note types.SOAPNote
	for _, section := range types.SOAPSections {
		note.SetSection(section, substitute(tpl.Sections[section], in))
	}
	return note
}

func substitute(text string, in RuleInput) string {
	for _, fr := range fillRules {
		if !strings.Contains(text, fr.Token) {
			continue
		}
		replacement, ok := fr.Rule.Apply(in)
		if !ok {
			continue
		}
		text = strings.ReplaceAll(text, fr.Token, replacement)
	}
	return text
}

// bucketKeywords groups keyword text by label. Unknown labels land in
// the OTHER bucket.
func bucketKeywords(keywords []types.Keyword) map[types.KeywordLabel][]string {
	buckets := make(map[types.KeywordLabel][]string, len(types.Labels))
	for _, k := range keywords {
		label := k.Label
		if !label.Valid() {
			label = types.LabelOther
		}
		buckets[label] = append(buckets[label], k.Text)
	}
	return buckets
}

// EmptyNote is the literal fallback returned when filling cannot proceed.
func EmptyNote() types.SOAPNote {
	return types.SOAPNote{
		Subjective: "Patient presents with unspecified symptoms.",
		Objective:  "Physical examination was performed.",
		Assessment: "Assessment pending.",
		Plan:       "Follow up as needed.",
	}
}
