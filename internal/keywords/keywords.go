// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keywords extracts labeled medical entity mentions from transcript text.
package keywords

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/nateginn/chiron/pkg/types"
)

const defaultMinScore = 0.7

// Entity is a labeled span returned by an NER backend.
type Entity struct {
	Word  string  `json:"word"`
	Group string  `json:"entity_group"`
	Score float64 `json:"score"`
}

// NERBackend abstracts the named-entity-recognition model so tests can
// supply a mock. A nil backend selects rule-based extraction only.
type NERBackend interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

// Extractor maps transcript text to Keyword records. It owns an optional
// NER backend and the medical vocabulary backing the rule-based fallback.
// Extract never fails outward: model errors degrade to the rule path.
type Extractor struct {
	backend  NERBackend
	vocab    types.Vocabulary
	minScore float64
	w        io.Writer

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// NewExtractor loads the vocabulary (creating the default file when
// absent) and returns an Extractor. backend may be nil.
func NewExtractor(cfg types.KeywordsConfig, backend NERBackend, w io.Writer) (*Extractor, error) {
	vocab, err := LoadVocabulary(cfg.VocabularyPath, w)
	if err != nil {
		return nil, fmt.Errorf("loading vocabulary: %w", err)
	}

	minScore := cfg.MinScore
	if minScore <= 0 {
		minScore = defaultMinScore
	}

	return &Extractor{
		backend:  backend,
		vocab:    vocab,
		minScore: minScore,
		w:        w,
		patterns: make(map[string]*regexp.Regexp),
	}, nil
}

// Extract returns the labeled keywords found in text. The empty string
// yields an empty result. Every returned score is in [0,1] and every
// label is one of the five defined categories.
func (e *Extractor) Extract(ctx context.Context, text string) []types.Keyword {
	if text == "" {
		return nil
	}

	if e.backend != nil {
		kws, err := e.extractWithModel(ctx, text)
		if err == nil {
			return kws
		}
		fmt.Fprintf(e.w, "warning: NER extraction failed, falling back to rules: %v\n", err)
	}

	return e.extractWithRules(text)
}

// extractWithModel runs the NER backend and keeps entities above the
// confidence threshold.
func (e *Extractor) extractWithModel(ctx context.Context, text string) ([]types.Keyword, error) {
	entities, err := e.backend.Recognize(ctx, text)
	if err != nil {
		return nil, err
	}

	var kws []types.Keyword
	for _, ent := range entities {
		if ent.Score <= e.minScore {
			continue
		}
		kws = append(kws, types.Keyword{
			Text:  ent.Word,
			Label: normalizeLabel(ent.Group),
			Score: clampScore(ent.Score),
		})
	}
	return kws, nil
}

// extractWithRules matches vocabulary terms against the text. Matching is
// case-insensitive on whole words; the returned text preserves the
// source's case. Dictionary matches score 1.0.
func (e *Extractor) extractWithRules(text string) []types.Keyword {
	var kws []types.Keyword
	for _, label := range types.Labels {
		for _, term := range e.vocab[label] {
			re := e.termPattern(term)
			for _, loc := range re.FindAllStringIndex(text, -1) {
				kws = append(kws, types.Keyword{
					Text:  text[loc[0]:loc[1]],
					Label: label,
					Score: 1.0,
				})
			}
		}
	}
	return kws
}

// termPattern returns the cached whole-word pattern for a vocabulary term.
func (e *Extractor) termPattern(term string) *regexp.Regexp {
	e.mu.Lock()
	defer e.mu.Unlock()
	if re, ok := e.patterns[term]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
	e.patterns[term] = re
	return re
}

// normalizeLabel maps a model entity group onto the keyword label set.
// Unknown groups become OTHER.
func normalizeLabel(group string) types.KeywordLabel {
	label := types.KeywordLabel(strings.ToUpper(group))
	if label.Valid() {
		return label
	}
	return types.LabelOther
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
