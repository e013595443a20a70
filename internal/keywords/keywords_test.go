// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package keywords

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nateginn/chiron/pkg/types"
)

// stubBackend returns canned entities or a fixed error.
type stubBackend struct {
	entities []Entity
	err      error
}

func (s *stubBackend) Recognize(ctx context.Context, text string) ([]Entity, error) {
	return s.entities, s.err
}

func newTestExtractor(t *testing.T, backend NERBackend, w io.Writer) *Extractor {
	t.Helper()
	if w == nil {
		w = io.Discard
	}
	cfg := types.KeywordsConfig{
		VocabularyPath: filepath.Join(t.TempDir(), "vocabulary.yaml"),
	}
	e, err := NewExtractor(cfg, backend, w)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	return e
}

func hasKeyword(kws []types.Keyword, text string, label types.KeywordLabel) bool {
	for _, k := range kws {
		if k.Text == text && k.Label == label {
			return true
		}
	}
	return false
}

func TestExtractEmptyText(t *testing.T) {
	e := newTestExtractor(t, nil, nil)
	if got := e.Extract(context.Background(), ""); len(got) != 0 {
		t.Errorf("Extract(\"\") = %v, want empty", got)
	}
}

func TestExtractWithRules(t *testing.T) {
	e := newTestExtractor(t, nil, nil)

	transcript := "Patient complains of chest pain and shortness of breath. BP 140/90, HR 88."
	kws := e.Extract(context.Background(), transcript)

	if !hasKeyword(kws, "chest pain", types.LabelProblem) {
		t.Errorf("missing PROBLEM keyword %q in %v", "chest pain", kws)
	}
	if !hasKeyword(kws, "shortness of breath", types.LabelProblem) {
		t.Errorf("missing PROBLEM keyword %q in %v", "shortness of breath", kws)
	}
	for _, k := range kws {
		if k.Score != 1.0 {
			t.Errorf("dictionary match %q scored %v, want 1.0", k.Text, k.Score)
		}
		if !k.Label.Valid() {
			t.Errorf("keyword %q has invalid label %q", k.Text, k.Label)
		}
	}
}

func TestExtractWithRulesPreservesCase(t *testing.T) {
	e := newTestExtractor(t, nil, nil)

	kws := e.Extract(context.Background(), "Severe Headache reported this morning.")
	if !hasKeyword(kws, "Headache", types.LabelProblem) {
		t.Errorf("expected case-preserved match %q, got %v", "Headache", kws)
	}
}

func TestExtractWithRulesWholeWordOnly(t *testing.T) {
	e := newTestExtractor(t, nil, nil)

	// "resting" must not match the vocabulary term "rest".
	kws := e.Extract(context.Background(), "Patient has been resting comfortably.")
	if hasKeyword(kws, "rest", types.LabelTreatment) {
		t.Errorf("partial-word match leaked through: %v", kws)
	}
}

func TestExtractWithModel(t *testing.T) {
	backend := &stubBackend{entities: []Entity{
		{Word: "chest pain", Group: "problem", Score: 0.95},
		{Word: "aspirin", Group: "TREATMENT", Score: 0.65},
		{Word: "EKG", Group: "test", Score: 1.2},
		{Word: "something", Group: "WIDGET", Score: 0.9},
	}}
	e := newTestExtractor(t, backend, nil)

	kws := e.Extract(context.Background(), "transcript text")

	if len(kws) != 3 {
		t.Fatalf("got %d keywords, want 3 (threshold filters aspirin): %v", len(kws), kws)
	}
	if !hasKeyword(kws, "chest pain", types.LabelProblem) {
		t.Errorf("lowercase group not normalized: %v", kws)
	}
	if !hasKeyword(kws, "something", types.LabelOther) {
		t.Errorf("unknown group not mapped to OTHER: %v", kws)
	}
	for _, k := range kws {
		if k.Score < 0 || k.Score > 1 {
			t.Errorf("score %v for %q outside [0,1]", k.Score, k.Text)
		}
	}
}

func TestExtractFallsBackOnModelError(t *testing.T) {
	var buf strings.Builder
	backend := &stubBackend{err: errors.New("model unavailable")}
	e := newTestExtractor(t, backend, &buf)

	kws := e.Extract(context.Background(), "Patient reports a migraine.")

	if !hasKeyword(kws, "migraine", types.LabelProblem) {
		t.Errorf("rule fallback did not run: %v", kws)
	}
	if !strings.Contains(buf.String(), "falling back to rules") {
		t.Errorf("missing fallback warning, got %q", buf.String())
	}
}

func TestLoadVocabularyCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab", "vocabulary.yaml")

	vocab, err := LoadVocabulary(path, io.Discard)
	if err != nil {
		t.Fatalf("LoadVocabulary: %v", err)
	}
	if vocab.TermCount() == 0 {
		t.Fatal("default vocabulary is empty")
	}
	if len(vocab[types.LabelProblem]) == 0 {
		t.Error("default vocabulary has no PROBLEM terms")
	}

	// The defaults are persisted for future runs.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("vocabulary file not written: %v", err)
	}

	// A second load round-trips the written file.
	again, err := LoadVocabulary(path, io.Discard)
	if err != nil {
		t.Fatalf("reloading vocabulary: %v", err)
	}
	if again.TermCount() != vocab.TermCount() {
		t.Errorf("reloaded term count %d, want %d", again.TermCount(), vocab.TermCount())
	}
}

func TestLoadVocabularyUnparseable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	if err := os.WriteFile(path, []byte("{invalid: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	vocab, err := LoadVocabulary(path, io.Discard)
	if err != nil {
		t.Fatalf("LoadVocabulary: %v", err)
	}
	if vocab.TermCount() == 0 {
		t.Error("expected default vocabulary for unparseable file")
	}
}
