// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

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

// stubEmbedder maps text onto a fixed low-dimension space by topic word.
type stubEmbedder struct {
	fail bool
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.fail {
		return nil, errors.New("embedding service down")
	}
	switch {
	case strings.Contains(text, "knee"):
		return []float32{1, 0, 0, 0}, nil
	case strings.Contains(text, "headache"):
		return []float32{0, 1, 0, 0}, nil
	case strings.Contains(text, "cough"):
		return []float32{0, 0, 1, 0}, nil
	default:
		return []float32{0, 0, 0, 1}, nil
	}
}

func newTestMatcher(t *testing.T, emb Embedder) (*Matcher, types.MatcherConfig) {
	t.Helper()
	dir := t.TempDir()
	cfg := types.MatcherConfig{
		EmbeddingDim: 4,
		TemplatesDir: filepath.Join(dir, "templates"),
		IndexPath:    filepath.Join(dir, "vector_db", "templates.index"),
	}
	m, err := NewMatcher(context.Background(), cfg, emb, io.Discard)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	return m, cfg
}

func templateIDs(tpls []types.Template) []string {
	ids := make([]string, len(tpls))
	for i, t := range tpls {
		ids[i] = t.ID
	}
	return ids
}

func TestNewMatcherSeedsTemplates(t *testing.T) {
	m, cfg := newTestMatcher(t, &stubEmbedder{})

	// Sorted by filename: headache, knee_exam, respiratory.
	want := []string{"headache", "knee_exam", "respiratory"}
	got := templateIDs(m.Templates())
	if len(got) != len(want) {
		t.Fatalf("got templates %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("template[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// Seeds land on disk, and the index is persisted alongside.
	for _, id := range want {
		if _, err := os.Stat(filepath.Join(cfg.TemplatesDir, id+".yaml")); err != nil {
			t.Errorf("seed template %s not written: %v", id, err)
		}
	}
	if _, err := os.Stat(cfg.IndexPath); err != nil {
		t.Errorf("index not persisted: %v", err)
	}
}

func TestFindMatchingTemplate(t *testing.T) {
	m, _ := newTestMatcher(t, &stubEmbedder{})

	tests := []struct {
		name     string
		keywords []types.Keyword
		wantID   string
	}{
		{
			"respiratory keywords",
			[]types.Keyword{
				{Text: "cough", Label: types.LabelProblem, Score: 1},
				{Text: "wheezing", Label: types.LabelProblem, Score: 1},
			},
			"respiratory",
		},
		{
			"knee keywords",
			[]types.Keyword{{Text: "knee", Label: types.LabelAnatomy, Score: 1}},
			"knee_exam",
		},
		{
			"headache keywords",
			[]types.Keyword{{Text: "headache", Label: types.LabelProblem, Score: 1}},
			"headache",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.FindMatchingTemplate(context.Background(), tt.keywords)
			if got.ID != tt.wantID {
				t.Errorf("FindMatchingTemplate = %s, want %s", got.ID, tt.wantID)
			}
		})
	}
}

func TestFindMatchingTemplateEmbedErrorUsesDefault(t *testing.T) {
	emb := &stubEmbedder{}
	m, _ := newTestMatcher(t, emb)

	emb.fail = true
	got := m.FindMatchingTemplate(context.Background(), []types.Keyword{
		{Text: "cough", Label: types.LabelProblem, Score: 1},
	})
	if got.ID != "default" {
		t.Errorf("got template %s, want default on embedding failure", got.ID)
	}
	if len(got.Sections) != 4 {
		t.Errorf("default template has %d sections, want 4", len(got.Sections))
	}
}

func TestNewMatcherReusesPersistedIndex(t *testing.T) {
	emb := &stubEmbedder{}
	_, cfg := newTestMatcher(t, emb)

	// Second construction must load the saved index, not re-embed.
	emb.fail = true
	m2, err := NewMatcher(context.Background(), cfg, emb, io.Discard)
	if err != nil {
		t.Fatalf("NewMatcher with persisted index: %v", err)
	}
	if m2.index.Size() != 3 {
		t.Errorf("loaded index size %d, want 3", m2.index.Size())
	}
}

func TestNewMatcherRebuildsCorruptIndex(t *testing.T) {
	emb := &stubEmbedder{}
	_, cfg := newTestMatcher(t, emb)

	if err := os.WriteFile(cfg.IndexPath, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewMatcher(context.Background(), cfg, emb, io.Discard)
	if err != nil {
		t.Fatalf("NewMatcher after corruption: %v", err)
	}
	if m.index.Size() != 3 {
		t.Errorf("rebuilt index size %d, want 3", m.index.Size())
	}
}

func TestAddTemplate(t *testing.T) {
	m, cfg := newTestMatcher(t, &stubEmbedder{})

	tpl := types.Template{
		ID:       "cardiac",
		Name:     "Cardiac Examination",
		Keywords: []string{"palpitations", "arrhythmia"},
		Sections: map[string]string{
			types.SectionSubjective: "Patient presents with [SYMPTOMS].",
			types.SectionObjective:  "Vital signs: [VITALS].",
			types.SectionAssessment: "Assessment: [DIAGNOSIS].",
			types.SectionPlan:       "Plan: [TREATMENT].",
		},
	}
	if err := m.AddTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("AddTemplate: %v", err)
	}

	if m.index.Size() != 4 || len(m.Templates()) != 4 {
		t.Errorf("index size %d, templates %d, want 4/4", m.index.Size(), len(m.Templates()))
	}
	if _, err := os.Stat(filepath.Join(cfg.TemplatesDir, "cardiac.yaml")); err != nil {
		t.Errorf("template file not written: %v", err)
	}

	// A fresh matcher sees the new template and the extended index.
	m2, err := NewMatcher(context.Background(), cfg, &stubEmbedder{}, io.Discard)
	if err != nil {
		t.Fatalf("reloading matcher: %v", err)
	}
	if len(m2.Templates()) != 4 {
		t.Errorf("reloaded %d templates, want 4", len(m2.Templates()))
	}
}

func TestAddTemplateKeepsOrdinalsAligned(t *testing.T) {
	m, cfg := newTestMatcher(t, &stubEmbedder{})

	// "cardiac" sorts before every seeded ID, shifting all ordinals.
	tpl := types.Template{
		ID:       "cardiac",
		Name:     "Cardiac Examination",
		Keywords: []string{"palpitations", "arrhythmia"},
		Sections: map[string]string{
			types.SectionSubjective: "Patient presents with [SYMPTOMS].",
			types.SectionObjective:  "Vital signs: [VITALS].",
			types.SectionAssessment: "Assessment: [DIAGNOSIS].",
			types.SectionPlan:       "Plan: [TREATMENT].",
		},
	}
	if err := m.AddTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("AddTemplate: %v", err)
	}

	want := []string{"cardiac", "headache", "knee_exam", "respiratory"}
	got := templateIDs(m.Templates())
	if len(got) != len(want) {
		t.Fatalf("templates = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("template[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	kneeQuery := []types.Keyword{{Text: "knee", Label: types.LabelAnatomy, Score: 1}}
	if tpl := m.FindMatchingTemplate(context.Background(), kneeQuery); tpl.ID != "knee_exam" {
		t.Errorf("knee query after add matched %q, want knee_exam", tpl.ID)
	}

	// A fresh matcher loads the persisted index against the
	// filename-sorted template list; ordinals must still line up.
	m2, err := NewMatcher(context.Background(), cfg, &stubEmbedder{}, io.Discard)
	if err != nil {
		t.Fatalf("reloading matcher: %v", err)
	}
	if tpl := m2.FindMatchingTemplate(context.Background(), kneeQuery); tpl.ID != "knee_exam" {
		t.Errorf("knee query after restart matched %q, want knee_exam", tpl.ID)
	}
}

func TestFindMatchingTemplateEmptyIndexUsesDefault(t *testing.T) {
	m := &Matcher{
		embedder: &stubEmbedder{},
		index:    NewFlatIndex(4),
		w:        io.Discard,
	}

	got := m.FindMatchingTemplate(context.Background(), []types.Keyword{
		{Text: "knee", Label: types.LabelAnatomy, Score: 1},
	})
	if got.ID != "default" {
		t.Errorf("got template %s, want default for an empty index", got.ID)
	}
}

func TestLoadTemplatesSkipsMalformed(t *testing.T) {
	_, cfg := newTestMatcher(t, &stubEmbedder{})

	bad := filepath.Join(cfg.TemplatesDir, "aa_broken.yaml")
	if err := os.WriteFile(bad, []byte("{invalid: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	tpls, err := LoadTemplates(cfg.TemplatesDir, &buf)
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	if len(tpls) != 3 {
		t.Errorf("got %d templates, want 3 with the broken file skipped", len(tpls))
	}
	if !strings.Contains(buf.String(), "skipping template") {
		t.Errorf("missing skip warning, got %q", buf.String())
	}
}

func TestAddTemplateRejectsInvalid(t *testing.T) {
	m, _ := newTestMatcher(t, &stubEmbedder{})

	bad := types.Template{Name: "No ID"}
	if err := m.AddTemplate(context.Background(), bad); err == nil {
		t.Error("expected validation error for template without ID")
	}
}
