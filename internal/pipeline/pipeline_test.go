// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nateginn/chiron/internal/fill"
	"github.com/nateginn/chiron/internal/keywords"
	"github.com/nateginn/chiron/internal/match"
	"github.com/nateginn/chiron/pkg/types"
)

// topicEmbedder maps text onto a fixed low-dimension space by topic word.
type topicEmbedder struct{}

func (topicEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
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

func newTestPipeline(t *testing.T) (*Pipeline, types.NotesConfig) {
	t.Helper()
	dir := t.TempDir()

	extractor, err := keywords.NewExtractor(types.KeywordsConfig{
		VocabularyPath: filepath.Join(dir, "vocabulary.yaml"),
	}, nil, io.Discard)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	matcher, err := match.NewMatcher(context.Background(), types.MatcherConfig{
		EmbeddingDim: 4,
		TemplatesDir: filepath.Join(dir, "templates"),
		IndexPath:    filepath.Join(dir, "vector_db", "templates.index"),
	}, topicEmbedder{}, io.Discard)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}

	cfg := types.NotesConfig{
		NotesDir: filepath.Join(dir, "soap_notes"),
		DebugDir: filepath.Join(dir, "debug"),
	}
	p := New(extractor, matcher, fill.NewFiller(nil, io.Discard), nil, cfg, io.Discard)
	return p, cfg
}

func TestProcess(t *testing.T) {
	p, cfg := newTestPipeline(t)

	transcript := "Patient complains of chest pain and shortness of breath. BP 140/90, HR 88."
	res := p.Process(context.Background(), transcript, "patient42", "20260115")

	if res.RunID == "" {
		t.Error("missing run ID")
	}
	if !strings.Contains(res.Note.Objective, "BP 140/90, HR 88") {
		t.Errorf("objective missing vitals: %q", res.Note.Objective)
	}
	if len(res.Keywords) == 0 {
		t.Error("no keywords extracted")
	}

	wantPath := filepath.Join(cfg.NotesDir, "patient42_20260115_soap.json")
	if res.NotePath != wantPath {
		t.Errorf("note path = %q, want %q", res.NotePath, wantPath)
	}
	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("note artifact: %v", err)
	}
	var saved types.SOAPNote
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("parsing note artifact: %v", err)
	}
	if saved != res.Note {
		t.Errorf("artifact %+v differs from result %+v", saved, res.Note)
	}
}

func TestProcessWritesDebugArtifact(t *testing.T) {
	p, cfg := newTestPipeline(t)

	res := p.Process(context.Background(), "Patient has a cough and wheezing.", "patient7", "20260201")

	data, err := os.ReadFile(filepath.Join(cfg.DebugDir, "patient7_20260201_pipeline.json"))
	if err != nil {
		t.Fatalf("debug artifact: %v", err)
	}

	var rec struct {
		RunID         string `json:"run_id"`
		Transcription string `json:"transcription"`
		Template      struct {
			ID string `json:"id"`
		} `json:"template"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("parsing debug artifact: %v", err)
	}
	if rec.RunID != res.RunID {
		t.Errorf("debug run ID %q, result run ID %q", rec.RunID, res.RunID)
	}
	if rec.Transcription != "Patient has a cough and wheezing." {
		t.Errorf("debug transcription = %q", rec.Transcription)
	}
	if rec.Template.ID != res.Template {
		t.Errorf("debug template %q, result template %q", rec.Template.ID, res.Template)
	}
}

func TestProcessDefaults(t *testing.T) {
	p, cfg := newTestPipeline(t)

	res := p.Process(context.Background(), "Patient has a headache.", "", "")

	if res.NotePath == "" {
		t.Fatal("no note path")
	}
	base := filepath.Base(res.NotePath)
	if !strings.HasPrefix(base, "unknown_patient_") {
		t.Errorf("artifact name %q should use the default patient ID", base)
	}
	if !strings.HasSuffix(base, "_soap.json") {
		t.Errorf("artifact name %q has wrong suffix", base)
	}
	if _, err := os.Stat(filepath.Join(cfg.NotesDir, base)); err != nil {
		t.Errorf("artifact not written: %v", err)
	}
}

func TestProcessRecoversFromPanic(t *testing.T) {
	// A pipeline with no stages panics on first use; the run must still
	// yield the error note instead of crashing.
	p := New(nil, nil, nil, nil, types.NotesConfig{}, io.Discard)

	res := p.Process(context.Background(), "transcript", "p1", "20260101")

	if res.Note != ErrorNote() {
		t.Errorf("got %+v, want the error note", res.Note)
	}
	if res.Note.Subjective != "Error processing transcription." {
		t.Errorf("error note text = %q", res.Note.Subjective)
	}
}

func TestBatchProcess(t *testing.T) {
	p, _ := newTestPipeline(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "patient42_20260115.txt")
	if err := os.WriteFile(good, []byte("Patient complains of chest pain."), 0o644); err != nil {
		t.Fatal(err)
	}
	// A directory with a .txt name makes the read fail without touching
	// the rest of the batch.
	if err := os.Mkdir(filepath.Join(dir, "broken.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	p.w = &buf
	summary, err := p.BatchProcess(context.Background(), dir)
	if err != nil {
		t.Fatalf("BatchProcess: %v", err)
	}

	if summary.Processed != 1 || summary.Failed != 1 {
		t.Errorf("processed=%d failed=%d, want 1/1", summary.Processed, summary.Failed)
	}
	if len(summary.NotePaths) != 1 {
		t.Fatalf("got %d note paths, want 1: %v", len(summary.NotePaths), summary.NotePaths)
	}
	if base := filepath.Base(summary.NotePaths[0]); base != "patient42_20260115_soap.json" {
		t.Errorf("note artifact = %q", base)
	}
	if !strings.Contains(buf.String(), "failed  broken.txt") {
		t.Errorf("missing failure report, got %q", buf.String())
	}
}

func TestBatchProcessEmptyDir(t *testing.T) {
	p, _ := newTestPipeline(t)

	summary, err := p.BatchProcess(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("BatchProcess: %v", err)
	}
	if summary.Processed != 0 || summary.Failed != 0 {
		t.Errorf("empty dir summary = %+v", summary)
	}
}
