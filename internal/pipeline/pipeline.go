// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline chains keyword extraction, template matching, and
// template filling into a single transcript-to-note run.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nateginn/chiron/internal/fill"
	"github.com/nateginn/chiron/internal/keywords"
	"github.com/nateginn/chiron/internal/match"
	"github.com/nateginn/chiron/internal/notes"
	"github.com/nateginn/chiron/pkg/types"
)

const (
	defaultPatientID = "unknown_patient"
	dateLayout       = "20060102"
)

// Pipeline owns the three processing stages plus optional persistence.
// Process never returns an error: every failure degrades to the literal
// error note so a batch run always produces output for every input.
type Pipeline struct {
	extractor *keywords.Extractor
	matcher   *match.Matcher
	filler    *fill.Filler
	store     *notes.Store
	notesDir  string
	debugDir  string
	w         io.Writer
}

// New assembles a Pipeline. store may be nil to skip database
// persistence; notesDir and debugDir may be empty to skip the
// corresponding file artifacts.
func New(extractor *keywords.Extractor, matcher *match.Matcher, filler *fill.Filler, store *notes.Store, cfg types.NotesConfig, w io.Writer) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		matcher:   matcher,
		filler:    filler,
		store:     store,
		notesDir:  cfg.NotesDir,
		debugDir:  cfg.DebugDir,
		w:         w,
	}
}

// Result holds the output of one pipeline run.
type Result struct {
	RunID    string          `json:"run_id"`
	Note     types.SOAPNote  `json:"soap_note"`
	NotePath string          `json:"note_path,omitempty"`
	Keywords []types.Keyword `json:"keywords"`
	Template string          `json:"template_id"`
}

// debugRecord is the per-run artifact written to the debug directory.
type debugRecord struct {
	RunID         string          `json:"run_id"`
	Transcription string          `json:"transcription"`
	Keywords      []types.Keyword `json:"keywords"`
	Template      struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"template"`
	SOAPNote types.SOAPNote `json:"soap_note"`
}

// Process runs a transcript through all three stages and persists the
// note. Empty patientID and visitDate take defaults ("unknown_patient"
// and today's date). A panic in any stage yields the error note.
func (p *Pipeline) Process(ctx context.Context, transcription, patientID, visitDate string) (res Result) {
	if patientID == "" {
		patientID = defaultPatientID
	}
	if visitDate == "" {
		visitDate = time.Now().Format(dateLayout)
	}

	res.RunID = uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(p.w, "failed  %s_%s: %v\n", patientID, visitDate, r)
			res.Note = ErrorNote()
			res.NotePath = ""
		}
	}()

	kws := p.extractor.Extract(ctx, transcription)
	tpl := p.matcher.FindMatchingTemplate(ctx, kws)
	note := p.filler.Fill(ctx, tpl, transcription, kws)

	res.Note = note
	res.Keywords = kws
	res.Template = tpl.ID

	// Persistence failures are reported but never fail the run.
	if p.store != nil {
		if err := p.store.Save(ctx, patientID, visitDate, note); err != nil {
			fmt.Fprintf(p.w, "warning: database save failed: %v\n", err)
		}
	}
	if p.notesDir != "" {
		path, err := p.writeNote(patientID, visitDate, note)
		if err != nil {
			fmt.Fprintf(p.w, "warning: note artifact write failed: %v\n", err)
		} else {
			res.NotePath = path
		}
	}
	if p.debugDir != "" {
		if err := p.writeDebug(patientID, visitDate, transcription, kws, tpl, note, res.RunID); err != nil {
			fmt.Fprintf(p.w, "warning: debug artifact write failed: %v\n", err)
		}
	}

	return res
}

// writeNote saves the note as <patient>_<date>_soap.json and returns
// the path.
func (p *Pipeline) writeNote(patientID, visitDate string, note types.SOAPNote) (string, error) {
	if err := os.MkdirAll(p.notesDir, 0o755); err != nil {
		return "", fmt.Errorf("creating notes directory: %w", err)
	}
	path := filepath.Join(p.notesDir, fmt.Sprintf("%s_%s_soap.json", patientID, visitDate))
	data, err := json.MarshalIndent(note, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling note: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing note: %w", err)
	}
	return path, nil
}

func (p *Pipeline) writeDebug(patientID, visitDate, transcription string, kws []types.Keyword, tpl types.Template, note types.SOAPNote, runID string) error {
	if err := os.MkdirAll(p.debugDir, 0o755); err != nil {
		return fmt.Errorf("creating debug directory: %w", err)
	}
	rec := debugRecord{
		RunID:         runID,
		Transcription: transcription,
		Keywords:      kws,
		SOAPNote:      note,
	}
	rec.Template.ID = tpl.ID
	rec.Template.Name = tpl.Name

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling debug record: %w", err)
	}
	path := filepath.Join(p.debugDir, fmt.Sprintf("%s_%s_pipeline.json", patientID, visitDate))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing debug record: %w", err)
	}
	return nil
}

// BatchSummary holds counts from a batch run.
type BatchSummary struct {
	Processed int
	Failed    int
	NotePaths []string
}

// BatchProcess runs every *.txt file under dir through the pipeline.
// Filenames of the form <patient>_<date>[...].txt supply the patient ID
// and visit date; other stems become the patient ID alone. Unreadable
// files are reported and skipped.
func (p *Pipeline) BatchProcess(ctx context.Context, dir string) (BatchSummary, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return BatchSummary{}, fmt.Errorf("listing transcripts: %w", err)
	}
	sort.Strings(paths)

	var summary BatchSummary
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(p.w, "failed  %s: %v\n", filepath.Base(path), err)
			summary.Failed++
			continue
		}

		patientID, visitDate := parseTranscriptName(path)
		res := p.Process(ctx, string(data), patientID, visitDate)
		if res.NotePath != "" {
			summary.NotePaths = append(summary.NotePaths, res.NotePath)
		}
		summary.Processed++
		fmt.Fprintf(p.w, "processed %s (template %s, %d keywords)\n",
			filepath.Base(path), res.Template, len(res.Keywords))
	}

	fmt.Fprintf(p.w, "\nprocessed: %d, failed: %d\n", summary.Processed, summary.Failed)
	return summary, nil
}

// parseTranscriptName splits a transcript filename stem on underscores
// into patient ID and visit date.
func parseTranscriptName(path string) (patientID, visitDate string) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(stem, "_")
	patientID = parts[0]
	if len(parts) > 1 {
		visitDate = parts[1]
	}
	return patientID, visitDate
}

// ErrorNote is the note produced when processing fails outright.
func ErrorNote() types.SOAPNote {
	return types.SOAPNote{
		Subjective: "Error processing transcription.",
		Objective:  "Error processing transcription.",
		Assessment: "Error processing transcription.",
		Plan:       "Error processing transcription.",
	}
}
