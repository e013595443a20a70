// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match selects the best-fitting SOAP template for a set of
// extracted keywords via embedding similarity search.
package match

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nateginn/chiron/pkg/types"
)

const defaultEmbeddingDim = 768

// Matcher owns the embedding model handle, the similarity index, and the
// loaded template list. Build one per process and share it; reads are
// safe concurrently, but AddTemplate calls must be serialized by the
// caller.
type Matcher struct {
	embedder  Embedder
	index     *FlatIndex
	templates []types.Template
	dir       string
	indexPath string
	w         io.Writer
}

// NewMatcher loads the template library (seeding samples when empty) and
// loads or builds the similarity index. The index is rebuilt when the
// persisted file is missing, corrupt, or out of step with the template
// list, then persisted for reuse.
func NewMatcher(ctx context.Context, cfg types.MatcherConfig, embedder Embedder, w io.Writer) (*Matcher, error) {
	templates, err := LoadTemplates(cfg.TemplatesDir, w)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	dim := cfg.EmbeddingDim
	if dim <= 0 {
		dim = defaultEmbeddingDim
	}

	m := &Matcher{
		embedder:  embedder,
		templates: templates,
		dir:       cfg.TemplatesDir,
		indexPath: cfg.IndexPath,
		w:         w,
	}

	index, err := LoadIndex(cfg.IndexPath)
	if err == nil && index.Size() == len(templates) && index.Dim() == dim {
		m.index = index
		return m, nil
	}
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(w, "warning: index %s unusable (%v), rebuilding\n", cfg.IndexPath, err)
	}

	if err := m.buildIndex(ctx, dim); err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	if err := m.index.Save(cfg.IndexPath); err != nil {
		fmt.Fprintf(w, "warning: could not persist index: %v\n", err)
	}
	return m, nil
}

// buildIndex embeds each template's keyword list (falling back to its
// name) and inserts in template-list order, so that ordinal position in
// the index equals position in the template list.
func (m *Matcher) buildIndex(ctx context.Context, dim int) error {
	m.index = NewFlatIndex(dim)
	for _, t := range m.templates {
		vec, err := m.embedTemplate(ctx, t)
		if err != nil {
			return fmt.Errorf("embedding template %s: %w", t.ID, err)
		}
		if err := m.index.Add(vec); err != nil {
			return fmt.Errorf("indexing template %s: %w", t.ID, err)
		}
	}
	fmt.Fprintf(m.w, "indexed %d templates\n", m.index.Size())
	return nil
}

func (m *Matcher) embedTemplate(ctx context.Context, t types.Template) ([]float32, error) {
	text := strings.Join(t.Keywords, " ")
	if text == "" {
		text = t.Name
	}
	return m.embedder.Embed(ctx, text)
}

// Templates returns the loaded template list in index order.
func (m *Matcher) Templates() []types.Template {
	return m.templates
}

// FindMatchingTemplate returns the nearest template to the keywords'
// joined text. It never fails outward: an empty index, an embedding
// error, or an out-of-range ordinal all yield the default template.
func (m *Matcher) FindMatchingTemplate(ctx context.Context, keywords []types.Keyword) types.Template {
	if m.index == nil || m.index.Size() == 0 {
		fmt.Fprintf(m.w, "warning: no templates in index, using default\n")
		return DefaultTemplate()
	}

	query := strings.Join(types.KeywordTexts(keywords), " ")
	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		fmt.Fprintf(m.w, "warning: query embedding failed (%v), using default template\n", err)
		return DefaultTemplate()
	}

	ordinal, _ := m.index.Search(vec)
	if ordinal < 0 || ordinal >= len(m.templates) {
		fmt.Fprintf(m.w, "warning: no matching template, using default\n")
		return DefaultTemplate()
	}
	return m.templates[ordinal]
}

// AddTemplate persists a new template and rebuilds the index. A full
// rebuild keeps ordinals aligned with the filename-sorted order that
// LoadTemplates produces on the next start; appending instead would
// leave the persisted index misordered whenever the new ID does not
// sort last. Callers must serialize AddTemplate with concurrent
// pipeline runs.
func (m *Matcher) AddTemplate(ctx context.Context, t types.Template) error {
	if err := SaveTemplate(m.dir, t); err != nil {
		return err
	}

	templates, err := LoadTemplates(m.dir, m.w)
	if err != nil {
		return fmt.Errorf("reloading templates: %w", err)
	}
	m.templates = templates

	if err := m.buildIndex(ctx, m.index.Dim()); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}
	if err := m.index.Save(m.indexPath); err != nil {
		return fmt.Errorf("persisting index: %w", err)
	}
	return nil
}
