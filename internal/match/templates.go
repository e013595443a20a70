// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/nateginn/chiron/pkg/types"
)

// LoadTemplates reads every *.yaml template under dir, sorted by filename
// so index ordinals stay stable across runs. An empty or missing
// directory is seeded with the sample templates first.
func LoadTemplates(dir string, w io.Writer) ([]types.Template, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating templates directory: %w", err)
	}

	files, err := templateFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		fmt.Fprintf(w, "no templates in %s, creating samples\n", dir)
		if err := seedTemplates(dir); err != nil {
			return nil, fmt.Errorf("seeding templates: %w", err)
		}
		if files, err = templateFiles(dir); err != nil {
			return nil, err
		}
	}

	// Bad template files are skipped, not fatal: the skip is stable
	// across runs so index ordinals stay aligned with this list.
	templates := make([]types.Template, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(w, "warning: skipping template %s: %v\n", path, err)
			continue
		}
		var t types.Template
		if err := yaml.Unmarshal(data, &t); err != nil {
			fmt.Fprintf(w, "warning: skipping template %s: %v\n", path, err)
			continue
		}
		if err := t.Validate(); err != nil {
			fmt.Fprintf(w, "warning: skipping template %s: %v\n", path, err)
			continue
		}
		templates = append(templates, t)
	}
	return templates, nil
}

func templateFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading templates directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// SaveTemplate writes a template to dir/[id].yaml.
func SaveTemplate(dir string, t types.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling template %s: %w", t.ID, err)
	}
	path := filepath.Join(dir, t.ID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing template %s: %w", path, err)
	}
	return nil
}

func seedTemplates(dir string) error {
	for _, t := range SampleTemplates() {
		if err := SaveTemplate(dir, t); err != nil {
			return err
		}
	}
	return nil
}

// SampleTemplates returns the three templates seeded into an empty
// template store.
func SampleTemplates() []types.Template {
	return []types.Template{
		{
			ID:       "knee_exam",
			Name:     "Knee Examination",
			Keywords: []string{"knee", "joint", "pain", "swelling", "mobility", "arthritis", "meniscus", "ACL", "MCL", "patella"},
			Sections: map[string]string{
				types.SectionSubjective: "Patient presents with knee pain. [SYMPTOMS]. Patient reports [HISTORY].",
				types.SectionObjective:  "Examination of the knee reveals [FINDINGS]. Range of motion is [ROM]. [TESTS].",
				types.SectionAssessment: "Assessment: [DIAGNOSIS].",
				types.SectionPlan:       "Plan: [TREATMENT]. Follow up in [TIMEFRAME].",
			},
		},
		{
			ID:       "headache",
			Name:     "Headache Evaluation",
			Keywords: []string{"headache", "migraine", "pain", "aura", "nausea", "vomiting", "photophobia", "neurological"},
			Sections: map[string]string{
				types.SectionSubjective: "Patient presents with headache. [SYMPTOMS]. Patient reports [HISTORY].",
				types.SectionObjective:  "Vital signs: [VITALS]. Neurological examination: [NEURO_EXAM].",
				types.SectionAssessment: "Assessment: [DIAGNOSIS].",
				types.SectionPlan:       "Plan: [TREATMENT]. [MEDICATIONS]. Follow up as needed.",
			},
		},
		{
			ID:       "respiratory",
			Name:     "Respiratory Examination",
			Keywords: []string{"cough", "shortness of breath", "SOB", "wheezing", "chest pain", "sputum", "pneumonia", "bronchitis", "asthma", "COPD"},
			Sections: map[string]string{
				types.SectionSubjective: "Patient presents with respiratory symptoms including [SYMPTOMS]. History of [HISTORY].",
				types.SectionObjective:  "Vital signs: [VITALS]. Lung examination: [LUNG_EXAM]. Oxygen saturation: [O2_SAT]%.",
				types.SectionAssessment: "Assessment: [DIAGNOSIS].",
				types.SectionPlan:       "Plan: [TREATMENT]. [MEDICATIONS]. Follow up in [TIMEFRAME].",
			},
		},
	}
}

// DefaultTemplate is returned when the index is empty or a search fails.
func DefaultTemplate() types.Template {
	return types.Template{
		ID:   "default",
		Name: "General Medical Examination",
		Sections: map[string]string{
			types.SectionSubjective: "Patient presents with [SYMPTOMS]. Patient reports [HISTORY].",
			types.SectionObjective:  "Vital signs: [VITALS]. Physical examination: [EXAM].",
			types.SectionAssessment: "Assessment: [DIAGNOSIS].",
			types.SectionPlan:       "Plan: [TREATMENT]. Follow up as needed.",
		},
	}
}
