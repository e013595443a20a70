// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package keywords

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/nateginn/chiron/pkg/types"
)

// LoadVocabulary reads the medical terms file at path. When the file is
// absent or unparseable the default vocabulary is returned and written to
// path for future runs (best effort).
func LoadVocabulary(path string, w io.Writer) (types.Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading vocabulary %s: %w", path, err)
		}
		fmt.Fprintf(w, "vocabulary file %s not found, creating defaults\n", path)
		return materializeDefaults(path, w), nil
	}

	var vocab types.Vocabulary
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		fmt.Fprintf(w, "warning: vocabulary %s unparseable (%v), using defaults\n", path, err)
		return DefaultVocabulary(), nil
	}
	if vocab.TermCount() == 0 {
		return materializeDefaults(path, w), nil
	}
	return vocab, nil
}

// SaveVocabulary writes the vocabulary to path as YAML.
func SaveVocabulary(path string, vocab types.Vocabulary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating vocabulary directory: %w", err)
	}
	data, err := yaml.Marshal(vocab)
	if err != nil {
		return fmt.Errorf("marshaling vocabulary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing vocabulary %s: %w", path, err)
	}
	return nil
}

func materializeDefaults(path string, w io.Writer) types.Vocabulary {
	vocab := DefaultVocabulary()
	if err := SaveVocabulary(path, vocab); err != nil {
		fmt.Fprintf(w, "warning: could not persist default vocabulary: %v\n", err)
	}
	return vocab
}

// DefaultVocabulary returns the built-in four-category medical term lists
// used when no vocabulary file exists.
func DefaultVocabulary() types.Vocabulary {
	return types.Vocabulary{
		types.LabelProblem: {
			"headache", "migraine", "pain", "fever", "cough", "nausea", "vomiting",
			"diarrhea", "constipation", "fatigue", "dizziness", "shortness of breath",
			"chest pain", "back pain", "abdominal pain", "joint pain", "rash", "swelling",
			"inflammation", "infection", "hypertension", "diabetes", "asthma", "COPD",
			"arthritis", "depression", "anxiety", "insomnia",
		},
		types.LabelTreatment: {
			"surgery", "medication", "therapy", "physical therapy", "counseling",
			"antibiotics", "painkillers", "anti-inflammatory", "injection", "implant",
			"pacemaker", "transplant", "dialysis", "chemotherapy", "radiation therapy",
			"immunotherapy", "rehabilitation", "exercise", "diet", "rest", "hydration",
		},
		types.LabelTest: {
			"blood test", "urine test", "X-ray", "MRI", "CT scan", "ultrasound",
			"EKG", "ECG", "EEG", "biopsy", "colonoscopy", "endoscopy", "mammogram",
			"PET scan", "stress test", "glucose test", "cholesterol test", "culture",
		},
		types.LabelAnatomy: {
			"head", "neck", "chest", "abdomen", "back", "arm", "leg", "knee", "ankle",
			"shoulder", "elbow", "wrist", "hand", "foot", "spine", "heart", "lung",
			"liver", "kidney", "stomach", "intestine", "colon", "brain", "muscle",
			"bone", "joint", "tendon", "ligament", "artery", "vein", "nerve",
		},
	}
}
