package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "chiron/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for stages that call a hosted model API.
type AIConfig struct {
	// Model is the model identifier (e.g. "gpt-3.5-turbo").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the API. An empty key disables
	// the stage's model path and selects its rule-based fallback.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for rate-limited API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// KeywordsConfig holds settings for the keyword extraction stage.
type KeywordsConfig struct {
	HTTPConfig `yaml:",inline"`

	// NERModel is the token-classification model used for entity
	// extraction (e.g. "samrawal/bert-base-uncased-medical-ner").
	NERModel string `json:"ner_model" yaml:"ner_model"`

	// NERToken authenticates against the hosted inference API. When empty
	// the extractor runs rule-based matching only.
	NERToken string `json:"ner_token,omitempty" yaml:"ner_token,omitempty"`

	// MinScore is the confidence threshold below which model entities are
	// discarded (default 0.7).
	MinScore float64 `json:"min_score" yaml:"min_score"`

	// VocabularyPath is the medical terms file backing the rule-based
	// path (default "data/vocabulary.yaml"). Created with defaults when absent.
	VocabularyPath string `json:"vocabulary_path" yaml:"vocabulary_path"`
}

// MatcherConfig holds settings for the template matching stage.
type MatcherConfig struct {
	HTTPConfig `yaml:",inline"`

	// EmbedEndpoint is the embeddings API endpoint
	// (default "http://localhost:11434/api/embeddings").
	EmbedEndpoint string `json:"embed_endpoint" yaml:"embed_endpoint"`

	// EmbedModel is the embedding model identifier (default "nomic-embed-text:v1.5").
	EmbedModel string `json:"embed_model" yaml:"embed_model"`

	// EmbeddingDim is the embedding vector dimension (default 768).
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`

	// TemplatesDir is the template library directory (default "data/templates").
	// Seeded with sample templates when empty.
	TemplatesDir string `json:"templates_dir" yaml:"templates_dir"`

	// IndexPath is the persisted similarity index file
	// (default "models/vector_db/templates.index"). Rebuilt when absent or corrupt.
	IndexPath string `json:"index_path" yaml:"index_path"`
}

// FillerConfig holds settings for the template filling stage.
type FillerConfig struct {
	AIConfig `yaml:",inline"`

	// Endpoint is the chat-completions API endpoint
	// (default "https://api.openai.com/v1/chat/completions").
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Timeout is the chat-completion request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// NotesConfig holds settings for SOAP note persistence.
type NotesConfig struct {
	// DBPath is the SQLite database file (default "data/chiron.db").
	DBPath string `json:"db_path" yaml:"db_path"`

	// NotesDir is the directory for SOAP note JSON artifacts
	// (default "output/soap_notes").
	NotesDir string `json:"notes_dir" yaml:"notes_dir"`

	// DebugDir is the directory for pipeline debug artifacts
	// (default "output/pipeline").
	DebugDir string `json:"debug_dir" yaml:"debug_dir"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Keywords KeywordsConfig `json:"keywords" yaml:"keywords"`
	Matcher  MatcherConfig  `json:"matcher" yaml:"matcher"`
	Filler   FillerConfig   `json:"filler" yaml:"filler"`
	Notes    NotesConfig    `json:"notes" yaml:"notes"`
}
