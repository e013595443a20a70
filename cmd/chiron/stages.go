// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nateginn/chiron/internal/fill"
	"github.com/nateginn/chiron/internal/keywords"
	"github.com/nateginn/chiron/internal/match"
	"github.com/nateginn/chiron/internal/notes"
	"github.com/nateginn/chiron/internal/pipeline"
	"github.com/nateginn/chiron/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "chiron/0.1"
)

// addStageFlags registers the flags shared by commands that run the
// pipeline or one of its stages.
func addStageFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	cmd.Flags().String("ner-model", "", "token-classification model for keyword extraction")
	cmd.Flags().String("vocabulary", "", "medical vocabulary file (default data/vocabulary.yaml)")
	cmd.Flags().Float64("min-score", 0, "NER confidence threshold (default 0.7)")
	cmd.Flags().String("embed-endpoint", "", "embeddings API endpoint (default http://localhost:11434/api/embeddings)")
	cmd.Flags().String("embed-model", "", "embedding model (default nomic-embed-text:v1.5)")
	cmd.Flags().String("templates-dir", "", "template library directory (default data/templates)")
	cmd.Flags().String("index-path", "", "similarity index file (default models/vector_db/templates.index)")
	cmd.Flags().String("model", "", "chat model for generative filling (default gpt-3.5-turbo)")
	cmd.Flags().String("db-path", "", "SQLite notes database (default data/chiron.db)")
	cmd.Flags().String("notes-dir", "", "directory for note JSON artifacts (default output/soap_notes)")
	cmd.Flags().String("debug-dir", "", "directory for pipeline debug artifacts (default output/pipeline)")
	cmd.Flags().Bool("no-db", false, "skip database persistence")
	cmd.Flags().Bool("rules-only", false, "disable model backends, use dictionary and rule paths only")
}

// flagOrConfig prefers an explicitly set flag over the config file value.
func flagOrConfig(cmd *cobra.Command, flag, key string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return viper.GetString(key)
}

// pipelineConfig assembles the stage configuration from flags, the
// config file, and loaded secrets.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	httpCfg := types.HTTPConfig{Timeout: timeout, UserAgent: defaultUserAgent}

	minScore, _ := cmd.Flags().GetFloat64("min-score")
	if minScore == 0 {
		minScore = viper.GetFloat64("keywords.min_score")
	}

	cfg := types.PipelineConfig{
		Keywords: types.KeywordsConfig{
			HTTPConfig:     httpCfg,
			NERModel:       flagOrConfig(cmd, "ner-model", "keywords.ner_model"),
			NERToken:       secretDefault("hf-api-token", viper.GetString("keywords.ner_token")),
			MinScore:       minScore,
			VocabularyPath: flagOrConfig(cmd, "vocabulary", "keywords.vocabulary_path"),
		},
		Matcher: types.MatcherConfig{
			HTTPConfig:    httpCfg,
			EmbedEndpoint: flagOrConfig(cmd, "embed-endpoint", "matcher.embed_endpoint"),
			EmbedModel:    flagOrConfig(cmd, "embed-model", "matcher.embed_model"),
			EmbeddingDim:  viper.GetInt("matcher.embedding_dim"),
			TemplatesDir:  flagOrConfig(cmd, "templates-dir", "matcher.templates_dir"),
			IndexPath:     flagOrConfig(cmd, "index-path", "matcher.index_path"),
		},
		Filler: types.FillerConfig{
			AIConfig: types.AIConfig{
				Model:      flagOrConfig(cmd, "model", "filler.model"),
				APIKey:     secretDefault("openai-api-key", viper.GetString("filler.api_key")),
				MaxRetries: viper.GetInt("filler.max_retries"),
			},
			Endpoint: viper.GetString("filler.endpoint"),
			Timeout:  timeout,
		},
		Notes: types.NotesConfig{
			DBPath:   flagOrConfig(cmd, "db-path", "notes.db_path"),
			NotesDir: flagOrConfig(cmd, "notes-dir", "notes.notes_dir"),
			DebugDir: flagOrConfig(cmd, "debug-dir", "notes.debug_dir"),
		},
	}

	if cfg.Keywords.VocabularyPath == "" {
		cfg.Keywords.VocabularyPath = "data/vocabulary.yaml"
	}
	if cfg.Matcher.TemplatesDir == "" {
		cfg.Matcher.TemplatesDir = "data/templates"
	}
	if cfg.Matcher.IndexPath == "" {
		cfg.Matcher.IndexPath = "models/vector_db/templates.index"
	}
	if cfg.Notes.NotesDir == "" {
		cfg.Notes.NotesDir = "output/soap_notes"
	}
	if cfg.Notes.DebugDir == "" {
		cfg.Notes.DebugDir = "output/pipeline"
	}

	rulesOnly, _ := cmd.Flags().GetBool("rules-only")
	if rulesOnly {
		cfg.Keywords.NERToken = ""
		cfg.Filler.APIKey = ""
	}
	return cfg
}

// buildMatcher constructs the embedding-backed template matcher.
func buildMatcher(ctx context.Context, cfg types.MatcherConfig) (*match.Matcher, error) {
	return match.NewMatcher(ctx, cfg, match.NewOllamaEmbedder(cfg), os.Stdout)
}

// buildPipeline assembles the full pipeline from the configuration. The
// returned close function releases the notes database, if any.
func buildPipeline(ctx context.Context, cmd *cobra.Command) (*pipeline.Pipeline, func() error, error) {
	cfg := pipelineConfig(cmd)

	// The hosted NER path needs an API token; without one the extractor
	// runs its dictionary rules.
	var nerBackend keywords.NERBackend
	if cfg.Keywords.NERToken != "" {
		if cfg.Keywords.NERModel == "" {
			cfg.Keywords.NERModel = "samrawal/bert-base-uncased-medical-ner"
		}
		nerBackend = &keywords.HFBackend{
			Model:      cfg.Keywords.NERModel,
			Token:      cfg.Keywords.NERToken,
			Client:     &http.Client{Timeout: cfg.Keywords.Timeout},
			MaxRetries: 3,
		}
	}

	extractor, err := keywords.NewExtractor(cfg.Keywords, nerBackend, os.Stdout)
	if err != nil {
		return nil, nil, err
	}

	matcher, err := buildMatcher(ctx, cfg.Matcher)
	if err != nil {
		return nil, nil, err
	}

	var chatBackend fill.ChatBackend
	if cfg.Filler.APIKey != "" {
		chatBackend = fill.NewOpenAIBackend(cfg.Filler)
	}
	filler := fill.NewFiller(chatBackend, os.Stdout)

	var store *notes.Store
	closeFn := func() error { return nil }
	if noDB, _ := cmd.Flags().GetBool("no-db"); !noDB {
		store, err = notes.NewStore(cfg.Notes)
		if err != nil {
			return nil, nil, err
		}
		closeFn = store.Close
	}

	return pipeline.New(extractor, matcher, filler, store, cfg.Notes, os.Stdout), closeFn, nil
}
