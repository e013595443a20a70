// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/nateginn/chiron/internal/match"
	"github.com/nateginn/chiron/pkg/types"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage the SOAP note template library",
	Long: `Templates manages the note template library backing the matching stage.
The library is seeded with sample templates on first use.`,
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the templates in the library",
	RunE:  runTemplatesList,
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd).Matcher

	tpls, err := match.LoadTemplates(cfg.TemplatesDir, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%-16s  %-36s  %s\n", "ID", "Name", "Keywords")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for _, t := range tpls {
		fmt.Fprintf(os.Stdout, "%-16s  %-36s  %s\n", t.ID, t.Name, strings.Join(t.Keywords, ", "))
	}
	fmt.Fprintf(os.Stdout, "\n%d templates\n", len(tpls))
	return nil
}

var templatesAddCmd = &cobra.Command{
	Use:   "add <template-file>",
	Short: "Add a template from a YAML file and index it",
	Long: `Add validates the template file, copies it into the library, embeds its
keywords, and extends the similarity index so the template is matchable
immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runTemplatesAdd,
}

func runTemplatesAdd(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}
	var tpl types.Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}
	if err := tpl.Validate(); err != nil {
		return fmt.Errorf("invalid template %s: %w", args[0], err)
	}

	ctx := context.Background()
	matcher, err := buildMatcher(ctx, pipelineConfig(cmd).Matcher)
	if err != nil {
		return err
	}
	if err := matcher.AddTemplate(ctx, tpl); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Added template %s (%d in library)\n", tpl.ID, len(matcher.Templates()))
	return nil
}

func init() {
	addStageFlags(templatesListCmd)
	addStageFlags(templatesAddCmd)

	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesAddCmd)

	rootCmd.AddCommand(templatesCmd)
}
