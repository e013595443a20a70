// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nateginn/chiron/internal/keywords"
	"github.com/nateginn/chiron/pkg/types"
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Show the medical vocabulary backing rule-based extraction",
	Long: `Vocab prints the term counts per keyword category. The vocabulary file
is created with the built-in defaults when absent.`,
	RunE: runVocab,
}

func init() {
	vocabCmd.Flags().String("vocabulary", "", "medical vocabulary file (default data/vocabulary.yaml)")
	vocabCmd.Flags().Bool("terms", false, "list every term, not just counts")

	rootCmd.AddCommand(vocabCmd)
}

func runVocab(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("vocabulary")
	if path == "" {
		path = "data/vocabulary.yaml"
	}

	vocab, err := keywords.LoadVocabulary(path, os.Stderr)
	if err != nil {
		return err
	}

	listTerms, _ := cmd.Flags().GetBool("terms")
	for _, label := range types.Labels {
		terms := vocab[label]
		if len(terms) == 0 && label == types.LabelOther {
			continue
		}
		fmt.Fprintf(os.Stdout, "%-10s %d terms\n", label, len(terms))
		if listTerms {
			for _, t := range terms {
				fmt.Fprintf(os.Stdout, "  %s\n", t)
			}
		}
	}
	fmt.Fprintf(os.Stdout, "\n%d terms total\n", vocab.TermCount())
	return nil
}
