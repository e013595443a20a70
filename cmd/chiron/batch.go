// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch <directory>",
	Short: "Generate SOAP notes for every transcript in a directory",
	Long: `Batch runs the pipeline over every *.txt file in the directory.
Filenames of the form <patient>_<YYYYMMDD>.txt supply the patient ID and
visit date. Files that cannot be read are reported and skipped; the rest
of the batch still completes.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	addStageFlags(batchCmd)

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	p, closeFn, err := buildPipeline(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	summary, err := p.BatchProcess(ctx, args[0])
	if err != nil {
		return err
	}
	if summary.Processed == 0 && summary.Failed == 0 {
		return fmt.Errorf("no *.txt transcripts found in %s", args[0])
	}
	return nil
}
