// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nateginn/chiron/pkg/types"
)

var processCmd = &cobra.Command{
	Use:   "process [transcript-file]",
	Short: "Generate a SOAP note from one conversation transcript",
	Long: `Process reads a conversation transcript from a file (or stdin when no
file is given), runs the full pipeline, and prints the resulting SOAP
note. The note is also saved to the database and the notes directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().String("patient", "", "patient identifier (default unknown_patient)")
	processCmd.Flags().String("date", "", "visit date as YYYYMMDD (default today)")
	addStageFlags(processCmd)

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	var transcription string
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading transcript: %w", err)
		}
		transcription = string(data)
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		transcription = string(data)
	}
	if strings.TrimSpace(transcription) == "" {
		return fmt.Errorf("transcript is empty")
	}

	ctx := context.Background()
	p, closeFn, err := buildPipeline(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	patientID, _ := cmd.Flags().GetString("patient")
	visitDate, _ := cmd.Flags().GetString("date")

	res := p.Process(ctx, transcription, patientID, visitDate)

	printNote(os.Stdout, res.Note)
	if res.NotePath != "" {
		fmt.Fprintf(os.Stdout, "\nSaved to %s\n", res.NotePath)
	}
	return nil
}

// printNote writes the four sections with uppercase headers.
func printNote(w io.Writer, note types.SOAPNote) {
	for i, name := range types.SOAPSections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s:\n%s\n", strings.ToUpper(name), note.Section(name))
	}
}
