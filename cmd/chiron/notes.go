// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nateginn/chiron/internal/notes"
	"github.com/nateginn/chiron/pkg/types"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Browse SOAP notes stored in the database",
}

var notesListCmd = &cobra.Command{
	Use:   "list [patient]",
	Short: "List stored notes, optionally for one patient",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNotesList,
}

var notesShowCmd = &cobra.Command{
	Use:   "show <patient> <date>",
	Short: "Print the stored note for a patient visit",
	Args:  cobra.ExactArgs(2),
	RunE:  runNotesShow,
}

func init() {
	notesCmd.PersistentFlags().String("db-path", "", "SQLite notes database (default data/chiron.db)")

	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesShowCmd)

	rootCmd.AddCommand(notesCmd)
}

func openStore(cmd *cobra.Command) (*notes.Store, error) {
	dbPath := flagOrConfig(cmd, "db-path", "notes.db_path")
	return notes.NewStore(types.NotesConfig{DBPath: dbPath})
}

func runNotesList(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	patientID := ""
	if len(args) == 1 {
		patientID = args[0]
	}

	sums, err := store.List(context.Background(), patientID)
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		fmt.Println("No notes found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-10s  %s\n", "Patient", "Visit", "Created")
	for _, s := range sums {
		fmt.Fprintf(os.Stdout, "%-20s  %-10s  %s\n", s.PatientID, s.VisitDate, s.CreatedAt)
	}
	fmt.Fprintf(os.Stdout, "\n%d notes\n", len(sums))
	return nil
}

func runNotesShow(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	note, err := store.Get(context.Background(), args[0], args[1])
	if err != nil {
		return err
	}
	printNote(os.Stdout, note)
	return nil
}
