// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notes persists generated SOAP notes in a SQLite database.
package notes

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nateginn/chiron/pkg/types"
)

// Store manages the notes SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the notes database at cfg.DBPath. It creates
// the schema if it does not exist.
func NewStore(cfg types.NotesConfig) (*Store, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = filepath.Join("data", "chiron.db")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS patients (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mrn TEXT NOT NULL UNIQUE,
			name TEXT,
			dob TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS soap_notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			patient_id INTEGER NOT NULL REFERENCES patients(id),
			visit_date TEXT NOT NULL,
			subjective TEXT,
			objective TEXT,
			assessment TEXT,
			plan TEXT,
			created_at TEXT NOT NULL,
			UNIQUE(patient_id, visit_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_patient_id ON soap_notes(patient_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save upserts a note for the given patient and visit date. Saving to
// the same patient and date replaces the earlier note.
func (s *Store) Save(ctx context.Context, patientID, visitDate string, note types.SOAPNote) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO patients (mrn) VALUES (?)`, patientID,
	); err != nil {
		return fmt.Errorf("inserting patient: %w", err)
	}

	var pid int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM patients WHERE mrn = ?`, patientID,
	).Scan(&pid); err != nil {
		return fmt.Errorf("resolving patient: %w", err)
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO soap_notes (patient_id, visit_date, subjective, objective, assessment, plan, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(patient_id, visit_date) DO UPDATE SET
			subjective=excluded.subjective, objective=excluded.objective,
			assessment=excluded.assessment, plan=excluded.plan,
			created_at=excluded.created_at`,
		pid, visitDate, note.Subjective, note.Objective, note.Assessment, note.Plan, createdAt,
	)
	if err != nil {
		return fmt.Errorf("upserting note: %w", err)
	}

	return tx.Commit()
}

// Get returns the note stored for the given patient and visit date.
func (s *Store) Get(ctx context.Context, patientID, visitDate string) (types.SOAPNote, error) {
	var note types.SOAPNote
	err := s.db.QueryRowContext(ctx,
		`SELECT n.subjective, n.objective, n.assessment, n.plan
		 FROM soap_notes n JOIN patients p ON n.patient_id = p.id
		 WHERE p.mrn = ? AND n.visit_date = ?`,
		patientID, visitDate,
	).Scan(&note.Subjective, &note.Objective, &note.Assessment, &note.Plan)
	if err != nil {
		return types.SOAPNote{}, fmt.Errorf("loading note for %s/%s: %w", patientID, visitDate, err)
	}
	return note, nil
}

// NoteSummary identifies one stored note.
type NoteSummary struct {
	PatientID string
	VisitDate string
	CreatedAt string
}

// List returns summaries of all notes for a patient, newest visit first.
// An empty patientID lists every stored note.
func (s *Store) List(ctx context.Context, patientID string) ([]NoteSummary, error) {
	query := `SELECT p.mrn, n.visit_date, n.created_at
		 FROM soap_notes n JOIN patients p ON n.patient_id = p.id`
	args := []any{}
	if patientID != "" {
		query += ` WHERE p.mrn = ?`
		args = append(args, patientID)
	}
	query += ` ORDER BY n.visit_date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	var out []NoteSummary
	for rows.Next() {
		var sum NoteSummary
		if err := rows.Scan(&sum.PatientID, &sum.VisitDate, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning note row: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
