package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"ballooncd/internal/services"
)

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const runColumns = "id, volume_id, output_path, inputs_json, status, error_message, " +
	"artifact_count, total_bytes, iso_bytes, parity, started_at, finished_at"

// RecordRun stores a finished run and its artifacts in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, artifacts []Artifact) error {
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("%w: record run: missing run id", services.ErrValidation)
	}
	inputsJSON, err := json.Marshal(run.Inputs)
	if err != nil {
		return fmt.Errorf("encode inputs: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.VolumeID,
		run.OutputPath,
		string(inputsJSON),
		run.Status,
		run.Error,
		run.ArtifactCount,
		run.TotalBytes,
		run.ISOBytes,
		run.Par2,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, artifact := range artifacts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO artifacts (run_id, path, kind, size_bytes, blake3) VALUES (?, ?, ?, ?, ?)`,
			run.ID, artifact.Path, artifact.Kind, artifact.Size, artifact.BLAKE3,
		); err != nil {
			return fmt.Errorf("insert artifact %s: %w", artifact.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun finds a run by full ID or by a unique ID prefix and returns it
// with its artifacts, ordered by path.
func (s *Store) GetRun(ctx context.Context, ref string) (Run, []Artifact, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Run{}, nil, fmt.Errorf("%w: empty run id", services.ErrValidation)
	}

	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, ref))
	if errors.Is(err, sql.ErrNoRows) {
		run, err = s.runByPrefix(ctx, ref)
	}
	if err != nil {
		return Run{}, nil, err
	}

	artifacts, err := s.runArtifacts(ctx, run.ID)
	if err != nil {
		return Run{}, nil, err
	}
	return run, artifacts, nil
}

func (s *Store) runByPrefix(ctx context.Context, prefix string) (Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return Run{}, fmt.Errorf("find run by prefix: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate run matches: %w", err)
	}

	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("%w: run %q", services.ErrNotFound, prefix)
	case 1:
		return matches[0], nil
	}
	return Run{}, fmt.Errorf("%w: run id prefix %q is ambiguous", services.ErrValidation, prefix)
}

func (s *Store) runArtifacts(ctx context.Context, runID string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, path, kind, size_bytes, blake3 FROM artifacts WHERE run_id = ? ORDER BY path`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var artifacts []Artifact
	for rows.Next() {
		var artifact Artifact
		if err := rows.Scan(&artifact.RunID, &artifact.Path, &artifact.Kind, &artifact.Size, &artifact.BLAKE3); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		inputsJSON string
		startedAt  string
		finishedAt string
	)
	if err := row.Scan(
		&run.ID,
		&run.VolumeID,
		&run.OutputPath,
		&inputsJSON,
		&run.Status,
		&run.Error,
		&run.ArtifactCount,
		&run.TotalBytes,
		&run.ISOBytes,
		&run.Par2,
		&startedAt,
		&finishedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if err := json.Unmarshal([]byte(inputsJSON), &run.Inputs); err != nil {
		return Run{}, fmt.Errorf("decode inputs for run %s: %w", run.ID, err)
	}
	var err error
	if run.StartedAt, err = parseTimestamp(startedAt); err != nil {
		return Run{}, fmt.Errorf("parse started_at for run %s: %w", run.ID, err)
	}
	if run.FinishedAt, err = parseTimestamp(finishedAt); err != nil {
		return Run{}, fmt.Errorf("parse finished_at for run %s: %w", run.ID, err)
	}
	return run, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
