// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Journal defines the contract for recording remote operations.
type Journal interface {
	// Start inserts an in_progress row and returns its ID and generated operation UUID.
	Start(ctx context.Context, rec OperationRecord) (id int64, operationID string, err error)
	// Complete finalises the row with status and optional error summary.
	Complete(ctx context.Context, id int64, status string, errSummary string) error
	// Recent returns up to limit rows, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	// Close releases database resources.
	Close() error
}

// SQLiteJournal implements Journal backed by a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (or creates) the SQLite database at dbPath and
// ensures the schema is applied. A leading "~/" expands to the home
// directory.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	dbPath, err := expandHome(dbPath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if dbPath != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history db directory: %w", err)
		}
	}

	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	if dbPath == ":memory:" {
		dsn = "file::memory:?mode=memory&cache=shared"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying history schema: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (j *SQLiteJournal) Start(ctx context.Context, rec OperationRecord) (int64, string, error) {
	opID := uuid.New().String()

	res, err := j.db.ExecContext(ctx, `
		INSERT INTO operations (
			operation_id, operation, backend, namespace, tenant,
			status, request_body, started_at
		) VALUES (?, ?, ?, ?, ?, 'in_progress', ?, ?)`,
		opID, rec.Operation, rec.Backend, rec.Namespace, rec.Tenant,
		nullIfEmpty(rec.RequestBody), now(),
	)
	if err != nil {
		return 0, "", fmt.Errorf("inserting operation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", fmt.Errorf("getting operation id: %w", err)
	}
	return id, opID, nil
}

func (j *SQLiteJournal) Complete(ctx context.Context, id int64, status string, errSummary string) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE operations SET status = ?, completed_at = ?, error_summary = ? WHERE id = ?`,
		status, now(), nullIfEmpty(errSummary), id)
	return err
}

func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, operation_id, operation, backend, namespace, tenant, status,
			request_body, error_summary, started_at, completed_at
		FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying operations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var body, errSummary, completed sql.NullString
		if err := rows.Scan(&e.ID, &e.OperationID, &e.Operation, &e.Backend, &e.Namespace,
			&e.Tenant, &e.Status, &body, &errSummary, &e.StartedAt, &completed); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		e.RequestBody = body.String
		e.ErrorSummary = errSummary.String
		e.CompletedAt = completed.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DB returns the underlying sql.DB for testing purposes.
func (j *SQLiteJournal) DB() *sql.DB {
	return j.db
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// NoOpJournal is a Journal that does nothing, used when history is disabled.
type NoOpJournal struct{}

func (NoOpJournal) Start(_ context.Context, _ OperationRecord) (int64, string, error) {
	return 0, "", nil
}
func (NoOpJournal) Complete(_ context.Context, _ int64, _ string, _ string) error { return nil }
func (NoOpJournal) Recent(_ context.Context, _ int) ([]Entry, error)              { return nil, nil }
func (NoOpJournal) Close() error                                                  { return nil }

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
