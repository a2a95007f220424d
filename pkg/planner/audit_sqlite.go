package planner

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteAuditStore persists audit events in SQLite.
type SQLiteAuditStore struct {
	db *sql.DB
}

// OpenSQLiteAuditStore opens dsn with the pure Go sqlite driver and prepares
// the schema.
func OpenSQLiteAuditStore(dsn string) (*SQLiteAuditStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite audit store: %w", err)
	}
	store, err := NewSQLiteAuditStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteAuditStore creates a SQLite-backed audit store and ensures schema.
func NewSQLiteAuditStore(db *sql.DB) (*SQLiteAuditStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := ensureAuditSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteAuditStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteAuditStore) Close() error {
	return s.db.Close()
}

// Record stores a single audit event.
func (s *SQLiteAuditStore) Record(ctx context.Context, event AuditEvent) error {
	output, err := encodeAuditOutput(event.Output)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plan_audit_events (
			plan_id, run_id, step, position, tool, status, output_json, error_text, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.PlanID,
		event.RunID,
		event.Step,
		event.Position,
		event.Tool,
		event.Status,
		string(output),
		event.Error,
		normalizeAuditTime(event.StartedAt),
		normalizeAuditTime(event.FinishedAt),
	)
	return err
}

// List returns audit events matching the filter in recording order.
func (s *SQLiteAuditStore) List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT plan_id, run_id, step, position, tool, status, output_json, error_text, started_at, finished_at
		FROM plan_audit_events
	`
	var (
		clauses []string
		args    []any
	)
	addFilter := func(clause string, value any) {
		clauses = append(clauses, clause)
		args = append(args, value)
	}
	if filter.PlanID != "" {
		addFilter("plan_id = ?", filter.PlanID)
	}
	if filter.RunID != "" {
		addFilter("run_id = ?", filter.RunID)
	}
	if filter.Tool != "" {
		addFilter("tool = ?", filter.Tool)
	}
	if filter.Status != "" {
		addFilter("status = ?", filter.Status)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var (
			event      AuditEvent
			outputJSON sql.NullString
			errText    sql.NullString
			started    sql.NullTime
			finished   sql.NullTime
		)
		if err := rows.Scan(
			&event.PlanID,
			&event.RunID,
			&event.Step,
			&event.Position,
			&event.Tool,
			&event.Status,
			&outputJSON,
			&errText,
			&started,
			&finished,
		); err != nil {
			return nil, err
		}
		if outputJSON.Valid {
			if out, err := decodeAuditOutput([]byte(outputJSON.String)); err == nil {
				event.Output = out
			}
		}
		event.Error = errText.String
		if started.Valid {
			event.StartedAt = started.Time
		}
		if finished.Valid {
			event.FinishedAt = finished.Time
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func ensureAuditSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS plan_audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			plan_id TEXT NOT NULL,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			position INTEGER NOT NULL,
			tool TEXT NOT NULL,
			status TEXT NOT NULL,
			output_json TEXT,
			error_text TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_plan_audit_plan ON plan_audit_events(plan_id);
		CREATE INDEX IF NOT EXISTS idx_plan_audit_run ON plan_audit_events(run_id);
		CREATE INDEX IF NOT EXISTS idx_plan_audit_status ON plan_audit_events(status);
	`)
	return err
}
