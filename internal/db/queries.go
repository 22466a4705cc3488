package db

import (
	"database/sql"
	"fmt"
)

// RunRow is one pipeline run as stored in the mirror.
type RunRow struct {
	RunID     string
	TracePath string
	OutputDir string
	Success   sql.NullBool
	StartedAt string
	EndedAt   sql.NullString
}

// StageEventRow is one stage lifecycle event.
type StageEventRow struct {
	RunID      string
	Stage      string
	Event      string
	Status     sql.NullString
	Strategy   sql.NullString
	DurationMs sql.NullInt64
	Detail     sql.NullString
	Timestamp  string
}

// RecordRunStart inserts a new run row.
func (d *DB) RecordRunStart(runID, tracePath, outputDir string) error {
	_, err := d.conn.Exec(
		`INSERT INTO runs (run_id, trace_path, output_dir) VALUES (?, ?, ?)`,
		runID, tracePath, outputDir,
	)
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// RecordRunEnd marks a run finished.
func (d *DB) RecordRunEnd(runID string, success bool) error {
	_, err := d.conn.Exec(
		`UPDATE runs SET success = ?, ended_at = datetime('now') WHERE run_id = ?`,
		success, runID,
	)
	if err != nil {
		return fmt.Errorf("record run end: %w", err)
	}
	return nil
}

// RecordStageEvent appends a stage lifecycle event.
func (d *DB) RecordStageEvent(runID, stage, event, status, strategy string, durationMs int64, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO stage_events (run_id, stage, event, status, strategy, duration_ms, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, stage, event, nullable(status), nullable(strategy), durationMs, nullable(detail),
	)
	if err != nil {
		return fmt.Errorf("record stage event: %w", err)
	}
	return nil
}

// RecentRuns returns the newest runs, most recent first.
func (d *DB) RecentRuns(limit int) ([]RunRow, error) {
	rows, err := d.conn.Query(
		`SELECT run_id, trace_path, output_dir, success, started_at, ended_at
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.RunID, &r.TracePath, &r.OutputDir, &r.Success, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StageEvents returns all stage events for one run in order.
func (d *DB) StageEvents(runID string) ([]StageEventRow, error) {
	rows, err := d.conn.Query(
		`SELECT run_id, stage, event, status, strategy, duration_ms, detail, timestamp
		 FROM stage_events WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query stage events: %w", err)
	}
	defer rows.Close()

	var out []StageEventRow
	for rows.Next() {
		var e StageEventRow
		if err := rows.Scan(&e.RunID, &e.Stage, &e.Event, &e.Status, &e.Strategy, &e.DurationMs, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan stage event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
