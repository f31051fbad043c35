// Package store persists export runs and their progress to SQLite so the
// API can report on past and in-flight runs.
package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"accident-pipeline/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

var db *sql.DB

// InitDB opens the database and creates tables if they do not exist.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			spec TEXT,
			status TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS run_errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			stage TEXT,
			error_message TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS stage_progress (
			run_id TEXT,
			stage TEXT,
			status TEXT,
			started_at DATETIME,
			finished_at DATETIME,
			records INTEGER,
			PRIMARY KEY (run_id, stage)
		);`,
		`CREATE TABLE IF NOT EXISTS run_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			stage TEXT,
			level TEXT,
			message TEXT,
			fields TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS run_summaries (
			run_id TEXT PRIMARY KEY,
			fetched INTEGER,
			pages INTEGER,
			kept INTEGER,
			excluded_by_code INTEGER,
			outside_window INTEGER,
			min_date TEXT,
			max_date TEXT,
			output_path TEXT,
			complete INTEGER
		);`,
	}
	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores a new export run.
func SaveRun(runID string, spec model.ExportJobSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO runs (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, specJSON, "pending", now, now)
	return err
}

// UpdateRunStatus updates a run's status.
func UpdateRunStatus(runID string, status string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// SaveRunError records an error for a run.
func SaveRunError(runID, stage string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.Exec(`INSERT INTO run_errors (run_id, stage, error_message, created_at) VALUES (?, ?, ?, ?)`,
		runID, stage, err.Error(), now)
	return e
}

// SaveStageProgress upserts progress for one stage of a run.
func SaveStageProgress(runID, stage, status string, startedAt, finishedAt *time.Time, records int) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO stage_progress (run_id, stage, status, started_at, finished_at, records)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stage, status, startedAt, finishedAt, records)
	return err
}

// SaveRunLog appends a structured log entry for a run.
func SaveRunLog(runID, stage, level, message string, fields map[string]interface{}) error {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO run_logs (run_id, stage, level, message, fields, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stage, level, message, fieldsJSON, now)
	return err
}

// SaveRunSummary upserts the final outcome of a run.
func SaveRunSummary(runID string, s model.RunSummary) error {
	complete := 0
	if s.Complete {
		complete = 1
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO run_summaries
		(run_id, fetched, pages, kept, excluded_by_code, outside_window, min_date, max_date, output_path, complete)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, s.Fetched, s.Pages, s.Kept, s.ExcludedByCode, s.OutsideWindow,
		s.MinDate.Format("2006-01-02"), s.MaxDate.Format("2006-01-02"), s.OutputPath, complete)
	return err
}

// ListRuns returns all runs with basic info.
func ListRuns() ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT id, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []map[string]interface{}
	for rows.Next() {
		var id, status string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, map[string]interface{}{
			"id":        id,
			"status":    status,
			"createdAt": createdAt,
			"updatedAt": updatedAt,
		})
	}
	return runs, rows.Err()
}

// GetRun fetches the full run spec and status.
func GetRun(runID string) (map[string]interface{}, error) {
	var specJSON string
	var status string
	var createdAt, updatedAt time.Time

	err := db.QueryRow(`SELECT spec, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&specJSON, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var spec model.ExportJobSpec
	if err := json.Unmarshal([]byte(specJSON), &spec); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":        runID,
		"spec":      spec,
		"status":    status,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
	}, nil
}

// GetRunErrors returns all errors recorded for a run.
func GetRunErrors(runID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT stage, error_message, created_at FROM run_errors WHERE run_id = ? ORDER BY created_at`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errors []map[string]interface{}
	for rows.Next() {
		var stage, message string
		var createdAt time.Time
		if err := rows.Scan(&stage, &message, &createdAt); err != nil {
			return nil, err
		}
		errors = append(errors, map[string]interface{}{
			"stage":     stage,
			"message":   message,
			"createdAt": createdAt,
		})
	}
	return errors, rows.Err()
}

// GetRunLogs returns all log entries recorded for a run.
func GetRunLogs(runID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT stage, level, message, fields, created_at FROM run_logs WHERE run_id = ? ORDER BY created_at`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []map[string]interface{}
	for rows.Next() {
		var stage, level, message, fieldsJSON string
		var createdAt time.Time
		if err := rows.Scan(&stage, &level, &message, &fieldsJSON, &createdAt); err != nil {
			return nil, err
		}
		var fields map[string]interface{}
		json.Unmarshal([]byte(fieldsJSON), &fields)
		logs = append(logs, map[string]interface{}{
			"stage":     stage,
			"level":     level,
			"message":   message,
			"fields":    fields,
			"createdAt": createdAt,
		})
	}
	return logs, rows.Err()
}

// GetRunProgress returns per-stage progress for a run.
func GetRunProgress(runID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT stage, status, started_at, finished_at, records FROM stage_progress WHERE run_id = ? ORDER BY started_at`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var progress []map[string]interface{}
	for rows.Next() {
		var stage, status string
		var startedAt, finishedAt sql.NullTime
		var records int
		if err := rows.Scan(&stage, &status, &startedAt, &finishedAt, &records); err != nil {
			return nil, err
		}
		entry := map[string]interface{}{
			"stage":   stage,
			"status":  status,
			"records": records,
		}
		if startedAt.Valid {
			entry["startedAt"] = startedAt.Time
		}
		if finishedAt.Valid {
			entry["finishedAt"] = finishedAt.Time
		}
		progress = append(progress, entry)
	}
	return progress, rows.Err()
}

// GetRunSummary returns the persisted outcome of a run.
func GetRunSummary(runID string) (map[string]interface{}, error) {
	var fetched, pages, kept, excluded, outside, complete int
	var minDate, maxDate, outputPath string

	err := db.QueryRow(`SELECT fetched, pages, kept, excluded_by_code, outside_window, min_date, max_date, output_path, complete
		FROM run_summaries WHERE run_id = ?`, runID).
		Scan(&fetched, &pages, &kept, &excluded, &outside, &minDate, &maxDate, &outputPath, &complete)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"runId":          runID,
		"fetched":        fetched,
		"pages":          pages,
		"kept":           kept,
		"excludedByCode": excluded,
		"outsideWindow":  outside,
		"minDate":        minDate,
		"maxDate":        maxDate,
		"outputPath":     outputPath,
		"complete":       complete == 1,
	}, nil
}
