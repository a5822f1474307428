package database

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Run holds the recorded outcome of one collection run.
type Run struct {
	ID          int64
	TargetDate  string
	StartedAt   string
	FinishedAt  *string
	LinksTried  int
	Accepted    int
	Appended    int
	SkipReasons map[string]int
}

// Stats contains aggregate ledger statistics.
type Stats struct {
	TotalRuns     int
	TotalAccepted int
	TotalAppended int
	LastRunDate   string
}

// InsertRun records a completed collection run.
func (db *DB) InsertRun(targetDate string, startedAt time.Time, linksTried, accepted, appended int, skipReasons map[string]int) (int64, error) {
	var reasons *string
	if len(skipReasons) > 0 {
		data, err := json.Marshal(skipReasons)
		if err == nil {
			s := string(data)
			reasons = &s
		}
	}

	result, err := db.conn.Exec(
		`INSERT INTO runs (target_date, started_at, links_tried, accepted, appended, skip_reasons)
		VALUES (?, ?, ?, ?, ?, ?)`,
		targetDate, startedAt.UTC().Format(time.RFC3339), linksTried, accepted, appended, reasons,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetRecentRuns returns the most recent runs, newest first.
func (db *DB) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(
		`SELECT id, target_date, started_at, finished_at, links_tried, accepted, appended, skip_reasons
		FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var reasons sql.NullString
		if err := rows.Scan(&r.ID, &r.TargetDate, &r.StartedAt, &r.FinishedAt,
			&r.LinksTried, &r.Accepted, &r.Appended, &reasons); err != nil {
			return nil, err
		}
		if reasons.Valid {
			json.Unmarshal([]byte(reasons.String), &r.SkipReasons)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetStats returns aggregate run statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	err := db.conn.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(accepted), 0), COALESCE(SUM(appended), 0),
		COALESCE(MAX(target_date), '') FROM runs`,
	).Scan(&s.TotalRuns, &s.TotalAccepted, &s.TotalAppended, &s.LastRunDate)
	if err != nil {
		return nil, err
	}
	return s, nil
}
