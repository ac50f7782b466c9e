package db

import (
	"database/sql"
	"errors"
	"fmt"
)

const runColumns = `id, input, started_at, finished_at, lines_read, records_parsed,
	malformed, skipped, submissions_seen, submissions_emitted, submissions_filtered,
	comments_emitted, removed, orphans, cycles`

func scanRun(s scanner) (Run, error) {
	var r Run
	err := s.Scan(&r.ID, &r.Input, &r.StartedAt, &r.FinishedAt, &r.LinesRead,
		&r.RecordsParsed, &r.Malformed, &r.Skipped, &r.SubmissionsSeen,
		&r.SubmissionsEmitted, &r.SubmissionsFiltered, &r.CommentsEmitted,
		&r.Removed, &r.Orphans, &r.Cycles)
	return r, err
}

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.conn.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a single run by id or id prefix.
func (d *DB) GetRun(id string) (*Run, error) {
	row := d.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ORDER BY started_at DESC LIMIT 1`, id+"%")
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
