package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"threadweave/internal/thread"
)

// NewRun starts a run ledger entry with a fresh UUID. The row is written by
// SaveRun.
func NewRun(input string) Run {
	return Run{
		ID:        uuid.NewString(),
		Input:     input,
		StartedAt: time.Now().UnixMilli(),
	}
}

// SaveRun inserts or updates a run ledger row.
func (d *DB) SaveRun(r Run) error {
	_, err := d.conn.Exec(`
		INSERT INTO runs (id, input, started_at, finished_at, lines_read, records_parsed,
		                  malformed, skipped, submissions_seen, submissions_emitted,
		                  submissions_filtered, comments_emitted, removed, orphans, cycles)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			lines_read = excluded.lines_read,
			records_parsed = excluded.records_parsed,
			malformed = excluded.malformed,
			skipped = excluded.skipped,
			submissions_seen = excluded.submissions_seen,
			submissions_emitted = excluded.submissions_emitted,
			submissions_filtered = excluded.submissions_filtered,
			comments_emitted = excluded.comments_emitted,
			removed = excluded.removed,
			orphans = excluded.orphans,
			cycles = excluded.cycles
	`, r.ID, r.Input, r.StartedAt, r.FinishedAt, r.LinesRead, r.RecordsParsed,
		r.Malformed, r.Skipped, r.SubmissionsSeen, r.SubmissionsEmitted,
		r.SubmissionsFiltered, r.CommentsEmitted, r.Removed, r.Orphans, r.Cycles)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", r.ID, err)
	}
	return nil
}

// SaveThread stores a reconstructed thread and its comment tree in one
// transaction, replacing any earlier copy of the same submission.
// runID may be empty.
func (d *DB) SaveThread(t *thread.Thread, runID string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"comments", "threads"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE link_id = ?`, t.LinkID); err != nil {
			return fmt.Errorf("replacing thread %s: %w", t.LinkID, err)
		}
	}
	var run any
	if runID != "" {
		run = runID
	}
	_, err = tx.Exec(`
		INSERT INTO threads (link_id, subreddit, comment_count, root_count,
		                     created_utc_min, created_utc_max, orphan_comments, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.LinkID, t.Subreddit, t.CommentCount, t.RootCount,
		t.CreatedUTCMin, t.CreatedUTCMax, t.OrphanComments, run)
	if err != nil {
		return fmt.Errorf("inserting thread %s: %w", t.LinkID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO comments (link_id, id, parent_id, position, depth, author, body,
		                      body_cleaned, net_votes, controversiality, created_utc,
		                      distinguished, edited)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing comment insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range flatten(t) {
		if err := insertComment(stmt, row); err != nil {
			return fmt.Errorf("inserting comment %s: %w", row.ID, err)
		}
	}
	return tx.Commit()
}

func insertComment(stmt *sql.Stmt, c CommentRow) error {
	_, err := stmt.Exec(c.LinkID, c.ID, c.ParentID, c.Position, c.Depth, c.Author,
		c.Body, c.BodyCleaned, c.NetVotes, c.Controversiality, c.CreatedUTC,
		c.Distinguished, c.Edited)
	return err
}

// flatten lists the comments of t with their parent and sibling position.
func flatten(t *thread.Thread) []CommentRow {
	type frame struct {
		node   *thread.Node
		parent *string
		pos    int
	}
	stack := make([]frame, 0, len(t.Roots))
	for i := len(t.Roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: t.Roots[i], pos: i})
	}

	rows := make([]CommentRow, 0, t.CommentCount)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := f.node
		rows = append(rows, CommentRow{
			LinkID:           t.LinkID,
			ID:               n.ID,
			ParentID:         f.parent,
			Position:         f.pos,
			Depth:            n.Depth,
			Author:           n.Author,
			Body:             n.Body,
			BodyCleaned:      n.BodyCleaned,
			NetVotes:         n.Score,
			Controversiality: n.Controversiality,
			CreatedUTC:       n.CreatedUTC,
			Distinguished:    n.Distinguished,
			Edited:           n.Edited,
		})
		id := n.ID
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: n.Children[i], parent: &id, pos: i})
		}
	}
	return rows
}

// ThreadSink adapts the store to the pipeline's sink interface, tagging
// every saved thread with runID.
type ThreadSink struct {
	DB    *DB
	RunID string
}

// WriteThread saves t.
func (s *ThreadSink) WriteThread(t *thread.Thread) error {
	return s.DB.SaveThread(t, s.RunID)
}
