package db

import (
	"database/sql"
	"errors"
	"fmt"

	"threadweave/internal/thread"
)

const threadColumns = `link_id, subreddit, comment_count, root_count,
	created_utc_min, created_utc_max, orphan_comments, run_id`

const commentColumns = `link_id, id, parent_id, position, depth, author, body,
	body_cleaned, net_votes, controversiality, created_utc, distinguished, edited`

type scanner interface{ Scan(dest ...any) error }

// scanThreadRow scans a row with threadColumns in order.
func scanThreadRow(s scanner) (ThreadRow, error) {
	var r ThreadRow
	err := s.Scan(&r.LinkID, &r.Subreddit, &r.CommentCount, &r.RootCount,
		&r.CreatedUTCMin, &r.CreatedUTCMax, &r.OrphanComments, &r.RunID)
	return r, err
}

// scanComment scans a row with commentColumns in order.
func scanComment(s scanner) (CommentRow, error) {
	var c CommentRow
	err := s.Scan(&c.LinkID, &c.ID, &c.ParentID, &c.Position, &c.Depth, &c.Author,
		&c.Body, &c.BodyCleaned, &c.NetVotes, &c.Controversiality, &c.CreatedUTC,
		&c.Distinguished, &c.Edited)
	return c, err
}

// ListThreads returns thread summaries in insertion order. An empty subreddit
// matches all; limit <= 0 means no limit.
func (d *DB) ListThreads(subreddit string, limit int) ([]ThreadRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.conn.Query(`
		SELECT `+threadColumns+`
		FROM threads
		WHERE ?1 = '' OR subreddit = ?1 COLLATE NOCASE
		ORDER BY rowid
		LIMIT ?2
	`, subreddit, limit)
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}
	defer rows.Close()

	var out []ThreadRow
	for rows.Next() {
		r, err := scanThreadRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountThreads returns the number of stored threads.
func (d *DB) CountThreads() (int, error) {
	var n int
	if err := d.conn.QueryRow(`SELECT COUNT(*) FROM threads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting threads: %w", err)
	}
	return n, nil
}

// GetThread loads a thread and reassembles its comment tree.
func (d *DB) GetThread(linkID string) (*thread.Thread, error) {
	row := d.conn.QueryRow(`SELECT `+threadColumns+` FROM threads WHERE link_id = ?`, linkID)
	r, err := scanThreadRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("thread %s: %w", linkID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading thread %s: %w", linkID, err)
	}
	return d.assemble(r)
}

// ThreadAt loads the index-th stored thread (zero-based, insertion order).
func (d *DB) ThreadAt(index int) (*thread.Thread, error) {
	row := d.conn.QueryRow(`SELECT `+threadColumns+` FROM threads ORDER BY rowid LIMIT 1 OFFSET ?`, index)
	r, err := scanThreadRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("thread index %d: %w", index, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading thread index %d: %w", index, err)
	}
	return d.assemble(r)
}

// EachThread calls fn for every stored thread in insertion order. A non-nil
// error from fn stops the iteration and is returned.
func (d *DB) EachThread(fn func(*thread.Thread) error) error {
	summaries, err := d.ListThreads("", 0)
	if err != nil {
		return err
	}
	for _, r := range summaries {
		t, err := d.assemble(r)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

// assemble rebuilds the tree of a stored thread. Rows come back ordered by
// depth then position, so every parent exists before its children.
func (d *DB) assemble(r ThreadRow) (*thread.Thread, error) {
	rows, err := d.conn.Query(`
		SELECT `+commentColumns+`
		FROM comments WHERE link_id = ?
		ORDER BY depth, parent_id, position
	`, r.LinkID)
	if err != nil {
		return nil, fmt.Errorf("loading comments of %s: %w", r.LinkID, err)
	}
	defer rows.Close()

	t := &thread.Thread{
		LinkID:         r.LinkID,
		Subreddit:      r.Subreddit,
		CommentCount:   r.CommentCount,
		RootCount:      r.RootCount,
		CreatedUTCMin:  r.CreatedUTCMin,
		CreatedUTCMax:  r.CreatedUTCMax,
		OrphanComments: r.OrphanComments,
		Roots:          []*thread.Node{},
	}
	nodes := make(map[string]*thread.Node, r.CommentCount)
	var pending []CommentRow
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range pending {
		n := &thread.Node{
			Record: &thread.Record{
				ID:               c.ID,
				LinkID:           c.LinkID,
				Subreddit:        r.Subreddit,
				Author:           c.Author,
				Body:             c.Body,
				BodyCleaned:      c.BodyCleaned,
				Score:            c.NetVotes,
				Controversiality: c.Controversiality,
				CreatedUTC:       c.CreatedUTC,
				Distinguished:    c.Distinguished,
				Edited:           c.Edited,
			},
			Depth: c.Depth,
		}
		nodes[c.ID] = n
		if c.ParentID == nil {
			t.Roots = append(t.Roots, n)
			continue
		}
		parent, ok := nodes[*c.ParentID]
		if !ok {
			return nil, fmt.Errorf("comment %s of %s: parent %s not stored", c.ID, r.LinkID, *c.ParentID)
		}
		parent.Children = append(parent.Children, n)
	}
	return t, nil
}
