package db

import "fmt"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	input TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER,
	lines_read INTEGER NOT NULL DEFAULT 0,
	records_parsed INTEGER NOT NULL DEFAULT 0,
	malformed INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	submissions_seen INTEGER NOT NULL DEFAULT 0,
	submissions_emitted INTEGER NOT NULL DEFAULT 0,
	submissions_filtered INTEGER NOT NULL DEFAULT 0,
	comments_emitted INTEGER NOT NULL DEFAULT 0,
	removed INTEGER NOT NULL DEFAULT 0,
	orphans INTEGER NOT NULL DEFAULT 0,
	cycles INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS threads (
	link_id TEXT PRIMARY KEY,
	subreddit TEXT NOT NULL DEFAULT '',
	comment_count INTEGER NOT NULL,
	root_count INTEGER NOT NULL,
	created_utc_min INTEGER,
	created_utc_max INTEGER,
	orphan_comments INTEGER NOT NULL DEFAULT 0,
	run_id TEXT REFERENCES runs(id) ON DELETE SET NULL
);
CREATE TABLE IF NOT EXISTS comments (
	link_id TEXT NOT NULL REFERENCES threads(link_id) ON DELETE CASCADE,
	id TEXT NOT NULL,
	parent_id TEXT,
	position INTEGER NOT NULL,
	depth INTEGER NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	body_cleaned TEXT,
	net_votes INTEGER NOT NULL DEFAULT 0,
	controversiality INTEGER NOT NULL DEFAULT 0,
	created_utc INTEGER NOT NULL,
	distinguished TEXT,
	edited INTEGER,
	PRIMARY KEY (link_id, id)
);
CREATE INDEX IF NOT EXISTS idx_threads_subreddit ON threads(subreddit);
`

func (d *DB) migrate() error {
	if _, err := d.conn.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
