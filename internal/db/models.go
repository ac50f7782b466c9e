package db

// ThreadRow represents a row in the threads table
type ThreadRow struct {
	LinkID         string  `json:"link_id"`
	Subreddit      string  `json:"subreddit"`
	CommentCount   int     `json:"comment_count"`
	RootCount      int     `json:"root_count"`
	CreatedUTCMin  *int64  `json:"created_utc_min"`
	CreatedUTCMax  *int64  `json:"created_utc_max"`
	OrphanComments int     `json:"orphan_comments"`
	RunID          *string `json:"run_id"`
}

// CommentRow represents a row in the comments table. ParentID is nil for
// roots; Position is the index among siblings.
type CommentRow struct {
	LinkID           string
	ID               string
	ParentID         *string
	Position         int
	Depth            int
	Author           string
	Body             string
	BodyCleaned      *string
	NetVotes         int64
	Controversiality int64
	CreatedUTC       int64
	Distinguished    *string
	Edited           *bool
}

// Run represents a row in the runs table: one reconstruct invocation.
type Run struct {
	ID         string `json:"id"`
	Input      string `json:"input"`
	StartedAt  int64  `json:"started_at"`  // Unix millis
	FinishedAt *int64 `json:"finished_at"` // Unix millis

	LinesRead           int64 `json:"lines_read"`
	RecordsParsed       int64 `json:"records_parsed"`
	Malformed           int64 `json:"malformed"`
	Skipped             int64 `json:"skipped"`
	SubmissionsSeen     int64 `json:"submissions_seen"`
	SubmissionsEmitted  int64 `json:"submissions_emitted"`
	SubmissionsFiltered int64 `json:"submissions_filtered"`
	CommentsEmitted     int64 `json:"comments_emitted"`
	Removed             int64 `json:"removed"`
	Orphans             int64 `json:"orphans"`
	Cycles              int64 `json:"cycles"`
}
