package thread

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedRecord marks an input line that cannot become a Record.
var ErrMalformedRecord = errors.New("malformed record")

// Reddit fullname prefixes.
const (
	CommentPrefix    = "t1_"
	SubmissionPrefix = "t3_"
)

// RefKind discriminates what a parent reference points at.
type RefKind int

const (
	KindComment RefKind = iota
	KindSubmission
)

func (k RefKind) String() string {
	if k == KindSubmission {
		return "submission"
	}
	return "comment"
}

// ParentRef is a typed parent pointer. ID keeps its fullname prefix.
type ParentRef struct {
	Kind RefKind
	ID   string
}

// Record is one parsed comment. It is never mutated after parsing.
type Record struct {
	ID               string
	Parent           ParentRef
	LinkID           string
	Subreddit        string
	Author           string
	Body             string
	BodyCleaned      *string
	Score            int64
	Controversiality int64
	CreatedUTC       int64
	Distinguished    *string
	Edited           *bool
}

// IsPlaceholder reports whether the row stands for the submission itself
// rather than a comment under it.
func (r *Record) IsPlaceholder() bool {
	return r.ID == r.LinkID
}

// rawRecord mirrors the dump schema. Numeric fields are decoded loosely because
// Pushshift-era dumps mix numbers and numeric strings.
type rawRecord struct {
	ID               *string         `json:"id"`
	ParentID         *string         `json:"parent_id"`
	LinkID           *string         `json:"link_id"`
	Subreddit        string          `json:"subreddit"`
	Author           *string         `json:"author"`
	Body             *string         `json:"body"`
	BodyCleaned      *string         `json:"body_cleaned"`
	Score            json.RawMessage `json:"score"`
	NetVotes         json.RawMessage `json:"net_votes"`
	Controversiality json.RawMessage `json:"controversiality"`
	CreatedUTC       json.RawMessage `json:"created_utc"`
	Distinguished    *string         `json:"distinguished"`
	Edited           json.RawMessage `json:"edited"`
}

// ParseRecord decodes one JSONL line. Every failure wraps ErrMalformedRecord.
func ParseRecord(line []byte) (*Record, error) {
	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	if raw.ID == nil || strings.TrimSpace(*raw.ID) == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	if raw.ParentID == nil || strings.TrimSpace(*raw.ParentID) == "" {
		return nil, fmt.Errorf("%w: missing parent_id", ErrMalformedRecord)
	}
	if raw.LinkID == nil || strings.TrimSpace(*raw.LinkID) == "" {
		return nil, fmt.Errorf("%w: missing link_id", ErrMalformedRecord)
	}
	if isAbsent(raw.CreatedUTC) {
		return nil, fmt.Errorf("%w: missing created_utc", ErrMalformedRecord)
	}

	created, err := parseInt(raw.CreatedUTC)
	if err != nil || created < 0 {
		return nil, fmt.Errorf("%w: invalid created_utc %s", ErrMalformedRecord, string(raw.CreatedUTC))
	}

	parent, err := ParseParentRef(*raw.ParentID)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ID:            NormalizeCommentID(*raw.ID),
		Parent:        parent,
		LinkID:        NormalizeLinkID(*raw.LinkID),
		Subreddit:     raw.Subreddit,
		BodyCleaned:   raw.BodyCleaned,
		CreatedUTC:    created,
		Distinguished: raw.Distinguished,
	}
	if raw.Author != nil {
		rec.Author = *raw.Author
	}
	if raw.Body != nil {
		rec.Body = *raw.Body
	}

	// Optional numerics default to zero rather than failing the record.
	score := raw.Score
	if isAbsent(score) {
		score = raw.NetVotes
	}
	if !isAbsent(score) {
		if v, err := parseInt(score); err == nil {
			rec.Score = v
		}
	}
	if !isAbsent(raw.Controversiality) {
		if v, err := parseInt(raw.Controversiality); err == nil {
			rec.Controversiality = v
		}
	}
	rec.Edited = parseEdited(raw.Edited)

	return rec, nil
}

// ParseParentRef classifies a parent_id by its fullname prefix.
func ParseParentRef(s string) (ParentRef, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, CommentPrefix) && len(s) > len(CommentPrefix):
		return ParentRef{Kind: KindComment, ID: s}, nil
	case strings.HasPrefix(s, SubmissionPrefix) && len(s) > len(SubmissionPrefix):
		return ParentRef{Kind: KindSubmission, ID: s}, nil
	default:
		return ParentRef{}, fmt.Errorf("%w: parent_id %q has no t1_/t3_ prefix", ErrMalformedRecord, s)
	}
}

// NormalizeCommentID ensures a comment id carries a kind prefix. Bare ids get t1_.
func NormalizeCommentID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, CommentPrefix) || strings.HasPrefix(id, SubmissionPrefix) {
		return id
	}
	return CommentPrefix + id
}

// NormalizeLinkID ensures a submission id carries the t3_ prefix.
func NormalizeLinkID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, SubmissionPrefix) {
		return id
	}
	return SubmissionPrefix + id
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// parseInt accepts 123, 123.0 and "123".
func parseInt(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		raw = []byte(strings.TrimSpace(s))
	}
	if v, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %s", raw)
	}
	return int64(f), nil
}

// parseEdited maps the dump's edited field (false or an edit timestamp) to a bool.
func parseEdited(raw json.RawMessage) *bool {
	if isAbsent(raw) {
		return nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &b
	}
	if v, err := parseInt(raw); err == nil {
		edited := v != 0
		return &edited
	}
	return nil
}
