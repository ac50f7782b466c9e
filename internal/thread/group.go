package thread

// Group is every buffered record of one submission, in arrival order.
type Group struct {
	LinkID  string
	Records []*Record
}

// Grouper partitions a record stream by submission. It is not safe for
// concurrent use; the reading goroutine owns it.
type Grouper struct {
	maxSubmissions int
	open           map[string]*Group
	order          []string            // first-seen order of open link ids
	known          map[string]struct{} // every link id ever opened
	full           bool
}

// NewGrouper creates a Grouper. maxSubmissions <= 0 means no cap.
func NewGrouper(maxSubmissions int) *Grouper {
	return &Grouper{
		maxSubmissions: maxSubmissions,
		open:           make(map[string]*Group),
		known:          make(map[string]struct{}),
	}
}

// Add buffers rec under its submission. It returns false when the record would
// open a submission beyond the configured cap; the caller should stop reading.
// Records for open submissions, and for closed ones that come back, are always
// accepted.
func (g *Grouper) Add(rec *Record) bool {
	grp, ok := g.open[rec.LinkID]
	if !ok {
		_, reopened := g.known[rec.LinkID]
		if !reopened && g.maxSubmissions > 0 && len(g.known) >= g.maxSubmissions {
			g.full = true
			return false
		}
		grp = &Group{LinkID: rec.LinkID}
		g.open[rec.LinkID] = grp
		g.order = append(g.order, rec.LinkID)
		g.known[rec.LinkID] = struct{}{}
	}
	grp.Records = append(grp.Records, rec)
	return true
}

// Close releases the group for linkID. A closed submission that receives more
// records later is reopened as a fresh group.
func (g *Grouper) Close(linkID string) (*Group, bool) {
	grp, ok := g.open[linkID]
	if !ok {
		return nil, false
	}
	delete(g.open, linkID)
	for i, id := range g.order {
		if id == linkID {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return grp, true
}

// Drain releases every open group in first-seen order and resets the buffer.
func (g *Grouper) Drain() []*Group {
	groups := make([]*Group, 0, len(g.order))
	for _, id := range g.order {
		groups = append(groups, g.open[id])
	}
	g.open = make(map[string]*Group)
	g.order = nil
	return groups
}

// Open returns the number of submissions currently buffered.
func (g *Grouper) Open() int { return len(g.open) }

// Seen returns the number of distinct submissions opened so far.
func (g *Grouper) Seen() int { return len(g.known) }

// Full reports whether the submission cap refused a record.
func (g *Grouper) Full() bool { return g.full }
