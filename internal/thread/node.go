package thread

import (
	"bytes"
	"encoding/json"
)

// Node is a comment placed in a reply tree. Children are owned exclusively
// by their parent node.
type Node struct {
	*Record
	Depth    int
	Children []*Node
}

func newNode(r *Record) *Node {
	return &Node{Record: r}
}

// nodeJSON is the emitted shape of a node.
type nodeJSON struct {
	ID               string  `json:"id"`
	Author           string  `json:"author"`
	Body             string  `json:"body"`
	BodyCleaned      *string `json:"body_cleaned"`
	NetVotes         int64   `json:"net_votes"`
	Controversiality int64   `json:"controversiality"`
	CreatedUTC       int64   `json:"created_utc"`
	Depth            int     `json:"depth"`
	Distinguished    *string `json:"distinguished,omitempty"`
	Edited           *bool   `json:"edited,omitempty"`
	Children         []*Node `json:"children"`
}

// MarshalJSON emits a node with an empty children array at leaves. Bodies
// are written without HTML escaping.
func (n *Node) MarshalJSON() ([]byte, error) {
	children := n.Children
	if children == nil {
		children = []*Node{}
	}
	out := nodeJSON{
		Depth:    n.Depth,
		Children: children,
	}
	if n.Record != nil {
		out.ID = n.ID
		out.Author = n.Author
		out.Body = n.Body
		out.BodyCleaned = n.BodyCleaned
		out.NetVotes = n.Score
		out.Controversiality = n.Controversiality
		out.CreatedUTC = n.CreatedUTC
		out.Distinguished = n.Distinguished
		out.Edited = n.Edited
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON reads a node written by MarshalJSON. Parent references are
// not part of the emitted shape and stay zero.
func (n *Node) UnmarshalJSON(data []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	n.Record = &Record{
		ID:               in.ID,
		Author:           in.Author,
		Body:             in.Body,
		BodyCleaned:      in.BodyCleaned,
		Score:            in.NetVotes,
		Controversiality: in.Controversiality,
		CreatedUTC:       in.CreatedUTC,
		Distinguished:    in.Distinguished,
		Edited:           in.Edited,
	}
	n.Depth = in.Depth
	n.Children = in.Children
	return nil
}

// Walk visits every node under roots in pre-order (parent before children,
// siblings in order) without recursion. Returning false from fn stops the walk.
func Walk(roots []*Node, fn func(*Node) bool) {
	stack := make([]*Node, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			return
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Count returns the number of nodes reachable from roots.
func Count(roots []*Node) int {
	total := 0
	Walk(roots, func(*Node) bool {
		total++
		return true
	})
	return total
}
