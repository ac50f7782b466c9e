// Package render formats reconstructed threads as indented text trees.
package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"threadweave/internal/thread"
)

// DefaultMaxBodyChars is the body truncation used by view and export.
const DefaultMaxBodyChars = 140

const (
	lineWidth    = 100
	minWrapWidth = 20
	timeLayout   = "2006-01-02 15:04:05 UTC"
)

// Options controls rendering.
type Options struct {
	MaxBodyChars int // <= 0 means DefaultMaxBodyChars
}

// HumanTime formats a unix timestamp in UTC.
func HumanTime(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(timeLayout)
}

// Thread renders the header, an underline and every root with its replies.
func Thread(t *thread.Thread, opts Options) string {
	if opts.MaxBodyChars <= 0 {
		opts.MaxBodyChars = DefaultMaxBodyChars
	}
	header := Header(t)
	lines := []string{header, strings.Repeat("=", utf8.RuneCountInString(header))}
	for i, root := range t.Roots {
		lines = append(lines, "", fmt.Sprintf("Root #%d", i+1))
		lines = appendTree(lines, root, opts)
	}
	return strings.Join(lines, "\n")
}

// Header is the one-line summary of a thread.
func Header(t *thread.Thread) string {
	span := "no comments"
	if t.CreatedUTCMin != nil && t.CreatedUTCMax != nil {
		span = HumanTime(*t.CreatedUTCMin) + " → " + HumanTime(*t.CreatedUTCMax)
	}
	return fmt.Sprintf("Thread %s | subreddit=%s | comments=%d | roots=%d | %s | orphans=%d",
		t.LinkID, t.Subreddit, t.CommentCount, t.RootCount, span, t.OrphanComments)
}

// appendTree renders root and its descendants. Depth comes from the tree
// position, not the stored field, so hand-built trees render correctly.
func appendTree(lines []string, root *thread.Node, opts Options) []string {
	type frame struct {
		node  *thread.Node
		depth int
	}
	stack := []frame{{root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		lines = append(lines, comment(f.node, f.depth, opts)...)
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Children[i], f.depth + 1})
		}
	}
	return lines
}

func comment(n *thread.Node, depth int, opts Options) []string {
	indent := strings.Repeat("  ", depth)
	author := n.Author
	if author == "" {
		author = "[unknown]"
	}
	lines := []string{fmt.Sprintf("%s- %s | net votes=%d | %s", indent, author, n.Score, HumanTime(n.CreatedUTC))}

	body := FormatBody(n.Body, opts.MaxBodyChars)
	if body == "" {
		return lines
	}
	width := lineWidth - len(indent)
	if width < minWrapWidth {
		width = minWrapWidth
	}
	for _, l := range Wrap(body, width) {
		lines = append(lines, indent+"  "+l)
	}
	return lines
}

// FormatBody flattens newlines and truncates to maxChars runes with an
// ellipsis.
func FormatBody(body string, maxChars int) string {
	body = strings.TrimSpace(strings.ReplaceAll(body, "\n", " "))
	if body == "" {
		return ""
	}
	runes := []rune(body)
	if len(runes) <= maxChars {
		return body
	}
	cut := maxChars - 3
	if cut < 0 {
		cut = 0
	}
	return strings.TrimRight(string(runes[:cut]), " \t") + "..."
}

// Wrap breaks text into lines of at most width runes on whitespace. Words
// longer than width are split.
func Wrap(text string, width int) []string {
	var lines []string
	var cur []rune
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > width {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		if len(w) == 0 {
			continue
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, w...)
		case len(cur)+1+len(w) <= width:
			cur = append(append(cur, ' '), w...)
		default:
			lines = append(lines, string(cur))
			cur = append([]rune(nil), w...)
		}
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

// SanitizeFilename keeps letters, digits, '-' and '_' and maps everything
// else to '_'.
func SanitizeFilename(linkID string) string {
	var b strings.Builder
	for _, r := range linkID {
		if r == '-' || r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "thread"
	}
	return b.String()
}
