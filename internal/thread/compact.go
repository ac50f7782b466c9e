package thread

import "strings"

// DefaultPlaceholders are the body markers Reddit leaves behind when a
// comment's content is gone.
var DefaultPlaceholders = []string{"[deleted]", "[removed]"}

// LivenessFunc decides whether a record's content is still available.
type LivenessFunc func(*Record) bool

// Text returns the content used for liveness: the cleaned body when it is
// present and non-blank, otherwise the raw body. The result is trimmed.
func Text(r *Record) string {
	if r.BodyCleaned != nil {
		if s := strings.TrimSpace(*r.BodyCleaned); s != "" {
			return s
		}
	}
	return strings.TrimSpace(r.Body)
}

// Liveness builds a predicate that treats empty text and any of the given
// markers as dead. A nil slice means DefaultPlaceholders.
func Liveness(placeholders []string) LivenessFunc {
	if placeholders == nil {
		placeholders = DefaultPlaceholders
	}
	dead := make(map[string]struct{}, len(placeholders))
	for _, p := range placeholders {
		dead[strings.TrimSpace(p)] = struct{}{}
	}
	return func(r *Record) bool {
		text := Text(r)
		if text == "" {
			return false
		}
		_, isDead := dead[text]
		return !isDead
	}
}

// compactFrame is one level of the explicit post-order stack.
type compactFrame struct {
	node *Node // nil for the root level
	in   []*Node
	next int
	out  []*Node
}

// Compact removes dead nodes from the forest. Each dead node is replaced, at
// its own position, by its already-compacted children, so chains of dead
// ancestors collapse until a live ancestor or the root level is reached.
// Live nodes get their Children rewritten in place. It returns the new root
// sequence and the number of nodes removed.
func Compact(roots []*Node, live LivenessFunc) ([]*Node, int) {
	removed := 0
	stack := []*compactFrame{{in: roots}}
	for {
		top := stack[len(stack)-1]
		if top.next < len(top.in) {
			child := top.in[top.next]
			top.next++
			stack = append(stack, &compactFrame{node: child, in: child.Children})
			continue
		}

		stack = stack[:len(stack)-1]
		if top.node == nil {
			return top.out, removed
		}
		parent := stack[len(stack)-1]
		if live(top.node.Record) {
			top.node.Children = top.out
			parent.out = append(parent.out, top.node)
			continue
		}
		removed++
		parent.out = append(parent.out, top.out...)
	}
}
