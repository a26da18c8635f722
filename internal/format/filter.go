// Package format turns a parsed record.Record into styled output bytes on
// top of the styling engine (internal/style).
package format

import "github.com/bmatcuk/doublestar/v4"

// Setting is one node's include/exclude disposition in a field filter
// tree.
type Setting int

const (
	Unspecified Setting = iota
	Include
	Exclude
)

// Apply returns child if it overrides this setting, otherwise keeps it;
// descending the tree accumulates the effective disposition top-down.
func (s Setting) Apply(child Setting) Setting {
	if child == Unspecified {
		return s
	}
	return child
}

// patternChild pairs a wildcard pattern (prefix*, *contains*, *suffix, or a
// literal) with the node it resolves to.
type patternChild struct {
	pattern string
	node    *FilterNode
}

// FilterNode is one node of the include/exclude key filter tree: a
// cumulative setting plus literal and wildcard children. An Exclude at a
// leaf hides the field; an Include deeper down re-includes a subtree.
type FilterNode struct {
	setting  Setting
	literal  map[string]*FilterNode
	patterns []patternChild
}

func newFilterNode() *FilterNode {
	return &FilterNode{literal: make(map[string]*FilterNode)}
}

// Get returns the child node matching key, trying literal children first
// (O(1)) and falling back to registered wildcard patterns in insertion
// order.
func (n *FilterNode) Get(key string) (*FilterNode, bool) {
	if n == nil {
		return nil, false
	}
	if c, ok := n.literal[key]; ok {
		return c, true
	}
	for _, pc := range n.patterns {
		if ok, _ := doublestar.Match(pc.pattern, key); ok {
			return pc.node, true
		}
	}
	return nil, false
}

// IsLeaf reports whether n has no children of its own, meaning a lookup
// that resolves to n cannot be refined any further.
func (n *FilterNode) IsLeaf() bool {
	return n == nil || (len(n.literal) == 0 && len(n.patterns) == 0)
}

func (n *FilterNode) child(segment string) *FilterNode {
	if isWildcard(segment) {
		for _, pc := range n.patterns {
			if pc.pattern == segment {
				return pc.node
			}
		}
		c := newFilterNode()
		n.patterns = append(n.patterns, patternChild{pattern: segment, node: c})
		return c
	}
	if c, ok := n.literal[segment]; ok {
		return c
	}
	c := newFilterNode()
	n.literal[segment] = c
	return c
}

func isWildcard(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '*' {
			return true
		}
	}
	return false
}

// BuildFilter constructs a key filter tree from dotted-path patterns,
// e.g. "user.email" or "req.header.*"; each path segment addresses one
// nesting level of a record's fields.
func BuildFilter(includes, excludes []string) *FilterNode {
	root := newFilterNode()
	apply := func(paths []string, setting Setting) {
		for _, path := range paths {
			node := root
			for _, segment := range splitPath(path) {
				if segment == "" {
					continue
				}
				node = node.child(segment)
			}
			node.setting = setting
		}
	}
	apply(includes, Include)
	apply(excludes, Exclude)
	return root
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	segs = append(segs, path[start:])
	return segs
}

// resolve computes the next (child, setting, leaf) triple for descending
// into key from parent under the running cumulative setting.
func resolve(parent *FilterNode, key string, setting Setting) (child *FilterNode, next Setting, leaf bool) {
	if parent == nil {
		return nil, setting, true
	}
	next = setting.Apply(parent.setting)
	if c, ok := parent.Get(key); ok {
		return c, next.Apply(c.setting), c.IsLeaf()
	}
	return nil, next, true
}
