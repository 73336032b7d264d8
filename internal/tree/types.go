package tree

// Kind distinguishes files from directories.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Node is one entry in a folder tree.
type Node struct {
	Name         string  `json:"name"`
	Path         string  `json:"path"`
	RelativePath string  `json:"relative_path"` // "." for the root, root-stripped otherwise
	Type         Kind    `json:"type"`
	Children     []*Node `json:"children"`      // empty, never nil, for files and unlisted directories
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.Type == KindDirectory
}

// Count returns the number of nodes in the subtree rooted at n, n included.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, child := range n.Children {
		total += child.Count()
	}
	return total
}

// Walk visits n and its descendants depth-first in child order. Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Warning records a directory whose contents could not be listed.
type Warning struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Options tunes tree building.
type Options struct {
	// RespectGitignore prunes entries matched by the root's .gitignore.
	RespectGitignore bool

	// ExtraSkip adds names (or root-relative paths when they contain a
	// slash) to the built-in skip list.
	ExtraSkip []string

	// MaxDepth limits directory descent. Zero selects DefaultMaxDepth.
	MaxDepth int
}

// DefaultMaxDepth bounds recursion when Options.MaxDepth is unset.
const DefaultMaxDepth = 64
