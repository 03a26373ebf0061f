package ui

import (
	"fmt"
	"sync"
)

// Kind is the type of a tree node as rendered in its data-type attribute.
type Kind int

const (
	File Kind = iota
	Directory
)

// ParseKind maps "directory" to Directory and anything else to File.
func ParseKind(s string) Kind {
	if s == "directory" {
		return Directory
	}
	return File
}

func (k Kind) String() string {
	if k == Directory {
		return "directory"
	}
	return "file"
}

// Expansion is the state of one node's children group.
type Expansion int

const (
	Collapsed Expansion = iota
	Expanded
)

const (
	GlyphExpand   = "+"
	GlyphCollapse = "−"
)

// Glyph is the affordance text for the state: "+" while collapsed, "−"
// while expanded.
func (e Expansion) Glyph() string {
	if e == Expanded {
		return GlyphCollapse
	}
	return GlyphExpand
}

func (e Expansion) Toggle() Expansion {
	if e == Expanded {
		return Collapsed
	}
	return Expanded
}

// Visible reports whether the children group is shown.
func (e Expansion) Visible() bool { return e == Expanded }

func (e Expansion) String() string {
	switch e {
	case Collapsed:
		return "collapsed"
	case Expanded:
		return "expanded"
	default:
		return fmt.Sprintf("Expansion(%d)", int(e))
	}
}

// Node is the model of one rendered tree entry.
type Node struct {
	Path        string
	Kind        Kind
	HasChildren bool
	State       Expansion
}

// Tree holds the expansion state of every node on the page.
type Tree struct {
	mu    sync.Mutex
	nodes map[string]*Node
}

func NewTree() *Tree {
	return &Tree{nodes: map[string]*Node{}}
}

// Add registers a node in the collapsed state. Registering a path again
// resets it.
func (t *Tree) Add(path string, kind Kind, hasChildren bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[path] = &Node{Path: path, Kind: kind, HasChildren: hasChildren}
}

func (t *Tree) Node(path string) (Node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[path]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}

// Click is a click on a node's content area.
type Click struct {
	Path string
	// OnAffordance is set when the click landed on the expand/collapse
	// control.
	OnAffordance bool
}

// ClickResult tells the page what to render. State and Glyph describe the
// node after the click.
type ClickResult struct {
	Triggered       bool
	Toggled         bool
	State           Expansion
	Glyph           string
	StopPropagation bool
}

// Click applies one click. It toggles when the click is on the affordance or
// the node is a directory, and the node has a children group. A triggered
// click always stops propagation so ancestors do not react to it.
func (t *Tree) Click(c Click) ClickResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[c.Path]
	if !ok {
		return ClickResult{State: Collapsed, Glyph: Collapsed.Glyph()}
	}
	res := ClickResult{State: n.State, Glyph: n.State.Glyph()}
	if !c.OnAffordance && n.Kind != Directory {
		return res
	}
	res.Triggered = true
	res.StopPropagation = true
	if !n.HasChildren {
		return res
	}
	n.State = n.State.Toggle()
	res.Toggled = true
	res.State = n.State
	res.Glyph = n.State.Glyph()
	return res
}
