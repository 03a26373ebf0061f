package library

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type NodeType string

const (
	TypeDirectory NodeType = "directory"
	TypeFile      NodeType = "file"
)

// Node is one entry of the directory tree.
type Node struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Type     NodeType      `json:"type"`
	Duration time.Duration `json:"duration,omitempty"`
	Children []*Node       `json:"children,omitempty"`
}

func (n *Node) IsDir() bool { return n.Type == TypeDirectory }

// Tree builds the recursive structure below rel. Children are sorted
// directories first, then by case-insensitive name. Symlinked directories are
// listed but not descended into.
func (l *Library) Tree(rel string) (*Node, error) {
	abs, err := l.ValidateDir(rel)
	if err != nil {
		return nil, err
	}
	return l.tree(abs), nil
}

func (l *Library) tree(abs string) *Node {
	name := filepath.Base(abs)
	if abs == l.root || name == "." || name == string(filepath.Separator) {
		name = "Root"
	}
	n := &Node{Name: name, Path: l.rel(abs), Type: TypeDirectory}
	ents, err := os.ReadDir(abs)
	if err != nil {
		return n
	}
	for _, e := range ents {
		childAbs := filepath.Join(abs, e.Name())
		if l.Hidden(childAbs) {
			continue
		}
		switch {
		case e.IsDir():
			n.Children = append(n.Children, l.tree(childAbs))
		case e.Type()&os.ModeSymlink != 0:
			if st, err := os.Stat(childAbs); err == nil && st.IsDir() {
				n.Children = append(n.Children, &Node{Name: e.Name(), Path: l.rel(childAbs), Type: TypeDirectory})
			}
		case e.Type().IsRegular() && l.IsAudio(e.Name()):
			f := &Node{Name: e.Name(), Path: l.rel(childAbs), Type: TypeFile}
			if l.probe != nil {
				f.Duration = l.probe(childAbs)
			}
			n.Children = append(n.Children, f)
		}
	}
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	return n
}
