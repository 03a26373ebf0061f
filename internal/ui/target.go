// Package ui is the interaction model of the browse page: the delete and move
// dialogs, the destination list, the tree expansion state and the flash
// banner timer. It has no DOM dependency; cmd/randomfile-web binds it to the
// rendered markup.
package ui

import "strings"

// Target is the file a dialog acts on.
type Target struct {
	Path  string
	Label string
}

func NewTarget(path string) Target {
	return Target{Path: path, Label: Label(path)}
}

// Label returns the text after the last path separator, or path unchanged
// when it has none. Both '/' and '\' count as separators.
func Label(path string) string {
	i := strings.LastIndexAny(path, `/\`)
	if i < 0 {
		return path
	}
	return path[i+1:]
}

// Stager receives the target before its dialog opens. The page writes the
// hidden path field and the visible label.
type Stager interface {
	Stage(Target)
}

// Dialog shows a confirmation dialog for t.
type Dialog interface {
	Open(t Target)
}

type DialogFunc func(Target)

func (f DialogFunc) Open(t Target) { f(t) }

// DeletePrimer stages a target and opens the delete confirmation.
type DeletePrimer struct {
	Form   Stager
	Dialog Dialog
}

// Prime overwrites any previously staged target. It makes no network call.
func (p *DeletePrimer) Prime(path string) Target {
	t := NewTarget(path)
	if p.Form != nil {
		p.Form.Stage(t)
	}
	if p.Dialog != nil {
		p.Dialog.Open(t)
	}
	return t
}
