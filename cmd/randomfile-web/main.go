//go:build js && wasm

// Command randomfile-web is the browse page controller, compiled to
// WebAssembly and started by assets/app.js. It is a thin bridge: every
// decision is made by internal/ui, this file only reads and writes the DOM.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"syscall/js"

	"randomfile/internal/ui"
)

var document = js.Global().Get("document")

// markupError is raised when the rendered page lacks an element the
// controller needs. It aborts the handler that hit it.
type markupError struct{ msg string }

func (e markupError) Error() string { return e.msg }

func byID(id string) js.Value {
	v := document.Call("getElementById", id)
	if v.IsNull() || v.IsUndefined() {
		panic(markupError{fmt.Sprintf("missing element #%s", id)})
	}
	return v
}

func attr(el js.Value, name string) string {
	v := el.Call("getAttribute", name)
	if v.IsNull() || v.IsUndefined() {
		return ""
	}
	return v.String()
}

func each(list js.Value, f func(js.Value)) {
	n := list.Length()
	for i := 0; i < n; i++ {
		f(list.Index(i))
	}
}

// handler wraps f as an event listener that logs markup errors instead of
// breaking the page.
func handler(logger *log.Logger, name string, f func(this js.Value, event js.Value)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("%s: %v", name, r)
			}
		}()
		var event js.Value
		if len(args) > 0 {
			event = args[0]
		}
		f(this, event)
		return nil
	})
}

// formFields stages a target into a dialog's hidden field and label.
type formFields struct {
	field, label string
}

func (f formFields) Stage(t ui.Target) {
	field, label := byID(f.field), byID(f.label)
	field.Set("value", t.Path)
	label.Set("textContent", t.Label)
}

type modal struct{ id string }

func (m modal) Open(ui.Target) {
	el := byID(m.id)
	js.Global().Get("bootstrap").Get("Modal").Call("getOrCreateInstance", el).Call("show")
}

type selectList struct{ id string }

func (s selectList) Replace(opts []ui.Option) {
	sel := byID(s.id)
	sel.Set("innerHTML", "")
	for _, o := range opts {
		opt := document.Call("createElement", "option")
		opt.Set("value", o.Value)
		opt.Set("textContent", o.Label)
		sel.Call("appendChild", opt)
	}
}

type alert struct{ el js.Value }

func (a alert) Close() {
	js.Global().Get("bootstrap").Get("Alert").Call("getOrCreateInstance", a.el).Call("close")
}

func alerts() []ui.Banner {
	var out []ui.Banner
	each(document.Call("querySelectorAll", ".alert"), func(el js.Value) {
		out = append(out, alert{el: el})
	})
	return out
}

func main() {
	logger := log.New(os.Stderr, "randomfile-web: ", 0)

	body := document.Get("body")
	settings, err := ui.SettingsFromAttrs(func(name string) string { return attr(body, name) })
	if err != nil {
		logger.Printf("settings: %v", err)
	}

	page := ui.NewPage(ui.PageOptions{
		Settings:     settings,
		DeleteForm:   formFields{field: "deleteFilePath", label: "deleteFileName"},
		DeleteDialog: modal{id: "deleteModal"},
		MoveForm:     formFields{field: "moveFilePath", label: "moveFileName"},
		MoveDialog:   modal{id: "moveModal"},
		Select:       selectList{id: "destination"},
		Banners:      alerts,
		Logger:       logger,
	})

	bindTree(page.Tree, logger)
	bindActions(page, logger)

	// Keep alive
	select {}
}

func bindTree(tree *ui.Tree, logger *log.Logger) {
	each(document.Call("querySelectorAll", ".tree-item-content"), func(item js.Value) {
		path := attr(item, "data-path")
		toggle := item.Call("querySelector", ".tree-toggle")
		children := item.Get("nextElementSibling")
		hasChildren := !children.IsNull() && children.Get("classList").Call("contains", "tree-children").Bool()
		tree.Add(path, ui.ParseKind(attr(item, "data-type")), hasChildren)

		item.Call("addEventListener", "click", handler(logger, "tree", func(_ js.Value, e js.Value) {
			onToggle := !toggle.IsNull() && e.Get("target").Equal(toggle)
			res := tree.Click(ui.Click{Path: path, OnAffordance: onToggle})
			if res.Toggled {
				children.Get("classList").Call("toggle", "show", res.State.Visible())
				if !toggle.IsNull() {
					toggle.Set("textContent", res.Glyph)
				}
			}
			if res.StopPropagation {
				e.Call("stopPropagation")
			}
		}))
	})
}

func bindActions(page *ui.Page, logger *log.Logger) {
	each(document.Call("querySelectorAll", "[data-action]"), func(btn js.Value) {
		path := attr(btn, "data-path")
		switch attr(btn, "data-action") {
		case "delete":
			btn.Call("addEventListener", "click", handler(logger, "delete", func(js.Value, js.Value) {
				page.Delete.Prime(path)
			}))
		case "move":
			btn.Call("addEventListener", "click", handler(logger, "move", func(js.Value, js.Value) {
				// the fetch runs on its own goroutine; event handlers must not block
				page.Move.Prime(context.Background(), path)
			}))
		}
	})
}
