package ui

import (
	"log"
	"net/http"
)

// PageOptions are the page's collaborators. Nil optional fields get defaults:
// Source reads Settings.DirectoriesURL, Clock is the system clock.
type PageOptions struct {
	Settings Settings

	DeleteForm   Stager
	DeleteDialog Dialog
	MoveForm     Stager
	MoveDialog   Dialog
	Select       Select
	Source       DirectorySource
	HTTPClient   *http.Client

	Clock   Clock
	Banners func() []Banner
	Logger  *log.Logger
}

// Page is the interaction state of one loaded browse page.
type Page struct {
	Settings Settings
	Delete   *DeletePrimer
	Move     *MovePrimer
	Tree     *Tree
	Dismiss  *AutoDismiss
}

// NewPage wires the primers and starts the banner timer, as on page load.
// Tree nodes are added by the caller.
func NewPage(o PageOptions) *Page {
	src := o.Source
	if src == nil {
		url := o.Settings.DirectoriesURL
		if url == "" {
			url = DefaultDirectoriesURL
		}
		src = HTTPDirectories{Client: o.HTTPClient, URL: url}
	}
	return &Page{
		Settings: o.Settings,
		Delete:   &DeletePrimer{Form: o.DeleteForm, Dialog: o.DeleteDialog},
		Move: &MovePrimer{
			Form:         o.MoveForm,
			Dialog:       o.MoveDialog,
			Source:       src,
			Destinations: NewDestinations(o.Select),
			Policy:       o.Settings.MoveDialog,
			Timeout:      o.Settings.FetchTimeout,
			Logger:       o.Logger,
		},
		Tree:    NewTree(),
		Dismiss: StartAutoDismiss(o.Clock, o.Settings.DismissAfter, o.Banners),
	}
}
