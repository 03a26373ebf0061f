package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// RootLabel names the synthetic option that moves a file to the top level.
const RootLabel = "Root Directory"

// Option is one entry of the destination select.
type Option struct {
	Value string
	Label string
}

// BuildOptions returns the root option followed by one option per directory
// in the given order.
func BuildOptions(dirs []string) []Option {
	opts := make([]Option, 0, len(dirs)+1)
	opts = append(opts, Option{Value: "", Label: RootLabel})
	for _, d := range dirs {
		opts = append(opts, Option{Value: d, Label: d})
	}
	return opts
}

// Select is the rendered destination list.
type Select interface {
	// Replace clears the list and inserts opts in order.
	Replace(opts []Option)
}

// Destinations owns the destination list and the request generation. Only a
// response for the latest generation may rebuild the list.
type Destinations struct {
	mu   sync.Mutex
	sel  Select
	gen  uint64
	opts []Option
}

func NewDestinations(sel Select) *Destinations {
	return &Destinations{sel: sel}
}

// Begin starts a new request and returns its generation. Every earlier
// generation is superseded.
func (d *Destinations) Begin() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	return d.gen
}

// Latest reports whether gen is still the newest request.
func (d *Destinations) Latest(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gen == d.gen
}

// Apply rebuilds the list from dirs when gen is still the newest request. It
// reports whether it did.
func (d *Destinations) Apply(gen uint64, dirs []string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return false
	}
	d.opts = BuildOptions(dirs)
	if d.sel != nil {
		d.sel.Replace(append([]Option(nil), d.opts...))
	}
	return true
}

// Options returns the last applied list.
func (d *Destinations) Options() []Option {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Option(nil), d.opts...)
}

// DirectorySource lists the known directories in display order.
type DirectorySource interface {
	Directories(ctx context.Context) ([]string, error)
}

// ErrNoDirectories is returned when the listing body lacks the directories
// field.
var ErrNoDirectories = errors.New("response has no directories field")

// HTTPDirectories reads {"directories": [...]} from URL.
type HTTPDirectories struct {
	Client *http.Client
	URL    string
}

func (h HTTPDirectories) Directories(ctx context.Context) ([]string, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get directories: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("get directories: %s", resp.Status)
	}
	var body struct {
		Directories *[]string `json:"directories"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode directories: %w", err)
	}
	if body.Directories == nil {
		return nil, ErrNoDirectories
	}
	return *body.Directories, nil
}
