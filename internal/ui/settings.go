package ui

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Attributes on <body> that carry Settings from the server to the page.
const (
	AttrDismissAfter   = "data-dismiss-after-ms"
	AttrMoveDialog     = "data-move-dialog"
	AttrFetchTimeout   = "data-fetch-timeout-ms"
	AttrDirectoriesURL = "data-directories-url"
)

const DefaultDirectoriesURL = "/directories"

type Settings struct {
	DismissAfter   time.Duration
	MoveDialog     ShowPolicy
	FetchTimeout   time.Duration
	DirectoriesURL string
}

func DefaultSettings() Settings {
	return Settings{
		DismissAfter:   DefaultDismissAfter,
		MoveDialog:     ShowImmediately,
		DirectoriesURL: DefaultDirectoriesURL,
	}
}

// Attrs renders s as body attribute values.
func (s Settings) Attrs() map[string]string {
	return map[string]string{
		AttrDismissAfter:   strconv.FormatInt(s.DismissAfter.Milliseconds(), 10),
		AttrMoveDialog:     s.MoveDialog.String(),
		AttrFetchTimeout:   strconv.FormatInt(s.FetchTimeout.Milliseconds(), 10),
		AttrDirectoriesURL: s.DirectoriesURL,
	}
}

// SettingsFromAttrs reads the body attributes through get. Missing values keep
// their default; malformed ones keep it too and are reported in the error.
func SettingsFromAttrs(get func(name string) string) (Settings, error) {
	s := DefaultSettings()
	var errs []error

	if v := get(AttrDismissAfter); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err != nil || ms <= 0 {
			errs = append(errs, fmt.Errorf("%s: bad value %q", AttrDismissAfter, v))
		} else {
			s.DismissAfter = time.Duration(ms) * time.Millisecond
		}
	}
	if v := get(AttrMoveDialog); v != "" {
		p, err := ParseShowPolicy(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", AttrMoveDialog, err))
		}
		s.MoveDialog = p
	}
	if v := get(AttrFetchTimeout); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err != nil || ms < 0 {
			errs = append(errs, fmt.Errorf("%s: bad value %q", AttrFetchTimeout, v))
		} else {
			s.FetchTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := get(AttrDirectoriesURL); v != "" {
		s.DirectoriesURL = v
	}
	return s, errors.Join(errs...)
}
