package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is intentionally small and JSON-friendly.
// If Users is empty, randomfile runs without auth.
type Config struct {
	// Root is the music library served by randomfile.
	Root string `json:"root"`

	// StateDir stores the blob store, cover thumbnails and upload temp files.
	// Default: <root>/.randomfile
	StateDir string `json:"stateDir"`

	// AssetsDir optionally serves extra files under /assets/ (the wasm build
	// output and wasm_exec.js). Embedded assets take precedence.
	AssetsDir string `json:"assetsDir,omitempty"`

	// AudioExts lists the extensions shown in the tree and picked by /audio.
	// Default: [".mp3"]
	AudioExts []string `json:"audioExts,omitempty"`

	// HTTPSEnabled adds Strict-Transport-Security to every response.
	HTTPSEnabled bool `json:"httpsEnabled,omitempty"`

	// AuthOptional enables "public + authenticated" mode when Users is set:
	// anonymous requests may browse and listen, only authenticated users may
	// change the library.
	AuthOptional bool `json:"authOptional,omitempty"`

	// Users is a map of username -> bcrypt hash.
	// "alice": {"bcrypt":"$2a$10$..."}
	Users map[string]User `json:"users,omitempty"`

	RateLimit RateLimit `json:"rateLimit"`
	UI        UI        `json:"ui"`
}

type User struct {
	Bcrypt string `json:"bcrypt"`
}

// RateLimit bounds the audio endpoints per client IP.
// A negative PerHour disables limiting.
type RateLimit struct {
	PerHour int `json:"perHour,omitempty"`
	Burst   int `json:"burst,omitempty"`
}

// UI is rendered into the page and read by the browser bridge.
type UI struct {
	// DismissAfter is the delay before flash banners are closed. Default 5s.
	DismissAfter Duration `json:"dismissAfter,omitempty"`
	// MoveDialog is "immediate" (open while the destinations load) or
	// "after-fetch" (open once they are loaded). Default "immediate".
	MoveDialog string `json:"moveDialog,omitempty"`
	// FetchTimeout bounds the destinations request. Zero means no timeout.
	FetchTimeout Duration `json:"fetchTimeout,omitempty"`
}

const (
	MoveDialogImmediate  = "immediate"
	MoveDialogAfterFetch = "after-fetch"
)

// Duration is a time.Duration that reads "5s" style strings or plain
// milliseconds from JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return errors.New("duration must be a string like \"5s\" or milliseconds")
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// Parse decodes a JSON config document.
func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills every zero field that has a default.
func (c *Config) ApplyDefaults() {
	if len(c.AudioExts) == 0 {
		c.AudioExts = []string{".mp3"}
	}
	for i, ext := range c.AudioExts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.AudioExts[i] = ext
	}
	if c.RateLimit.PerHour == 0 {
		c.RateLimit.PerHour = 50
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
	if c.UI.DismissAfter <= 0 {
		c.UI.DismissAfter = Duration(5 * time.Second)
	}
	if c.UI.MoveDialog == "" {
		c.UI.MoveDialog = MoveDialogImmediate
	}
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return errors.New("config: root is required")
	}
	switch c.UI.MoveDialog {
	case "", MoveDialogImmediate, MoveDialogAfterFetch:
	default:
		return fmt.Errorf("config: ui.moveDialog must be %q or %q, got %q", MoveDialogImmediate, MoveDialogAfterFetch, c.UI.MoveDialog)
	}
	if c.UI.FetchTimeout < 0 {
		return errors.New("config: ui.fetchTimeout must not be negative")
	}
	for name, u := range c.Users {
		if strings.TrimSpace(u.Bcrypt) == "" {
			return fmt.Errorf("config: user %q has no bcrypt hash", name)
		}
	}
	return nil
}
