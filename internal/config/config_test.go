package config

import (
	"strings"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`{
		"root": "/music",
		"audioExts": ["MP3", ".ogg"],
		"users": {"alice": {"bcrypt": "$2a$10$x"}},
		"rateLimit": {"perHour": 20},
		"ui": {"dismissAfter": "2s", "moveDialog": "after-fetch", "fetchTimeout": 1500}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(cfg.AudioExts, ","); got != ".mp3,.ogg" {
		t.Errorf("AudioExts = %s", got)
	}
	if cfg.RateLimit.PerHour != 20 || cfg.RateLimit.Burst != 10 {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.UI.DismissAfter.Std() != 2*time.Second {
		t.Errorf("DismissAfter = %v", cfg.UI.DismissAfter.Std())
	}
	if cfg.UI.FetchTimeout.Std() != 1500*time.Millisecond {
		t.Errorf("FetchTimeout = %v", cfg.UI.FetchTimeout.Std())
	}
	if cfg.UI.MoveDialog != MoveDialogAfterFetch {
		t.Errorf("MoveDialog = %q", cfg.UI.MoveDialog)
	}
}

func TestParseErrors(t *testing.T) {
	for _, doc := range []string{
		`{`,
		`{"ui": {"dismissAfter": "soon"}}`,
		`{"ui": {"dismissAfter": true}}`,
	} {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("Parse(%s) succeeded", doc)
		}
	}
}

func TestDefaults(t *testing.T) {
	cfg := Config{Root: "/music"}
	cfg.ApplyDefaults()
	if len(cfg.AudioExts) != 1 || cfg.AudioExts[0] != ".mp3" {
		t.Errorf("AudioExts = %v", cfg.AudioExts)
	}
	if cfg.UI.DismissAfter.Std() != 5*time.Second {
		t.Errorf("DismissAfter = %v", cfg.UI.DismissAfter.Std())
	}
	if cfg.UI.MoveDialog != MoveDialogImmediate {
		t.Errorf("MoveDialog = %q", cfg.UI.MoveDialog)
	}
	if cfg.UI.FetchTimeout != 0 {
		t.Errorf("FetchTimeout = %v", cfg.UI.FetchTimeout.Std())
	}
	if cfg.RateLimit.PerHour != 50 {
		t.Errorf("PerHour = %d", cfg.RateLimit.PerHour)
	}

	disabled := Config{Root: "/music", RateLimit: RateLimit{PerHour: -1}}
	disabled.ApplyDefaults()
	if disabled.RateLimit.PerHour != -1 {
		t.Errorf("negative PerHour overwritten: %d", disabled.RateLimit.PerHour)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"no root", Config{}, "root is required"},
		{"bad dialog", Config{Root: "r", UI: UI{MoveDialog: "later"}}, "ui.moveDialog"},
		{"negative timeout", Config{Root: "r", UI: UI{FetchTimeout: Duration(-time.Second)}}, "fetchTimeout"},
		{"empty hash", Config{Root: "r", Users: map[string]User{"bob": {}}}, `"bob"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestDurationJSON(t *testing.T) {
	b, err := Duration(1500 * time.Millisecond).MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"1.5s"` {
		t.Fatalf("MarshalJSON = %s", b)
	}
	var d Duration
	if err := d.UnmarshalJSON(b); err != nil || d.Std() != 1500*time.Millisecond {
		t.Fatalf("UnmarshalJSON = %v, %v", d.Std(), err)
	}
}
