package auth

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"randomfile/internal/config"
)

func testConfig(t *testing.T, optional bool) config.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return config.Config{
		Root:         "r",
		AuthOptional: optional,
		Users:        map[string]config.User{"alice": {Bcrypt: string(hash)}},
	}
}

// whoami answers with the authenticated user and whether it may write.
func whoami(cfg config.Config) http.Handler {
	return RequireAuth(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := UserFromContext(r.Context())
		if CanWrite(cfg, r) {
			u += "+w"
		}
		_, _ = w.Write([]byte(u))
	}))
}

func get(h http.Handler, path, user, pass string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		r.SetBasicAuth(user, pass)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestRequireAuth(t *testing.T) {
	h := whoami(testConfig(t, false))
	tests := []struct {
		name, path, user, pass string
		code                   int
		body                   string
	}{
		{"anonymous", "/browse/", "", "", http.StatusUnauthorized, ""},
		{"valid", "/browse/", "alice", "secret", http.StatusOK, "alice+w"},
		{"wrong password", "/browse/", "alice", "nope", http.StatusUnauthorized, ""},
		{"unknown user", "/browse/", "bob", "secret", http.StatusUnauthorized, ""},
		{"health check", "/healthz", "", "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(h, tt.path, tt.user, tt.pass)
			if rec.Code != tt.code {
				t.Fatalf("code = %d, want %d", rec.Code, tt.code)
			}
			if tt.code == http.StatusUnauthorized {
				if rec.Header().Get("WWW-Authenticate") != `Basic realm="randomfile"` {
					t.Fatalf("challenge = %q", rec.Header().Get("WWW-Authenticate"))
				}
				return
			}
			if rec.Body.String() != tt.body {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	h := whoami(testConfig(t, true))
	if rec := get(h, "/browse/", "", ""); rec.Code != http.StatusOK || rec.Body.String() != "" {
		t.Fatalf("anonymous = %d %q", rec.Code, rec.Body.String())
	}
	if rec := get(h, "/browse/", "alice", "secret"); rec.Body.String() != "alice+w" {
		t.Fatalf("authenticated = %q", rec.Body.String())
	}
	// presented credentials are still checked
	if rec := get(h, "/browse/", "alice", "nope"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad credentials = %d", rec.Code)
	}
}

func TestNoUsersAllowsEverything(t *testing.T) {
	h := whoami(config.Config{Root: "r"})
	if rec := get(h, "/browse/", "", ""); rec.Code != http.StatusOK || rec.Body.String() != "+w" {
		t.Fatalf("open server = %d %q", rec.Code, rec.Body.String())
	}
}

func TestParseBasicAuth(t *testing.T) {
	tests := []struct {
		header     string
		user, pass string
		ok         bool
	}{
		{"Basic YWxpY2U6c2VjcmV0", "alice", "secret", true},
		{"Basic YWxpY2U6", "alice", "", true},
		{"Basic OnNlY3JldA==", "", "", false},
		{"Basic bm9jb2xvbg==", "", "", false},
		{"Bearer abc", "", "", false},
		{"Basic %%%", "", "", false},
	}
	for _, tt := range tests {
		u, p, ok := parseBasicAuth(tt.header)
		if u != tt.user || p != tt.pass || ok != tt.ok {
			t.Errorf("parseBasicAuth(%q) = %q, %q, %v", tt.header, u, p, ok)
		}
	}
}

func TestVerify(t *testing.T) {
	cfg := testConfig(t, false)
	enc := func(s string) string { return "Basic " + base64.StdEncoding.EncodeToString([]byte(s)) }
	tests := []struct {
		header string
		user   string
		err    error
	}{
		{"", "", ErrNoCredentials},
		{enc("alice:secret"), "alice", nil},
		{enc("alice:wrong"), "", ErrBadCredentials},
		{enc("mallory:secret"), "", ErrBadCredentials},
		{"Digest x", "", ErrBadCredentials},
	}
	for _, tt := range tests {
		user, err := Verify(cfg, tt.header)
		if user != tt.user || !errors.Is(err, tt.err) {
			t.Errorf("Verify(%q) = %q, %v", tt.header, user, err)
		}
	}
}
