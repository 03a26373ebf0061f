// Package auth gates the server behind BasicAuth with bcrypt hashes from the
// config. Reading may be left open to anonymous visitors; changing the
// library always needs a known user once any user is configured.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"randomfile/internal/config"
)

const realm = "randomfile"

var (
	ErrNoCredentials  = errors.New("no credentials")
	ErrBadCredentials = errors.New("bad credentials")
)

// Paths reachable without credentials even when auth is required.
var public = map[string]bool{
	"/healthz": true,
}

type ctxKey struct{}

func UserFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

func HasAuth(cfg config.Config) bool {
	return len(cfg.Users) > 0
}

// CanWrite reports whether the request may change the library.
func CanWrite(cfg config.Config, r *http.Request) bool {
	return !HasAuth(cfg) || UserFromContext(r.Context()) != ""
}

// Verify checks an Authorization header against the configured users and
// returns the user name.
func Verify(cfg config.Config, header string) (string, error) {
	if header == "" {
		return "", ErrNoCredentials
	}
	name, pass, ok := parseBasicAuth(header)
	if !ok {
		return "", ErrBadCredentials
	}
	u, ok := cfg.Users[name]
	if !ok {
		return "", ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Bcrypt), []byte(pass)) != nil {
		return "", ErrBadCredentials
	}
	return name, nil
}

// RequireAuth authenticates every request when users are configured.
// Presented credentials must always be valid; missing ones are accepted only
// in AuthOptional mode.
func RequireAuth(cfg config.Config, next http.Handler) http.Handler {
	if !HasAuth(cfg) {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if public[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		user, err := Verify(cfg, r.Header.Get("Authorization"))
		switch {
		case err == nil:
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		case errors.Is(err, ErrNoCredentials) && cfg.AuthOptional:
			next.ServeHTTP(w, r)
		default:
			Challenge(w)
		}
	})
}

// Challenge answers 401 with a BasicAuth prompt.
func Challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func parseBasicAuth(v string) (user, pass string, ok bool) {
	enc, found := strings.CutPrefix(v, "Basic ")
	if !found {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(enc))
	if err != nil {
		return "", "", false
	}
	user, pass, found = strings.Cut(string(raw), ":")
	if !found || user == "" || strings.ContainsRune(user+pass, 0) {
		return "", "", false
	}
	return user, pass, true
}
