// Package flash carries one-shot notification messages across the redirect
// that follows a form post.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const cookieName = "randomfile_flash"

// maxMessages bounds the cookie size.
const maxMessages = 8

type Category string

const (
	Success Category = "success"
	Error   Category = "error"
)

type Message struct {
	Category Category `json:"c"`
	Text     string   `json:"m"`
}

// Class maps the category to the banner style.
func (m Message) Class() string {
	if m.Category == Error {
		return "danger"
	}
	return string(m.Category)
}

// Add queues a message for the next page render. Messages already pending on
// the request are kept.
func Add(w http.ResponseWriter, r *http.Request, c Category, text string) {
	msgs := append(read(r), Message{Category: c, Text: text})
	if len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the pending messages and clears them.
func Pop(w http.ResponseWriter, r *http.Request) []Message {
	msgs := read(r)
	if _, err := r.Cookie(cookieName); err == nil {
		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return msgs
}

func read(r *http.Request) []Message {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	b, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil
	}
	return msgs
}
