package httpserver

import (
	"net/http"

	"randomfile/internal/config"
)

// Bootstrap comes from jsdelivr; the page script instantiates WebAssembly.
const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'wasm-unsafe-eval' https://cdn.jsdelivr.net; " +
	"style-src 'self' https://cdn.jsdelivr.net; " +
	"img-src 'self' data:; " +
	"font-src 'self' https://cdn.jsdelivr.net; " +
	"media-src 'self'; " +
	"connect-src 'self'; " +
	"base-uri 'none'; frame-ancestors 'self'"

func withSecurityHeaders(cfg config.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if cfg.HTTPSEnabled {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}
