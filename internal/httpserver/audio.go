package httpserver

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"randomfile/internal/fsutil"
	"randomfile/internal/library"
)

// handleAudio sends a random audio file below subpath as a download, or with
// ?static=true the mp3 at subpath itself for inline playback.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	rel := fsutil.CleanRelPath(r.PathValue("subpath"))

	if strings.EqualFold(r.URL.Query().Get("static"), "true") && rel != "" {
		if _, err := s.lib.ValidateDir(fsutil.ParentRel(rel)); err != nil {
			s.audioError(w, err)
			return
		}
		abs, err := s.lib.AudioFile(rel, ".mp3")
		switch {
		case errors.Is(err, library.ErrNotAudio):
			jsonError(w, http.StatusBadRequest, "Only MP3 files are supported")
			return
		case errors.Is(err, library.ErrNotExist):
			jsonError(w, http.StatusNotFound, "Not found")
			return
		case err != nil:
			s.audioError(w, err)
			return
		}
		if err := serveFile(w, r, abs, false); err != nil {
			s.audioError(w, err)
		}
		return
	}

	abs, err := s.lib.Random(rel)
	if err != nil {
		s.audioError(w, err)
		return
	}
	if err := serveFile(w, r, abs, true); err != nil {
		s.audioError(w, err)
	}
}

// handleLegacyRandom streams a random .ogg file from anywhere in the library.
func (s *Server) handleLegacyRandom(w http.ResponseWriter, r *http.Request) {
	abs, err := s.lib.Random("", ".ogg")
	if err != nil {
		s.audioError(w, err)
		return
	}
	if err := serveFile(w, r, abs, false); err != nil {
		s.audioError(w, err)
	}
}

func (s *Server) audioError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, library.ErrNoAudio):
		jsonError(w, http.StatusNotFound, "Not found")
	case library.IsValidation(err):
		jsonError(w, http.StatusForbidden, library.Reason(err))
	default:
		s.logger.Printf("audio: %v", err)
		jsonError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// limited applies the per-client rate limit of the audio endpoints.
func (s *Server) limited(next http.HandlerFunc) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(extractIP(r.RemoteAddr)) {
			jsonError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	})
}

func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
