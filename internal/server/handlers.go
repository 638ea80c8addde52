package server

import (
	_ "embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/livedoc/livedoc/internal/logging"
	"github.com/livedoc/livedoc/internal/watcher"
)

//go:embed static/index.html
var indexHTML []byte

// Status is the response of GET /status.
type Status struct {
	Document    string         `json:"document"`
	Live        bool           `json:"live"`
	Subscribers int            `json:"subscribers"`
	Published   uint64         `json:"published"`
	Dropped     uint64         `json:"dropped"`
	Watch       *watcher.Stats `json:"watch,omitempty"`
	Time        time.Time      `json:"time"`
}

// index serves the viewer page.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(indexHTML)
}

// getDocument serves the watched document's current bytes.
func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	info, err := os.Stat(s.config.Document)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if info.IsDir() {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "document is a directory")
		return
	}

	// The viewer reloads after every change, so never serve a cached copy.
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, s.config.Document)
}

// getStatus reports hub and watcher state.
func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Document:    s.config.Document,
		Live:        s.watch != nil,
		Subscribers: s.hub.Len(),
		Published:   s.hub.Published(),
		Dropped:     s.hub.Dropped(),
		Time:        time.Now(),
	}
	if s.watch != nil {
		stats := s.watch.Stats()
		status.Watch = &stats
	}
	writeJSON(w, http.StatusOK, status)
}

// stop asks the process to shut down.
func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	logging.Info().Str("remote", r.RemoteAddr).Msg("stop requested")
	writeText(w, http.StatusOK, "Server stopped")
	s.requestStop()
}
