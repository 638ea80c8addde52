package server

import (
	"fmt"
	"net/http"
	"time"
)

const (
	// SSEHeartbeatInterval is the default interval for SSE heartbeats.
	SSEHeartbeatInterval = 30 * time.Second

	// Payloads of the stream. The viewer only cares that something changed.
	connectedMessage   = "connected"
	updateMessage      = "update"
	unavailableEvent   = "unavailable"
	unavailableMessage = "live reload disabled"
)

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

// newSSEWriter creates a new SSE writer.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	// Use ResponseController for more reliable flushing (Go 1.20+)
	rc := http.NewResponseController(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	return &sseWriter{w: w, flusher: flusher, rc: rc}, nil
}

// writeEvent writes one SSE event with a plain text payload.
func (s *sseWriter) writeEvent(eventType, data string) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
		return err
	}
	s.flush()
	return nil
}

// writeHeartbeat writes an SSE heartbeat comment.
func (s *sseWriter) writeHeartbeat() error {
	if _, err := fmt.Fprint(s.w, ": heartbeat\n\n"); err != nil {
		return err
	}
	s.flush()
	return nil
}

func (s *sseWriter) flush() {
	// ResponseController sees through middleware wrappers
	if err := s.rc.Flush(); err != nil {
		s.flusher.Flush()
	}
}

// listen streams change notifications for the document. Each client gets
// one "connected" message, then one "update" message per change.
func (s *Server) listen(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Explicitly write status and flush headers immediately
	w.WriteHeader(http.StatusOK)
	sse.flush()

	if s.watch == nil {
		// No watcher: say so and end the stream rather than leave the
		// client waiting for updates that cannot come.
		if err := sse.writeEvent("message", connectedMessage); err != nil {
			return
		}
		sse.writeEvent(unavailableEvent, unavailableMessage)
		return
	}

	// Register before acknowledging so no change after "connected" is missed.
	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub.ID)

	if err := sse.writeEvent("message", connectedMessage); err != nil {
		return
	}

	ticker := time.NewTicker(s.config.Heartbeat)
	defer ticker.Stop()

	// Disconnect and event arrival are raced in one select.
	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				// Removed or hub closed for shutdown
				return
			}
			if err := sse.writeEvent("message", updateMessage); err != nil {
				return
			}
		case <-ticker.C:
			if err := sse.writeHeartbeat(); err != nil {
				return
			}
		}
	}
}
