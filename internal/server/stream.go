package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// retryHintMS tells the client how long to wait before reconnecting.
	retryHintMS = 3000
	// heartbeatInterval keeps idle connections alive through proxies.
	heartbeatInterval = 25 * time.Second
)

// handleStream serves the live analytics feed as server-sent events. Each new
// query log entry arrives as one "new_chat" event; the connection stays open
// until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := s.broadcaster.Subscribe()
	if sub == nil {
		s.respondError(w, http.StatusServiceUnavailable, "shutting down")
		return
	}
	defer s.broadcaster.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "retry: %d\n\n", retryHintMS)
	flusher.Flush()

	s.logger.Debug("stream subscriber connected", zap.String("remote", r.RemoteAddr))

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("stream subscriber disconnected", zap.String("remote", r.RemoteAddr))
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case entry, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(entry)
			if err != nil {
				s.logger.Error("marshal stream entry", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: new_chat\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
