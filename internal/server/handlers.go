package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// dashboardHTML is the landing page. The real UI is a websocket client; this
// page just confirms the service is up and points at the stream.
const dashboardHTML = `<html>
    <head>
        <title>AlphaHunter API</title>
    </head>
    <body>
        <h1>AlphaHunter API v3.0</h1>
        <p>服务正在运行。请使用WebSocket客户端连接到 <code>/ws</code> 以接收实时数据。</p>
    </body>
</html>
`

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string, log zerolog.Logger) {
	writeJSON(w, status, map[string]string{"error": message}, log)
}

// handleDashboard serves the landing page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(dashboardHTML)); err != nil {
		s.log.Error().Err(err).Msg("Failed to write dashboard response")
	}
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": "3.0.0",
		"service": "alphahunter",
	}, s.log)
}

// handleLatestResults returns the results document from the most recent
// successful scan cycle. Before the first cycle completes this is an empty
// document, not an error.
func (s *Server) handleLatestResults(w http.ResponseWriter, r *http.Request) {
	result, err := s.results.Latest()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load scan results")
		writeError(w, http.StatusInternalServerError, "failed to load scan results", s.log)
		return
	}
	writeJSON(w, http.StatusOK, result, s.log)
}

// handleSnapshot returns the most recent market snapshot.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshots.Load()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load snapshot")
		writeError(w, http.StatusInternalServerError, "failed to load snapshot", s.log)
		return
	}
	writeJSON(w, http.StatusOK, snap, s.log)
}
