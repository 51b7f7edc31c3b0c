package handler

import (
	"fmt"
	"net/http"
	"time"
)

// handleRoot is the plain-text liveness page.
func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%s - running\n", h.name)
}

// handleHealth reports that the process is up, whatever the session state.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady answers 200 only while the session is open.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if !h.status.Ready() {
		h.writeError(w, r, http.StatusServiceUnavailable, CodeNotReady,
			"session is "+h.status.Snapshot().StateName)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
