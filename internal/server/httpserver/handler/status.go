package handler

import "net/http"

// handleStatus reports the session snapshot.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	s := h.status.Snapshot()
	h.writeJSON(w, r, http.StatusOK, StatusResponse{
		State:           s.StateName,
		Ready:           h.status.Ready(),
		Generation:      s.Generation,
		Registered:      s.Registered,
		Revision:        s.Revision,
		KeyCount:        s.KeyCount,
		BackoffAttempts: s.BackoffTries,
	})
}
