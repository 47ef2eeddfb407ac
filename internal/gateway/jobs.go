package gateway

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
)

func (g *Gateway) handleListJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, g.jobs.Jobs())
	}
}

// handleRunJob runs a scheduled job synchronously. 409 means the job is
// already running.
func (g *Gateway) handleRunJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if !slices.Contains(g.jobs.Jobs(), name) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		if !g.jobs.RunNow(r.Context(), name) {
			writeError(w, http.StatusConflict, "job already running")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "completed", "job": name})
	}
}
