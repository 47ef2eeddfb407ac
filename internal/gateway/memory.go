package gateway

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/bionic/internal/memory"
)

type addMemoryRequest struct {
	Content    string   `json:"content"`
	Importance *float64 `json:"importance"`
}

func (g *Gateway) handleListMemoryGroups() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		groups := g.store.Memory().Groups()
		if groups == nil {
			groups = []string{}
		}
		writeJSON(w, http.StatusOK, groups)
	}
}

func (g *Gateway) handleGetMemory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := g.store.Memory().Entries(chi.URLParam(r, "group"))
		if entries == nil {
			entries = []memory.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func (g *Gateway) handleAddMemory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addMemoryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		importance := g.store.Config().DefaultImportance
		if req.Importance != nil {
			importance = *req.Importance
		}

		added, err := g.store.Memory().AddMemory(chi.URLParam(r, "group"), req.Content, importance)
		switch {
		case errors.Is(err, memory.ErrEmptyContent):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			// The entry is kept in memory even when persisting failed.
			g.logger.Error("gateway: memory persist failed", "error", err)
			writeError(w, http.StatusInternalServerError, "memory saved but not persisted")
			return
		}

		code := http.StatusOK
		if added {
			code = http.StatusCreated
		}
		writeJSON(w, code, map[string]bool{"added": added})
	}
}
