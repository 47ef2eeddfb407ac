package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, middleware.Recoverer, g.instrument)

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	if g.metrics != nil {
		r.Method(http.MethodGet, "/metrics", g.metrics.Handler())
	}

	// API endpoints. Not mounted without a bearer token.
	if g.config.BearerToken != "" {
		r.Route("/api", func(r chi.Router) {
			r.Use(authMiddleware(g.config.BearerToken, g.logger))

			r.Get("/conversations", g.handleListConversations())
			r.Route("/conversations/{key}", func(r chi.Router) {
				r.Get("/", g.handleGetConversation())
				r.Delete("/", g.handleDeleteConversation())
				r.Get("/messages", g.handleGetMessages())
				r.Post("/messages", g.handleAddMessage())
				r.Post("/reply", g.handleAbsorbReply())
				r.Get("/prompt", g.handleBuildPrompt())
				r.Get("/threads", g.handleListThreads())
				r.Post("/threads/merge", g.handleMergeThreads())
				r.Post("/switch", g.handleSwitchContext())
				r.Put("/response_id", g.handleSetResponseID())
			})

			r.Get("/memory", g.handleListMemoryGroups())
			r.Get("/memory/{group}", g.handleGetMemory())
			r.Post("/memory/{group}", g.handleAddMemory())

			if g.jobs != nil {
				r.Get("/jobs", g.handleListJobs())
				r.Post("/jobs/{name}/run", g.handleRunJob())
			}
		})
	}

	return r
}
