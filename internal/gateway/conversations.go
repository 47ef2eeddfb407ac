package gateway

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/bionic/internal/conversation"
	"github.com/flemzord/bionic/pkg/message"
)

// addMessageRequest is the body of POST /api/conversations/{key}/messages.
type addMessageRequest struct {
	Participant string       `json:"participant"`
	Author      string       `json:"author"`
	Role        message.Role `json:"role"`
	Content     string       `json:"content"`
}

// addMessageResponse reports what the message triggered.
type addMessageResponse struct {
	Key          string `json:"key"`
	Messages     int    `json:"messages"`
	ContextID    string `json:"context_id,omitempty"`
	TopicChanged bool   `json:"topic_changed"`
}

type replyRequest struct {
	Reply   string `json:"reply"`
	BotName string `json:"bot_name"`
}

type mergeRequest struct {
	Into string `json:"into"`
	From string `json:"from"`
}

type switchRequest struct {
	Participant string `json:"participant"`
}

func (g *Gateway) handleListConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, g.store.List())
	}
}

func (g *Gateway) handleGetConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := g.store.GetConversation(chi.URLParam(r, "key"))
		if !ok {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (g *Gateway) handleDeleteConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.store.Delete(chi.URLParam(r, "key")) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleGetMessages serves the generation window: the summary marker
// followed by the most recent ?limit messages, or a participant's context
// when ?participant is set.
func (g *Gateway) handleGetMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		if _, ok := g.store.GetConversation(key); !ok {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}

		limit := g.store.Config().ShortTermLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}

		msgs := g.store.GetMessages(key, limit, r.URL.Query().Get("participant"))
		if msgs == nil {
			msgs = []*message.Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func (g *Gateway) handleAddMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		var req addMessageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeError(w, http.StatusBadRequest, "content must not be empty")
			return
		}
		if req.Role == "" {
			req.Role = message.RoleUser
		}
		if !req.Role.Valid() {
			writeError(w, http.StatusBadRequest, "unknown role "+strconv.Quote(string(req.Role)))
			return
		}

		now := g.now()
		var msg *message.Message
		if req.Author != "" {
			msg = message.NewAuthored(req.Role, req.Author, req.Content, now)
		} else {
			msg = message.NewText(req.Role, req.Content, now)
		}
		g.store.AddMessage(key, msg, req.Participant)

		resp := addMessageResponse{Key: key, TopicChanged: g.store.TopicChanged(key)}
		if snap, ok := g.store.GetConversation(key); ok {
			resp.Messages = snap.Messages
		}
		if req.Participant != "" {
			resp.ContextID, _ = g.store.ContextID(key, req.Participant)
		}
		writeJSON(w, http.StatusAccepted, resp)
	}
}

func (g *Gateway) handleAbsorbReply() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req replyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.BotName == "" {
			req.BotName = g.botName
		}
		cleaned := g.store.AbsorbReply(chi.URLParam(r, "key"), req.BotName, req.Reply)
		writeJSON(w, http.StatusOK, map[string]string{"reply": cleaned})
	}
}

// handleBuildPrompt returns the system message. ?group overrides the
// group detection derived from the key.
func (g *Gateway) handleBuildPrompt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		isGroup := conversation.IsGroup(key)
		if raw := r.URL.Query().Get("group"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "group must be a boolean")
				return
			}
			isGroup = v
		}
		writeJSON(w, http.StatusOK, g.store.BuildSystemPrompt(key, isGroup))
	}
}

func (g *Gateway) handleListThreads() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threads, ok := g.store.Threads(chi.URLParam(r, "key"))
		if !ok {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeJSON(w, http.StatusOK, threads)
	}
}

func (g *Gateway) handleMergeThreads() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		if _, ok := g.store.GetConversation(key); !ok {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}

		var req mergeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Into == "" || req.From == "" {
			writeError(w, http.StatusBadRequest, "into and from are required")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"thread": g.store.MergeThreads(key, req.Into, req.From)})
	}
}

func (g *Gateway) handleSwitchContext() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req switchRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Participant == "" {
			writeError(w, http.StatusBadRequest, "participant is required")
			return
		}
		id := g.store.SwitchContext(chi.URLParam(r, "key"), req.Participant)
		writeJSON(w, http.StatusOK, map[string]string{"context_id": id})
	}
}

type responseIDRequest struct {
	ResponseID string `json:"response_id"`
}

func (g *Gateway) handleSetResponseID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req responseIDRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		g.store.SetResponseID(chi.URLParam(r, "key"), req.ResponseID)
		w.WriteHeader(http.StatusNoContent)
	}
}
