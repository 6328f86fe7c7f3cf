package handler

import (
	"log/slog"
	"net/http"

	"betty/internal/domain/models"
	"betty/internal/httputil"
	"betty/internal/service/chat"
)

// ChatHandler handles chat HTTP requests
type ChatHandler struct {
	synthesizer   *chat.Synthesizer
	conversations *chat.ConversationManager
	logger        *slog.Logger
}

func NewChatHandler(synthesizer *chat.Synthesizer, conversations *chat.ConversationManager, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		synthesizer:   synthesizer,
		conversations: conversations,
		logger:        logger,
	}
}

// ProcessMessage runs one chat turn
// POST /api/chat
func (h *ChatHandler) ProcessMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.ChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.synthesizer.ProcessMessage(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// History returns the user's recent messages across all conversations
// GET /api/chat/history
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit := httputil.QueryInt(r, "limit", 50)
	messages := h.conversations.History(r.Context(), userID, limit)
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"total":    len(messages),
	})
}

// ClearHistory deletes all of the user's conversations and messages
// DELETE /api/chat/history
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.conversations.ClearHistory(r.Context(), userID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListConversations lists the user's conversations, newest activity first
// GET /api/chat/conversations
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit := httputil.QueryInt(r, "limit", 20)
	offset := httputil.QueryInt(r, "offset", 0)
	conversations := h.conversations.ListConversations(r.Context(), userID, limit, offset)
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"conversations": conversations,
		"total":         len(conversations),
	})
}

// GetMessages returns one conversation's messages, oldest first
// GET /api/chat/conversations/{id}/messages
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	conversationID := r.PathValue("id")
	limit := httputil.QueryInt(r, "limit", 100)
	messages := h.conversations.ListMessages(r.Context(), userID, conversationID, limit)
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"messages":        messages,
		"total":           len(messages),
	})
}

// DeleteConversation removes a conversation and its messages
// DELETE /api/chat/conversations/{id}
func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	deleted, err := h.conversations.DeleteConversation(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	if !deleted {
		httputil.RespondError(w, http.StatusNotFound, "conversation not found or access denied")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveConversation marks a conversation archived; it stops accepting
// new messages but stays listed
// POST /api/chat/conversations/{id}/archive
func (h *ChatHandler) ArchiveConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.conversations.Archive(r.Context(), userID, r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

// Summary aggregates one conversation, or the whole history when no
// conversation_id query parameter is given
// GET /api/chat/summary
func (h *ChatHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	summary := h.conversations.Summarize(r.Context(), userID, r.URL.Query().Get("conversation_id"))
	httputil.RespondJSON(w, http.StatusOK, summary)
}

// Stats serves the chat aggregates from the stats cache
// GET /api/chat/stats
func (h *ChatHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	httputil.RespondJSON(w, http.StatusOK, h.conversations.Stats(r.Context(), userID))
}
