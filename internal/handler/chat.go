package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/service"
)

// ChatHandler handles HTTP requests for the advice assistant.
type ChatHandler struct {
	adviceSvc *service.AdviceService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(adviceSvc *service.AdviceService) *ChatHandler {
	return &ChatHandler{adviceSvc: adviceSvc}
}

// chatRequest is the JSON request body for POST /api/chat/chat. History
// turns are free-form objects: only role and content are read, other keys
// are ignored.
type chatRequest struct {
	Message     string           `json:"message"`
	ChatHistory []map[string]any `json:"chat_history"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat handles POST /api/chat/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// Turns without string role and content come through empty and are
	// dropped by the service.
	history := make([]domain.ChatMessage, len(req.ChatHistory))
	for i, m := range req.ChatHistory {
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)
		history[i] = domain.ChatMessage{Role: role, Content: content}
	}

	reply, err := h.adviceSvc.Chat(r.Context(), service.ChatRequest{
		Message: req.Message,
		History: history,
	})
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, chatResponse{Response: reply})
}

// Insights handles GET /api/chat/insights/{user_id}.
func (h *ChatHandler) Insights(w http.ResponseWriter, r *http.Request) {
	ins, err := h.adviceSvc.Insights(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ins)
}
