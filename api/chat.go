package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/edvisor-fi/edvisor/internal/engine"
	"github.com/edvisor-fi/edvisor/internal/prompt"
	"github.com/edvisor-fi/edvisor/internal/session"
)

type chatRequest struct {
	ChatID  string `json:"chat_id,omitempty"`
	Message string `json:"message"`
}

type chatResponse struct {
	ChatID  string   `json:"chat_id"`
	Reply   string   `json:"reply"`
	Sources []string `json:"sources,omitempty"`
}

// handleChat answers one user message. Omitting chat_id starts a new
// session; the response carries the id to continue it.
func (s *Server) handleChat(responder Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who := owner(r)
		if who == "" {
			writeError(w, http.StatusBadRequest, "missing "+ownerHeader+" header")
			return
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		turn, err := responder.Respond(r.Context(), who, req.ChatID, req.Message)
		if err != nil {
			switch {
			case errors.Is(err, engine.ErrEmptyMessage):
				writeError(w, http.StatusBadRequest, "message must not be empty")
			case errors.Is(err, session.ErrInvalidOwner):
				writeError(w, http.StatusBadRequest, "invalid owner")
			case errors.Is(err, prompt.ErrBudgetExceeded):
				writeError(w, http.StatusRequestEntityTooLarge, "message too long for the model context")
			default:
				s.logger.Error("chat turn failed", "error", err)
				writeError(w, http.StatusBadGateway, "failed to generate a reply")
			}
			return
		}

		resp := chatResponse{ChatID: turn.ChatID, Reply: turn.Reply}
		for _, p := range turn.Passages {
			resp.Sources = append(resp.Sources, p.ContextLabel)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
