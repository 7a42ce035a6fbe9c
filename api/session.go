package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/edvisor-fi/edvisor/internal/session"
)

type sessionResponse struct {
	ChatID  string `json:"chat_id"`
	Title   string `json:"title"`
	Created string `json:"created"` // relative, e.g. "2 hours ago"
}

type messageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListSessions(sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who := owner(r)
		if who == "" {
			writeError(w, http.StatusBadRequest, "missing "+ownerHeader+" header")
			return
		}

		infos, err := sessions.ListSessions(r.Context(), who)
		if err != nil {
			if errors.Is(err, session.ErrInvalidOwner) {
				writeError(w, http.StatusBadRequest, "invalid owner")
				return
			}
			s.logger.Error("failed to list sessions", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list sessions")
			return
		}

		now := time.Now()
		resp := make([]sessionResponse, 0, len(infos))
		for _, info := range infos {
			resp = append(resp, sessionResponse{
				ChatID:  info.ChatID,
				Title:   info.Title,
				Created: session.RelativeTime(info.CreatedAt, now),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleCreateSession(sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who := owner(r)
		if who == "" {
			writeError(w, http.StatusBadRequest, "missing "+ownerHeader+" header")
			return
		}

		chatID, err := sessions.CreateSession(who)
		if err != nil {
			if errors.Is(err, session.ErrInvalidOwner) {
				writeError(w, http.StatusBadRequest, "invalid owner")
				return
			}
			s.logger.Error("failed to create session", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create session")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"chat_id": chatID})
	}
}

func (s *Server) handleDeleteSession(sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who := owner(r)
		if who == "" {
			writeError(w, http.StatusBadRequest, "missing "+ownerHeader+" header")
			return
		}

		if err := sessions.DeleteSession(r.Context(), who, r.PathValue("id")); err != nil {
			if errors.Is(err, session.ErrInvalidOwner) {
				writeError(w, http.StatusBadRequest, "invalid owner")
				return
			}
			s.logger.Error("failed to delete session", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to delete session")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleHistory(sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who := owner(r)
		if who == "" {
			writeError(w, http.StatusBadRequest, "missing "+ownerHeader+" header")
			return
		}

		history, err := sessions.History(r.Context(), who, r.PathValue("id"))
		if err != nil {
			if errors.Is(err, session.ErrInvalidOwner) {
				writeError(w, http.StatusBadRequest, "invalid owner")
				return
			}
			s.logger.Error("failed to load history", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load history")
			return
		}

		resp := make([]messageResponse, 0, len(history))
		for _, msg := range history {
			resp = append(resp, messageResponse{
				Role:      msg.Role,
				Content:   msg.Content,
				CreatedAt: msg.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
