package http

import (
	"context"
	"net/http"

	"github.com/avgystin/practicalwork/internal/app"
)

type SessionValidator interface {
	IsValid(token string) bool
}

// SessionManager is the session registry as seen by the handlers.
type SessionManager interface {
	SessionValidator
	Create() string
	Delete(token string) bool
}

// Delayer injects the configured latency for an operation.
type Delayer interface {
	Apply(ctx context.Context, operation string)
}

// SessionCounter is notified of every issued session.
type SessionCounter interface {
	SessionCreated()
}

// HandleCreateSession issues a new session token.
func HandleCreateSession(sessions SessionManager, delays Delayer, counter SessionCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		delays.Apply(r.Context(), app.OpSessionCreate)

		token := sessions.Create()
		if counter != nil {
			counter.SessionCreated()
		}
		writeJSON(w, http.StatusOK, map[string]string{"session_id": token})
	}
}

// HandleDeleteSession ends the caller's session. It runs behind RequireSession.
func HandleDeleteSession(sessions SessionManager, delays Delayer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		delays.Apply(r.Context(), app.OpSessionDelete)

		if !sessions.Delete(sessionFromContext(r.Context())) {
			writeError(w, http.StatusNotFound, codeSessionNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "session deleted"})
	}
}

type checkSessionResponse struct {
	SessionID string `json:"session_id"`
	IsValid   bool   `json:"is_valid"`
	Message   string `json:"message"`
}

// HandleCheckSession reports whether the session_id query parameter names a
// live session. It never answers 401.
func HandleCheckSession(sessions SessionValidator, delays Delayer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("session_id")
		if token == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "session_id is required")
			return
		}

		delays.Apply(r.Context(), app.OpSessionCheck)

		valid := sessions.IsValid(token)
		msg := "session is invalid or deleted"
		if valid {
			msg = "session is active"
		}
		writeJSON(w, http.StatusOK, checkSessionResponse{SessionID: token, IsValid: valid, Message: msg})
	}
}
