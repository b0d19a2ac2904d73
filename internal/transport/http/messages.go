package http

import (
	"context"
	"net/http"

	"github.com/avgystin/practicalwork/internal/app"
)

type MessagePoster interface {
	PostMessage(ctx context.Context, in app.PostMessageInput) (string, error)
}

type postMessageRequest struct {
	MsgID string `json:"msg_id"`
}

// HandlePostMessage publishes an audit record of this request to the
// posted-messages stream.
func HandlePostMessage(poster MessagePoster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req postMessageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.MsgID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "msg_id is required")
			return
		}

		eventID, err := poster.PostMessage(r.Context(), app.PostMessageInput{
			MsgID:  req.MsgID,
			Method: r.Method,
			URI:    r.URL.Path,
		})
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, codeStreamUnavailable, "message could not be published")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"msg_id":   req.MsgID,
			"event_id": eventID,
		})
	}
}
