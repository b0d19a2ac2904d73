package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/avgystin/practicalwork/internal/domain"
)

type DelayTable interface {
	Delays() map[string]time.Duration
	Configure(delays map[string]time.Duration)
}

func delaysInMillis(delays map[string]time.Duration) map[string]int64 {
	out := make(map[string]int64, len(delays))
	for op, d := range delays {
		out[op] = d.Milliseconds()
	}
	return out
}

// HandleGetDelays returns the delay table in milliseconds.
func HandleGetDelays(table DelayTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, delaysInMillis(table.Delays()))
	}
}

// HandleSetDelays merges {operation: milliseconds} into the delay table and
// returns the resulting table.
func HandleSetDelays(table DelayTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req map[string]int64
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "expected an object of operation to milliseconds")
			return
		}

		update := make(map[string]time.Duration, len(req))
		for op, ms := range req {
			d, err := domain.DelayFromMillis(ms)
			if op == "" || err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidDelay, fmt.Sprintf("delays must be named and between 0 and %d ms", domain.MaxDelayMillis))
				return
			}
			update[op] = d
		}
		table.Configure(update)
		writeJSON(w, http.StatusOK, delaysInMillis(table.Delays()))
	}
}
