// Package respond writes JSON bodies and error replies.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bisicus/segreteriacanti-api/internal/domain"
	"github.com/bisicus/segreteriacanti-api/internal/reqctx"
)

// ErrorBody is the JSON reply for a failed request.
type ErrorBody struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
}

// JSON writes payload with status as indented JSON.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// Error maps err to its status and writes the error body. Internal failures
// are logged and answered with their public message only.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	derr, ok := domain.AsError(err)
	if !ok {
		derr = &domain.Error{Kind: domain.KindInternal, Message: "internal error"}
	}

	status := derr.Status()
	if status >= http.StatusInternalServerError {
		reqctx.Logger(r.Context()).Error("request failed",
			slog.Int("status", status),
			slog.String("kind", string(derr.Kind)),
			slog.String("error", err.Error()))
	}
	JSON(w, status, ErrorBody{Message: derr.Message, Kind: string(derr.Kind), Field: derr.Field})
}
