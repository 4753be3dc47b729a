package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	minutesErrors "github.com/harunnryd/minutes/internal/errors"
	"github.com/harunnryd/minutes/internal/logger"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// writeError maps err onto a status code. Internal failures are logged and
// answered without their details.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := minutesErrors.HTTPStatus(err)
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		status = http.StatusRequestEntityTooLarge
	}

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", append(logger.Attrs(ctx), "status", status, "error", err)...)
		if status == http.StatusInternalServerError {
			writeDetail(w, status, "internal server error")
			return
		}
	}
	writeDetail(w, status, err.Error())
}
