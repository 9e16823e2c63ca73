// Package respond writes JSON bodies and maps service errors to HTTP status
// codes for every handler.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrJamesThe3rd/feeflow/internal/ledger"
	"github.com/MrJamesThe3rd/feeflow/internal/refcode"
	"github.com/MrJamesThe3rd/feeflow/internal/statement"
	"github.com/MrJamesThe3rd/feeflow/internal/storage"
	"github.com/MrJamesThe3rd/feeflow/internal/transaction"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error writes err with the status its kind calls for. Unrecognized errors
// are logged and hidden behind a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		JSON(w, status, errorResponse{Error: "internal error"})

		return
	}

	resp := errorResponse{Error: err.Error()}

	var ve *transaction.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}

	JSON(w, status, resp)
}

func Status(err error) int {
	switch {
	case errors.Is(err, transaction.ErrValidation), errors.Is(err, ledger.ErrInvalidEntry):
		return http.StatusBadRequest
	case errors.Is(err, statement.ErrUnknownFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, transaction.ErrAlreadyFinalized), errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, refcode.ErrCodeGenerationExhausted), errors.Is(err, storage.ErrUnreachable):
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

// BadRequest reports a malformed request the services never saw.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
