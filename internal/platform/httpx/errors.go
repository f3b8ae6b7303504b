package httpx

import (
	"errors"
	"net/http"

	"github.com/pictor-board/pictor/internal/shared"
)

// ErrorResponse is the error envelope every endpoint returns.
type ErrorResponse struct {
	Kind    shared.ErrorKind `json:"kind"`
	Message string           `json:"message"`
	Missing []string         `json:"missing,omitempty"`
}

// Error writes err as an ErrorResponse with the status its kind maps to.
// Internal errors are masked; the caller is responsible for logging them.
func Error(w http.ResponseWriter, err error) {
	kind := shared.KindOf(err)
	if kind == shared.KindInternal {
		JSON(w, http.StatusInternalServerError, ErrorResponse{
			Kind:    kind,
			Message: "Internal error",
		})
		return
	}
	resp := ErrorResponse{Kind: kind, Message: err.Error()}
	var typed *shared.Error
	if errors.As(err, &typed) {
		resp.Missing = typed.MissingArgs
	}
	JSON(w, shared.HTTPStatus(kind), resp)
}
