package http

import (
	"errors"
	stdhttp "net/http"

	"github.com/dkurbatov/huddle/internal/proto"
	"github.com/dkurbatov/huddle/internal/store"
)

// ErrorResponse is the JSON error body returned by REST handlers.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// errorCode maps a service error to the wire-level error code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, errBadPayload), errors.Is(err, errUnknownEvent):
		return proto.CodeBadRequest
	case errors.Is(err, store.ErrNotFound):
		return proto.CodeNotFound
	case errors.Is(err, store.ErrForbidden):
		return proto.CodeForbidden
	case errors.Is(err, store.ErrValidation):
		return proto.CodeValidation
	case errors.Is(err, store.ErrInvalidOperation):
		return proto.CodeInvalidOperation
	default:
		return proto.CodeInternal
	}
}

// httpStatus maps a service error to an HTTP status code.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return stdhttp.StatusNotFound
	case errors.Is(err, store.ErrForbidden):
		return stdhttp.StatusForbidden
	case errors.Is(err, store.ErrValidation):
		return stdhttp.StatusBadRequest
	case errors.Is(err, store.ErrInvalidOperation):
		return stdhttp.StatusBadRequest
	default:
		return stdhttp.StatusInternalServerError
	}
}
