package handler

import (
	"errors"
	"net/http"

	"github.com/atelier/profile-portal/internal/core/domain"
)

// ErrorResponse is the error envelope of every endpoint. Fields is set for
// validation failures; Notice when the user should see a modal for it.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Notice *domain.Notice    `json:"notice,omitempty"`
}

// StatusFor maps known domain errors to an HTTP status and a client message.
// ok is false for errors that should be treated as internal.
func StatusFor(err error) (code int, msg string, ok bool) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, verr.Error(), true
	}

	switch {
	case errors.Is(err, domain.ErrSessionRevoked):
		return http.StatusUnauthorized, "session revoked", true
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", true
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access forbidden", true
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden, "notification permission denied", true
	case errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound, "document not found", true
	case errors.Is(err, domain.ErrBlobNotFound):
		return http.StatusNotFound, "file not found", true
	case errors.Is(err, domain.ErrInvocationNotFound):
		return http.StatusNotFound, "invocation not found", true
	case errors.Is(err, domain.ErrUnknownAction), errors.Is(err, domain.ErrUnknownFunction):
		return http.StatusNotFound, err.Error(), true
	case errors.Is(err, domain.ErrActionInFlight):
		return http.StatusConflict, "action already in progress", true
	case errors.Is(err, domain.ErrInvocationFinished):
		return http.StatusGone, "invocation already finished", true
	case errors.Is(err, domain.ErrAvatarTooLarge):
		return http.StatusRequestEntityTooLarge, "avatar too large", true
	case errors.Is(err, domain.ErrInvalidPath), errors.Is(err, domain.ErrDeviceUnknown):
		return http.StatusBadRequest, err.Error(), true
	}
	return http.StatusInternalServerError, "internal server error", false
}

// noticeError renders err together with the notice the user should see.
// Unknown errors, typically remote failures, answer 502.
func noticeError(err error, notice domain.Notice) (int, ErrorResponse) {
	resp := ErrorResponse{Error: err.Error(), Notice: &notice}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	code, msg, ok := StatusFor(err)
	if !ok {
		return http.StatusBadGateway, resp
	}
	resp.Error = msg
	return code, resp
}
