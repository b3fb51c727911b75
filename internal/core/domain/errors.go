package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrSessionRevoked     = errors.New("session revoked")
	ErrForbidden          = errors.New("access forbidden")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrBlobNotFound       = errors.New("blob not found")
	ErrInvalidPath        = errors.New("invalid path")
	ErrPermissionDenied   = errors.New("notification permission denied")
	ErrUnknownFunction    = errors.New("unknown function")
	ErrActionInFlight     = errors.New("action already in progress")
	ErrInvocationFinished = errors.New("invocation already finished")
	ErrInvocationNotFound = errors.New("invocation not found")
	ErrDeviceUnknown      = errors.New("device id not available")
	ErrUnknownAction      = errors.New("unknown action")
	ErrAvatarTooLarge     = errors.New("avatar too large")
)

// ValidationError is a form-level failure detected before any remote call.
// Fields maps a field name to a human readable message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Fields[name])
	}
	return strings.Join(msgs, "; ")
}
