package ports

import (
	"context"

	"github.com/atelier/profile-portal/internal/core/domain"
)

// IdentitySource exposes the current Identity of a session.
type IdentitySource interface {
	// Current blocks until the provider has resolved the session and returns
	// the identity, or nil for an anonymous visitor.
	Current(ctx context.Context) (*domain.Identity, error)

	// Watch emits the current identity and every later change until ctx is
	// cancelled. A nil value means signed out.
	Watch(ctx context.Context) <-chan *domain.Identity
}

// SessionTerminator invalidates a session (sign-out).
type SessionTerminator interface {
	SignOut(ctx context.Context, identity *domain.Identity) error
}

// DeviceIDStore looks up the locally persisted device identifier.
type DeviceIDStore interface {
	DeviceID(ctx context.Context) (string, error)
}
