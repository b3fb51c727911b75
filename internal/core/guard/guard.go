// Package guard decides whether a session may enter the admin area.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/ports"
)

const defaultReadTimeout = 5 * time.Second

// Decision is the outcome of one navigation check.
type Decision int

const (
	Deny Decision = iota
	Allow
	RedirectSignIn
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectSignIn:
		return "redirect_signin"
	default:
		return "deny"
	}
}

// Result carries the decision and, for RedirectSignIn, the route to go to.
type Result struct {
	Decision Decision
	Redirect string
}

// DocumentReader is the part of the document store the guard needs.
type DocumentReader interface {
	Get(ctx context.Context, path string) (ports.Snapshot, error)
}

// Guard checks the current identity against the admin allowlist. It keeps no
// state between calls; every navigation is decided from a fresh read.
type Guard struct {
	docs        DocumentReader
	signInRoute string
	readTimeout time.Duration
	log         zerolog.Logger
}

// New returns a Guard. readTimeout bounds the allowlist read; a timed out
// read denies.
func New(docs DocumentReader, signInRoute string, readTimeout time.Duration, log zerolog.Logger) *Guard {
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	return &Guard{docs: docs, signInRoute: signInRoute, readTimeout: readTimeout, log: log}
}

// CanEnter waits for the session identity to resolve and decides whether it
// may proceed. Anonymous sessions are redirected without reading any
// document. Errors never allow.
func (g *Guard) CanEnter(ctx context.Context, session ports.IdentitySource) Result {
	id, err := session.Current(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("guard: identity unresolved, denying")
		return Result{Decision: Deny}
	}
	if id == nil || id.UID == "" {
		return Result{Decision: RedirectSignIn, Redirect: g.signInRoute}
	}

	ok, err := g.isAdmin(ctx, id.UID)
	if err != nil {
		g.log.Warn().Err(err).Str("uid", id.UID).Msg("guard: allowlist read failed, denying")
		return Result{Decision: Deny}
	}
	if !ok {
		g.log.Debug().Str("uid", id.UID).Msg("guard: not an admin")
		return Result{Decision: Deny}
	}
	return Result{Decision: Allow}
}

func (g *Guard) isAdmin(ctx context.Context, uid string) (bool, error) {
	readCtx, cancel := context.WithTimeout(ctx, g.readTimeout)
	defer cancel()

	snap, err := g.docs.Get(readCtx, domain.AdminsPath)
	if err != nil {
		return false, fmt.Errorf("read allowlist: %w", err)
	}
	if !snap.Exists {
		return false, nil
	}

	var list domain.AdminAllowlist
	if err := snap.Decode(&list); err != nil {
		return false, fmt.Errorf("decode allowlist: %w", err)
	}
	return list.Contains(uid), nil
}
