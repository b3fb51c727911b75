// Package functions invokes the privileged backend functions, either in
// process against the stores or over HTTP with the callable protocol.
package functions

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/identity"
	"github.com/atelier/profile-portal/internal/core/ports"
)

// Local runs becomeArtist and deleteProfile directly against the stores.
// The caller is taken from the identity in the context.
type Local struct {
	docs  ports.DocumentStore
	blobs ports.BlobStore
	log   zerolog.Logger
}

func NewLocal(docs ports.DocumentStore, blobs ports.BlobStore, log zerolog.Logger) *Local {
	return &Local{docs: docs, blobs: blobs, log: log}
}

func (l *Local) Invoke(ctx context.Context, name string) error {
	caller, ok := identity.FromContext(ctx)
	if !ok || caller.UID == "" {
		return domain.ErrUnauthenticated
	}

	var err error
	switch name {
	case ports.FunctionBecomeArtist:
		err = l.becomeArtist(ctx, caller.UID)
	case ports.FunctionDeleteProfile:
		err = l.deleteProfile(ctx, caller.UID)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownFunction, name)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	l.log.Info().Str("function", name).Str("uid", caller.UID).Msg("function completed")
	return nil
}

func (l *Local) becomeArtist(ctx context.Context, uid string) error {
	return l.docs.Update(ctx, domain.ProfilePath(uid), map[string]any{domain.FieldIsArtist: true})
}

func (l *Local) deleteProfile(ctx context.Context, uid string) error {
	if err := l.docs.DeleteChildren(ctx, domain.DevicesCollection(uid)); err != nil {
		return err
	}
	for _, p := range []string{domain.ProfileAvatarPath(uid), domain.ArtistAvatarPath(uid)} {
		if err := l.blobs.Delete(ctx, p); err != nil && !errors.Is(err, domain.ErrBlobNotFound) {
			return err
		}
	}
	return l.docs.Delete(ctx, domain.ProfilePath(uid))
}
