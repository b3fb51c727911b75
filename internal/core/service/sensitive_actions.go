package service

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/atelier/profile-portal/internal/core/action"
	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/identity"
	"github.com/atelier/profile-portal/internal/core/ports"
)

// Action kinds as addressed by clients.
const (
	KindBecomeArtist  = "become-artist"
	KindDeleteProfile = "delete-profile"
)

var (
	becomeArtistCopy = action.Copy{
		Title:         "Become an artist",
		Action:        "become an artist",
		TitlePresent:  "Becoming an artist",
		ActionPresent: "you're becoming an artist",
		TitleDone:     "Now an artist",
		ActionDone:    "You are now an artist",
	}
	deleteProfileCopy = action.Copy{
		Title:         "Delete profile",
		Action:        "delete your profile",
		TitlePresent:  "Deleting profile",
		ActionPresent: "your profile is being deleted",
		TitleDone:     "Profile deleted",
		ActionDone:    "Your profile was deleted successfully",
	}
)

// SensitiveActions builds the confirmable actions of one signed-in user.
type SensitiveActions struct {
	functions ports.FunctionGateway
	blobs     ports.BlobStore
	photos    ports.PhotoFetcher
	navigator ports.Navigator
	sessions  ports.SessionTerminator
	logger    zerolog.Logger
}

func NewSensitiveActions(
	functions ports.FunctionGateway,
	blobs ports.BlobStore,
	photos ports.PhotoFetcher,
	navigator ports.Navigator,
	sessions ports.SessionTerminator,
	logger zerolog.Logger,
) *SensitiveActions {
	return &SensitiveActions{
		functions: functions,
		blobs:     blobs,
		photos:    photos,
		navigator: navigator,
		sessions:  sessions,
		logger:    logger,
	}
}

// Build returns the action addressed by kind for caller.
func (s *SensitiveActions) Build(kind string, caller *domain.Identity) (*action.Action, error) {
	if caller == nil || caller.UID == "" {
		return nil, domain.ErrUnauthenticated
	}
	switch kind {
	case KindBecomeArtist:
		return s.BecomeArtist(caller), nil
	case KindDeleteProfile:
		return s.DeleteProfile(caller), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAction, kind)
	}
}

// BecomeArtist escalates the caller to the artist role, copies the provider
// photo to the artist avatar and moves to the artist profile. A failure after
// the role change leaves the role in place.
func (s *SensitiveActions) BecomeArtist(caller *domain.Identity) *action.Action {
	return action.NewAction(ports.FunctionBecomeArtist, becomeArtistCopy, func(ctx context.Context) error {
		ctx = identity.NewContext(ctx, caller)

		if err := s.functions.Invoke(ctx, ports.FunctionBecomeArtist); err != nil {
			return err
		}

		photo, contentType, err := s.photos.Fetch(ctx, caller.PhotoURL)
		if err != nil {
			s.logger.Warn().Err(err).Str("uid", caller.UID).Msg("artist promoted without avatar")
			return err
		}
		defer photo.Close()

		if err := s.blobs.Put(ctx, domain.ArtistAvatarPath(caller.UID), capAvatar(photo), contentType); err != nil {
			s.logger.Warn().Err(err).Str("uid", caller.UID).Msg("artist promoted without avatar")
			return fmt.Errorf("upload artist avatar: %w", err)
		}

		return s.navigator.Navigate(ctx, domain.RouteArtistProfile)
	})
}

// DeleteProfile removes the caller's profile, moves home and ends the session,
// in that order.
func (s *SensitiveActions) DeleteProfile(caller *domain.Identity) *action.Action {
	return action.NewAction(ports.FunctionDeleteProfile, deleteProfileCopy, func(ctx context.Context) error {
		ctx = identity.NewContext(ctx, caller)

		if err := s.functions.Invoke(ctx, ports.FunctionDeleteProfile); err != nil {
			return err
		}
		if err := s.navigator.Navigate(ctx, domain.RouteHome); err != nil {
			return err
		}
		if err := s.sessions.SignOut(ctx, caller); err != nil {
			return fmt.Errorf("sign out: %w", err)
		}
		return nil
	})
}

// capAvatar fails the read with ErrAvatarTooLarge once r yields more than
// MaxAvatarBytes.
func capAvatar(r io.Reader) io.Reader {
	return &avatarReader{r: io.LimitReader(r, domain.MaxAvatarBytes+1)}
}

type avatarReader struct {
	r io.Reader
	n int64
}

func (a *avatarReader) Read(p []byte) (int, error) {
	n, err := a.r.Read(p)
	a.n += int64(n)
	if a.n > domain.MaxAvatarBytes {
		return 0, domain.ErrAvatarTooLarge
	}
	return n, err
}
