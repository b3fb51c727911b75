package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/ports"
)

const (
	permissionDeniedTitle = "Permission denied"
	permissionDeniedText  = "The notifications permission has been denied! Please go to the settings of your browser to grant it, then click this button again."

	profileSavedTitle = "Profile saved"
	profileSavedText  = "The changes to your profile were saved successfully."
	profileErrorTitle = "Error saving profile"

	deviceRegisteredTitle = "Notifications enabled"
	deviceRegisteredText  = "You will now receive notifications on this device."
	deviceErrorTitle      = "Error enabling notifications"
)

// Sessions builds ProfileSession values that share the same stores.
type Sessions struct {
	docs     ports.DocumentStore
	blobs    ports.BlobStore
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewSessions(docs ports.DocumentStore, blobs ports.BlobStore, logger zerolog.Logger) *Sessions {
	return &Sessions{
		docs:     docs,
		blobs:    blobs,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// For binds a session to an identity source and a device id lookup.
func (s *Sessions) For(identities ports.IdentitySource, devices ports.DeviceIDStore) *ProfileSession {
	return &ProfileSession{Sessions: s, identities: identities, devices: devices}
}

// ProfileSession exposes the current user's profile and device documents.
type ProfileSession struct {
	*Sessions
	identities ports.IdentitySource
	devices    ports.DeviceIDStore
}

// ProfileView is one observation of the live profile. Identity is nil when
// signed out; Exists is false while the profile document is missing.
type ProfileView struct {
	Identity *domain.Identity `json:"-"`
	Profile  *domain.Profile  `json:"profile,omitempty"`
	Exists   bool             `json:"exists"`
	SignedIn bool             `json:"signed_in"`
}

// WatchProfile follows profiles/{uid} of whoever is signed in. A change of
// uid drops the previous subscription before the next one starts.
func (p *ProfileSession) WatchProfile(ctx context.Context) <-chan ProfileView {
	return followIdentity(ctx, p.docs, p.identities.Watch(ctx),
		func(_ context.Context, id *domain.Identity) (string, error) {
			return domain.ProfilePath(id.UID), nil
		},
		func(id *domain.Identity, snap ports.Snapshot) ProfileView {
			view := ProfileView{Identity: id, SignedIn: id != nil, Exists: snap.Exists}
			if !snap.Exists {
				return view
			}
			var prof domain.Profile
			if err := snap.Decode(&prof); err != nil {
				p.logger.Warn().Err(err).Str("path", snap.Path).Msg("undecodable profile")
				view.Exists = false
				return view
			}
			prof.UID = id.UID
			view.Profile = &prof
			return view
		},
		func(id *domain.Identity, err error) ProfileView {
			if err != nil {
				p.logger.Warn().Err(err).Msg("profile subscription failed")
			}
			return ProfileView{Identity: id, SignedIn: id != nil}
		},
	)
}

// WatchNotificationPrompt emits whether this device still lacks a messaging
// token. A missing device record counts as lacking one; signed out never
// prompts.
func (p *ProfileSession) WatchNotificationPrompt(ctx context.Context) <-chan bool {
	return followIdentity(ctx, p.docs, p.identities.Watch(ctx),
		p.devicePath,
		func(_ *domain.Identity, snap ports.Snapshot) bool {
			return p.needsPrompt(snap)
		},
		func(_ *domain.Identity, err error) bool {
			if err != nil {
				p.logger.Warn().Err(err).Msg("device subscription failed")
			}
			return false
		},
	)
}

// NotificationPrompt is the current value of WatchNotificationPrompt.
func (p *ProfileSession) NotificationPrompt(ctx context.Context) (bool, error) {
	id, err := p.identities.Current(ctx)
	if err != nil {
		return false, err
	}
	if id == nil {
		return false, nil
	}
	path, err := p.devicePath(ctx, id)
	if err != nil {
		return false, err
	}
	snap, err := p.docs.Get(ctx, path)
	if err != nil {
		return false, err
	}
	return p.needsPrompt(snap), nil
}

func (p *ProfileSession) needsPrompt(snap ports.Snapshot) bool {
	if !snap.Exists {
		return true
	}
	var d domain.Device
	if err := snap.Decode(&d); err != nil {
		p.logger.Warn().Err(err).Str("path", snap.Path).Msg("undecodable device")
		return true
	}
	return d.NeedsPrompt()
}

// RegisterDevice asks for a messaging token and stores it on this device.
// On denial the device record is left untouched.
func (p *ProfileSession) RegisterDevice(ctx context.Context, tokens ports.MessagingTokens) (domain.Notice, error) {
	id, err := p.signedIn(ctx)
	if err != nil {
		return domain.ErrorNotice(deviceErrorTitle, err), err
	}
	path, err := p.devicePath(ctx, id)
	if err != nil {
		return domain.ErrorNotice(deviceErrorTitle, err), err
	}

	token, err := tokens.RequestToken(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			return domain.Notice{Kind: domain.NoticeError, Title: permissionDeniedTitle, Text: permissionDeniedText}, err
		}
		return domain.ErrorNotice(deviceErrorTitle, err), err
	}

	err = p.docs.Update(ctx, path, map[string]any{
		domain.FieldMessagingToken: token,
		domain.FieldShowMessaging:  false,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("uid", id.UID).Msg("register device failed")
		return domain.ErrorNotice(deviceErrorTitle, err), err
	}

	p.logger.Info().Str("uid", id.UID).Msg("device registered")
	return domain.SuccessNotice(deviceRegisteredTitle, deviceRegisteredText), nil
}

// Avatar is an optional image uploaded together with the profile form.
type Avatar struct {
	Body        io.Reader
	ContentType string `validate:"required"`
}

type SaveProfileInput struct {
	Name   string  `validate:"required"`
	Avatar *Avatar `validate:"omitnil"`
}

// SaveProfile validates the form, uploads the avatar if one was given and
// then writes the name in a single update. Nothing is written when validation
// fails, and the profile document is unchanged when any step fails.
func (p *ProfileSession) SaveProfile(ctx context.Context, in SaveProfileInput) (domain.Notice, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := p.validate.Struct(in); err != nil {
		verr := toValidationError(err)
		return domain.ErrorNotice(profileErrorTitle, verr), verr
	}

	id, err := p.signedIn(ctx)
	if err != nil {
		return domain.ErrorNotice(profileErrorTitle, err), err
	}

	if in.Avatar != nil {
		if err := p.blobs.Put(ctx, domain.ProfileAvatarPath(id.UID), in.Avatar.Body, in.Avatar.ContentType); err != nil {
			p.logger.Error().Err(err).Str("uid", id.UID).Msg("avatar upload failed")
			return domain.ErrorNotice(profileErrorTitle, err), err
		}
	}

	if err := p.docs.Update(ctx, domain.ProfilePath(id.UID), map[string]any{domain.FieldName: in.Name}); err != nil {
		p.logger.Error().Err(err).Str("uid", id.UID).Msg("save profile failed")
		return domain.ErrorNotice(profileErrorTitle, err), err
	}

	p.logger.Info().Str("uid", id.UID).Msg("profile saved")
	return domain.SuccessNotice(profileSavedTitle, profileSavedText), nil
}

// AvatarURL returns the download URL of the profile avatar.
func (p *ProfileSession) AvatarURL(ctx context.Context) (string, error) {
	id, err := p.signedIn(ctx)
	if err != nil {
		return "", err
	}
	return p.blobs.DownloadURL(ctx, domain.ProfileAvatarPath(id.UID))
}

// Profile reads the signed-in user's profile once.
func (p *ProfileSession) Profile(ctx context.Context) (*domain.Profile, error) {
	id, err := p.signedIn(ctx)
	if err != nil {
		return nil, err
	}
	return p.ProfileOf(ctx, id.UID)
}

// ProfileOf reads any profile by uid.
func (s *Sessions) ProfileOf(ctx context.Context, uid string) (*domain.Profile, error) {
	snap, err := s.docs.Get(ctx, domain.ProfilePath(uid))
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, fmt.Errorf("profile %s: %w", uid, domain.ErrDocumentNotFound)
	}
	var prof domain.Profile
	if err := snap.Decode(&prof); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", uid, err)
	}
	prof.UID = uid
	return &prof, nil
}

func (p *ProfileSession) signedIn(ctx context.Context) (*domain.Identity, error) {
	id, err := p.identities.Current(ctx)
	if err != nil {
		return nil, err
	}
	if id == nil || id.UID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return id, nil
}

func (p *ProfileSession) devicePath(ctx context.Context, id *domain.Identity) (string, error) {
	deviceID, err := p.devices.DeviceID(ctx)
	if err != nil {
		return "", err
	}
	if deviceID == "" {
		return "", domain.ErrDeviceUnknown
	}
	return domain.DevicePath(id.UID, deviceID), nil
}

func toValidationError(err error) *domain.ValidationError {
	verr := &domain.ValidationError{Fields: map[string]string{}}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		verr.Fields["form"] = err.Error()
		return verr
	}
	for _, fe := range ves {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			verr.Fields[name] = name + " is required"
		default:
			verr.Fields[name] = name + " is invalid"
		}
	}
	return verr
}
