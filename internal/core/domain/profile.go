package domain

import "strings"

// Field names below are part of the backend document schema.
const (
	FieldName           = "name"
	FieldEmail          = "email"
	FieldIsArtist       = "isArtist"
	FieldMessagingToken = "messagingToken"
	FieldShowMessaging  = "showMessaging"
	FieldAdmins         = "admins"
)

// Profile is keyed 1:1 by Identity.UID.
type Profile struct {
	UID      string `json:"uid"       bson:"-"`
	Name     string `json:"name"      bson:"name"`
	Email    string `json:"email"     bson:"email"`
	IsArtist bool   `json:"is_artist" bson:"isArtist"`
}

// Device tracks push-notification registration for one installation.
// MessagingToken is nil until a token has been registered.
type Device struct {
	MessagingToken *string `json:"messaging_token,omitempty" bson:"messagingToken"`
	ShowMessaging  bool    `json:"show_messaging"            bson:"showMessaging"`
}

// NeedsPrompt reports whether the user should be asked for notification permission.
func (d Device) NeedsPrompt() bool {
	return d.MessagingToken == nil
}

// MaxAvatarBytes caps every stored avatar, uploaded or copied from the
// identity provider.
const MaxAvatarBytes = 5 << 20

// AdminAllowlist is the single global record of admin uids.
type AdminAllowlist struct {
	Admins []string `bson:"admins"`
}

// Contains reports whether uid is an admin.
func (a AdminAllowlist) Contains(uid string) bool {
	if uid == "" {
		return false
	}
	for _, admin := range a.Admins {
		if admin == uid {
			return true
		}
	}
	return false
}

const (
	AdminsPath = "other/admins"

	RouteHome          = "/"
	RouteArtistProfile = "/profile-artist"
)

func ProfilePath(uid string) string {
	return "profiles/" + uid
}

func DevicesCollection(uid string) string {
	return ProfilePath(uid) + "/devices"
}

func DevicePath(uid, deviceID string) string {
	return DevicesCollection(uid) + "/" + deviceID
}

func ProfileAvatarPath(uid string) string {
	return ProfilePath(uid) + "/avatar"
}

func ArtistAvatarPath(uid string) string {
	return "artists/" + uid + "/avatar"
}

// SplitPath breaks a slash separated document or blob path into its segments.
// Empty segments make the path invalid.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	segments := strings.Split(path, "/")
	for _, s := range segments {
		if s == "" {
			return nil, ErrInvalidPath
		}
	}
	return segments, nil
}
