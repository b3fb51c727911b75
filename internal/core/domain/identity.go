package domain

import "time"

const (
	RoleArtist = "artist"
)

// Identity is the authenticated subject of the current session.
type Identity struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"display_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Roles       []string  `json:"roles,omitempty"`
	SessionID   string    `json:"-"`
	Token       string    `json:"-"`
	ExpiresAt   time.Time `json:"-"`
}

// HasRole reports whether the provider granted the identity the given role claim.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}
