package model

import (
	"slices"
	"strings"
)

// Profile holds a user's conference-facing details and bookkeeping lists.
// It is keyed by the authenticated user id.
type Profile struct {
	UserID                 string
	DisplayName            string
	MainEmail              string
	TeeShirtSize           TeeShirtSize
	ConferenceKeysToAttend []string
	SessionKeysWishlist    []string
}

// NewProfile builds the profile created on a user's first authenticated access.
func NewProfile(userID, email string) *Profile {
	return &Profile{
		UserID:                 userID,
		DisplayName:            Nickname(email),
		MainEmail:              email,
		TeeShirtSize:           TeeShirtNotSpecified,
		ConferenceKeysToAttend: []string{},
		SessionKeysWishlist:    []string{},
	}
}

// Nickname derives a display name from the local part of an email address.
func Nickname(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return email
	}
	return local
}

// Key returns the profile key.
func (p *Profile) Key() Key {
	return NewProfileKey(p.UserID)
}

// IsAttending reports whether the encoded conference key is in the attending list.
func (p *Profile) IsAttending(conferenceKey string) bool {
	return slices.Contains(p.ConferenceKeysToAttend, conferenceKey)
}

// Attend appends the conference to the attending list.
func (p *Profile) Attend(conferenceKey string) {
	p.ConferenceKeysToAttend = append(p.ConferenceKeysToAttend, conferenceKey)
}

// Unattend removes the conference and reports whether it was present.
func (p *Profile) Unattend(conferenceKey string) bool {
	idx := slices.Index(p.ConferenceKeysToAttend, conferenceKey)
	if idx < 0 {
		return false
	}
	p.ConferenceKeysToAttend = slices.Delete(p.ConferenceKeysToAttend, idx, idx+1)
	return true
}

// HasWishlisted reports whether the encoded session key is in the wishlist.
func (p *Profile) HasWishlisted(sessionKey string) bool {
	return slices.Contains(p.SessionKeysWishlist, sessionKey)
}

// Wishlist adds a session to the wishlist.
func (p *Profile) Wishlist(sessionKey string) {
	p.SessionKeysWishlist = append(p.SessionKeysWishlist, sessionKey)
}

// Unwishlist removes a session and reports whether it was present.
func (p *Profile) Unwishlist(sessionKey string) bool {
	idx := slices.Index(p.SessionKeysWishlist, sessionKey)
	if idx < 0 {
		return false
	}
	p.SessionKeysWishlist = slices.Delete(p.SessionKeysWishlist, idx, idx+1)
	return true
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.ConferenceKeysToAttend = slices.Clone(p.ConferenceKeysToAttend)
	out.SessionKeysWishlist = slices.Clone(p.SessionKeysWishlist)
	return &out
}
