// Package model defines domain entities for the application.
package model

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
)

// Kind names the entity type a Key points at.
type Kind string

// Entity kinds.
const (
	KindProfile    Kind = "Profile"
	KindConference Kind = "Conference"
	KindSession    Kind = "Session"
	KindSpeaker    Kind = "Speaker"
)

// parentKinds lists the kind each entity's parent must have. Empty means top-level.
var parentKinds = map[Kind]Kind{
	KindProfile:    "",
	KindConference: KindProfile,
	KindSession:    KindConference,
	KindSpeaker:    "",
}

var (
	// ErrInvalidKey indicates a websafe key that cannot be decoded.
	ErrInvalidKey = errors.New("invalid key")
	// ErrWrongKind indicates a key that decodes but points at another entity type.
	ErrWrongKind = errors.New("key refers to a different kind")
)

// Key identifies an entity by kind, id and ancestor path.
// Callers outside model and the stores treat the encoded form as opaque.
type Key struct {
	Kind   Kind
	ID     string
	Parent *Key
}

// NewProfileKey returns the key of a user's profile.
func NewProfileKey(userID string) Key {
	return Key{Kind: KindProfile, ID: userID}
}

// NewConferenceKey returns the key of a conference owned by organizerID.
func NewConferenceKey(organizerID, conferenceID string) Key {
	parent := NewProfileKey(organizerID)
	return Key{Kind: KindConference, ID: conferenceID, Parent: &parent}
}

// NewSessionKey returns the key of a session under the given conference.
func NewSessionKey(conference Key, sessionID string) Key {
	parent := conference
	return Key{Kind: KindSession, ID: sessionID, Parent: &parent}
}

// NewSpeakerKey returns the key of a speaker.
func NewSpeakerKey(speakerID string) Key {
	return Key{Kind: KindSpeaker, ID: speakerID}
}

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool {
	return k.Kind == "" && k.ID == ""
}

// ParentID returns the id of the immediate parent, or "" for top-level keys.
func (k Key) ParentID() string {
	if k.Parent == nil {
		return ""
	}
	return k.Parent.ID
}

// Ancestor walks up the path and returns the first key of the given kind.
func (k Key) Ancestor(kind Kind) (Key, bool) {
	for cur := &k; cur != nil; cur = cur.Parent {
		if cur.Kind == kind {
			return *cur, true
		}
	}
	return Key{}, false
}

// Equal compares two keys including their ancestor paths.
func (k Key) Equal(other Key) bool {
	return k.path() == other.path()
}

// Encode returns the websafe form of the key.
func (k Key) Encode() string {
	return base64.RawURLEncoding.EncodeToString([]byte(k.path()))
}

// String implements fmt.Stringer with the websafe form.
func (k Key) String() string {
	return k.Encode()
}

func (k Key) path() string {
	var elems []string
	for cur := &k; cur != nil; cur = cur.Parent {
		elems = append([]string{url.PathEscape(string(cur.Kind)), url.PathEscape(cur.ID)}, elems...)
	}
	return strings.Join(elems, "/")
}

// DecodeKey parses a websafe key and validates its ancestor path.
func DecodeKey(websafe string) (Key, error) {
	raw, err := base64.RawURLEncoding.DecodeString(websafe)
	if err != nil || len(raw) == 0 {
		return Key{}, ErrInvalidKey
	}

	elems := strings.Split(string(raw), "/")
	if len(elems)%2 != 0 {
		return Key{}, ErrInvalidKey
	}

	var parent *Key
	for i := 0; i < len(elems); i += 2 {
		kind, err := url.PathUnescape(elems[i])
		if err != nil {
			return Key{}, ErrInvalidKey
		}
		id, err := url.PathUnescape(elems[i+1])
		if err != nil || id == "" {
			return Key{}, ErrInvalidKey
		}

		wantParent, known := parentKinds[Kind(kind)]
		if !known {
			return Key{}, ErrInvalidKey
		}
		var gotParent Kind
		if parent != nil {
			gotParent = parent.Kind
		}
		if gotParent != wantParent {
			return Key{}, ErrInvalidKey
		}

		parent = &Key{Kind: Kind(kind), ID: id, Parent: parent}
	}

	return *parent, nil
}

// DecodeKeyOf parses a websafe key and requires it to be of the given kind.
func DecodeKeyOf(websafe string, kind Kind) (Key, error) {
	key, err := DecodeKey(websafe)
	if err != nil {
		return Key{}, err
	}
	if key.Kind != kind {
		return Key{}, ErrWrongKind
	}
	return key, nil
}
