// Package tasks runs deferred work on a Redis stream: confirmation emails and
// featured speaker refreshes, plus the periodic announcement refresh.
package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// StreamKey is the Redis stream carrying task envelopes.
	StreamKey = "stream:tasks"

	// DeadLetterStreamKey receives tasks that cannot be processed.
	DeadLetterStreamKey = "stream:tasks:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000
)

// Task types.
const (
	TypeConfirmationEmail = "send_confirmation_email"
	TypeFeaturedSpeaker   = "handle_featured_speaker"
)

// ErrInvalidTask marks envelopes that are dead-lettered without retry.
var ErrInvalidTask = errors.New("invalid task")

// Envelope is the stream message body.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// ConfirmationEmailPayload is the payload of TypeConfirmationEmail.
type ConfirmationEmailPayload struct {
	Email          string `json:"email"`
	ConferenceInfo string `json:"conference_info"`
}

// FeaturedSpeakerPayload is the payload of TypeFeaturedSpeaker.
type FeaturedSpeakerPayload struct {
	SpeakerKey    string `json:"speaker_key"`
	ConferenceKey string `json:"conference_key"`
}

// decodeEnvelope parses a stream payload and checks the envelope fields.
func decodeEnvelope(raw string) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	if env.ID == "" {
		return Envelope{}, fmt.Errorf("%w: id is required", ErrInvalidTask)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: type is required", ErrInvalidTask)
	}
	return env, nil
}

// decodePayload unmarshals an envelope payload into dst.
func decodePayload(env Envelope, dst any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", ErrInvalidTask)
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	return nil
}
