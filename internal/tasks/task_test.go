package tasks

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDecodeEnvelope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"id":"01H","type":"handle_featured_speaker","payload":{"speaker_key":"a"},"enqueued_at":"2026-01-01T00:00:00Z"}`, false},
		{"not json", `{"id":`, true},
		{"missing id", `{"type":"handle_featured_speaker","payload":{}}`, true},
		{"missing type", `{"id":"01H","payload":{}}`, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := decodeEnvelope(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeEnvelope() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTask) {
				t.Errorf("expected ErrInvalidTask, got %v", err)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	t.Parallel()

	var payload FeaturedSpeakerPayload
	err := decodePayload(Envelope{Payload: json.RawMessage(`{"speaker_key":"s","conference_key":"c"}`)}, &payload)
	if err != nil {
		t.Fatalf("decodePayload failed: %v", err)
	}
	if payload.SpeakerKey != "s" || payload.ConferenceKey != "c" {
		t.Errorf("payload = %+v", payload)
	}

	if err := decodePayload(Envelope{}, &payload); !errors.Is(err, ErrInvalidTask) {
		t.Errorf("empty payload: expected ErrInvalidTask, got %v", err)
	}
	if err := decodePayload(Envelope{Payload: json.RawMessage(`[1]`)}, &payload); !errors.Is(err, ErrInvalidTask) {
		t.Errorf("wrong shape: expected ErrInvalidTask, got %v", err)
	}
}

func TestPublisher_NewEnvelope(t *testing.T) {
	t.Parallel()

	p := NewPublisher(nil, discardLogger(), nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	p.now = func() time.Time { return fixed }

	env, err := p.newEnvelope(TypeConfirmationEmail, ConfirmationEmailPayload{Email: "a@example.com", ConferenceInfo: "Name: X"})
	if err != nil {
		t.Fatalf("newEnvelope failed: %v", err)
	}
	if len(env.ID) != 26 {
		t.Errorf("ID = %q, want a 26 char ULID", env.ID)
	}
	if env.Type != TypeConfirmationEmail {
		t.Errorf("Type = %q", env.Type)
	}
	if !env.EnqueuedAt.Equal(fixed) || env.EnqueuedAt.Location() != time.UTC {
		t.Errorf("EnqueuedAt = %v, want %v in UTC", env.EnqueuedAt, fixed)
	}

	var payload ConfirmationEmailPayload
	if err := decodePayload(env, &payload); err != nil || payload.Email != "a@example.com" {
		t.Errorf("payload round trip = %+v, %v", payload, err)
	}

	other, _ := p.newEnvelope(TypeConfirmationEmail, nil)
	if other.ID == env.ID {
		t.Error("envelope ids must be unique")
	}
}
