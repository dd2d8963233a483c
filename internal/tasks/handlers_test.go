package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/confcentral/confcentral/internal/mail"
	"github.com/confcentral/confcentral/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type fakeMarker struct {
	mu   sync.Mutex
	done map[string]bool
	err  error
}

func newFakeMarker() *fakeMarker {
	return &fakeMarker{done: map[string]bool{}}
}

func (m *fakeMarker) MarkTaskDone(_ context.Context, taskID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.done[taskID] {
		return false, nil
	}
	m.done[taskID] = true
	return true, nil
}

func (m *fakeMarker) ClearTaskDone(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.done, taskID)
	return nil
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls [][2]string
	err   error
}

func (r *fakeRefresher) RefreshFeaturedSpeaker(_ context.Context, speakerKey, conferenceKey string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, [2]string{speakerKey, conferenceKey})
	return "", r.err
}

func envelope(t *testing.T, id, taskType string, payload any) Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return Envelope{ID: id, Type: taskType, Payload: raw}
}

func TestConfirmationEmailHandler_SendsOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sender := &fakeSender{}
	handler := ConfirmationEmailHandler(sender, newFakeMarker(), discardLogger())
	env := envelope(t, "task-1", TypeConfirmationEmail, ConfirmationEmailPayload{Email: "org@example.com", ConferenceInfo: "Name: GopherCon"})

	if err := handler(ctx, env); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if err := handler(ctx, env); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "org@example.com" || msg.Subject != ConfirmationSubject {
		t.Errorf("unexpected message: %+v", msg)
	}
	if !strings.HasPrefix(msg.Body, "Hi, you have created a following conference:\r\n\r\n") || !strings.HasSuffix(msg.Body, "Name: GopherCon") {
		t.Errorf("unexpected body: %q", msg.Body)
	}
}

func TestConfirmationEmailHandler_SendFailureReleasesMarker(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sender := &fakeSender{err: errors.New("relay down")}
	marker := newFakeMarker()
	handler := ConfirmationEmailHandler(sender, marker, discardLogger())
	env := envelope(t, "task-2", TypeConfirmationEmail, ConfirmationEmailPayload{Email: "org@example.com"})

	err := handler(ctx, env)
	if err == nil || errors.Is(err, ErrInvalidTask) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if marker.done["task-2"] {
		t.Error("marker should be cleared after a failed send")
	}

	sender.err = nil
	if err := handler(ctx, env); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Errorf("sent %d messages after retry, want 1", len(sender.sent))
	}
}

func TestConfirmationEmailHandler_InvalidTasks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		env    Envelope
		sender *fakeSender
	}{
		{"missing email", envelope(t, "t", TypeConfirmationEmail, ConfirmationEmailPayload{}), &fakeSender{}},
		{"no payload", Envelope{ID: "t", Type: TypeConfirmationEmail}, &fakeSender{}},
		{"rejected message", envelope(t, "t", TypeConfirmationEmail, ConfirmationEmailPayload{Email: "x"}), &fakeSender{err: mail.ErrInvalidMessage}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handler := ConfirmationEmailHandler(tt.sender, newFakeMarker(), discardLogger())
			if err := handler(context.Background(), tt.env); !errors.Is(err, ErrInvalidTask) {
				t.Errorf("expected ErrInvalidTask, got %v", err)
			}
		})
	}
}

func TestConfirmationEmailHandler_MarkerUnavailable(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	marker := newFakeMarker()
	marker.err = errors.New("redis down")
	handler := ConfirmationEmailHandler(sender, marker, discardLogger())

	err := handler(context.Background(), envelope(t, "t", TypeConfirmationEmail, ConfirmationEmailPayload{Email: "a@example.com"}))
	if err == nil || errors.Is(err, ErrInvalidTask) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Error("nothing should be sent without a marker")
	}
}

func TestFeaturedSpeakerHandler(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := envelope(t, "t", TypeFeaturedSpeaker, FeaturedSpeakerPayload{SpeakerKey: "spk", ConferenceKey: "conf"})

	refresher := &fakeRefresher{}
	if err := FeaturedSpeakerHandler(refresher)(ctx, env); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if len(refresher.calls) != 1 || refresher.calls[0] != [2]string{"spk", "conf"} {
		t.Errorf("calls = %v", refresher.calls)
	}

	refresher.err = service.ErrInvalidKey
	if err := FeaturedSpeakerHandler(refresher)(ctx, env); !errors.Is(err, ErrInvalidTask) {
		t.Errorf("bad keys: expected ErrInvalidTask, got %v", err)
	}

	refresher.err = errors.New("cache unavailable")
	if err := FeaturedSpeakerHandler(refresher)(ctx, env); err == nil || errors.Is(err, ErrInvalidTask) {
		t.Errorf("cache failure should be retryable, got %v", err)
	}
}
