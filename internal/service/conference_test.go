package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/query"
)

func date(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q) failed: %v", s, err)
	}
	return d
}

func TestConferenceService_CreateDefaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name      string
		input     ConferenceInput
		wantSeats int
		wantMonth int
	}{
		{"seats follow max attendees", ConferenceInput{Name: "A", MaxAttendees: 10}, 10, 0},
		{"no start date", ConferenceInput{Name: "B"}, 0, 0},
		{"month from start date", ConferenceInput{Name: "C", StartDate: date(t, "2015-07-01")}, 0, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			details, err := env.conferences.CreateConference(ctx, caller("owner"), tt.input)
			if err != nil {
				t.Fatalf("CreateConference failed: %v", err)
			}

			stored := env.conference(t, details.Conference)
			if stored.SeatsAvailable != tt.wantSeats {
				t.Errorf("SeatsAvailable = %d, want %d", stored.SeatsAvailable, tt.wantSeats)
			}
			if stored.Month != tt.wantMonth {
				t.Errorf("Month = %d, want %d", stored.Month, tt.wantMonth)
			}
			if stored.City != model.DefaultCity {
				t.Errorf("City = %q, want default", stored.City)
			}
			if strings.Join(stored.Topics, ",") != "Default,Topic" {
				t.Errorf("Topics = %v, want defaults", stored.Topics)
			}
			if details.OrganizerDisplayName != "owner" {
				t.Errorf("OrganizerDisplayName = %q, want nickname", details.OrganizerDisplayName)
			}
		})
	}
}

func TestConferenceService_CreateValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.conferences.CreateConference(ctx, caller("owner"), ConferenceInput{}); !errors.Is(err, ErrConferenceNameRequired) {
		t.Errorf("expected ErrConferenceNameRequired, got %v", err)
	}
	if _, err := env.conferences.CreateConference(ctx, nil, ConferenceInput{Name: "X"}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	_, err := env.conferences.CreateConference(ctx, caller("owner"), ConferenceInput{
		Name:      "Backwards",
		StartDate: date(t, "2015-07-10"),
		EndDate:   date(t, "2015-07-01"),
	})
	assertKind(t, err, ErrValidation)
}

func TestConferenceService_CreateQueuesConfirmation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.createConference(t, caller("owner"), "Confirmed", 10)

	tasks := env.queue.queued()
	if len(tasks) != 1 || tasks[0].kind != "send_confirmation_email" {
		t.Fatalf("expected one confirmation task, got %+v", tasks)
	}
	if tasks[0].args[0] != "owner@example.com" {
		t.Errorf("email = %q", tasks[0].args[0])
	}
	if !strings.Contains(tasks[0].args[1], "Name: Confirmed") {
		t.Errorf("conference info missing name: %q", tasks[0].args[1])
	}
}

func TestConferenceService_EnqueueFailureIsBestEffort(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.queue.err = errors.New("queue down")

	details, err := env.conferences.CreateConference(context.Background(), caller("owner"), ConferenceInput{Name: "Still Created"})
	if err != nil {
		t.Fatalf("CreateConference failed: %v", err)
	}
	env.conference(t, details.Conference)
}

func TestConferenceService_Update(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	owner := caller("owner")
	conf := env.createConference(t, owner, "Original", 10)
	key := conf.Key().Encode()

	if _, err := env.ledger.Register(ctx, caller("alice"), key); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	name := "Renamed"
	empty := ""
	maxAttendees := 20
	details, err := env.conferences.UpdateConference(ctx, owner, key, ConferenceUpdate{
		Name:         &name,
		City:         &empty,
		StartDate:    date(t, "2016-03-04"),
		MaxAttendees: &maxAttendees,
	})
	if err != nil {
		t.Fatalf("UpdateConference failed: %v", err)
	}

	got := details.Conference
	if got.Name != "Renamed" || got.City != model.DefaultCity || got.Month != 3 {
		t.Errorf("unexpected update result: %+v", got)
	}
	if got.MaxAttendees != 20 || got.SeatsAvailable != 19 {
		t.Errorf("seats = %d/%d, want 19/20", got.SeatsAvailable, got.MaxAttendees)
	}
	if details.OrganizerDisplayName != "owner" {
		t.Errorf("OrganizerDisplayName = %q", details.OrganizerDisplayName)
	}
}

func TestConferenceService_UpdateErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	conf := env.createConference(t, caller("owner"), "Guarded", 2)
	key := conf.Key().Encode()

	for _, attendee := range []string{"alice", "bob"} {
		if _, err := env.ledger.Register(ctx, caller(attendee), key); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	one := 1
	tests := []struct {
		name   string
		caller *model.AuthContext
		key    string
		update ConferenceUpdate
		kind   error
	}{
		{"not owner", caller("mallory"), key, ConferenceUpdate{}, ErrForbidden},
		{"unknown", caller("owner"), model.NewConferenceKey("owner", "nope").Encode(), ConferenceUpdate{}, ErrNotFound},
		{"max below registered", caller("owner"), key, ConferenceUpdate{MaxAttendees: &one}, ErrValidation},
		{"anonymous", nil, key, ConferenceUpdate{}, ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.conferences.UpdateConference(ctx, tt.caller, tt.key, tt.update)
			assertKind(t, err, tt.kind)
		})
	}
}

func TestConferenceService_QueryResolvesOrganizers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	env.createConference(t, caller("ann"), "Beta", 100)
	env.createConference(t, caller("ben"), "Alpha", 10)

	got, err := env.conferences.QueryConferences(ctx, []query.Filter{
		{Field: "MAX_ATTENDEES", Operator: "GT", Value: "5"},
	})
	if err != nil {
		t.Fatalf("QueryConferences failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Conference.Name != "Alpha" || got[0].OrganizerDisplayName != "ben" {
		t.Errorf("first result = %s by %s", got[0].Conference.Name, got[0].OrganizerDisplayName)
	}
	if got[1].Conference.Name != "Beta" || got[1].OrganizerDisplayName != "ann" {
		t.Errorf("second result = %s by %s", got[1].Conference.Name, got[1].OrganizerDisplayName)
	}

	_, err = env.conferences.QueryConferences(ctx, []query.Filter{
		{Field: "MONTH", Operator: "GT", Value: "1"},
		{Field: "MAX_ATTENDEES", Operator: "LT", Value: "100"},
	})
	assertKind(t, err, ErrValidation)

	small, err := env.conferences.SmallConferences(ctx)
	if err != nil {
		t.Fatalf("SmallConferences failed: %v", err)
	}
	if len(small) != 1 || small[0].Conference.Name != "Alpha" {
		t.Errorf("unexpected small conferences: %+v", small)
	}
}

func TestConferenceService_ListCreatedAndAttending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	owner := caller("owner")
	first := env.createConference(t, owner, "Zulu", 10)
	second := env.createConference(t, owner, "Alpha", 10)
	env.createConference(t, caller("other"), "Elsewhere", 10)

	created, err := env.conferences.ListCreated(ctx, owner)
	if err != nil {
		t.Fatalf("ListCreated failed: %v", err)
	}
	if len(created) != 2 || created[0].Conference.Name != "Alpha" {
		t.Errorf("unexpected created list: %+v", created)
	}

	alice := caller("alice")
	for _, conf := range []*model.Conference{first, second} {
		if _, err := env.ledger.Register(ctx, alice, conf.Key().Encode()); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	attending, err := env.conferences.ListAttending(ctx, alice)
	if err != nil {
		t.Fatalf("ListAttending failed: %v", err)
	}
	if len(attending) != 2 || attending[0].Conference.Name != "Zulu" || attending[1].Conference.Name != "Alpha" {
		t.Errorf("attending not in registration order: %+v", attending)
	}
	if attending[0].OrganizerDisplayName != "owner" {
		t.Errorf("OrganizerDisplayName = %q", attending[0].OrganizerDisplayName)
	}
}

func TestConferenceService_GetConference(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	conf := env.createConference(t, caller("owner"), "Lookup", 10)

	got, err := env.conferences.GetConference(ctx, conf.Key().Encode())
	if err != nil {
		t.Fatalf("GetConference failed: %v", err)
	}
	if got.Conference.ID != conf.ID {
		t.Errorf("got conference %s, want %s", got.Conference.ID, conf.ID)
	}

	_, err = env.conferences.GetConference(ctx, model.NewConferenceKey("owner", "missing").Encode())
	assertKind(t, err, ErrNotFound)
}
