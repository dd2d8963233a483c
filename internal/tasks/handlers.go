package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/confcentral/confcentral/internal/mail"
	"github.com/confcentral/confcentral/internal/service"
)

// ConfirmationSubject is the subject of the organizer confirmation email.
const ConfirmationSubject = "You created a new Conference!"

// HandlerFunc processes one envelope. Errors wrapping ErrInvalidTask are
// dead-lettered immediately; other errors are retried.
type HandlerFunc func(ctx context.Context, env Envelope) error

// DoneMarker records completed side effects by task id.
type DoneMarker interface {
	MarkTaskDone(ctx context.Context, taskID string) (bool, error)
	ClearTaskDone(ctx context.Context, taskID string) error
}

// FeaturedSpeakerRefresher recomputes the featured speaker fact.
type FeaturedSpeakerRefresher interface {
	RefreshFeaturedSpeaker(ctx context.Context, speakerKey, conferenceKey string) (string, error)
}

// ConfirmationEmailHandler sends the confirmation email at most once per
// task id while the marker lives.
func ConfirmationEmailHandler(sender mail.Sender, marker DoneMarker, logger *slog.Logger) HandlerFunc {
	logger = logger.With("component", "tasks.confirmation")
	return func(ctx context.Context, env Envelope) error {
		var payload ConfirmationEmailPayload
		if err := decodePayload(env, &payload); err != nil {
			return err
		}
		if payload.Email == "" {
			return fmt.Errorf("%w: email is required", ErrInvalidTask)
		}

		first, err := marker.MarkTaskDone(ctx, env.ID)
		if err != nil {
			return err
		}
		if !first {
			logger.Info("confirmation already sent, skipping", "task_id", env.ID)
			return nil
		}

		err = sender.Send(ctx, mail.Message{
			To:      payload.Email,
			Subject: ConfirmationSubject,
			Body:    "Hi, you have created a following conference:\r\n\r\n" + payload.ConferenceInfo,
		})
		if err != nil {
			if clearErr := marker.ClearTaskDone(ctx, env.ID); clearErr != nil {
				logger.Warn("failed to release task marker", "task_id", env.ID, "error", clearErr)
			}
			if errors.Is(err, mail.ErrInvalidMessage) {
				return fmt.Errorf("%w: %v", ErrInvalidTask, err)
			}
			return err
		}
		return nil
	}
}

// FeaturedSpeakerHandler runs the featured speaker refresh. Repeating it
// yields the same cached value, so no marker is needed.
func FeaturedSpeakerHandler(refresher FeaturedSpeakerRefresher) HandlerFunc {
	return func(ctx context.Context, env Envelope) error {
		var payload FeaturedSpeakerPayload
		if err := decodePayload(env, &payload); err != nil {
			return err
		}

		_, err := refresher.RefreshFeaturedSpeaker(ctx, payload.SpeakerKey, payload.ConferenceKey)
		if errors.Is(err, service.ErrValidation) || errors.Is(err, service.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrInvalidTask, err)
		}
		return err
	}
}
