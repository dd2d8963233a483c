package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/confcentral/confcentral/internal/metrics"
)

// Publisher enqueues task envelopes to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewPublisher creates a new task publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "tasks.publisher"),
		metrics: recorder,
		now:     time.Now,
	}
}

// EnqueueConfirmationEmail queues the organizer confirmation email.
func (p *Publisher) EnqueueConfirmationEmail(ctx context.Context, email, conferenceInfo string) error {
	_, err := p.Publish(ctx, TypeConfirmationEmail, ConfirmationEmailPayload{
		Email:          email,
		ConferenceInfo: conferenceInfo,
	})
	return err
}

// EnqueueFeaturedSpeaker queues a featured speaker refresh.
func (p *Publisher) EnqueueFeaturedSpeaker(ctx context.Context, speakerKey, conferenceKey string) error {
	_, err := p.Publish(ctx, TypeFeaturedSpeaker, FeaturedSpeakerPayload{
		SpeakerKey:    speakerKey,
		ConferenceKey: conferenceKey,
	})
	return err
}

// Publish wraps payload in an envelope and adds it to the stream.
// It returns the envelope id.
func (p *Publisher) Publish(ctx context.Context, taskType string, payload any) (string, error) {
	env, err := p.newEnvelope(taskType, payload)
	if err != nil {
		p.metrics.IncTaskPublished("dropped")
		return "", err
	}

	data, err := json.Marshal(env)
	if err != nil {
		p.metrics.IncTaskPublished("dropped")
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	streamID, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		p.metrics.IncTaskPublished("dropped")
		return "", fmt.Errorf("xadd: %w", err)
	}

	p.logger.Debug("task published",
		"task_id", env.ID,
		"type", taskType,
		"stream_id", streamID,
	)
	p.metrics.IncTaskPublished("success")
	return env.ID, nil
}

func (p *Publisher) newEnvelope(taskType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Envelope{
		ID:         ulid.Make().String(),
		Type:       taskType,
		Payload:    raw,
		EnqueuedAt: p.now().UTC(),
	}, nil
}
