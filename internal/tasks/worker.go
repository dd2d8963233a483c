package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/confcentral/confcentral/internal/metrics"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "task_workers"

	// DefaultBatchSize is the max messages per read.
	DefaultBatchSize = 50

	// DefaultBlockTimeout is how long to block waiting for messages.
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxRetries is the max attempts per message.
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the first backoff; it doubles per attempt.
	DefaultRetryBackoff = time.Second

	// DefaultHandlerTimeout bounds one handler attempt.
	DefaultHandlerTimeout = 30 * time.Second

	// DefaultClaimInterval is how often to scan pending messages.
	DefaultClaimInterval = 10 * time.Second

	// DefaultClaimIdle is the idle time before reclaiming pending messages.
	DefaultClaimIdle = 30 * time.Second

	// DefaultMetricsInterval is how often to refresh queue depth metrics.
	DefaultMetricsInterval = 5 * time.Second

	errorPause = time.Second
)

// Dead-letter reasons.
const (
	reasonInvalidFormat  = "invalid_format"
	reasonUnknownType    = "unknown_type"
	reasonInvalidPayload = "invalid_payload"
	reasonHandlerFailed  = "handler_failed"
)

// Worker consumes task envelopes from the Redis stream.
type Worker struct {
	redis           *redis.Client
	handlers        map[string]HandlerFunc
	logger          *slog.Logger
	metrics         metrics.Recorder
	consumerID      string
	batchSize       int
	blockTimeout    time.Duration
	maxRetries      int
	retryBackoff    time.Duration
	handlerTimeout  time.Duration
	claimInterval   time.Duration
	claimIdle       time.Duration
	metricsInterval time.Duration
	claimStartID    string
	lastClaim       time.Time
	lastMetrics     time.Time

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// outcome is what the worker does with a message after handling it.
// A non-empty reason dead-letters the message before it is acknowledged.
type outcome struct {
	ack    bool
	reason string
	detail string
}

// NewWorker creates a new task worker.
func NewWorker(client *redis.Client, logger *slog.Logger, consumerID string, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		redis:           client,
		handlers:        make(map[string]HandlerFunc),
		logger:          logger.With("component", "tasks.worker", "consumer_id", consumerID),
		metrics:         recorder,
		consumerID:      consumerID,
		batchSize:       DefaultBatchSize,
		blockTimeout:    DefaultBlockTimeout,
		maxRetries:      DefaultMaxRetries,
		retryBackoff:    DefaultRetryBackoff,
		handlerTimeout:  DefaultHandlerTimeout,
		claimInterval:   DefaultClaimInterval,
		claimIdle:       DefaultClaimIdle,
		metricsInterval: DefaultMetricsInterval,
		claimStartID:    "0-0",
	}
}

// Handle registers the handler for a task type. Call before Run.
func (w *Worker) Handle(taskType string, fn HandlerFunc) {
	w.handlers[taskType] = fn
}

// Run starts the worker loop. Blocks until context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info("task worker started", "handlers", len(w.handlers))

	for !w.isDraining() {
		err := w.processOnce(ctx)
		if ctx.Err() != nil {
			break
		}
		if err == nil {
			continue
		}

		w.logger.Error("process error", "error", err)
		pause := time.NewTimer(errorPause)
		select {
		case <-ctx.Done():
			pause.Stop()
		case <-pause.C:
		}
	}

	w.logger.Info("task worker stopping")
	return nil
}

func (w *Worker) isDraining() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draining
}

// Shutdown stops reading and waits for the in-flight batch to finish.
// It implements server.ShutdownFunc.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.draining = true
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	w.logger.Info("task worker shutdown initiated")

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			w.logger.Info("task worker shutdown complete")
			return nil
		case <-ctx.Done():
			w.logger.Warn("task worker shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

// ensureConsumerGroup creates the consumer group if it doesn't exist.
func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !isConsumerGroupExistsError(err) {
		return err
	}
	return nil
}

// processOnce reads and handles a single batch.
func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateQueueDepth(ctx)

	claimed, err := w.maybeClaimPending(ctx)
	if err != nil {
		w.logger.Warn("failed to claim pending messages", "error", err)
	}

	messages := claimed
	if len(messages) == 0 {
		messages, err = w.readBatch(ctx)
		if err != nil {
			return err
		}
	}

	if len(messages) == 0 {
		return nil
	}

	// Acks and dead letters must land even once shutdown has started.
	settleCtx := context.WithoutCancel(ctx)
	ackIDs := make([]string, 0, len(messages))
	for _, msg := range messages {
		out := w.handleMessage(ctx, msg)
		if out.reason != "" {
			w.deadLetterMessage(settleCtx, msg, out.reason, out.detail)
		}
		if out.ack {
			ackIDs = append(ackIDs, msg.ID)
		}
	}

	return w.ackMessages(settleCtx, ackIDs)
}

// handleMessage decodes and dispatches one message.
func (w *Worker) handleMessage(ctx context.Context, msg redis.XMessage) outcome {
	raw, ok := msg.Values["payload"].(string)
	if !ok {
		return outcome{ack: true, reason: reasonInvalidFormat, detail: "payload field missing or not a string"}
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		return outcome{ack: true, reason: reasonInvalidFormat, detail: err.Error()}
	}

	handler, ok := w.handlers[env.Type]
	if !ok {
		return outcome{ack: true, reason: reasonUnknownType, detail: env.Type}
	}

	start := time.Now()
	err = w.runWithRetry(ctx, handler, env)
	switch {
	case err == nil:
		w.metrics.IncTaskProcessed("success")
		w.metrics.ObserveTaskDuration(time.Since(start))
		w.logger.Info("task processed",
			"task_id", env.ID,
			"type", env.Type,
			"duration_ms", float64(time.Since(start).Microseconds())/1000,
		)
		return outcome{ack: true}
	case ctx.Err() != nil:
		// Shutdown mid-retry: leave pending so another consumer claims it.
		return outcome{}
	case errors.Is(err, ErrInvalidTask):
		return outcome{ack: true, reason: reasonInvalidPayload, detail: err.Error()}
	default:
		w.metrics.IncTaskProcessed("failed")
		w.logger.Error("task failed after retries",
			"task_id", env.ID,
			"type", env.Type,
			"error", err,
		)
		return outcome{ack: true, reason: reasonHandlerFailed, detail: err.Error()}
	}
}

// runWithRetry attempts a handler with exponential backoff. Handlers run on a
// context detached from ctx so an attempt in progress finishes on shutdown.
func (w *Worker) runWithRetry(ctx context.Context, handler HandlerFunc, env Envelope) error {
	var lastErr error

	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.handlerTimeout)
		err := handler(attemptCtx, env)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrInvalidTask) {
			return err
		}
		lastErr = err
		if attempt == w.maxRetries {
			break
		}

		backoff := w.retryBackoff << (attempt - 1)
		w.logger.Warn("task failed, retrying",
			"task_id", env.ID,
			"attempt", attempt,
			"backoff_seconds", backoff.Seconds(),
			"error", err,
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// maybeClaimPending reclaims messages left pending by crashed consumers.
func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if w.claimInterval <= 0 || w.claimIdle <= 0 {
		return nil, nil
	}
	if !w.lastClaim.IsZero() && time.Since(w.lastClaim) < w.claimInterval {
		return nil, nil
	}

	w.lastClaim = time.Now()
	messages, start, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  w.claimIdle,
		Start:    w.claimStartID,
		Count:    int64(w.batchSize),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if start != "" {
		w.claimStartID = start
	}
	return messages, nil
}

func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if w.metricsInterval <= 0 {
		return
	}
	if !w.lastMetrics.IsZero() && time.Since(w.lastMetrics) < w.metricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	groups, err := w.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		w.logger.Warn("failed to read stream group info", "error", err)
		return
	}
	for _, group := range groups {
		if group.Name == ConsumerGroup {
			w.metrics.SetTaskQueueDepth(group.Pending + group.Lag)
			return
		}
	}
}

// SetBatchSize overrides the default batch size.
func (w *Worker) SetBatchSize(size int) {
	if size > 0 {
		w.batchSize = size
	}
}

// SetBlockTimeout overrides the default blocking timeout.
func (w *Worker) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		w.blockTimeout = timeout
	}
}

// SetRetry overrides the attempt count and first backoff.
func (w *Worker) SetRetry(maxRetries int, backoff time.Duration) {
	if maxRetries > 0 {
		w.maxRetries = maxRetries
	}
	if backoff > 0 {
		w.retryBackoff = backoff
	}
}

// SetClaimIdle overrides the default pending idle threshold.
func (w *Worker) SetClaimIdle(idle time.Duration) {
	if idle > 0 {
		w.claimIdle = idle
	}
}

// readBatch reads new messages with XREADGROUP.
func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.batchSize),
		Block:    w.blockTimeout,
	}).Result()

	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}

	return streams[0].Messages, nil
}

// deadLetterMessage copies a message to the dead-letter stream.
func (w *Worker) deadLetterMessage(ctx context.Context, msg redis.XMessage, reason, detail string) {
	w.logger.Warn("dead-lettering task",
		"message_id", msg.ID,
		"reason", reason,
		"detail", detail,
	)

	_, err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id":      msg.ID,
			"original_stream":  StreamKey,
			"reason":           reason,
			"detail":           detail,
			"payload":          msg.Values["payload"],
			"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		w.logger.Error("failed to write to dead-letter queue",
			"message_id", msg.ID,
			"error", err,
		)
	}

	w.metrics.IncTaskProcessed("dead_lettered")
}

// ackMessages acknowledges settled messages.
func (w *Worker) ackMessages(ctx context.Context, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, messageIDs...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

// isConsumerGroupExistsError reports a BUSYGROUP reply.
func isConsumerGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
