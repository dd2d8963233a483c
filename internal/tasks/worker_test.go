package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/confcentral/confcentral/internal/metrics"
)

func message(t *testing.T, env Envelope) redis.XMessage {
	t.Helper()
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return redis.XMessage{ID: "1-0", Values: map[string]interface{}{"payload": string(raw)}}
}

func newTestWorker(recorder metrics.Recorder) *Worker {
	w := NewWorker(nil, discardLogger(), "test-consumer", recorder)
	w.SetRetry(3, time.Millisecond)
	return w
}

func TestWorker_HandleMessage(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	valid := Envelope{ID: "t1", Type: "ok", Payload: json.RawMessage(`{}`)}

	tests := []struct {
		name       string
		msg        func(t *testing.T) redis.XMessage
		handler    HandlerFunc
		wantAck    bool
		wantReason string
	}{
		{
			name:       "missing payload field",
			msg:        func(*testing.T) redis.XMessage { return redis.XMessage{ID: "1-0", Values: map[string]interface{}{}} },
			wantAck:    true,
			wantReason: reasonInvalidFormat,
		},
		{
			name:       "malformed envelope",
			msg:        func(*testing.T) redis.XMessage { return redis.XMessage{ID: "1-0", Values: map[string]interface{}{"payload": "{"}} },
			wantAck:    true,
			wantReason: reasonInvalidFormat,
		},
		{
			name:       "unknown type",
			msg:        func(t *testing.T) redis.XMessage { return message(t, Envelope{ID: "t1", Type: "mystery"}) },
			wantAck:    true,
			wantReason: reasonUnknownType,
		},
		{
			name:    "success",
			msg:     func(t *testing.T) redis.XMessage { return message(t, valid) },
			handler: func(context.Context, Envelope) error { return nil },
			wantAck: true,
		},
		{
			name:       "invalid task is not retried",
			msg:        func(t *testing.T) redis.XMessage { return message(t, valid) },
			handler: func(context.Context, Envelope) error {
				calls.Add(1)
				return ErrInvalidTask
			},
			wantAck:    true,
			wantReason: reasonInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorker(nil)
			if tt.handler != nil {
				w.Handle("ok", tt.handler)
			}
			out := w.handleMessage(context.Background(), tt.msg(t))
			if out.ack != tt.wantAck || out.reason != tt.wantReason {
				t.Errorf("outcome = %+v, want ack=%v reason=%q", out, tt.wantAck, tt.wantReason)
			}
		})
	}

	if calls.Load() != 1 {
		t.Errorf("invalid task handler called %d times, want 1", calls.Load())
	}
}

func TestWorker_RetriesThenDeadLetters(t *testing.T) {
	t.Parallel()

	recorder := metrics.NewInMemory()
	w := newTestWorker(recorder)
	var attempts atomic.Int32
	w.Handle("flaky", func(context.Context, Envelope) error {
		attempts.Add(1)
		return errors.New("smtp timeout")
	})

	out := w.handleMessage(context.Background(), message(t, Envelope{ID: "t1", Type: "flaky", Payload: json.RawMessage(`{}`)}))
	if !out.ack || out.reason != reasonHandlerFailed {
		t.Errorf("outcome = %+v, want dead-lettered", out)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
	if recorder.Snapshot().TasksFailed != 1 {
		t.Errorf("TasksFailed = %d, want 1", recorder.Snapshot().TasksFailed)
	}
}

func TestWorker_RecoversWithinRetries(t *testing.T) {
	t.Parallel()

	recorder := metrics.NewInMemory()
	w := newTestWorker(recorder)
	var attempts atomic.Int32
	w.Handle("flaky", func(context.Context, Envelope) error {
		if attempts.Add(1) < 2 {
			return errors.New("transient")
		}
		return nil
	})

	out := w.handleMessage(context.Background(), message(t, Envelope{ID: "t1", Type: "flaky", Payload: json.RawMessage(`{}`)}))
	if !out.ack || out.reason != "" {
		t.Errorf("outcome = %+v, want plain ack", out)
	}
	snap := recorder.Snapshot()
	if snap.TasksProcessed != 1 || snap.TaskDurationCount != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestWorker_ShutdownDuringBackoffLeavesPending(t *testing.T) {
	t.Parallel()

	w := newTestWorker(nil)
	w.SetRetry(3, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	w.Handle("slow", func(context.Context, Envelope) error {
		cancel()
		return errors.New("fail")
	})

	out := w.handleMessage(ctx, message(t, Envelope{ID: "t1", Type: "slow", Payload: json.RawMessage(`{}`)}))
	if out.ack || out.reason != "" {
		t.Errorf("outcome = %+v, want unacknowledged", out)
	}
}

func TestWorker_HandlerContextSurvivesCancel(t *testing.T) {
	t.Parallel()

	w := newTestWorker(nil)
	ctx, cancel := context.WithCancel(context.Background())
	w.Handle("drain", func(hctx context.Context, _ Envelope) error {
		cancel()
		return hctx.Err()
	})

	out := w.handleMessage(ctx, message(t, Envelope{ID: "t1", Type: "drain", Payload: json.RawMessage(`{}`)}))
	if !out.ack || out.reason != "" {
		t.Errorf("in-flight handler should finish on shutdown, got %+v", out)
	}
}

func TestShutdownBeforeRun(t *testing.T) {
	t.Parallel()
	if err := newTestWorker(nil).Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown of unstarted worker = %v", err)
	}
}

func TestIsConsumerGroupExistsError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("BUSYGROUP Consumer Group name already exists"), true},
		{errors.New("BUSYGROUP"), true},
		{errors.New("ERR no such key"), false},
	}
	for _, tt := range tests {
		if got := isConsumerGroupExistsError(tt.err); got != tt.want {
			t.Errorf("isConsumerGroupExistsError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
