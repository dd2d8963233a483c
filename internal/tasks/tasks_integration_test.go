//go:build integration

package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/confcentral/confcentral/internal/metrics"
	"github.com/confcentral/confcentral/internal/testutil"
)

type recordingRefresher struct {
	calls chan [2]string
}

func (r *recordingRefresher) RefreshFeaturedSpeaker(_ context.Context, speakerKey, conferenceKey string) (string, error) {
	r.calls <- [2]string{speakerKey, conferenceKey}
	return "", nil
}

func TestPublishAndConsume(t *testing.T) {
	ctx := context.Background()
	opt, err := redis.ParseURL(testutil.RequireEnv(t, "TEST_REDIS_URL"))
	if err != nil {
		t.Fatalf("failed to parse TEST_REDIS_URL: %v", err)
	}
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })
	if err := testutil.FlushRedis(ctx, client); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	recorder := metrics.NewInMemory()
	publisher := NewPublisher(client, discardLogger(), recorder)
	refresher := &recordingRefresher{calls: make(chan [2]string, 1)}

	worker := NewWorker(client, discardLogger(), NewConsumerID(), recorder)
	worker.SetBlockTimeout(100 * time.Millisecond)
	worker.Handle(TypeFeaturedSpeaker, FeaturedSpeakerHandler(refresher))

	go func() { _ = worker.Run(ctx) }()
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = worker.Shutdown(shutdownCtx)
	})

	if err := publisher.EnqueueFeaturedSpeaker(ctx, "spk", "conf"); err != nil {
		t.Fatalf("EnqueueFeaturedSpeaker failed: %v", err)
	}
	if _, err := client.XAdd(ctx, &redis.XAddArgs{Stream: StreamKey, Values: map[string]interface{}{"payload": "not json"}}).Result(); err != nil {
		t.Fatalf("xadd poison failed: %v", err)
	}

	select {
	case call := <-refresher.calls:
		if call != [2]string{"spk", "conf"} {
			t.Errorf("refresher called with %v", call)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("task was not consumed")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		dlq, err := client.XLen(ctx, DeadLetterStreamKey).Result()
		if err == nil && dlq == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dead-letter stream length = %d, %v", dlq, err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if snap := recorder.Snapshot(); snap.TasksPublished != 1 {
		t.Errorf("TasksPublished = %d, want 1", snap.TasksPublished)
	}
}
