package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	taskDonePrefix = "task:done:"
	// TaskDoneTTL bounds how long a completed task id suppresses redelivery.
	TaskDoneTTL = 24 * time.Hour
)

// MarkTaskDone claims a task id. It returns false when the id was already
// claimed, meaning the side effect has run before.
func (c *Cache) MarkTaskDone(ctx context.Context, taskID string) (bool, error) {
	ok, err := c.client.SetNX(ctx, taskDonePrefix+taskID, time.Now().UTC().Format(time.RFC3339), TaskDoneTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark task %s: %w", taskID, err)
	}
	return ok, nil
}

// ClearTaskDone releases a claim so a failed side effect can be retried.
func (c *Cache) ClearTaskDone(ctx context.Context, taskID string) error {
	if err := c.client.Del(ctx, taskDonePrefix+taskID).Err(); err != nil {
		return fmt.Errorf("failed to clear task %s: %w", taskID, err)
	}
	return nil
}
