package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/archivist-labs/ragcore/internal/core/domain"
)

// setupTestQueue creates a test Redis client and Queue
func setupTestQueue(t *testing.T) (*Queue, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	queue, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	return queue, func() {
		client.Close()
		mr.Close()
	}
}

func createTestTask(id string) *domain.Task {
	return domain.NewTask(id, domain.TaskTypeIngestFile, map[string]string{
		"path":   "/data/uploads/report.pdf",
		"source": "report.pdf",
	})
}

func TestNewQueueRequiresClient(t *testing.T) {
	_, err := NewQueue(nil, "test-worker")
	if err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestQueueEnqueueDequeue(t *testing.T) {
	queue, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	task := createTestTask("task-1")
	if err := queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	got, err := queue.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("failed to dequeue: %v", err)
	}
	if got == nil {
		t.Fatal("expected a task")
	}
	if got.ID != "task-1" {
		t.Errorf("expected task-1, got %s", got.ID)
	}
	if got.Type != domain.TaskTypeIngestFile {
		t.Errorf("expected ingest_file, got %s", got.Type)
	}
	if got.Status != domain.TaskStatusProcessing {
		t.Errorf("expected processing status, got %s", got.Status)
	}
	if got.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", got.Attempts)
	}
	if got.Payload["path"] != "/data/uploads/report.pdf" {
		t.Errorf("unexpected payload: %v", got.Payload)
	}
}

func TestQueueDequeueEmptyReturnsNil(t *testing.T) {
	queue, cleanup := setupTestQueue(t)
	defer cleanup()

	got, err := queue.DequeueWithTimeout(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil task, got %v", got)
	}
}

func TestQueueAckCompletesTask(t *testing.T) {
	queue, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	if err := queue.Enqueue(ctx, createTestTask("task-1")); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}
	if _, err := queue.DequeueWithTimeout(ctx, 1); err != nil {
		t.Fatalf("failed to dequeue: %v", err)
	}

	if err := queue.Ack(ctx, "task-1"); err != nil {
		t.Fatalf("failed to ack: %v", err)
	}

	task, err := queue.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if task.Status != domain.TaskStatusCompleted {
		t.Errorf("expected completed, got %s", task.Status)
	}
	if task.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}

	// Task is gone from the queue
	got, err := queue.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected empty queue, got %v", got)
	}
}

func TestQueueNackRetriesThenFails(t *testing.T) {
	queue, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	task := createTestTask("task-1")
	task.MaxAttempts = 2
	if err := queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	// First attempt fails, task goes back on the queue
	if _, err := queue.DequeueWithTimeout(ctx, 1); err != nil {
		t.Fatalf("failed to dequeue: %v", err)
	}
	if err := queue.Nack(ctx, "task-1", "transient failure"); err != nil {
		t.Fatalf("failed to nack: %v", err)
	}

	got, err := queue.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if got.Status != domain.TaskStatusPending {
		t.Errorf("expected pending after first nack, got %s", got.Status)
	}

	// Second attempt exhausts the retry budget
	redelivered, err := queue.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("failed to dequeue retry: %v", err)
	}
	if redelivered == nil {
		t.Fatal("expected retried task to be redelivered")
	}
	if redelivered.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", redelivered.Attempts)
	}

	if err := queue.Nack(ctx, "task-1", "still failing"); err != nil {
		t.Fatalf("failed to nack: %v", err)
	}

	got, err = queue.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if got.Status != domain.TaskStatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if got.Error != "still failing" {
		t.Errorf("expected final error recorded, got %q", got.Error)
	}
}

func TestQueueGetTaskMissing(t *testing.T) {
	queue, cleanup := setupTestQueue(t)
	defer cleanup()

	task, err := queue.GetTask(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task != nil {
		t.Errorf("expected nil for missing task, got %v", task)
	}
}

func TestQueueStats(t *testing.T) {
	queue, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	if err := queue.EnqueueBatch(ctx, []*domain.Task{
		createTestTask("task-1"),
		createTestTask("task-2"),
	}); err != nil {
		t.Fatalf("failed to enqueue batch: %v", err)
	}

	stats, err := queue.Stats(ctx)
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.PendingCount != 2 {
		t.Errorf("expected 2 pending, got %d", stats.PendingCount)
	}

	if _, err := queue.DequeueWithTimeout(ctx, 1); err != nil {
		t.Fatalf("failed to dequeue: %v", err)
	}

	stats, err = queue.Stats(ctx)
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.ProcessingCount != 1 {
		t.Errorf("expected 1 processing, got %d", stats.ProcessingCount)
	}
}

func TestQueuePing(t *testing.T) {
	queue, cleanup := setupTestQueue(t)
	defer cleanup()

	if err := queue.Ping(context.Background()); err != nil {
		t.Errorf("expected healthy ping: %v", err)
	}
}
