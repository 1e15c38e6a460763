package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven/mocks"
	"github.com/archivist-labs/ragcore/internal/core/ports/driving"
)

// fakeIngest implements driving.IngestService for testing
type fakeIngest struct {
	mu          sync.Mutex
	ingested    []driving.FileUpload
	deleted     [][]string
	ingestErr   error
	deleteFound bool
}

func (f *fakeIngest) IngestFile(ctx context.Context, upload driving.FileUpload) (*domain.IngestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	f.ingested = append(f.ingested, upload)
	return &domain.IngestResult{
		Document:   &domain.Document{ID: "doc-1", Filename: upload.Filename},
		ChunkCount: 3,
	}, nil
}

func (f *fakeIngest) IngestBatch(ctx context.Context, uploads []driving.FileUpload) []*domain.IngestResult {
	return nil
}

func (f *fakeIngest) EnqueueFile(ctx context.Context, path, source string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeIngest) DeleteDocuments(ctx context.Context, documentIDs []string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, documentIDs)
	return f.deleteFound, nil
}

func (f *fakeIngest) DeleteDocumentByFilename(ctx context.Context, filename string) (bool, error) {
	return false, nil
}

func (f *fakeIngest) ListDocuments(ctx context.Context) ([]*domain.DocumentSummary, error) {
	return nil, nil
}

func (f *fakeIngest) DocumentCount(ctx context.Context) (int, error) {
	return 0, nil
}

func newTestWorker(queue *mocks.MockTaskQueue, ingest *fakeIngest) *Worker {
	return New(Config{
		TaskQueue:      queue,
		Ingest:         ingest,
		Logger:         zerolog.Nop(),
		Concurrency:    1,
		DequeueTimeout: 1,
	})
}

// waitForDrain polls until the queue has no pending or claimed tasks
func waitForDrain(t *testing.T, queue *mocks.MockTaskQueue) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats, err := queue.Stats(context.Background())
		if err != nil {
			t.Fatalf("failed to get stats: %v", err)
		}
		if stats.PendingCount == 0 && stats.ProcessingCount == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("queue did not drain before deadline")
}

func TestWorkerProcessesIngestTask(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	ingest := &fakeIngest{}
	w := newTestWorker(queue, ingest)

	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	ctx := context.Background()
	task := domain.NewTask("task-1", domain.TaskTypeIngestFile, map[string]string{
		"path":   path,
		"source": "report.txt",
	})
	if err := queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	waitForDrain(t, queue)
	w.Stop()

	if task.Status != domain.TaskStatusCompleted {
		t.Errorf("expected completed, got %s", task.Status)
	}
	if len(ingest.ingested) != 1 {
		t.Fatalf("expected 1 ingested file, got %d", len(ingest.ingested))
	}

	upload := ingest.ingested[0]
	if upload.Filename != "report.txt" {
		t.Errorf("expected filename report.txt, got %s", upload.Filename)
	}
	if string(upload.Content) != "hello world" {
		t.Errorf("unexpected content: %s", upload.Content)
	}
	if upload.Source != "report.txt" {
		t.Errorf("unexpected source: %s", upload.Source)
	}
}

func TestWorkerProcessesDeleteTask(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	ingest := &fakeIngest{deleteFound: true}
	w := newTestWorker(queue, ingest)

	ctx := context.Background()
	task := domain.NewTask("task-1", domain.TaskTypeDeleteDocument, map[string]string{
		"document_id": "doc-42",
	})
	if err := queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	waitForDrain(t, queue)
	w.Stop()

	if task.Status != domain.TaskStatusCompleted {
		t.Errorf("expected completed, got %s", task.Status)
	}
	if len(ingest.deleted) != 1 || ingest.deleted[0][0] != "doc-42" {
		t.Errorf("unexpected delete calls: %v", ingest.deleted)
	}
}

func TestWorkerNacksFailedIngest(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	ingest := &fakeIngest{ingestErr: errors.New("embedding backend down")}
	w := newTestWorker(queue, ingest)

	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	ctx := context.Background()
	task := domain.NewTask("task-1", domain.TaskTypeIngestFile, map[string]string{"path": path})
	task.MaxAttempts = 1
	if err := queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	waitForDrain(t, queue)
	w.Stop()

	if task.Status != domain.TaskStatusFailed {
		t.Errorf("expected failed, got %s", task.Status)
	}
	if task.Error != "embedding backend down" {
		t.Errorf("expected failure reason recorded, got %q", task.Error)
	}
}

func TestWorkerFailsUnknownTaskType(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	ingest := &fakeIngest{}
	w := newTestWorker(queue, ingest)

	ctx := context.Background()
	task := domain.NewTask("task-1", domain.TaskType("mystery"), nil)
	task.MaxAttempts = 1
	if err := queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	waitForDrain(t, queue)
	w.Stop()

	if task.Status != domain.TaskStatusFailed {
		t.Errorf("expected failed, got %s", task.Status)
	}
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	w := newTestWorker(queue, &fakeIngest{})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	w.Stop()
	w.Stop() // Second stop must not panic or block
}

func TestWorkerHealth(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	w := newTestWorker(queue, &fakeIngest{})

	health := w.Health(context.Background())
	if health.Running {
		t.Error("expected worker not running before Start")
	}
	if !health.QueueHealth {
		t.Error("expected healthy queue")
	}

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	defer w.Stop()

	health = w.Health(context.Background())
	if !health.Running {
		t.Error("expected worker running after Start")
	}
}
