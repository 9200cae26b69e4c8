package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusnotes/notes-api/pkg/config"
	"github.com/campusnotes/notes-api/pkg/jobs"
	"github.com/campusnotes/notes-api/pkg/storage"
)

const jobKindBlobDelete = "blob-delete"

// CleanupService removes orphaned blobs after their metadata rows are gone.
// Deletions run after the owning transaction commits and are best effort: a
// blob that outlives every retry is logged and left for manual sweep, it can
// never resurrect deleted metadata.
type CleanupService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewCleanupService builds the cleanup worker pool around the object store.
func NewCleanupService(store storage.ObjectStore, cfg config.CleanupConfig, logger *zap.Logger) *CleanupService {
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		return store.Delete(ctx, job.Key)
	}
	queue := jobs.NewQueue("blob-cleanup", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})

	return &CleanupService{queue: queue, logger: logger}
}

// Start launches the cleanup workers.
func (s *CleanupService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *CleanupService) Stop() {
	s.queue.Stop()
}

// EnqueueKeys schedules blob deletions. Blank keys are skipped; enqueue
// failures are logged rather than surfaced since the metadata delete has
// already committed.
func (s *CleanupService) EnqueueKeys(keys []string) {
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			continue
		}
		job := jobs.Job{ID: uuid.NewString(), Kind: jobKindBlobDelete, Key: key}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Sugar().Errorw("failed to enqueue blob cleanup", "key", key, "error", err)
		}
	}
}
