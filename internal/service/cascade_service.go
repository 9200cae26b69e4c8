package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusnotes/notes-api/internal/dto"
	"github.com/campusnotes/notes-api/internal/models"
	"github.com/campusnotes/notes-api/internal/repository"
	appErrors "github.com/campusnotes/notes-api/pkg/errors"
)

type cascadeRepository interface {
	CollectRegulation(ctx context.Context, id string) (*repository.CascadeSet, error)
	CollectBranch(ctx context.Context, id string) (*repository.CascadeSet, error)
	CollectSubject(ctx context.Context, id string) (*repository.CascadeSet, error)
	Execute(ctx context.Context, set *repository.CascadeSet) error
}

type blobCleaner interface {
	EnqueueKeys(keys []string)
}

type listingCache interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CascadeService deletes taxonomy subtrees. A delete removes the root, every
// descendant row, and the ledger entries of every descendant note in one
// transaction, then hands the orphaned blob keys to the cleanup workers.
// Metadata removal never waits on blob removal.
type CascadeService struct {
	repo    cascadeRepository
	cleaner blobCleaner
	cache   listingCache
	audit   auditRecorder
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCascadeService creates a new cascade service.
func NewCascadeService(repo cascadeRepository, cleaner blobCleaner, cache listingCache, audit auditRecorder, metrics *MetricsService, logger *zap.Logger) *CascadeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CascadeService{repo: repo, cleaner: cleaner, cache: cache, audit: audit, metrics: metrics, logger: logger}
}

// DeleteRegulation removes a regulation with all branches, subjects and notes
// beneath it.
func (s *CascadeService) DeleteRegulation(ctx context.Context, id, actorID string) (*dto.CascadeSummary, error) {
	return s.delete(ctx, actorID, func() (*repository.CascadeSet, error) {
		return s.repo.CollectRegulation(ctx, id)
	})
}

// DeleteBranch removes a branch with all subjects and notes beneath it.
func (s *CascadeService) DeleteBranch(ctx context.Context, id, actorID string) (*dto.CascadeSummary, error) {
	return s.delete(ctx, actorID, func() (*repository.CascadeSet, error) {
		return s.repo.CollectBranch(ctx, id)
	})
}

// DeleteSubject removes a subject and its notes.
func (s *CascadeService) DeleteSubject(ctx context.Context, id, actorID string) (*dto.CascadeSummary, error) {
	return s.delete(ctx, actorID, func() (*repository.CascadeSet, error) {
		return s.repo.CollectSubject(ctx, id)
	})
}

func (s *CascadeService) delete(ctx context.Context, actorID string, collect func() (*repository.CascadeSet, error)) (*dto.CascadeSummary, error) {
	set, err := collect()
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to collect descendants")
	}

	if err := s.repo.Execute(ctx, set); err != nil {
		if err == sql.ErrNoRows {
			// Lost the race to a concurrent overlapping delete.
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to execute cascade delete")
	}

	// Only after commit: blobs, caches, audit. None of these can undo the
	// delete, so failures are logged and swallowed.
	if s.cleaner != nil {
		s.cleaner.EnqueueKeys(set.FileKeys)
	}
	s.invalidateListings(ctx, set)
	s.recordAudit(ctx, actorID, set)
	s.metrics.RecordCascade(set.RootKind, len(set.BranchIDs), len(set.SubjectIDs), len(set.NoteIDs))

	s.logger.Sugar().Infow("cascade delete completed",
		"root", set.RootKind,
		"root_id", set.RootID,
		"branches", len(set.BranchIDs),
		"subjects", len(set.SubjectIDs),
		"notes", len(set.NoteIDs),
	)

	summary := &dto.CascadeSummary{
		Root:     set.RootKind,
		RootID:   set.RootID,
		Branches: len(set.BranchIDs),
		Subjects: len(set.SubjectIDs),
		Notes:    len(set.NoteIDs),
		Blobs:    len(set.FileKeys),
		Message:  fmt.Sprintf("%s deleted with all dependent records", set.RootKind),
	}
	return summary, nil
}

func (s *CascadeService) invalidateListings(ctx context.Context, set *repository.CascadeSet) {
	if s.cache == nil {
		return
	}
	subjects := set.SubjectIDs
	if set.RootKind == repository.CascadeRootSubject {
		subjects = append(subjects, set.RootID)
	}
	for _, subjectID := range subjects {
		if err := s.cache.DeleteByPattern(ctx, repository.NotesBySubjectPattern(subjectID)); err != nil {
			s.logger.Sugar().Warnw("failed to invalidate note listing cache", "subject_id", subjectID, "error", err)
		}
	}
}

func (s *CascadeService) recordAudit(ctx context.Context, actorID string, set *repository.CascadeSet) {
	if s.audit == nil {
		return
	}
	rootID := set.RootID
	log := &models.AuditLog{
		Action:     models.AuditActionCascadeDelete,
		Resource:   set.RootKind,
		ResourceID: &rootID,
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Sugar().Warnw("failed to record cascade audit log", "root", set.RootKind, "root_id", set.RootID, "error", err)
	}
}
