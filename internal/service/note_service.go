package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusnotes/notes-api/internal/dto"
	"github.com/campusnotes/notes-api/internal/models"
	"github.com/campusnotes/notes-api/internal/repository"
	"github.com/campusnotes/notes-api/pkg/config"
	appErrors "github.com/campusnotes/notes-api/pkg/errors"
	"github.com/campusnotes/notes-api/pkg/storage"
)

type noteRepository interface {
	FindByID(ctx context.Context, id string) (*models.Note, error)
	ListBySubject(ctx context.Context, subjectID string) ([]dto.NoteRow, error)
	ListByFaculty(ctx context.Context, facultyID string) ([]dto.NoteRow, error)
	Create(ctx context.Context, note *models.Note) error
	Delete(ctx context.Context, id string) (string, error)
}

type noteSubjectLookup interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type noteBranchLookup interface {
	FindByID(ctx context.Context, id string) (*models.Branch, error)
}

type noteListingCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// UploadURLRequest asks for a presigned upload slot.
type UploadURLRequest struct {
	FileName    string `json:"file_name" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
}

// CreateNoteRequest registers an uploaded blob as a note. The blob must
// already exist at FileKey; semester, branch and regulation are derived from
// the subject.
type CreateNoteRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	SubjectID string `json:"subject_id" validate:"required"`
	FileKey   string `json:"file_key" validate:"required"`
}

// NoteService handles note upload, listing and deletion workflows.
type NoteService struct {
	repo      noteRepository
	subjects  noteSubjectLookup
	branches  noteBranchLookup
	store     storage.ObjectStore
	cache     noteListingCache
	cleaner   blobCleaner
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	cacheEnabled bool
	cacheTTL     time.Duration
	allowedMIMEs map[string]bool
}

// NewNoteService creates a new note service.
func NewNoteService(
	repo noteRepository,
	subjects noteSubjectLookup,
	branches noteBranchLookup,
	store storage.ObjectStore,
	cache noteListingCache,
	cleaner blobCleaner,
	audit auditRecorder,
	metrics *MetricsService,
	storageCfg config.StorageConfig,
	notesCfg config.NotesConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *NoteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	allowed := make(map[string]bool, len(storageCfg.AllowedMIMEs))
	for _, mime := range storageCfg.AllowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(mime))] = true
	}

	return &NoteService{
		repo:         repo,
		subjects:     subjects,
		branches:     branches,
		store:        store,
		cache:        cache,
		cleaner:      cleaner,
		audit:        audit,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cacheEnabled: notesCfg.CacheEnabled,
		cacheTTL:     notesCfg.CacheTTL,
		allowedMIMEs: allowed,
	}
}

// GenerateUploadURL returns a presigned upload location for a new note file.
func (s *NoteService) GenerateUploadURL(ctx context.Context, req UploadURLRequest) (*dto.UploadURLResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload request")
	}

	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if len(s.allowedMIMEs) > 0 && !s.allowedMIMEs[contentType] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type not allowed")
	}

	key := storage.BuildKey(req.FileName, time.Now().UTC())
	url, expiresAt, err := s.store.PresignUpload(ctx, key, contentType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to presign upload")
	}

	return &dto.UploadURLResponse{UploadURL: url, FileKey: key, ExpiresAt: expiresAt}, nil
}

// Create registers note metadata and appends the uploader's ledger entry.
func (s *NoteService) Create(ctx context.Context, uploaderID string, req CreateNoteRequest) (*models.Note, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	branch, err := s.branches.FindByID(ctx, subject.BranchID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
	}

	note := &models.Note{
		Title:        strings.TrimSpace(req.Title),
		RegulationID: branch.RegulationID,
		BranchID:     branch.ID,
		SubjectID:    subject.ID,
		Semester:     subject.Semester,
		FileKey:      req.FileKey,
		UploadedBy:   uploaderID,
	}
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create note")
	}

	s.metrics.RecordUpload()
	s.invalidateSubject(ctx, subject.ID)
	return note, nil
}

// ListBySubject returns the subject's notes, newest first, with presigned
// download URLs. The underlying rows are cached; URLs are signed per request
// since they expire.
func (s *NoteService) ListBySubject(ctx context.Context, subjectID string) ([]dto.NoteView, error) {
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	var rows []dto.NoteRow
	cacheKey := repository.NotesBySubjectKey(subjectID)
	if s.cacheEnabled && s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &rows); err == nil {
			s.metrics.RecordCacheOperation(true)
			return s.toViews(ctx, rows), nil
		} else if err != appErrors.ErrCacheMiss {
			s.logger.Sugar().Warnw("note listing cache read failed", "subject_id", subjectID, "error", err)
		}
		s.metrics.RecordCacheOperation(false)
	}

	rows, err := s.repo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notes")
	}

	if s.cacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, rows, s.cacheTTL); err != nil {
			s.logger.Sugar().Warnw("note listing cache write failed", "subject_id", subjectID, "error", err)
		}
	}
	return s.toViews(ctx, rows), nil
}

// ListMyUploads returns the caller's upload ledger, most recent first.
func (s *NoteService) ListMyUploads(ctx context.Context, facultyID string) ([]dto.NoteView, error) {
	rows, err := s.repo.ListByFaculty(ctx, facultyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list uploads")
	}
	return s.toViews(ctx, rows), nil
}

// Delete removes a note. Faculty may only delete their own uploads; admins may
// delete any. The blob is cleaned up after the metadata delete commits.
func (s *NoteService) Delete(ctx context.Context, id string, actor *models.User) error {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}

	if actor.Role != models.RoleAdmin && note.UploadedBy != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot delete another faculty's note")
	}

	fileKey, err := s.repo.Delete(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete note")
	}

	if s.cleaner != nil && fileKey != "" {
		s.cleaner.EnqueueKeys([]string{fileKey})
	}
	s.invalidateSubject(ctx, note.SubjectID)
	s.recordDeleteAudit(ctx, actor.ID, note.ID)
	return nil
}

func (s *NoteService) invalidateSubject(ctx context.Context, subjectID string) {
	if !s.cacheEnabled || s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, repository.NotesBySubjectPattern(subjectID)); err != nil {
		s.logger.Sugar().Warnw("failed to invalidate note listing cache", "subject_id", subjectID, "error", err)
	}
}

func (s *NoteService) recordDeleteAudit(ctx context.Context, actorID, noteID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionNoteDelete,
		Resource:   "note",
		ResourceID: &noteID,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Sugar().Warnw("failed to record note delete audit log", "note_id", noteID, "error", err)
	}
}

func (s *NoteService) toViews(ctx context.Context, rows []dto.NoteRow) []dto.NoteView {
	views := make([]dto.NoteView, 0, len(rows))
	for _, row := range rows {
		view := dto.NoteView{
			ID:           row.ID,
			Title:        row.Title,
			SubjectID:    row.SubjectID,
			SubjectName:  row.SubjectName,
			BranchID:     row.BranchID,
			BranchCode:   row.BranchCode,
			RegulationID: row.RegulationID,
			Semester:     row.Semester,
			UploadedBy:   row.UploadedBy,
			UploaderName: row.UploaderName,
			CreatedAt:    row.CreatedAt,
		}
		if row.FileKey != "" {
			url, expiresAt, err := s.store.PresignDownload(ctx, row.FileKey)
			if err != nil {
				s.logger.Sugar().Warnw("failed to presign note download", "note_id", row.ID, "error", err)
			} else {
				view.DownloadURL = url
				view.URLExpiresAt = expiresAt
			}
		}
		views = append(views, view)
	}
	return views
}
