package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusnotes/notes-api/internal/dto"
	"github.com/campusnotes/notes-api/internal/models"
	"github.com/campusnotes/notes-api/pkg/config"
	appErrors "github.com/campusnotes/notes-api/pkg/errors"
)

type noteRepoStub struct {
	notes       map[string]*models.Note
	subjectRows []dto.NoteRow
	facultyRows []dto.NoteRow
	listCalls   int
	created     *models.Note
	deletedID   string
	deletedKey  string
}

func (s *noteRepoStub) FindByID(ctx context.Context, id string) (*models.Note, error) {
	note, ok := s.notes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return note, nil
}

func (s *noteRepoStub) ListBySubject(ctx context.Context, subjectID string) ([]dto.NoteRow, error) {
	s.listCalls++
	return s.subjectRows, nil
}

func (s *noteRepoStub) ListByFaculty(ctx context.Context, facultyID string) ([]dto.NoteRow, error) {
	return s.facultyRows, nil
}

func (s *noteRepoStub) Create(ctx context.Context, note *models.Note) error {
	note.ID = "note-new"
	note.CreatedAt = time.Now().UTC()
	s.created = note
	return nil
}

func (s *noteRepoStub) Delete(ctx context.Context, id string) (string, error) {
	note, ok := s.notes[id]
	if !ok {
		return "", sql.ErrNoRows
	}
	s.deletedID = id
	s.deletedKey = note.FileKey
	return note.FileKey, nil
}

type subjectLookupStub struct {
	subjects map[string]*models.Subject
}

func (s *subjectLookupStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := s.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return subject, nil
}

type branchLookupStub struct {
	branches map[string]*models.Branch
}

func (s *branchLookupStub) FindByID(ctx context.Context, id string) (*models.Branch, error) {
	branch, ok := s.branches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return branch, nil
}

type mapCacheStub struct {
	values   map[string][]byte
	patterns []string
}

func newMapCacheStub() *mapCacheStub {
	return &mapCacheStub{values: map[string][]byte{}}
}

func (s *mapCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *mapCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.values[key] = raw
	return nil
}

func (s *mapCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.values {
		if strings.HasPrefix(key, prefix) {
			delete(s.values, key)
		}
	}
	return nil
}

type noteServiceFixture struct {
	svc     *NoteService
	repo    *noteRepoStub
	cache   *mapCacheStub
	cleaner *cleanerStub
	audit   *auditStub
}

func newNoteServiceForTest(t *testing.T, repo *noteRepoStub) *noteServiceFixture {
	t.Helper()
	subjects := &subjectLookupStub{subjects: map[string]*models.Subject{
		"sub-1": {ID: "sub-1", Name: "Signals", BranchID: "br-1", Semester: 3},
	}}
	branches := &branchLookupStub{branches: map[string]*models.Branch{
		"br-1": {ID: "br-1", Code: "ECE", RegulationID: "reg-1"},
	}}
	store := &objectStoreStub{blobs: map[string][]byte{}}
	cache := newMapCacheStub()
	cleaner := &cleanerStub{}
	audit := &auditStub{}

	storageCfg := config.StorageConfig{AllowedMIMEs: []string{"application/pdf"}}
	notesCfg := config.NotesConfig{CacheEnabled: true, CacheTTL: time.Minute}

	svc := NewNoteService(repo, subjects, branches, store, cache, cleaner, audit, nil, storageCfg, notesCfg, nil, zap.NewNop())
	return &noteServiceFixture{svc: svc, repo: repo, cache: cache, cleaner: cleaner, audit: audit}
}

func TestNoteServiceGenerateUploadURL(t *testing.T) {
	fx := newNoteServiceForTest(t, &noteRepoStub{})

	resp, err := fx.svc.GenerateUploadURL(context.Background(), UploadURLRequest{
		FileName:    "unit 1 signals.pdf",
		ContentType: "application/pdf",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(resp.FileKey, "uploads/"))
	require.Contains(t, resp.UploadURL, resp.FileKey)
	require.False(t, resp.ExpiresAt.IsZero())
}

func TestNoteServiceGenerateUploadURLRejectsMIME(t *testing.T) {
	fx := newNoteServiceForTest(t, &noteRepoStub{})

	_, err := fx.svc.GenerateUploadURL(context.Background(), UploadURLRequest{
		FileName:    "malware.exe",
		ContentType: "application/x-msdownload",
	})
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestNoteServiceCreateDerivesTaxonomy(t *testing.T) {
	repo := &noteRepoStub{}
	fx := newNoteServiceForTest(t, repo)

	note, err := fx.svc.Create(context.Background(), "fac-1", CreateNoteRequest{
		Title:     "  Unit 1 Signals  ",
		SubjectID: "sub-1",
		FileKey:   "uploads/1_signals.pdf",
	})
	require.NoError(t, err)
	require.Equal(t, "Unit 1 Signals", note.Title)
	require.Equal(t, "reg-1", note.RegulationID)
	require.Equal(t, "br-1", note.BranchID)
	require.Equal(t, 3, note.Semester)
	require.Equal(t, "fac-1", note.UploadedBy)
	require.NotNil(t, repo.created)
	require.Contains(t, fx.cache.patterns, "notes:subject:sub-1*")
}

func TestNoteServiceCreateUnknownSubject(t *testing.T) {
	fx := newNoteServiceForTest(t, &noteRepoStub{})

	_, err := fx.svc.Create(context.Background(), "fac-1", CreateNoteRequest{
		Title:     "Orphan",
		SubjectID: "missing",
		FileKey:   "uploads/1_a.pdf",
	})
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestNoteServiceListBySubjectCaches(t *testing.T) {
	repo := &noteRepoStub{subjectRows: []dto.NoteRow{
		{ID: "note-1", Title: "Unit 1", SubjectID: "sub-1", FileKey: "uploads/1_a.pdf"},
	}}
	fx := newNoteServiceForTest(t, repo)

	views, err := fx.svc.ListBySubject(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Contains(t, views[0].DownloadURL, "uploads/1_a.pdf")
	require.Equal(t, 1, repo.listCalls)

	// Second call is served from cache; URLs are still signed fresh.
	views, err = fx.svc.ListBySubject(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotEmpty(t, views[0].DownloadURL)
	require.Equal(t, 1, repo.listCalls)
}

func TestNoteServiceListMyUploads(t *testing.T) {
	repo := &noteRepoStub{facultyRows: []dto.NoteRow{
		{ID: "note-2", Title: "Newest", FileKey: "uploads/2_b.pdf"},
		{ID: "note-1", Title: "Oldest", FileKey: "uploads/1_a.pdf"},
	}}
	fx := newNoteServiceForTest(t, repo)

	views, err := fx.svc.ListMyUploads(context.Background(), "fac-1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, "note-2", views[0].ID)
}

func TestNoteServiceDeleteOwnNote(t *testing.T) {
	repo := &noteRepoStub{notes: map[string]*models.Note{
		"note-1": {ID: "note-1", SubjectID: "sub-1", FileKey: "uploads/1_a.pdf", UploadedBy: "fac-1"},
	}}
	fx := newNoteServiceForTest(t, repo)

	actor := &models.User{ID: "fac-1", Role: models.RoleFaculty}
	require.NoError(t, fx.svc.Delete(context.Background(), "note-1", actor))
	require.Equal(t, "note-1", repo.deletedID)
	require.Equal(t, []string{"uploads/1_a.pdf"}, fx.cleaner.keys)
	require.Len(t, fx.audit.logs, 1)
	require.Equal(t, models.AuditActionNoteDelete, fx.audit.logs[0].Action)
}

func TestNoteServiceDeleteForbiddenForOtherFaculty(t *testing.T) {
	repo := &noteRepoStub{notes: map[string]*models.Note{
		"note-1": {ID: "note-1", SubjectID: "sub-1", FileKey: "uploads/1_a.pdf", UploadedBy: "fac-1"},
	}}
	fx := newNoteServiceForTest(t, repo)

	actor := &models.User{ID: "fac-2", Role: models.RoleFaculty}
	err := fx.svc.Delete(context.Background(), "note-1", actor)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	require.Empty(t, repo.deletedID)
}

func TestNoteServiceDeleteAsAdmin(t *testing.T) {
	repo := &noteRepoStub{notes: map[string]*models.Note{
		"note-1": {ID: "note-1", SubjectID: "sub-1", FileKey: "uploads/1_a.pdf", UploadedBy: "fac-1"},
	}}
	fx := newNoteServiceForTest(t, repo)

	actor := &models.User{ID: "admin-1", Role: models.RoleAdmin}
	require.NoError(t, fx.svc.Delete(context.Background(), "note-1", actor))
	require.Equal(t, "note-1", repo.deletedID)
}
