package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusnotes/notes-api/internal/models"
	appErrors "github.com/campusnotes/notes-api/pkg/errors"
)

type subjectRepoStub struct {
	subjects map[string]*models.Subject
	codes    map[string]bool
	created  *models.Subject
	updated  *models.Subject
}

func (s *subjectRepoStub) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	return nil, 0, nil
}

func (s *subjectRepoStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := s.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return subject, nil
}

func (s *subjectRepoStub) ExistsByCode(ctx context.Context, branchID, code, excludeID string) (bool, error) {
	return s.codes[branchID+"/"+code], nil
}

func (s *subjectRepoStub) Create(ctx context.Context, subject *models.Subject) error {
	subject.ID = "sub-new"
	s.created = subject
	return nil
}

func (s *subjectRepoStub) Update(ctx context.Context, subject *models.Subject) error {
	s.updated = subject
	return nil
}

type regulationLookupStub struct {
	regulations map[string]*models.Regulation
}

func (s *regulationLookupStub) FindByID(ctx context.Context, id string) (*models.Regulation, error) {
	regulation, ok := s.regulations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return regulation, nil
}

func newSubjectServiceForTest(repo *subjectRepoStub) *SubjectService {
	branches := &branchLookupStub{branches: map[string]*models.Branch{
		"br-1": {ID: "br-1", Code: "ECE", RegulationID: "reg-1"},
	}}
	regulations := &regulationLookupStub{regulations: map[string]*models.Regulation{
		"reg-1": {ID: "reg-1", Name: "R2023", NumberOfSemesters: 8},
	}}
	return NewSubjectService(repo, branches, regulations, nil, zap.NewNop())
}

func TestSubjectServiceCreate(t *testing.T) {
	repo := &subjectRepoStub{subjects: map[string]*models.Subject{}, codes: map[string]bool{}}
	svc := newSubjectServiceForTest(repo)

	subject, err := svc.Create(context.Background(), CreateSubjectRequest{
		Name:     "Signals and Systems",
		Code:     "ec301",
		BranchID: "br-1",
		Semester: 3,
	})
	require.NoError(t, err)
	require.Equal(t, "EC301", subject.Code)
	require.Equal(t, "br-1", subject.BranchID)
	require.NotNil(t, repo.created)
}

func TestSubjectServiceCreateRejectsHighSemester(t *testing.T) {
	repo := &subjectRepoStub{subjects: map[string]*models.Subject{}, codes: map[string]bool{}}
	svc := newSubjectServiceForTest(repo)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{
		Name:     "Ghost Course",
		Code:     "EC999",
		BranchID: "br-1",
		Semester: 9,
	})
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSubjectServiceCreateDuplicateCode(t *testing.T) {
	repo := &subjectRepoStub{
		subjects: map[string]*models.Subject{},
		codes:    map[string]bool{"br-1/EC301": true},
	}
	svc := newSubjectServiceForTest(repo)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{
		Name:     "Signals and Systems",
		Code:     "EC301",
		BranchID: "br-1",
		Semester: 3,
	})
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestSubjectServiceUpdateMissingSubject(t *testing.T) {
	repo := &subjectRepoStub{subjects: map[string]*models.Subject{}, codes: map[string]bool{}}
	svc := newSubjectServiceForTest(repo)

	_, err := svc.Update(context.Background(), "missing", UpdateSubjectRequest{
		Name:     "Renamed",
		Code:     "EC302",
		Semester: 4,
	})
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
