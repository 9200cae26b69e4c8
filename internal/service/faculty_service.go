package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusnotes/notes-api/internal/models"
	appErrors "github.com/campusnotes/notes-api/pkg/errors"
)

type facultyRepository interface {
	ListFaculty(ctx context.Context, filter models.FacultyFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	ExistsByEmployeeID(ctx context.Context, employeeID, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateFacultyRequest represents payload for registering faculty accounts.
type CreateFacultyRequest struct {
	Email       string `json:"email" validate:"required,email"`
	FullName    string `json:"full_name" validate:"required"`
	EmployeeID  string `json:"employee_id" validate:"required"`
	Designation string `json:"designation"`
	Password    string `json:"password" validate:"required,min=8"`
}

// UpdateFacultyRequest payload for updating faculty accounts.
type UpdateFacultyRequest struct {
	FullName    string `json:"full_name" validate:"required"`
	Designation string `json:"designation"`
	Active      *bool  `json:"active"`
}

// FacultyService handles faculty account management on behalf of admins.
type FacultyService struct {
	repo      facultyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFacultyService creates an instance of FacultyService.
func NewFacultyService(repo facultyRepository, validate *validator.Validate, logger *zap.Logger) *FacultyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacultyService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated faculty accounts.
func (s *FacultyService) List(ctx context.Context, filter models.FacultyFilter) ([]models.User, *models.Pagination, error) {
	faculty, total, err := s.repo.ListFaculty(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return faculty, pagination, nil
}

// Get returns a faculty account by ID.
func (s *FacultyService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.findFaculty(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create registers a new faculty account.
func (s *FacultyService) Create(ctx context.Context, req CreateFacultyRequest, actorID string) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	employeeID := strings.TrimSpace(req.EmployeeID)

	exists, err := s.repo.ExistsByEmail(ctx, email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	}

	exists, err = s.repo.ExistsByEmployeeID(ctx, employeeID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check employee id uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "employee id already exists")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         models.RoleFaculty,
		EmployeeID:   &employeeID,
		Designation:  strings.TrimSpace(req.Designation),
		Active:       true,
		PasswordHash: string(passwordHash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create faculty")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"id": user.ID, "email": user.Email, "employee_id": employeeID})
	s.recordAudit(ctx, actorID, models.AuditActionFacultyCreate, user.ID, nil, newPayload)

	return user, nil
}

// Update modifies a faculty account.
func (s *FacultyService) Update(ctx context.Context, id string, req UpdateFacultyRequest, actorID string) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}

	user, err := s.findFaculty(ctx, id)
	if err != nil {
		return nil, err
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"full_name": user.FullName, "designation": user.Designation, "active": user.Active})

	user.FullName = strings.TrimSpace(req.FullName)
	user.Designation = strings.TrimSpace(req.Designation)
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update faculty")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"full_name": user.FullName, "designation": user.Designation, "active": user.Active})
	s.recordAudit(ctx, actorID, models.AuditActionFacultyUpdate, user.ID, oldPayload, newPayload)

	return user, nil
}

// Delete removes a faculty account. Their uploaded notes remain; listings show
// an empty uploader name once the account row is gone.
func (s *FacultyService) Delete(ctx context.Context, id string, actorID string) error {
	user, err := s.findFaculty(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete faculty")
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"email": user.Email, "employee_id": user.EmployeeID})
	s.recordAudit(ctx, actorID, models.AuditActionFacultyDelete, user.ID, oldPayload, nil)

	return nil
}

func (s *FacultyService) findFaculty(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	if user.Role != models.RoleFaculty {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
	}
	return user, nil
}

func (s *FacultyService) recordAudit(ctx context.Context, actorID, action, resourceID string, oldValues, newValues []byte) {
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "faculty",
		ResourceID: &resourceID,
		OldValues:  oldValues,
		NewValues:  newValues,
	}
	if err := s.repo.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record faculty audit log", zap.Error(err))
	}
}
