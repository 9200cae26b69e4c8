package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusnotes/notes-api/internal/models"
	appErrors "github.com/campusnotes/notes-api/pkg/errors"
)

type regulationRepository interface {
	List(ctx context.Context, filter models.RegulationFilter) ([]models.Regulation, int, error)
	FindByID(ctx context.Context, id string) (*models.Regulation, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, regulation *models.Regulation) error
	Update(ctx context.Context, regulation *models.Regulation) error
}

// CreateRegulationRequest captures fields for creating regulations.
type CreateRegulationRequest struct {
	Name              string `json:"name" validate:"required"`
	NumberOfSemesters int    `json:"number_of_semesters" validate:"required,min=1,max=12"`
}

// UpdateRegulationRequest modifies regulation fields.
type UpdateRegulationRequest struct {
	Name              string `json:"name" validate:"required"`
	NumberOfSemesters int    `json:"number_of_semesters" validate:"required,min=1,max=12"`
}

// RegulationService handles regulation taxonomy workflows. Deletes run through
// the cascade service, never here.
type RegulationService struct {
	repo      regulationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegulationService creates a new regulation service.
func NewRegulationService(repo regulationRepository, validate *validator.Validate, logger *zap.Logger) *RegulationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegulationService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated regulations.
func (s *RegulationService) List(ctx context.Context, filter models.RegulationFilter) ([]models.Regulation, *models.Pagination, error) {
	regulations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list regulations")
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
	return regulations, pagination, nil
}

// Get returns a regulation by identifier.
func (s *RegulationService) Get(ctx context.Context, id string) (*models.Regulation, error) {
	regulation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "regulation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load regulation")
	}
	return regulation, nil
}

// Create adds a new regulation ensuring name uniqueness.
func (s *RegulationService) Create(ctx context.Context, req CreateRegulationRequest) (*models.Regulation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid regulation payload")
	}

	req.Name = strings.TrimSpace(req.Name)

	exists, err := s.repo.ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check regulation name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "regulation name already exists")
	}

	regulation := &models.Regulation{
		Name:              req.Name,
		NumberOfSemesters: req.NumberOfSemesters,
	}
	if err := s.repo.Create(ctx, regulation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create regulation")
	}
	return regulation, nil
}

// Update modifies an existing regulation.
func (s *RegulationService) Update(ctx context.Context, id string, req UpdateRegulationRequest) (*models.Regulation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid regulation payload")
	}

	regulation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "regulation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load regulation")
	}

	req.Name = strings.TrimSpace(req.Name)

	exists, err := s.repo.ExistsByName(ctx, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check regulation name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "regulation name already exists")
	}

	regulation.Name = req.Name
	regulation.NumberOfSemesters = req.NumberOfSemesters

	if err := s.repo.Update(ctx, regulation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update regulation")
	}
	return regulation, nil
}
