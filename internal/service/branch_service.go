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

type branchRepository interface {
	List(ctx context.Context, filter models.BranchFilter) ([]models.Branch, int, error)
	FindByID(ctx context.Context, id string) (*models.Branch, error)
	ExistsByCode(ctx context.Context, regulationID, code, excludeID string) (bool, error)
	Create(ctx context.Context, branch *models.Branch) error
	Update(ctx context.Context, branch *models.Branch) error
}

type branchRegulationLookup interface {
	FindByID(ctx context.Context, id string) (*models.Regulation, error)
}

// CreateBranchRequest captures fields for creating branches.
type CreateBranchRequest struct {
	Name         string `json:"name" validate:"required"`
	Code         string `json:"code" validate:"required"`
	RegulationID string `json:"regulation_id" validate:"required"`
}

// UpdateBranchRequest modifies branch fields. Branches cannot move between
// regulations; delete and recreate instead.
type UpdateBranchRequest struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required"`
}

// BranchService handles branch taxonomy workflows.
type BranchService struct {
	repo        branchRepository
	regulations branchRegulationLookup
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewBranchService creates a new branch service.
func NewBranchService(repo branchRepository, regulations branchRegulationLookup, validate *validator.Validate, logger *zap.Logger) *BranchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BranchService{repo: repo, regulations: regulations, validator: validate, logger: logger}
}

// List returns paginated branches.
func (s *BranchService) List(ctx context.Context, filter models.BranchFilter) ([]models.Branch, *models.Pagination, error) {
	branches, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list branches")
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
	return branches, pagination, nil
}

// Get returns a branch by identifier.
func (s *BranchService) Get(ctx context.Context, id string) (*models.Branch, error) {
	branch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
	}
	return branch, nil
}

// Create adds a new branch under an existing regulation.
func (s *BranchService) Create(ctx context.Context, req CreateBranchRequest) (*models.Branch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid branch payload")
	}

	if _, err := s.regulations.FindByID(ctx, req.RegulationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "regulation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load regulation")
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))

	exists, err := s.repo.ExistsByCode(ctx, req.RegulationID, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check branch code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "branch code already exists in regulation")
	}

	branch := &models.Branch{
		Name:         strings.TrimSpace(req.Name),
		Code:         req.Code,
		RegulationID: req.RegulationID,
	}
	if err := s.repo.Create(ctx, branch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create branch")
	}
	return branch, nil
}

// Update modifies an existing branch.
func (s *BranchService) Update(ctx context.Context, id string, req UpdateBranchRequest) (*models.Branch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid branch payload")
	}

	branch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))

	exists, err := s.repo.ExistsByCode(ctx, branch.RegulationID, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check branch code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "branch code already exists in regulation")
	}

	branch.Name = strings.TrimSpace(req.Name)
	branch.Code = req.Code

	if err := s.repo.Update(ctx, branch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update branch")
	}
	return branch, nil
}
