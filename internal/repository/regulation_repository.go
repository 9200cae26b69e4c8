package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusnotes/notes-api/internal/models"
)

// RegulationRepository handles persistence for regulations.
type RegulationRepository struct {
	db *sqlx.DB
}

// NewRegulationRepository creates a new repository instance.
func NewRegulationRepository(db *sqlx.DB) *RegulationRepository {
	return &RegulationRepository{db: db}
}

// List returns regulations matching filters with pagination metadata.
func (r *RegulationRepository) List(ctx context.Context, filter models.RegulationFilter) ([]models.Regulation, int, error) {
	base := "FROM regulations WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, name, number_of_semesters, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var regulations []models.Regulation
	if err := r.db.SelectContext(ctx, &regulations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list regulations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count regulations: %w", err)
	}

	return regulations, total, nil
}

// FindByID returns a regulation by id.
func (r *RegulationRepository) FindByID(ctx context.Context, id string) (*models.Regulation, error) {
	const query = `SELECT id, name, number_of_semesters, created_at, updated_at FROM regulations WHERE id = $1`
	var regulation models.Regulation
	if err := r.db.GetContext(ctx, &regulation, query, id); err != nil {
		return nil, err
	}
	return &regulation, nil
}

// ExistsByName checks uniqueness of the regulation name.
func (r *RegulationRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM regulations WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check regulation name: %w", err)
	}
	return true, nil
}

// Create persists a new regulation.
func (r *RegulationRepository) Create(ctx context.Context, regulation *models.Regulation) error {
	if regulation.ID == "" {
		regulation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if regulation.CreatedAt.IsZero() {
		regulation.CreatedAt = now
	}
	regulation.UpdatedAt = now

	const query = `INSERT INTO regulations (id, name, number_of_semesters, created_at, updated_at) VALUES (:id, :name, :number_of_semesters, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, regulation); err != nil {
		return fmt.Errorf("create regulation: %w", err)
	}
	return nil
}

// Update modifies a regulation.
func (r *RegulationRepository) Update(ctx context.Context, regulation *models.Regulation) error {
	regulation.UpdatedAt = time.Now().UTC()
	const query = `UPDATE regulations SET name = :name, number_of_semesters = :number_of_semesters, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, regulation); err != nil {
		return fmt.Errorf("update regulation: %w", err)
	}
	return nil
}
