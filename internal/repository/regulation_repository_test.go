package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campusnotes/notes-api/internal/models"
)

func newRegulationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRegulationRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newRegulationRepoMock(t)
	defer cleanup()

	repo := NewRegulationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO regulations")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	regulation := &models.Regulation{Name: "R2023", NumberOfSemesters: 8}
	require.NoError(t, repo.Create(context.Background(), regulation))
	require.NotEmpty(t, regulation.ID)

	rows := sqlmock.NewRows([]string{"id", "name", "number_of_semesters", "created_at", "updated_at"}).
		AddRow(regulation.ID, "R2023", 8, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, number_of_semesters")).
		WithArgs(regulation.ID).
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), regulation.ID)
	require.NoError(t, err)
	require.Equal(t, "R2023", found.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegulationRepositoryListWithSearch(t *testing.T) {
	db, mock, cleanup := newRegulationRepoMock(t)
	defer cleanup()

	repo := NewRegulationRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "number_of_semesters", "created_at", "updated_at"}).
		AddRow("reg-1", "R2023", 8, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, number_of_semesters")).
		WithArgs("%r2023%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("%r2023%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.RegulationFilter{Search: "R2023"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegulationRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newRegulationRepoMock(t)
	defer cleanup()

	repo := NewRegulationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM regulations WHERE LOWER(name) = LOWER($1)")).
		WithArgs("R2023").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByName(context.Background(), "R2023", "")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM regulations WHERE LOWER(name) = LOWER($1) AND id <> $2")).
		WithArgs("R2023", "reg-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsByName(context.Background(), "R2023", "reg-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
