package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func newCascadeRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCascadeRepositoryCollectRegulation(t *testing.T) {
	db, mock, cleanup := newCascadeRepoMock(t)
	defer cleanup()

	repo := NewCascadeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM regulations WHERE id = $1")).
		WithArgs("reg-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM branches WHERE regulation_id = $1")).
		WithArgs("reg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("br-1").AddRow("br-2"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM subjects WHERE branch_id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sub-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, file_key FROM notes WHERE branch_id = ANY($1) OR subject_id = ANY($2)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "file_key"}).
			AddRow("note-1", "uploads/1_a.pdf").
			AddRow("note-2", ""))

	set, err := repo.CollectRegulation(context.Background(), "reg-1")
	require.NoError(t, err)
	require.Equal(t, CascadeRootRegulation, set.RootKind)
	require.Equal(t, []string{"br-1", "br-2"}, set.BranchIDs)
	require.Equal(t, []string{"sub-1"}, set.SubjectIDs)
	require.Equal(t, []string{"note-1", "note-2"}, set.NoteIDs)
	require.Equal(t, []string{"uploads/1_a.pdf"}, set.FileKeys)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCascadeRepositoryCollectMissingRoot(t *testing.T) {
	db, mock, cleanup := newCascadeRepoMock(t)
	defer cleanup()

	repo := NewCascadeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM subjects WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.CollectSubject(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCascadeRepositoryCollectBranch(t *testing.T) {
	db, mock, cleanup := newCascadeRepoMock(t)
	defer cleanup()

	repo := NewCascadeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM branches WHERE id = $1")).
		WithArgs("br-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM subjects WHERE branch_id = $1")).
		WithArgs("br-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sub-1").AddRow("sub-2"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, file_key FROM notes WHERE branch_id = $1")).
		WithArgs("br-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "file_key"}).AddRow("note-1", "uploads/1_a.pdf"))

	set, err := repo.CollectBranch(context.Background(), "br-1")
	require.NoError(t, err)
	require.Empty(t, set.BranchIDs)
	require.Equal(t, []string{"sub-1", "sub-2"}, set.SubjectIDs)
	require.Equal(t, []string{"note-1"}, set.NoteIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCascadeRepositoryExecuteDeletesChildrenFirst(t *testing.T) {
	db, mock, cleanup := newCascadeRepoMock(t)
	defer cleanup()

	repo := NewCascadeRepository(db)
	set := &CascadeSet{
		RootKind:   CascadeRootRegulation,
		RootID:     "reg-1",
		BranchIDs:  []string{"br-1"},
		SubjectIDs: []string{"sub-1"},
		NoteIDs:    []string{"note-1", "note-2"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM faculty_uploads WHERE note_id = ANY($1)")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes WHERE id = ANY($1)")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects WHERE id = ANY($1)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM branches WHERE id = ANY($1)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM regulations WHERE id = $1")).
		WithArgs("reg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Execute(context.Background(), set))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCascadeRepositoryExecuteRootVanished(t *testing.T) {
	db, mock, cleanup := newCascadeRepoMock(t)
	defer cleanup()

	repo := NewCascadeRepository(db)
	set := &CascadeSet{RootKind: CascadeRootSubject, RootID: "sub-1", NoteIDs: []string{"note-1"}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM faculty_uploads WHERE note_id = ANY($1)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes WHERE id = ANY($1)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects WHERE id = ANY($1)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects WHERE id = $1")).
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Execute(context.Background(), set)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCascadeRepositoryExecuteDeletesLateRowsByParent(t *testing.T) {
	db, mock, cleanup := newCascadeRepoMock(t)
	defer cleanup()

	repo := NewCascadeRepository(db)
	// A note created under the subject after collection carries no entry in
	// NoteIDs; the parent-scoped predicates must still cover it in the
	// transaction.
	set := &CascadeSet{RootKind: CascadeRootSubject, RootID: "sub-1"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM faculty_uploads WHERE note_id = ANY($1)")).
		WithArgs(pq.Array([]string{}), pq.Array([]string{"sub-1"}), pq.Array([]string{})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes WHERE id = ANY($1) OR subject_id = ANY($2) OR branch_id = ANY($3)")).
		WithArgs(pq.Array([]string{}), pq.Array([]string{"sub-1"}), pq.Array([]string{})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects WHERE id = ANY($1)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects WHERE id = $1")).
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Execute(context.Background(), set))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCascadeRepositoryExecuteRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newCascadeRepoMock(t)
	defer cleanup()

	repo := NewCascadeRepository(db)
	set := &CascadeSet{
		RootKind:   CascadeRootBranch,
		RootID:     "br-1",
		SubjectIDs: []string{"sub-1"},
		NoteIDs:    []string{"note-1"},
	}

	boom := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM faculty_uploads WHERE note_id = ANY($1)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes WHERE id = ANY($1)")).
		WillReturnError(boom)
	mock.ExpectRollback()

	err := repo.Execute(context.Background(), set)
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
