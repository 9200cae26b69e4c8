package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campusnotes/notes-api/internal/models"
)

func newNoteRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestNoteRepositoryCreateAppendsLedger(t *testing.T) {
	db, mock, cleanup := newNoteRepoMock(t)
	defer cleanup()

	repo := NewNoteRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notes")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO faculty_uploads")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	note := &models.Note{
		Title:        "Unit 1 - Signals",
		RegulationID: "reg-1",
		BranchID:     "br-1",
		SubjectID:    "sub-1",
		Semester:     3,
		FileKey:      "uploads/1_signals.pdf",
		UploadedBy:   "fac-1",
	}
	require.NoError(t, repo.Create(context.Background(), note))
	require.NotEmpty(t, note.ID)
	require.False(t, note.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryCreateRollsBackOnLedgerFailure(t *testing.T) {
	db, mock, cleanup := newNoteRepoMock(t)
	defer cleanup()

	repo := NewNoteRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notes")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO faculty_uploads")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Note{Title: "x", UploadedBy: "fac-1"})
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryDeleteReturnsFileKey(t *testing.T) {
	db, mock, cleanup := newNoteRepoMock(t)
	defer cleanup()

	repo := NewNoteRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT file_key FROM notes WHERE id = $1 FOR UPDATE")).
		WithArgs("note-1").
		WillReturnRows(sqlmock.NewRows([]string{"file_key"}).AddRow("uploads/1_a.pdf"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM faculty_uploads WHERE note_id = $1")).
		WithArgs("note-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes WHERE id = $1")).
		WithArgs("note-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	fileKey, err := repo.Delete(context.Background(), "note-1")
	require.NoError(t, err)
	require.Equal(t, "uploads/1_a.pdf", fileKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryDeleteMissingNote(t *testing.T) {
	db, mock, cleanup := newNoteRepoMock(t)
	defer cleanup()

	repo := NewNoteRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT file_key FROM notes WHERE id = $1 FOR UPDATE")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryFindByIDs(t *testing.T) {
	db, mock, cleanup := newNoteRepoMock(t)
	defer cleanup()

	repo := NewNoteRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "regulation_id", "branch_id", "subject_id", "semester", "file_key", "uploaded_by", "created_at"}).
		AddRow("note-1", "Unit 1", "reg-1", "br-1", "sub-1", 3, "uploads/1_a.pdf", "fac-1", now).
		AddRow("note-2", "Unit 2", "reg-1", "br-1", "sub-1", 3, "", "fac-1", now)
	mock.ExpectQuery("SELECT id, title, regulation_id").
		WithArgs("note-1", "note-2", "note-3").
		WillReturnRows(rows)

	notes, err := repo.FindByIDs(context.Background(), []string{"note-1", "note-2", "note-3"})
	require.NoError(t, err)
	require.Len(t, notes, 2)
	require.Equal(t, "Unit 2", notes[1].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryFindByIDsEmpty(t *testing.T) {
	db, mock, cleanup := newNoteRepoMock(t)
	defer cleanup()

	repo := NewNoteRepository(db)
	notes, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, notes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryListByFaculty(t *testing.T) {
	db, mock, cleanup := newNoteRepoMock(t)
	defer cleanup()

	repo := NewNoteRepository(db)

	rows := sqlmock.NewRows([]string{"id", "title", "regulation_id", "branch_id", "subject_id", "semester", "file_key", "uploaded_by", "created_at", "subject_name", "branch_code", "uploader_name"}).
		AddRow("note-2", "Unit 2", "reg-1", "br-1", "sub-1", 3, "uploads/2_b.pdf", "fac-1", time.Now(), "Signals", "ECE", "Dr. Rao").
		AddRow("note-1", "Unit 1", "reg-1", "br-1", "sub-1", 3, "uploads/1_a.pdf", "fac-1", time.Now(), "Signals", "ECE", "Dr. Rao")
	mock.ExpectQuery("JOIN faculty_uploads fu ON fu.note_id = n.id").
		WithArgs("fac-1").
		WillReturnRows(rows)

	list, err := repo.ListByFaculty(context.Background(), "fac-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "note-2", list[0].ID)
	require.Equal(t, "Signals", list[0].SubjectName)
	require.NoError(t, mock.ExpectationsWereMet())
}
