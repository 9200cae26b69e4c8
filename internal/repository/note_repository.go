package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusnotes/notes-api/internal/dto"
	"github.com/campusnotes/notes-api/internal/models"
)

// NoteRepository handles persistence for notes and the faculty upload ledger.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository creates a new repository instance.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

const noteJoinColumns = `n.id, n.title, n.regulation_id, n.branch_id, n.subject_id, n.semester, n.file_key, n.uploaded_by, n.created_at,
       COALESCE(s.name, '') AS subject_name,
       COALESCE(b.code, '') AS branch_code,
       COALESCE(u.full_name, '') AS uploader_name`

const noteJoins = `FROM notes n
LEFT JOIN subjects s ON s.id = n.subject_id
LEFT JOIN branches b ON b.id = n.branch_id
LEFT JOIN users u ON u.id = n.uploaded_by`

// FindByID returns a note by id.
func (r *NoteRepository) FindByID(ctx context.Context, id string) (*models.Note, error) {
	const query = `SELECT id, title, regulation_id, branch_id, subject_id, semester, file_key, uploaded_by, created_at FROM notes WHERE id = $1`
	var note models.Note
	if err := r.db.GetContext(ctx, &note, query, id); err != nil {
		return nil, err
	}
	return &note, nil
}

// FindByIDs resolves a set of note ids in one query. Missing ids are simply
// absent from the result.
func (r *NoteRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, title, regulation_id, branch_id, subject_id, semester, file_key, uploaded_by, created_at FROM notes WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build notes query: %w", err)
	}
	query = r.db.Rebind(query)

	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		return nil, fmt.Errorf("find notes by ids: %w", err)
	}
	return notes, nil
}

// ListBySubject returns joined note rows for one subject, newest first.
func (r *NoteRepository) ListBySubject(ctx context.Context, subjectID string) ([]dto.NoteRow, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE n.subject_id = $1 ORDER BY n.created_at DESC", noteJoinColumns, noteJoins)
	var rows []dto.NoteRow
	if err := r.db.SelectContext(ctx, &rows, query, subjectID); err != nil {
		return nil, fmt.Errorf("list notes by subject: %w", err)
	}
	return rows, nil
}

// ListByFaculty returns the caller's uploads via the ledger, newest first.
// The join against notes filters ledger entries whose note no longer exists.
func (r *NoteRepository) ListByFaculty(ctx context.Context, facultyID string) ([]dto.NoteRow, error) {
	query := fmt.Sprintf(`SELECT %s
%s
JOIN faculty_uploads fu ON fu.note_id = n.id
WHERE fu.faculty_id = $1
ORDER BY fu.added_at DESC`, noteJoinColumns, noteJoins)
	var rows []dto.NoteRow
	if err := r.db.SelectContext(ctx, &rows, query, facultyID); err != nil {
		return nil, fmt.Errorf("list notes by faculty: %w", err)
	}
	return rows, nil
}

// ListCatalog returns all joined note rows for export, oldest first.
func (r *NoteRepository) ListCatalog(ctx context.Context) ([]dto.NoteRow, error) {
	query := fmt.Sprintf("SELECT %s %s ORDER BY n.created_at ASC", noteJoinColumns, noteJoins)
	var rows []dto.NoteRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list note catalog: %w", err)
	}
	return rows, nil
}

// Create inserts the note and appends the uploader's ledger entry in one
// transaction so the ledger never references a note that failed to persist.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) (err error) {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin note create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertNote = `INSERT INTO notes (id, title, regulation_id, branch_id, subject_id, semester, file_key, uploaded_by, created_at)
VALUES (:id, :title, :regulation_id, :branch_id, :subject_id, :semester, :file_key, :uploaded_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertNote, note); err != nil {
		return fmt.Errorf("create note: %w", err)
	}

	const insertLedger = `INSERT INTO faculty_uploads (faculty_id, note_id, added_at) VALUES ($1, $2, $3)`
	if _, err = tx.ExecContext(ctx, insertLedger, note.UploadedBy, note.ID, note.CreatedAt); err != nil {
		return fmt.Errorf("append upload ledger: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit note create: %w", err)
	}
	return nil
}

// Delete removes the note row and its ledger entry in one transaction and
// returns the file key for blob cleanup. Returns sql.ErrNoRows when the note
// is already gone.
func (r *NoteRepository) Delete(ctx context.Context, id string) (fileKey string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin note delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = tx.GetContext(ctx, &fileKey, `SELECT file_key FROM notes WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("lock note: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM faculty_uploads WHERE note_id = $1`, id); err != nil {
		return "", fmt.Errorf("remove ledger entry: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id); err != nil {
		return "", fmt.Errorf("delete note: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit note delete: %w", err)
	}
	return fileKey, nil
}
