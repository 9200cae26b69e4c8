package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Root kinds accepted by the cascade repository.
const (
	CascadeRootRegulation = "regulation"
	CascadeRootBranch     = "branch"
	CascadeRootSubject    = "subject"
)

// CascadeSet is the fully computed descendant set of one hierarchy root. It is
// collected up front with batch queries so the delete transaction only issues
// batch statements.
type CascadeSet struct {
	RootKind   string
	RootID     string
	BranchIDs  []string
	SubjectIDs []string
	NoteIDs    []string
	FileKeys   []string
}

// CascadeRepository computes descendant sets and executes hierarchy deletes.
type CascadeRepository struct {
	db *sqlx.DB
}

// NewCascadeRepository creates a new repository instance.
func NewCascadeRepository(db *sqlx.DB) *CascadeRepository {
	return &CascadeRepository{db: db}
}

// CollectRegulation computes the descendant set rooted at a regulation.
// Returns sql.ErrNoRows when the regulation does not exist.
func (r *CascadeRepository) CollectRegulation(ctx context.Context, id string) (*CascadeSet, error) {
	if err := r.rootExists(ctx, "regulations", id); err != nil {
		return nil, err
	}

	set := &CascadeSet{RootKind: CascadeRootRegulation, RootID: id}

	if err := r.db.SelectContext(ctx, &set.BranchIDs, `SELECT id FROM branches WHERE regulation_id = $1`, id); err != nil {
		return nil, fmt.Errorf("collect branches: %w", err)
	}
	if len(set.BranchIDs) > 0 {
		if err := r.db.SelectContext(ctx, &set.SubjectIDs, `SELECT id FROM subjects WHERE branch_id = ANY($1)`, pq.Array(set.BranchIDs)); err != nil {
			return nil, fmt.Errorf("collect subjects: %w", err)
		}
		if err := r.collectNotes(ctx, set, `SELECT id, file_key FROM notes WHERE branch_id = ANY($1) OR subject_id = ANY($2)`, pq.Array(set.BranchIDs), pq.Array(set.SubjectIDs)); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// CollectBranch computes the descendant set rooted at a branch.
func (r *CascadeRepository) CollectBranch(ctx context.Context, id string) (*CascadeSet, error) {
	if err := r.rootExists(ctx, "branches", id); err != nil {
		return nil, err
	}

	set := &CascadeSet{RootKind: CascadeRootBranch, RootID: id}

	if err := r.db.SelectContext(ctx, &set.SubjectIDs, `SELECT id FROM subjects WHERE branch_id = $1`, id); err != nil {
		return nil, fmt.Errorf("collect subjects: %w", err)
	}
	if err := r.collectNotes(ctx, set, `SELECT id, file_key FROM notes WHERE branch_id = $1`, id); err != nil {
		return nil, err
	}

	return set, nil
}

// CollectSubject computes the descendant set rooted at a subject.
func (r *CascadeRepository) CollectSubject(ctx context.Context, id string) (*CascadeSet, error) {
	if err := r.rootExists(ctx, "subjects", id); err != nil {
		return nil, err
	}

	set := &CascadeSet{RootKind: CascadeRootSubject, RootID: id}

	if err := r.collectNotes(ctx, set, `SELECT id, file_key FROM notes WHERE subject_id = $1`, id); err != nil {
		return nil, err
	}

	return set, nil
}

// Execute deletes the descendant set and the root in one transaction, children
// before parents: ledger entries, notes, subjects, branches, root. The note and
// subject deletes also match by parent reference, so rows created under a
// doomed parent after collection still fall inside the transaction. Any failure
// rolls the whole transaction back. Returns sql.ErrNoRows when the root row
// vanished between collection and execution (a concurrent overlapping delete).
func (r *CascadeRepository) Execute(ctx context.Context, set *CascadeSet) (err error) {
	branchScope := append([]string{}, set.BranchIDs...)
	subjectScope := append([]string{}, set.SubjectIDs...)
	switch set.RootKind {
	case CascadeRootBranch:
		branchScope = append(branchScope, set.RootID)
	case CascadeRootSubject:
		subjectScope = append(subjectScope, set.RootID)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cascade: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM faculty_uploads WHERE note_id = ANY($1)
		OR note_id IN (SELECT id FROM notes WHERE subject_id = ANY($2) OR branch_id = ANY($3))`,
		pq.Array(set.NoteIDs), pq.Array(subjectScope), pq.Array(branchScope)); err != nil {
		return fmt.Errorf("cascade ledger entries: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ANY($1) OR subject_id = ANY($2) OR branch_id = ANY($3)`,
		pq.Array(set.NoteIDs), pq.Array(subjectScope), pq.Array(branchScope)); err != nil {
		return fmt.Errorf("cascade notes: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM subjects WHERE id = ANY($1) OR branch_id = ANY($2)`,
		pq.Array(set.SubjectIDs), pq.Array(branchScope)); err != nil {
		return fmt.Errorf("cascade subjects: %w", err)
	}
	if set.RootKind == CascadeRootRegulation {
		if _, err = tx.ExecContext(ctx, `DELETE FROM branches WHERE id = ANY($1) OR regulation_id = $2`,
			pq.Array(set.BranchIDs), set.RootID); err != nil {
			return fmt.Errorf("cascade branches: %w", err)
		}
	} else if len(set.BranchIDs) > 0 {
		if _, err = tx.ExecContext(ctx, `DELETE FROM branches WHERE id = ANY($1)`, pq.Array(set.BranchIDs)); err != nil {
			return fmt.Errorf("cascade branches: %w", err)
		}
	}

	var rootTable string
	if rootTable, err = cascadeRootTable(set.RootKind); err != nil {
		return err
	}
	var res sql.Result
	if res, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, rootTable), set.RootID); err != nil {
		return fmt.Errorf("delete %s root: %w", set.RootKind, err)
	}
	if affected, aerr := res.RowsAffected(); aerr == nil && affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit cascade: %w", err)
	}
	return nil
}

func (r *CascadeRepository) rootExists(ctx context.Context, table, id string) error {
	var exists int
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE id = $1 LIMIT 1`, table)
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("check %s root: %w", table, err)
	}
	return nil
}

func (r *CascadeRepository) collectNotes(ctx context.Context, set *CascadeSet, query string, args ...interface{}) error {
	rows := []struct {
		ID      string `db:"id"`
		FileKey string `db:"file_key"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("collect notes: %w", err)
	}
	for _, row := range rows {
		set.NoteIDs = append(set.NoteIDs, row.ID)
		if row.FileKey != "" {
			set.FileKeys = append(set.FileKeys, row.FileKey)
		}
	}
	return nil
}

func cascadeRootTable(kind string) (string, error) {
	switch kind {
	case CascadeRootRegulation:
		return "regulations", nil
	case CascadeRootBranch:
		return "branches", nil
	case CascadeRootSubject:
		return "subjects", nil
	default:
		return "", fmt.Errorf("unknown cascade root kind %q", kind)
	}
}
