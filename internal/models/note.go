package models

import "time"

// Note is the metadata record for one uploaded course file. FileKey addresses
// the blob in the object store; every note owns exactly one blob. The
// regulation and branch references are denormalised from the subject for
// filtering convenience and are assumed consistent by callers.
type Note struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	RegulationID string    `db:"regulation_id" json:"regulation_id"`
	BranchID     string    `db:"branch_id" json:"branch_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	Semester     int       `db:"semester" json:"semester"`
	FileKey      string    `db:"file_key" json:"file_key"`
	UploadedBy   string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UploadLedgerEntry is one row of the denormalised faculty upload ledger, a
// weak back-reference from faculty to their notes. Note ownership is solely
// Note.UploadedBy; the ledger is rebuildable from notes.
type UploadLedgerEntry struct {
	FacultyID string    `db:"faculty_id" json:"faculty_id"`
	NoteID    string    `db:"note_id" json:"note_id"`
	AddedAt   time.Time `db:"added_at" json:"added_at"`
}
