package dto

import "time"

// NoteRow is the joined row shape returned by note listing queries.
type NoteRow struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	RegulationID string    `db:"regulation_id"`
	BranchID     string    `db:"branch_id"`
	SubjectID    string    `db:"subject_id"`
	Semester     int       `db:"semester"`
	FileKey      string    `db:"file_key"`
	UploadedBy   string    `db:"uploaded_by"`
	CreatedAt    time.Time `db:"created_at"`
	SubjectName  string    `db:"subject_name"`
	BranchCode   string    `db:"branch_code"`
	UploaderName string    `db:"uploader_name"`
}
