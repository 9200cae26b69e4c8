package dto

import "time"

// NoteView is a note enriched with taxonomy names and a resolved download URL.
type NoteView struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	SubjectID    string    `json:"subject_id"`
	SubjectName  string    `json:"subject_name,omitempty"`
	BranchID     string    `json:"branch_id"`
	BranchCode   string    `json:"branch_code,omitempty"`
	RegulationID string    `json:"regulation_id"`
	Semester     int       `json:"semester"`
	UploadedBy   string    `json:"uploaded_by"`
	UploaderName string    `json:"uploader_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	DownloadURL  string    `json:"download_url,omitempty"`
	URLExpiresAt time.Time `json:"url_expires_at,omitempty"`
}

// UploadURLResponse returns a presigned upload location and the chosen key.
type UploadURLResponse struct {
	UploadURL string    `json:"upload_url"`
	FileKey   string    `json:"file_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CascadeSummary reports what one hierarchy delete removed.
type CascadeSummary struct {
	Root     string `json:"root"`
	RootID   string `json:"root_id"`
	Branches int    `json:"branches_deleted"`
	Subjects int    `json:"subjects_deleted"`
	Notes    int    `json:"notes_deleted"`
	Blobs    int    `json:"blobs_queued_for_cleanup"`
	Message  string `json:"message"`
}
