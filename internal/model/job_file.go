package model

import "time"

const (
	JobFileOpen   = "open"
	JobFileClosed = "closed"
)

type JobFile struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ClientID    *int64    `json:"client_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Attachment is a file uploaded to a job file. The bytes live in the blob
// store under BlobKey.
type Attachment struct {
	ID          int64     `json:"id"`
	JobFileID   int64     `json:"job_file_id"`
	UserID      int64     `json:"user_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	BlobKey     string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
