package store

import (
	"database/sql"
	"fmt"

	"github.com/ten99/ten99/internal/model"
)

type JobFileStore struct {
	db *sql.DB
}

func NewJobFileStore(db *sql.DB) *JobFileStore {
	return &JobFileStore{db: db}
}

const jobFileCols = `id, user_id, client_id, title, description, status, created_at, updated_at`

func scanJobFile(row scanner) (*model.JobFile, error) {
	var j model.JobFile
	var clientID sql.NullInt64
	err := row.Scan(&j.ID, &j.UserID, &clientID, &j.Title, &j.Description, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.ClientID = int64Ptr(clientID)
	return &j, nil
}

func (s *JobFileStore) Create(j model.JobFile) (*model.JobFile, error) {
	if j.Status == "" {
		j.Status = model.JobFileOpen
	}
	result, err := s.db.Exec(
		`INSERT INTO job_files (user_id, client_id, title, description, status) VALUES (?, ?, ?, ?, ?)`,
		j.UserID, nullInt64(j.ClientID), j.Title, j.Description, j.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job file: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(j.UserID, id)
}

func (s *JobFileStore) GetByID(userID, id int64) (*model.JobFile, error) {
	row := s.db.QueryRow(`SELECT `+jobFileCols+` FROM job_files WHERE id = ? AND user_id = ?`, id, userID)
	j, err := scanJobFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job file: %w", err)
	}
	return j, nil
}

func (s *JobFileStore) List(userID int64) ([]model.JobFile, error) {
	rows, err := s.db.Query(
		`SELECT `+jobFileCols+` FROM job_files WHERE user_id = ? ORDER BY status = 'closed', updated_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query job files: %w", err)
	}
	defer rows.Close()

	var files []model.JobFile
	for rows.Next() {
		j, err := scanJobFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job file: %w", err)
		}
		files = append(files, *j)
	}
	return files, rows.Err()
}

func (s *JobFileStore) Update(j model.JobFile) (*model.JobFile, error) {
	_, err := s.db.Exec(
		`UPDATE job_files SET client_id = ?, title = ?, description = ?, status = ? WHERE id = ? AND user_id = ?`,
		nullInt64(j.ClientID), j.Title, j.Description, j.Status, j.ID, j.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update job file: %w", err)
	}
	return s.GetByID(j.UserID, j.ID)
}

func (s *JobFileStore) Delete(userID, id int64) error {
	if _, err := s.db.Exec(`DELETE FROM job_files WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete job file: %w", err)
	}
	return nil
}

const attachmentCols = `id, job_file_id, user_id, file_name, content_type, size, blob_key, created_at`

func scanAttachment(row scanner) (*model.Attachment, error) {
	var a model.Attachment
	err := row.Scan(&a.ID, &a.JobFileID, &a.UserID, &a.FileName, &a.ContentType, &a.Size, &a.BlobKey, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *JobFileStore) AddAttachment(a model.Attachment) (*model.Attachment, error) {
	result, err := s.db.Exec(
		`INSERT INTO attachments (job_file_id, user_id, file_name, content_type, size, blob_key) VALUES (?, ?, ?, ?, ?, ?)`,
		a.JobFileID, a.UserID, a.FileName, a.ContentType, a.Size, a.BlobKey,
	)
	if err != nil {
		return nil, fmt.Errorf("insert attachment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetAttachment(a.UserID, id)
}

func (s *JobFileStore) GetAttachment(userID, id int64) (*model.Attachment, error) {
	row := s.db.QueryRow(`SELECT `+attachmentCols+` FROM attachments WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAttachment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return a, nil
}

func (s *JobFileStore) ListAttachments(userID, jobFileID int64) ([]model.Attachment, error) {
	rows, err := s.db.Query(
		`SELECT `+attachmentCols+` FROM attachments WHERE job_file_id = ? AND user_id = ? ORDER BY created_at, id`,
		jobFileID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	var atts []model.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		atts = append(atts, *a)
	}
	return atts, rows.Err()
}

func (s *JobFileStore) DeleteAttachment(userID, id int64) error {
	if _, err := s.db.Exec(`DELETE FROM attachments WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}
