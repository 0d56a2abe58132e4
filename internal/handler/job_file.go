package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/ten99/ten99/internal/blob"
	"github.com/ten99/ten99/internal/model"
	"github.com/ten99/ten99/internal/store"
)

// MaxUploadBytes caps a single attachment upload.
const MaxUploadBytes = 25 << 20

type blobStore interface {
	Configured() bool
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type JobFileHandler struct {
	jobFileStore *store.JobFileStore
	clientStore  *store.ClientStore
	blobs        blobStore
	hub          publisher
	logger       *slog.Logger
}

func NewJobFileHandler(js *store.JobFileStore, cs *store.ClientStore, blobs blobStore, hub publisher, logger *slog.Logger) *JobFileHandler {
	return &JobFileHandler{jobFileStore: js, clientStore: cs, blobs: blobs, hub: hub, logger: logger}
}

type jobFileRequest struct {
	ClientID    *int64 `json:"client_id"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=open closed"`
}

type jobFileResponse struct {
	*model.JobFile
	Attachments []model.Attachment `json:"attachments"`
}

func (h *JobFileHandler) parseRequest(w http.ResponseWriter, r *http.Request, owner int64) (*jobFileRequest, bool) {
	var req jobFileRequest
	if !decodeJSON(w, r, &req) {
		return nil, false
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Status == "" {
		req.Status = model.JobFileOpen
	}

	if req.ClientID != nil {
		c, err := h.clientStore.GetByID(owner, *req.ClientID)
		if err != nil {
			serverError(w, h.logger, "failed to check client", err)
			return nil, false
		}
		if c == nil {
			writeError(w, http.StatusBadRequest, "client not found")
			return nil, false
		}
	}
	return &req, true
}

func (h *JobFileHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	req, ok := h.parseRequest(w, r, owner)
	if !ok {
		return
	}

	j, err := h.jobFileStore.Create(model.JobFile{
		UserID:      owner,
		ClientID:    req.ClientID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		serverError(w, h.logger, "failed to create job file", err)
		return
	}

	publish(h.hub, owner, "job_file", "created", j.ID)
	writeJSON(w, http.StatusCreated, j)
}

func (h *JobFileHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.jobFileStore.List(ownerID(r))
	if err != nil {
		serverError(w, h.logger, "failed to list job files", err)
		return
	}
	if files == nil {
		files = []model.JobFile{}
	}
	writeJSON(w, http.StatusOK, files)
}

// Get returns the job file together with its attachment metadata.
func (h *JobFileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	owner := ownerID(r)
	j, err := h.jobFileStore.GetByID(owner, id)
	if err != nil {
		serverError(w, h.logger, "failed to get job file", err)
		return
	}
	if j == nil {
		writeError(w, http.StatusNotFound, "job file not found")
		return
	}

	atts, err := h.jobFileStore.ListAttachments(owner, id)
	if err != nil {
		serverError(w, h.logger, "failed to list attachments", err)
		return
	}
	if atts == nil {
		atts = []model.Attachment{}
	}
	writeJSON(w, http.StatusOK, jobFileResponse{JobFile: j, Attachments: atts})
}

func (h *JobFileHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	owner := ownerID(r)
	req, ok := h.parseRequest(w, r, owner)
	if !ok {
		return
	}

	j, err := h.jobFileStore.Update(model.JobFile{
		ID:          id,
		UserID:      owner,
		ClientID:    req.ClientID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		serverError(w, h.logger, "failed to update job file", err)
		return
	}
	if j == nil {
		writeError(w, http.StatusNotFound, "job file not found")
		return
	}

	publish(h.hub, owner, "job_file", "updated", j.ID)
	writeJSON(w, http.StatusOK, j)
}

// Delete removes the job file, its attachment rows and their stored
// objects. Objects that fail to delete are logged and left behind.
func (h *JobFileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	owner := ownerID(r)
	existing, err := h.jobFileStore.GetByID(owner, id)
	if err != nil {
		serverError(w, h.logger, "failed to get job file", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "job file not found")
		return
	}

	atts, err := h.jobFileStore.ListAttachments(owner, id)
	if err != nil {
		serverError(w, h.logger, "failed to list attachments", err)
		return
	}

	if err := h.jobFileStore.Delete(owner, id); err != nil {
		serverError(w, h.logger, "failed to delete job file", err)
		return
	}
	for _, a := range atts {
		if err := h.blobs.Delete(r.Context(), a.BlobKey); err != nil {
			h.logger.Warn("orphaned attachment object", "key", a.BlobKey, "error", err)
		}
	}

	publish(h.hub, owner, "job_file", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// UploadAttachment stores the multipart "file" field in the blob store and
// records it against the job file.
func (h *JobFileHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if !h.blobs.Configured() {
		writeError(w, http.StatusServiceUnavailable, blob.ErrNotConfigured.Error())
		return
	}

	owner := ownerID(r)
	j, err := h.jobFileStore.GetByID(owner, id)
	if err != nil {
		serverError(w, h.logger, "failed to get job file", err)
		return
	}
	if j == nil {
		writeError(w, http.StatusNotFound, "job file not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d MB", MaxUploadBytes>>20))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if _, _, err := mime.ParseMediaType(contentType); err != nil {
		contentType = "application/octet-stream"
	}

	key := blob.AttachmentKey(owner, id, header.Filename)
	if err := h.blobs.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		serverError(w, h.logger, "failed to store attachment", err)
		return
	}

	att, err := h.jobFileStore.AddAttachment(model.Attachment{
		JobFileID:   id,
		UserID:      owner,
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		BlobKey:     key,
	})
	if err != nil {
		if derr := h.blobs.Delete(r.Context(), key); derr != nil {
			h.logger.Warn("orphaned attachment object", "key", key, "error", derr)
		}
		serverError(w, h.logger, "failed to record attachment", err)
		return
	}

	publish(h.hub, owner, "job_file", "updated", id)
	writeJSON(w, http.StatusCreated, att)
}

func (h *JobFileHandler) attachment(w http.ResponseWriter, r *http.Request) (*model.Attachment, bool) {
	jobFileID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	attID, err := parseIDValue(r, "attachment_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attachment id")
		return nil, false
	}

	att, err := h.jobFileStore.GetAttachment(ownerID(r), attID)
	if err != nil {
		serverError(w, h.logger, "failed to get attachment", err)
		return nil, false
	}
	if att == nil || att.JobFileID != jobFileID {
		writeError(w, http.StatusNotFound, "attachment not found")
		return nil, false
	}
	return att, true
}

// DownloadAttachment streams the stored object back to the client.
func (h *JobFileHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	att, ok := h.attachment(w, r)
	if !ok {
		return
	}

	body, err := h.blobs.Get(r.Context(), att.BlobKey)
	if err != nil {
		serverError(w, h.logger, "failed to fetch attachment", err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(att.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.FileName}))
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("attachment download interrupted", "attachment_id", att.ID, "error", err)
	}
}

func (h *JobFileHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	att, ok := h.attachment(w, r)
	if !ok {
		return
	}

	owner := ownerID(r)
	if err := h.jobFileStore.DeleteAttachment(owner, att.ID); err != nil {
		serverError(w, h.logger, "failed to delete attachment", err)
		return
	}
	if err := h.blobs.Delete(r.Context(), att.BlobKey); err != nil {
		h.logger.Warn("orphaned attachment object", "key", att.BlobKey, "error", err)
	}

	publish(h.hub, owner, "job_file", "updated", att.JobFileID)
	w.WriteHeader(http.StatusNoContent)
}
