// Package backup takes encrypted snapshots of the SQLite database and keeps
// them in the S3 bucket next to job file attachments.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ten99/ten99/internal/model"
	"github.com/ten99/ten99/internal/store"
	_ "modernc.org/sqlite"
)

const keyPrefix = "backups/"

var (
	ErrNotConfigured = errors.New("backup not configured: passphrase or S3 credentials missing")
	ErrInProgress    = errors.New("backup already in progress")
	ErrNotFound      = errors.New("backup not found")
	ErrNotCompleted  = errors.New("backup did not complete")
	ErrTargetExists  = errors.New("restore target already exists")
)

type objectStore interface {
	Configured() bool
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Manager runs backups one at a time.
type Manager struct {
	mu sync.Mutex

	db         *sql.DB
	records    *store.BackupStore
	objects    objectStore
	passphrase string
	logger     *slog.Logger
	now        func() time.Time
}

func NewManager(db *sql.DB, records *store.BackupStore, objects objectStore, passphrase string, logger *slog.Logger) *Manager {
	return &Manager{
		db:         db,
		records:    records,
		objects:    objects,
		passphrase: passphrase,
		logger:     logger.With("component", "backup"),
		now:        time.Now,
	}
}

func (m *Manager) Configured() bool {
	return m.passphrase != "" && m.objects.Configured()
}

// Run snapshots the database, encrypts the snapshot and uploads it. The
// returned record reflects the final state, including failures recorded
// after the row was created.
func (m *Manager) Run(ctx context.Context) (*model.Backup, error) {
	if !m.Configured() {
		return nil, ErrNotConfigured
	}
	if !m.mu.TryLock() {
		return nil, ErrInProgress
	}
	defer m.mu.Unlock()

	filename := fmt.Sprintf("ten99-%s-%s.db.enc", m.now().UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
	record, err := m.records.Create(filename, keyPrefix+filename)
	if err != nil {
		return nil, err
	}

	size, err := m.upload(ctx, record)
	if err != nil {
		if serr := m.records.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error()); serr != nil {
			m.logger.Error("record backup failure", "id", record.ID, "error", serr)
		}
		return nil, err
	}
	if err := m.records.MarkCompleted(record.ID, size); err != nil {
		return nil, err
	}

	m.logger.Info("backup completed", "id", record.ID, "key", record.ObjectKey, "bytes", size)
	return m.records.GetByID(record.ID)
}

func (m *Manager) upload(ctx context.Context, record *model.Backup) (int64, error) {
	dir, err := os.MkdirTemp("", "ten99-backup-")
	if err != nil {
		return 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	snapshot := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, snapshot); err != nil {
		return 0, fmt.Errorf("snapshot database: %w", err)
	}
	plaintext, err := os.ReadFile(snapshot)
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}
	sealed, err := Encrypt(plaintext, m.passphrase)
	if err != nil {
		return 0, err
	}

	if err := m.records.UpdateStatus(record.ID, model.BackupStatusUploading, ""); err != nil {
		return 0, err
	}
	if err := m.objects.Put(ctx, record.ObjectKey, bytes.NewReader(sealed), int64(len(sealed)), "application/octet-stream"); err != nil {
		return 0, err
	}
	return int64(len(sealed)), nil
}

// Cleanup removes backups older than retentionDays, deleting the uploaded
// objects after their rows. Objects that fail to delete are logged.
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := m.now().AddDate(0, 0, -retentionDays)
	keys, err := m.records.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if err := m.objects.Delete(ctx, key); err != nil {
			m.logger.Warn("delete expired backup object", "key", key, "error", err)
		}
	}
	if len(keys) > 0 {
		m.logger.Info("expired backups removed", "count", len(keys), "before", cutoff.UTC().Format(time.RFC3339))
	}
	return len(keys), nil
}

// RunScheduled is the cron entry point: one backup followed by retention
// cleanup. Errors are logged.
func (m *Manager) RunScheduled(retentionDays int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := m.Run(ctx); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}
	if _, err := m.Cleanup(ctx, retentionDays); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
}

// Restore downloads and decrypts backup id into a new database file at
// target. The file is checked for integrity before it appears at target.
// Swapping it in for the live database is left to the operator.
func (m *Manager) Restore(ctx context.Context, id int64, target string) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%w: %s", ErrTargetExists, target)
	}

	record, err := m.records.GetByID(id)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if record.Status != model.BackupStatusCompleted {
		return fmt.Errorf("%w: %d is %s", ErrNotCompleted, id, record.Status)
	}

	body, err := m.objects.Get(ctx, record.ObjectKey)
	if err != nil {
		return err
	}
	sealed, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return fmt.Errorf("read backup object: %w", err)
	}
	plaintext, err := Decrypt(sealed, m.passphrase)
	if err != nil {
		return err
	}

	tmp := target + ".partial"
	if err := os.WriteFile(tmp, plaintext, 0o600); err != nil {
		return fmt.Errorf("write restored database: %w", err)
	}
	if err := verify(ctx, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("move restored database: %w", err)
	}

	m.logger.Info("backup restored", "id", id, "target", target)
	return nil
}

func verify(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored database: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	return nil
}
