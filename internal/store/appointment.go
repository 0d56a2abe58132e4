package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ten99/ten99/internal/model"
)

// ErrInvalidStatus is returned when a status is not one of the known
// appointment statuses.
var ErrInvalidStatus = errors.New("invalid appointment status")

type AppointmentStore struct {
	db *sql.DB
}

func NewAppointmentStore(db *sql.DB) *AppointmentStore {
	return &AppointmentStore{db: db}
}

const appointmentCols = `id, user_id, kind, subject, date, start_time, end_time, status,
	client_id, contact_id, job_file_id, recurrence, series_id, location, notes, created_at, updated_at`

func scanAppointment(row scanner) (*model.Appointment, error) {
	var a model.Appointment
	var endTime, recurrence, seriesID sql.NullString
	var clientID, contactID, jobFileID sql.NullInt64

	err := row.Scan(
		&a.ID, &a.UserID, &a.Kind, &a.Subject, &a.Date, &a.StartTime, &endTime, &a.Status,
		&clientID, &contactID, &jobFileID, &recurrence, &seriesID, &a.Location, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.EndTime = endTime.String
	a.Recurrence = recurrence.String
	a.SeriesID = seriesID.String
	a.ClientID = int64Ptr(clientID)
	a.ContactID = int64Ptr(contactID)
	a.JobFileID = int64Ptr(jobFileID)
	return &a, nil
}

const insertAppointment = `INSERT INTO appointments
	(user_id, kind, subject, date, start_time, end_time, status, client_id, contact_id, job_file_id, recurrence, series_id, location, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertArgs(a *model.Appointment) []any {
	return []any{
		a.UserID, a.Kind, a.Subject, a.Date, a.StartTime, nullString(a.EndTime), a.Status,
		nullInt64(a.ClientID), nullInt64(a.ContactID), nullInt64(a.JobFileID),
		nullString(a.Recurrence), nullString(a.SeriesID), a.Location, a.Notes,
	}
}

// Create inserts a single appointment.
func (s *AppointmentStore) Create(a model.Appointment) (*model.Appointment, error) {
	result, err := s.db.Exec(insertAppointment, insertArgs(&a)...)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(a.UserID, id)
}

// CreateBatch inserts all appointments in one transaction. Either every
// appointment is stored or none is.
func (s *AppointmentStore) CreateBatch(appts []model.Appointment) ([]model.Appointment, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertAppointment)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	created := make([]model.Appointment, 0, len(appts))
	for i, a := range appts {
		result, err := stmt.Exec(insertArgs(&a)...)
		if err != nil {
			return nil, fmt.Errorf("insert appointment %d of %d: %w", i+1, len(appts), err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		row := tx.QueryRow(`SELECT `+appointmentCols+` FROM appointments WHERE id = ?`, id)
		stored, err := scanAppointment(row)
		if err != nil {
			return nil, fmt.Errorf("read back appointment: %w", err)
		}
		created = append(created, *stored)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit appointments: %w", err)
	}
	return created, nil
}

func (s *AppointmentStore) GetByID(userID, id int64) (*model.Appointment, error) {
	row := s.db.QueryRow(`SELECT `+appointmentCols+` FROM appointments WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (s *AppointmentStore) list(query string, args ...any) ([]model.Appointment, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, *a)
	}
	return appts, rows.Err()
}

// ListByDateRange returns the owner's appointments dated within [start, end]
// (inclusive, YYYY-MM-DD), ordered chronologically.
func (s *AppointmentStore) ListByDateRange(userID int64, start, end string) ([]model.Appointment, error) {
	return s.list(
		`SELECT `+appointmentCols+` FROM appointments
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date, start_time, id`,
		userID, start, end,
	)
}

// ListBySeries returns every appointment of a recurring series.
func (s *AppointmentStore) ListBySeries(userID int64, seriesID string) ([]model.Appointment, error) {
	return s.list(
		`SELECT `+appointmentCols+` FROM appointments
		 WHERE user_id = ? AND series_id = ?
		 ORDER BY date, start_time, id`,
		userID, seriesID,
	)
}

// ListOnDate returns all owners' appointments on date whose status is one
// of statuses.
func (s *AppointmentStore) ListOnDate(date string, statuses ...string) ([]model.Appointment, error) {
	if len(statuses) == 0 {
		return s.list(`SELECT `+appointmentCols+` FROM appointments WHERE date = ? ORDER BY user_id, start_time, id`, date)
	}

	query := `SELECT ` + appointmentCols + ` FROM appointments WHERE date = ? AND status IN (?` +
		repeatPlaceholders(len(statuses)-1) + `) ORDER BY user_id, start_time, id`
	args := []any{date}
	for _, st := range statuses {
		args = append(args, st)
	}
	return s.list(query, args...)
}

// Update saves every field except owner, recurrence and series id, which are
// fixed at creation.
func (s *AppointmentStore) Update(a model.Appointment) (*model.Appointment, error) {
	_, err := s.db.Exec(
		`UPDATE appointments
		 SET kind = ?, subject = ?, date = ?, start_time = ?, end_time = ?, status = ?,
		     client_id = ?, contact_id = ?, job_file_id = ?, location = ?, notes = ?
		 WHERE id = ? AND user_id = ?`,
		a.Kind, a.Subject, a.Date, a.StartTime, nullString(a.EndTime), a.Status,
		nullInt64(a.ClientID), nullInt64(a.ContactID), nullInt64(a.JobFileID), a.Location, a.Notes,
		a.ID, a.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return s.GetByID(a.UserID, a.ID)
}

func (s *AppointmentStore) SetStatus(userID, id int64, status string) (*model.Appointment, error) {
	if !model.ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	_, err := s.db.Exec(`UPDATE appointments SET status = ? WHERE id = ? AND user_id = ?`, status, id, userID)
	if err != nil {
		return nil, fmt.Errorf("set appointment status: %w", err)
	}
	return s.GetByID(userID, id)
}

func (s *AppointmentStore) Delete(userID, id int64) error {
	_, err := s.db.Exec(`DELETE FROM appointments WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	return nil
}

// DeleteSeries removes every appointment of a series and returns how many
// were deleted.
func (s *AppointmentStore) DeleteSeries(userID int64, seriesID string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM appointments WHERE user_id = ? AND series_id = ?`, userID, seriesID)
	if err != nil {
		return 0, fmt.Errorf("delete appointment series: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func repeatPlaceholders(n int) string {
	var s string
	for range n {
		s += ", ?"
	}
	return s
}
