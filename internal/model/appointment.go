package model

import "time"

// Appointment kinds.
const (
	KindJob       = "job"
	KindPersonal  = "personal"
	KindBilling   = "billing"
	KindEducation = "education"
)

// Appointment statuses.
const (
	StatusPending             = "pending"
	StatusScheduled           = "scheduled"
	StatusCompleted           = "completed"
	StatusCanceled            = "canceled"
	StatusCanceledBillable    = "canceled-billable"
	StatusPendingConfirmation = "pending-confirmation"
)

// DateLayout and TimeLayout are the wire and storage formats for an
// appointment's calendar date and wall-clock times.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var appointmentKinds = map[string]bool{
	KindJob: true, KindPersonal: true, KindBilling: true, KindEducation: true,
}

var appointmentStatuses = map[string]bool{
	StatusPending: true, StatusScheduled: true, StatusCompleted: true,
	StatusCanceled: true, StatusCanceledBillable: true, StatusPendingConfirmation: true,
}

func ValidKind(k string) bool   { return appointmentKinds[k] }
func ValidStatus(s string) bool { return appointmentStatuses[s] }
func IsCanceledStatus(s string) bool {
	return s == StatusCanceled || s == StatusCanceledBillable
}

type Appointment struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Kind       string    `json:"kind"`
	Subject    string    `json:"subject"`
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time,omitempty"`
	Status     string    `json:"status"`
	ClientID   *int64    `json:"client_id"`
	ContactID  *int64    `json:"contact_id"`
	JobFileID  *int64    `json:"job_file_id"`
	Recurrence string    `json:"recurrence,omitempty"`
	SeriesID   string    `json:"series_id,omitempty"`
	Location   string    `json:"location"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Start returns the appointment's start as a time in loc.
func (a Appointment) Start(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date+" "+a.StartTime, loc)
}

// End returns the appointment's end in loc. Appointments without an end
// time last one hour.
func (a Appointment) End(loc *time.Location) (time.Time, error) {
	if a.EndTime == "" {
		start, err := a.Start(loc)
		if err != nil {
			return time.Time{}, err
		}
		return start.Add(time.Hour), nil
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date+" "+a.EndTime, loc)
}
