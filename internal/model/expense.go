package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Date      string          `json:"date"`
	Category  string          `json:"category"`
	Vendor    string          `json:"vendor"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes"`
	JobFileID *int64          `json:"job_file_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type MileageEntry struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Date          string          `json:"date"`
	Miles         decimal.Decimal `json:"miles"`
	Purpose       string          `json:"purpose"`
	AppointmentID *int64          `json:"appointment_id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
