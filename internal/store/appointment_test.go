package store

import (
	"errors"
	"testing"

	"github.com/ten99/ten99/internal/model"
)

func testAppointment(userID int64, date string) model.Appointment {
	return model.Appointment{
		UserID:    userID,
		Kind:      model.KindJob,
		Subject:   "Deck repair",
		Date:      date,
		StartTime: "09:00",
		EndTime:   "11:30",
		Status:    model.StatusScheduled,
		Location:  "12 Elm St",
	}
}

func TestAppointmentCreateAndGet(t *testing.T) {
	db := setupDB(t)
	s := NewAppointmentStore(db)
	u := createTestUser(t, db, "alice@example.com")

	a, err := s.Create(testAppointment(u.ID, "2025-03-04"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == 0 {
		t.Fatal("expected non-zero ID")
	}
	if a.Subject != "Deck repair" || a.Date != "2025-03-04" || a.StartTime != "09:00" || a.EndTime != "11:30" {
		t.Errorf("unexpected appointment: %+v", a)
	}
	if a.SeriesID != "" || a.Recurrence != "" {
		t.Errorf("series = %q, recurrence = %q, want empty", a.SeriesID, a.Recurrence)
	}
	if a.ClientID != nil {
		t.Errorf("client_id = %v, want nil", *a.ClientID)
	}

	got, err := s.GetByID(u.ID, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Location != "12 Elm St" {
		t.Fatalf("get = %+v", got)
	}
}

func TestAppointmentOwnerScoped(t *testing.T) {
	db := setupDB(t)
	s := NewAppointmentStore(db)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	a, _ := s.Create(testAppointment(alice.ID, "2025-03-04"))

	got, err := s.GetByID(bob.ID, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected another owner's appointment to be invisible")
	}

	if err := s.Delete(bob.ID, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := s.GetByID(alice.ID, a.ID); got == nil {
		t.Error("expected delete by another owner to be a no-op")
	}
}

func TestAppointmentCreateBatch(t *testing.T) {
	db := setupDB(t)
	s := NewAppointmentStore(db)
	u := createTestUser(t, db, "alice@example.com")

	var batch []model.Appointment
	for _, d := range []string{"2025-01-01", "2025-01-08", "2025-01-15"} {
		a := testAppointment(u.ID, d)
		a.Recurrence = "weekly"
		a.SeriesID = "series-1"
		batch = append(batch, a)
	}

	created, err := s.CreateBatch(batch)
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created = %d, want 3", len(created))
	}
	for i, a := range created {
		if a.ID == 0 || a.SeriesID != "series-1" || a.Date != batch[i].Date {
			t.Errorf("created[%d] = %+v", i, a)
		}
	}

	series, err := s.ListBySeries(u.ID, "series-1")
	if err != nil {
		t.Fatalf("list by series: %v", err)
	}
	if len(series) != 3 {
		t.Errorf("series = %d, want 3", len(series))
	}
}

func TestAppointmentCreateBatchAllOrNothing(t *testing.T) {
	db := setupDB(t)
	s := NewAppointmentStore(db)
	u := createTestUser(t, db, "alice@example.com")

	var batch []model.Appointment
	for _, d := range []string{"2025-01-01", "2025-01-08", "2025-01-15", "2025-01-22"} {
		a := testAppointment(u.ID, d)
		a.SeriesID = "series-1"
		batch = append(batch, a)
	}
	batch[2].Status = "bogus" // rejected by the status CHECK constraint

	if _, err := s.CreateBatch(batch); err == nil {
		t.Fatal("expected error from invalid batch")
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM appointments`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("appointments after failed batch = %d, want 0", n)
	}
}

func TestAppointmentListByDateRange(t *testing.T) {
	db := setupDB(t)
	s := NewAppointmentStore(db)
	u := createTestUser(t, db, "alice@example.com")

	for _, d := range []string{"2025-02-28", "2025-03-01", "2025-03-15", "2025-03-31", "2025-04-01"} {
		if _, err := s.Create(testAppointment(u.ID, d)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := s.ListByDateRange(u.ID, "2025-03-01", "2025-03-31")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Date != "2025-03-01" || got[2].Date != "2025-03-31" {
		t.Errorf("order = %s..%s", got[0].Date, got[2].Date)
	}
}

func TestAppointmentListOnDate(t *testing.T) {
	db := setupDB(t)
	s := NewAppointmentStore(db)
	u := createTestUser(t, db, "alice@example.com")

	scheduled := testAppointment(u.ID, "2025-05-05")
	canceled := testAppointment(u.ID, "2025-05-05")
	canceled.Status = model.StatusCanceled
	pending := testAppointment(u.ID, "2025-05-05")
	pending.Status = model.StatusPending
	other := testAppointment(u.ID, "2025-05-06")
	for _, a := range []model.Appointment{scheduled, canceled, pending, other} {
		if _, err := s.Create(a); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := s.ListOnDate("2025-05-05", model.StatusScheduled, model.StatusPending)
	if err != nil {
		t.Fatalf("list on date: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}

	all, err := s.ListOnDate("2025-05-05")
	if err != nil {
		t.Fatalf("list on date: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len = %d, want 3", len(all))
	}
}

func TestAppointmentUpdateKeepsSeries(t *testing.T) {
	db := setupDB(t)
	s := NewAppointmentStore(db)
	u := createTestUser(t, db, "alice@example.com")

	a := testAppointment(u.ID, "2025-01-01")
	a.Recurrence = "weekly"
	a.SeriesID = "series-1"
	created, _ := s.CreateBatch([]model.Appointment{a})

	upd := created[0]
	upd.Subject = "Deck repair (phase 2)"
	upd.EndTime = ""
	upd.Recurrence = "daily"
	upd.SeriesID = "other"

	got, err := s.Update(upd)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Subject != "Deck repair (phase 2)" {
		t.Errorf("subject = %q", got.Subject)
	}
	if got.EndTime != "" {
		t.Errorf("end_time = %q, want empty", got.EndTime)
	}
	if got.Recurrence != "weekly" || got.SeriesID != "series-1" {
		t.Errorf("recurrence/series changed to %q/%q", got.Recurrence, got.SeriesID)
	}
}

func TestAppointmentSetStatus(t *testing.T) {
	db := setupDB(t)
	s := NewAppointmentStore(db)
	u := createTestUser(t, db, "alice@example.com")
	a, _ := s.Create(testAppointment(u.ID, "2025-01-01"))

	got, err := s.SetStatus(u.ID, a.ID, model.StatusCompleted)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %q", got.Status)
	}

	_, err = s.SetStatus(u.ID, a.ID, "done")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestAppointmentDeleteSingleLeavesSeries(t *testing.T) {
	db := setupDB(t)
	s := NewAppointmentStore(db)
	u := createTestUser(t, db, "alice@example.com")

	var batch []model.Appointment
	for _, d := range []string{"2025-01-01", "2025-01-08", "2025-01-15"} {
		a := testAppointment(u.ID, d)
		a.SeriesID = "series-1"
		batch = append(batch, a)
	}
	created, _ := s.CreateBatch(batch)

	if err := s.Delete(u.ID, created[1].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	series, _ := s.ListBySeries(u.ID, "series-1")
	if len(series) != 2 {
		t.Fatalf("series after single delete = %d, want 2", len(series))
	}

	n, err := s.DeleteSeries(u.ID, "series-1")
	if err != nil {
		t.Fatalf("delete series: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	series, _ = s.ListBySeries(u.ID, "series-1")
	if len(series) != 0 {
		t.Errorf("series after delete = %d, want 0", len(series))
	}
}
