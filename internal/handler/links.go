package handler

import (
	"log/slog"
	"net/http"

	"github.com/ten99/ten99/internal/store"
)

// LinkChecker confirms that records a request links to exist and belong to
// the signed-in owner.
type LinkChecker struct {
	clients      *store.ClientStore
	contacts     *store.ContactStore
	jobFiles     *store.JobFileStore
	appointments *store.AppointmentStore
}

func NewLinkChecker(clients *store.ClientStore, contacts *store.ContactStore, jobFiles *store.JobFileStore, appointments *store.AppointmentStore) *LinkChecker {
	return &LinkChecker{clients: clients, contacts: contacts, jobFiles: jobFiles, appointments: appointments}
}

// links holds the optional foreign ids carried by a request body.
type links struct {
	ClientID      *int64
	ContactID     *int64
	JobFileID     *int64
	AppointmentID *int64
}

func owned[T any](get func(ownerID, id int64) (*T, error)) func(ownerID, id int64) (bool, error) {
	return func(ownerID, id int64) (bool, error) {
		v, err := get(ownerID, id)
		return v != nil, err
	}
}

// check writes 400 naming the first link that is missing or owned by
// someone else and reports false.
func (lc *LinkChecker) check(w http.ResponseWriter, logger *slog.Logger, ownerID int64, l links) bool {
	checks := []struct {
		name   string
		id     *int64
		exists func(ownerID, id int64) (bool, error)
	}{
		{"client", l.ClientID, owned(lc.clients.GetByID)},
		{"contact", l.ContactID, owned(lc.contacts.GetByID)},
		{"job file", l.JobFileID, owned(lc.jobFiles.GetByID)},
		{"appointment", l.AppointmentID, owned(lc.appointments.GetByID)},
	}
	for _, c := range checks {
		if c.id == nil {
			continue
		}
		ok, err := c.exists(ownerID, *c.id)
		if err != nil {
			serverError(w, logger, "failed to check "+c.name, err)
			return false
		}
		if !ok {
			writeError(w, http.StatusBadRequest, c.name+" not found")
			return false
		}
	}
	return true
}
