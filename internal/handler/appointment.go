package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ten99/ten99/internal/appointment"
	"github.com/ten99/ten99/internal/assist"
	"github.com/ten99/ten99/internal/model"
	"github.com/ten99/ten99/internal/recurrence"
	ws "github.com/ten99/ten99/internal/websocket"
)

// defaultListDays is the range listed when no start/end is given.
const defaultListDays = 30

type AppointmentHandler struct {
	service *appointment.Service
	parser  *assist.Parser
	links   *LinkChecker
	hub     publisher
	loc     *time.Location
	logger  *slog.Logger
}

func NewAppointmentHandler(svc *appointment.Service, parser *assist.Parser, links *LinkChecker, hub publisher, loc *time.Location, logger *slog.Logger) *AppointmentHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentHandler{service: svc, parser: parser, links: links, hub: hub, loc: loc, logger: logger}
}

type appointmentRequest struct {
	Kind      string `json:"kind" validate:"omitempty,oneof=job personal billing education"`
	Subject   string `json:"subject" validate:"required,max=200"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"omitempty,datetime=15:04"`
	Status    string `json:"status" validate:"omitempty,oneof=pending scheduled completed canceled canceled-billable pending-confirmation"`
	ClientID  *int64 `json:"client_id"`
	ContactID *int64 `json:"contact_id"`
	JobFileID *int64 `json:"job_file_id"`
	Location  string `json:"location" validate:"max=500"`
	Notes     string `json:"notes"`
}

func (req appointmentRequest) model() model.Appointment {
	return model.Appointment{
		Kind:      req.Kind,
		Subject:   req.Subject,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    req.Status,
		ClientID:  req.ClientID,
		ContactID: req.ContactID,
		JobFileID: req.JobFileID,
		Location:  req.Location,
		Notes:     req.Notes,
	}
}

func (req appointmentRequest) links() links {
	return links{ClientID: req.ClientID, ContactID: req.ContactID, JobFileID: req.JobFileID}
}

type createAppointmentRequest struct {
	appointmentRequest
	Recurrence    string `json:"recurrence"`
	RecurrenceEnd string `json:"recurrence_end" validate:"required_with=Recurrence,omitempty,datetime=2006-01-02"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending scheduled completed canceled canceled-billable pending-confirmation"`
}

type parseRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// Create schedules one appointment, or a whole series when a recurrence
// rule is given. The response is always the list of created appointments.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var rule recurrence.Rule
	if req.Recurrence != "" {
		parsed, err := recurrence.Parse(req.Recurrence)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rule = parsed
	}

	owner := ownerID(r)
	if !h.links.check(w, h.logger, owner, req.links()) {
		return
	}

	created, err := h.service.Schedule(owner, req.model(), rule, req.RecurrenceEnd)
	if err != nil {
		if isAppointmentInputError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		serverError(w, h.logger, "failed to create appointment", err)
		return
	}

	if len(created) > 1 {
		h.logger.Info("series scheduled", "series_id", created[0].SeriesID, "rule", rule.String(), "count", len(created))
	}
	for _, a := range created {
		publish(h.hub, owner, "appointment", "created", a.ID)
	}
	writeJSON(w, http.StatusCreated, created)
}

func isAppointmentInputError(err error) bool {
	return errors.Is(err, appointment.ErrInvalid) ||
		errors.Is(err, recurrence.ErrEndBeforeStart) ||
		errors.Is(err, recurrence.ErrTooManyOccurrences) ||
		errors.Is(err, recurrence.ErrInvalidRule)
}

// List returns appointments between the start and end query dates
// (YYYY-MM-DD, inclusive). Without them it lists today and the following
// 30 days.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	today := time.Now().In(h.loc)
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" {
		start = today.Format(model.DateLayout)
	}
	if end == "" {
		end = today.AddDate(0, 0, defaultListDays).Format(model.DateLayout)
	}
	if _, err := time.Parse(model.DateLayout, start); err != nil {
		writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}
	if _, err := time.Parse(model.DateLayout, end); err != nil {
		writeError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
		return
	}

	appts, err := h.service.List(ownerID(r), start, end)
	if err != nil {
		serverError(w, h.logger, "failed to list appointments", err)
		return
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	a, err := h.service.Get(ownerID(r), id)
	if err != nil {
		serverError(w, h.logger, "failed to get appointment", err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Update edits a single appointment. Recurrence is fixed at creation.
func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req appointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner := ownerID(r)
	if !h.links.check(w, h.logger, owner, req.links()) {
		return
	}

	a := req.model()
	a.ID = id
	updated, err := h.service.Update(owner, a)
	if err != nil {
		if errors.Is(err, appointment.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		serverError(w, h.logger, "failed to update appointment", err)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}

	publish(h.hub, owner, "appointment", "updated", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (h *AppointmentHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner := ownerID(r)
	updated, err := h.service.SetStatus(owner, id, req.Status)
	if err != nil {
		if errors.Is(err, appointment.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		serverError(w, h.logger, "failed to set appointment status", err)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}

	publish(h.hub, owner, "appointment", "updated", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes one appointment. Other occurrences of its series remain.
func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	owner := ownerID(r)
	existing, err := h.service.Get(owner, id)
	if err != nil {
		serverError(w, h.logger, "failed to get appointment", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}

	if err := h.service.Delete(owner, id); err != nil {
		serverError(w, h.logger, "failed to delete appointment", err)
		return
	}

	publish(h.hub, owner, "appointment", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AppointmentHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	seriesID := r.PathValue("series_id")
	appts, err := h.service.ListSeries(ownerID(r), seriesID)
	if err != nil {
		serverError(w, h.logger, "failed to list series", err)
		return
	}
	if len(appts) == 0 {
		writeError(w, http.StatusNotFound, "series not found")
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func (h *AppointmentHandler) DeleteSeries(w http.ResponseWriter, r *http.Request) {
	seriesID := r.PathValue("series_id")
	owner := ownerID(r)
	n, err := h.service.DeleteSeries(owner, seriesID)
	if err != nil {
		serverError(w, h.logger, "failed to delete series", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "series not found")
		return
	}

	publishMessage(h.hub, owner, ws.NewMessage("appointment_series", "deleted", 0, map[string]any{
		"series_id": seriesID,
		"count":     n,
	}))
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// Parse turns free text into an appointment draft. Nothing is stored.
func (h *AppointmentHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if h.parser == nil || !h.parser.Configured() {
		writeError(w, http.StatusServiceUnavailable, assist.ErrNotConfigured.Error())
		return
	}

	draft, err := h.parser.Parse(r.Context(), req.Text, time.Now().In(h.loc))
	if err != nil {
		h.logger.Warn("appointment parse failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, "could not understand the request")
		return
	}
	writeJSON(w, http.StatusOK, draft)
}
