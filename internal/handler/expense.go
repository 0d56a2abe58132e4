package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ten99/ten99/internal/model"
	"github.com/ten99/ten99/internal/store"
)

type ExpenseHandler struct {
	expenseStore *store.ExpenseStore
	mileageStore *store.MileageStore
	links        *LinkChecker
	hub          publisher
	loc          *time.Location
	logger       *slog.Logger
}

func NewExpenseHandler(es *store.ExpenseStore, ms *store.MileageStore, links *LinkChecker, hub publisher, loc *time.Location, logger *slog.Logger) *ExpenseHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ExpenseHandler{expenseStore: es, mileageStore: ms, links: links, hub: hub, loc: loc, logger: logger}
}

type expenseRequest struct {
	Date      string          `json:"date" validate:"required,datetime=2006-01-02"`
	Category  string          `json:"category" validate:"required,max=100"`
	Vendor    string          `json:"vendor" validate:"max=200"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes"`
	JobFileID *int64          `json:"job_file_id"`
}

type mileageRequest struct {
	Date          string          `json:"date" validate:"required,datetime=2006-01-02"`
	Miles         decimal.Decimal `json:"miles"`
	Purpose       string          `json:"purpose" validate:"max=500"`
	AppointmentID *int64          `json:"appointment_id"`
}

// dateRange reads start and end (YYYY-MM-DD) from the query. It defaults
// to January 1 of the current year through today.
func (h *ExpenseHandler) dateRange(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	now := time.Now().In(h.loc)
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" {
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, h.loc).Format(model.DateLayout)
	}
	if end == "" {
		end = now.Format(model.DateLayout)
	}
	if _, err := time.Parse(model.DateLayout, start); err != nil {
		writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return "", "", false
	}
	if _, err := time.Parse(model.DateLayout, end); err != nil {
		writeError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
		return "", "", false
	}
	return start, end, true
}

func (h *ExpenseHandler) parseExpense(w http.ResponseWriter, r *http.Request, owner int64) (*expenseRequest, bool) {
	var req expenseRequest
	if !decodeJSON(w, r, &req) {
		return nil, false
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return nil, false
	}
	req.Category = strings.TrimSpace(req.Category)
	if !h.links.check(w, h.logger, owner, links{JobFileID: req.JobFileID}) {
		return nil, false
	}
	return &req, true
}

func (h *ExpenseHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	req, ok := h.parseExpense(w, r, owner)
	if !ok {
		return
	}

	e, err := h.expenseStore.Create(model.Expense{
		UserID:    owner,
		Date:      req.Date,
		Category:  req.Category,
		Vendor:    req.Vendor,
		Amount:    req.Amount.Round(2),
		Notes:     req.Notes,
		JobFileID: req.JobFileID,
	})
	if err != nil {
		serverError(w, h.logger, "failed to create expense", err)
		return
	}

	publish(h.hub, owner, "expense", "created", e.ID)
	writeJSON(w, http.StatusCreated, e)
}

func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	expenses, err := h.expenseStore.ListByDateRange(ownerID(r), start, end)
	if err != nil {
		serverError(w, h.logger, "failed to list expenses", err)
		return
	}
	if expenses == nil {
		expenses = []model.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *ExpenseHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	e, err := h.expenseStore.GetByID(ownerID(r), id)
	if err != nil {
		serverError(w, h.logger, "failed to get expense", err)
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *ExpenseHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	owner := ownerID(r)
	req, ok := h.parseExpense(w, r, owner)
	if !ok {
		return
	}

	e, err := h.expenseStore.Update(model.Expense{
		ID:        id,
		UserID:    owner,
		Date:      req.Date,
		Category:  req.Category,
		Vendor:    req.Vendor,
		Amount:    req.Amount.Round(2),
		Notes:     req.Notes,
		JobFileID: req.JobFileID,
	})
	if err != nil {
		serverError(w, h.logger, "failed to update expense", err)
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}

	publish(h.hub, owner, "expense", "updated", e.ID)
	writeJSON(w, http.StatusOK, e)
}

func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	owner := ownerID(r)
	existing, err := h.expenseStore.GetByID(owner, id)
	if err != nil {
		serverError(w, h.logger, "failed to get expense", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}

	if err := h.expenseStore.Delete(owner, id); err != nil {
		serverError(w, h.logger, "failed to delete expense", err)
		return
	}

	publish(h.hub, owner, "expense", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ExpenseHandler) parseMileage(w http.ResponseWriter, r *http.Request, owner int64) (*mileageRequest, bool) {
	var req mileageRequest
	if !decodeJSON(w, r, &req) {
		return nil, false
	}
	if !req.Miles.IsPositive() {
		writeError(w, http.StatusBadRequest, "miles must be positive")
		return nil, false
	}
	if !h.links.check(w, h.logger, owner, links{AppointmentID: req.AppointmentID}) {
		return nil, false
	}
	return &req, true
}

func (h *ExpenseHandler) CreateMileage(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	req, ok := h.parseMileage(w, r, owner)
	if !ok {
		return
	}

	m, err := h.mileageStore.Create(model.MileageEntry{
		UserID:        owner,
		Date:          req.Date,
		Miles:         req.Miles,
		Purpose:       req.Purpose,
		AppointmentID: req.AppointmentID,
	})
	if err != nil {
		serverError(w, h.logger, "failed to create mileage entry", err)
		return
	}

	publish(h.hub, owner, "mileage", "created", m.ID)
	writeJSON(w, http.StatusCreated, m)
}

func (h *ExpenseHandler) ListMileage(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	entries, err := h.mileageStore.ListByDateRange(ownerID(r), start, end)
	if err != nil {
		serverError(w, h.logger, "failed to list mileage", err)
		return
	}
	if entries == nil {
		entries = []model.MileageEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *ExpenseHandler) GetMileage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	m, err := h.mileageStore.GetByID(ownerID(r), id)
	if err != nil {
		serverError(w, h.logger, "failed to get mileage entry", err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "mileage entry not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *ExpenseHandler) UpdateMileage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	owner := ownerID(r)
	req, ok := h.parseMileage(w, r, owner)
	if !ok {
		return
	}

	m, err := h.mileageStore.Update(model.MileageEntry{
		ID:            id,
		UserID:        owner,
		Date:          req.Date,
		Miles:         req.Miles,
		Purpose:       req.Purpose,
		AppointmentID: req.AppointmentID,
	})
	if err != nil {
		serverError(w, h.logger, "failed to update mileage entry", err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "mileage entry not found")
		return
	}

	publish(h.hub, owner, "mileage", "updated", m.ID)
	writeJSON(w, http.StatusOK, m)
}

func (h *ExpenseHandler) DeleteMileage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	owner := ownerID(r)
	existing, err := h.mileageStore.GetByID(owner, id)
	if err != nil {
		serverError(w, h.logger, "failed to get mileage entry", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "mileage entry not found")
		return
	}

	if err := h.mileageStore.Delete(owner, id); err != nil {
		serverError(w, h.logger, "failed to delete mileage entry", err)
		return
	}

	publish(h.hub, owner, "mileage", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
