package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/ten99/ten99/internal/invoice"
	"github.com/ten99/ten99/internal/model"
)

type InvoiceHandler struct {
	service *invoice.Service
	links   *LinkChecker
	hub     publisher
	logger  *slog.Logger
}

func NewInvoiceHandler(svc *invoice.Service, links *LinkChecker, hub publisher, logger *slog.Logger) *InvoiceHandler {
	return &InvoiceHandler{service: svc, links: links, hub: hub, logger: logger}
}

type lineItemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type invoiceRequest struct {
	ClientID  int64             `json:"client_id" validate:"required,gt=0"`
	JobFileID *int64            `json:"job_file_id"`
	IssueDate string            `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate   string            `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Notes     string            `json:"notes"`
	Items     []lineItemRequest `json:"items" validate:"required,min=1,dive"`
}

type invoiceResponse struct {
	*model.Invoice
	Total decimal.Decimal `json:"total"`
}

func newInvoiceResponse(inv *model.Invoice) invoiceResponse {
	return invoiceResponse{Invoice: inv, Total: inv.Total()}
}

func (h *InvoiceHandler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, invoice.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, invoice.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		serverError(w, h.logger, msg, err)
	}
}

// Create issues the next invoice number and stores a draft.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner := ownerID(r)
	if !h.links.check(w, h.logger, owner, links{ClientID: &req.ClientID, JobFileID: req.JobFileID}) {
		return
	}

	inv := model.Invoice{
		ClientID:  req.ClientID,
		JobFileID: req.JobFileID,
		IssueDate: req.IssueDate,
		DueDate:   req.DueDate,
		Notes:     req.Notes,
	}
	for i, item := range req.Items {
		inv.Items = append(inv.Items, model.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			SortOrder:   i,
		})
	}

	created, err := h.service.Create(owner, inv)
	if err != nil {
		h.writeServiceError(w, "failed to create invoice", err)
		return
	}

	h.logger.Info("invoice created", "number", created.Number, "user_id", owner)
	publish(h.hub, owner, "invoice", "created", created.ID)
	writeJSON(w, http.StatusCreated, newInvoiceResponse(created))
}

// List returns the owner's invoices, newest first, optionally filtered by
// the status query parameter.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", model.InvoiceDraft, model.InvoiceSent, model.InvoicePaid, model.InvoiceVoid:
	default:
		writeError(w, http.StatusBadRequest, "status must be one of: draft sent paid void")
		return
	}

	invoices, err := h.service.List(ownerID(r), status)
	if err != nil {
		serverError(w, h.logger, "failed to list invoices", err)
		return
	}

	resp := make([]invoiceResponse, len(invoices))
	for i := range invoices {
		resp[i] = newInvoiceResponse(&invoices[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	inv, err := h.service.Get(ownerID(r), id)
	if err != nil {
		serverError(w, h.logger, "failed to get invoice", err)
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "invoice not found")
		return
	}
	writeJSON(w, http.StatusOK, newInvoiceResponse(inv))
}

// Send marks the invoice sent, emailing it to the client when possible.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	owner := ownerID(r)
	inv, emailed, err := h.service.MarkSent(owner, id)
	if err != nil {
		h.writeServiceError(w, "failed to send invoice", err)
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "invoice not found")
		return
	}

	publish(h.hub, owner, "invoice", "updated", inv.ID)
	writeJSON(w, http.StatusOK, struct {
		invoiceResponse
		Emailed bool `json:"emailed"`
	}{newInvoiceResponse(inv), emailed})
}

func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to mark invoice paid", h.service.MarkPaid)
}

func (h *InvoiceHandler) Void(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to void invoice", h.service.Void)
}

func (h *InvoiceHandler) transition(w http.ResponseWriter, r *http.Request, msg string, fn func(ownerID, id int64) (*model.Invoice, error)) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	owner := ownerID(r)
	inv, err := fn(owner, id)
	if err != nil {
		h.writeServiceError(w, msg, err)
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "invoice not found")
		return
	}

	publish(h.hub, owner, "invoice", "updated", inv.ID)
	writeJSON(w, http.StatusOK, newInvoiceResponse(inv))
}

// Delete removes a draft. Its number is not reissued.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	owner := ownerID(r)
	deleted, err := h.service.Delete(owner, id)
	if err != nil {
		h.writeServiceError(w, "failed to delete invoice", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "invoice not found")
		return
	}

	publish(h.hub, owner, "invoice", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
