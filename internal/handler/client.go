package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ten99/ten99/internal/model"
	"github.com/ten99/ten99/internal/store"
)

type ClientHandler struct {
	clientStore  *store.ClientStore
	contactStore *store.ContactStore
	hub          publisher
	logger       *slog.Logger
}

func NewClientHandler(cs *store.ClientStore, ct *store.ContactStore, hub publisher, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{clientStore: cs, contactStore: ct, hub: hub, logger: logger}
}

type clientRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=50"`
	Address string `json:"address" validate:"max=500"`
	Notes   string `json:"notes"`
}

type contactRequest struct {
	ClientID *int64 `json:"client_id"`
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"max=50"`
	Role     string `json:"role" validate:"max=100"`
}

func (h *ClientHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner := ownerID(r)
	c, err := h.clientStore.Create(model.Client{
		UserID:  owner,
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	})
	if err != nil {
		serverError(w, h.logger, "failed to create client", err)
		return
	}

	publish(h.hub, owner, "client", "created", c.ID)
	writeJSON(w, http.StatusCreated, c)
}

func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clientStore.List(ownerID(r))
	if err != nil {
		serverError(w, h.logger, "failed to list clients", err)
		return
	}
	if clients == nil {
		clients = []model.Client{}
	}
	writeJSON(w, http.StatusOK, clients)
}

func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	c, err := h.clientStore.GetByID(ownerID(r), id)
	if err != nil {
		serverError(w, h.logger, "failed to get client", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ClientHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req clientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner := ownerID(r)
	c, err := h.clientStore.Update(model.Client{
		ID:      id,
		UserID:  owner,
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	})
	if err != nil {
		serverError(w, h.logger, "failed to update client", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}

	publish(h.hub, owner, "client", "updated", c.ID)
	writeJSON(w, http.StatusOK, c)
}

// DeleteClient removes a client. Its contacts are kept and unlinked.
func (h *ClientHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	owner := ownerID(r)
	existing, err := h.clientStore.GetByID(owner, id)
	if err != nil {
		serverError(w, h.logger, "failed to get client", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}

	if err := h.clientStore.Delete(owner, id); err != nil {
		serverError(w, h.logger, "failed to delete client", err)
		return
	}

	publish(h.hub, owner, "client", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// checkClient verifies that an optional client link belongs to owner.
func (h *ClientHandler) checkClient(w http.ResponseWriter, owner int64, clientID *int64) bool {
	if clientID == nil {
		return true
	}
	c, err := h.clientStore.GetByID(owner, *clientID)
	if err != nil {
		serverError(w, h.logger, "failed to check client", err)
		return false
	}
	if c == nil {
		writeError(w, http.StatusBadRequest, "client not found")
		return false
	}
	return true
}

func (h *ClientHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner := ownerID(r)
	if !h.checkClient(w, owner, req.ClientID) {
		return
	}

	c, err := h.contactStore.Create(model.Contact{
		UserID:   owner,
		ClientID: req.ClientID,
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		serverError(w, h.logger, "failed to create contact", err)
		return
	}

	publish(h.hub, owner, "contact", "created", c.ID)
	writeJSON(w, http.StatusCreated, c)
}

// ListContacts lists the owner's contacts, filtered by the client_id query
// parameter when present.
func (h *ClientHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	var clientID *int64
	if v := r.URL.Query().Get("client_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid client_id")
			return
		}
		clientID = &id
	}

	contacts, err := h.contactStore.List(ownerID(r), clientID)
	if err != nil {
		serverError(w, h.logger, "failed to list contacts", err)
		return
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (h *ClientHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	c, err := h.contactStore.GetByID(ownerID(r), id)
	if err != nil {
		serverError(w, h.logger, "failed to get contact", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ClientHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner := ownerID(r)
	if !h.checkClient(w, owner, req.ClientID) {
		return
	}

	c, err := h.contactStore.Update(model.Contact{
		ID:       id,
		UserID:   owner,
		ClientID: req.ClientID,
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		serverError(w, h.logger, "failed to update contact", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}

	publish(h.hub, owner, "contact", "updated", c.ID)
	writeJSON(w, http.StatusOK, c)
}

func (h *ClientHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	owner := ownerID(r)
	existing, err := h.contactStore.GetByID(owner, id)
	if err != nil {
		serverError(w, h.logger, "failed to get contact", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}

	if err := h.contactStore.Delete(owner, id); err != nil {
		serverError(w, h.logger, "failed to delete contact", err)
		return
	}

	publish(h.hub, owner, "contact", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
