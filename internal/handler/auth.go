package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ten99/ten99/internal/auth"
	"github.com/ten99/ten99/internal/middleware"
	"github.com/ten99/ten99/internal/model"
	"github.com/ten99/ten99/internal/store"
)

type AuthHandler struct {
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler creates the auth handler. secureCookie marks the session
// cookie Secure, for deployments served over HTTPS.
func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:    us,
		sessionStore: ss,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type sessionResponse struct {
	User      *model.User `json:"user"`
	ExpiresAt string      `json:"expires_at"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userStore.Create(req.Email, strings.TrimSpace(req.Name), req.Password)
	if errors.Is(err, store.ErrEmailTaken) {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		serverError(w, h.logger, "failed to register", err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)
	h.startSession(w, user, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userStore.Authenticate(req.Email, req.Password)
	if err != nil {
		serverError(w, h.logger, "failed to log in", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.startSession(w, user, http.StatusOK)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, user *model.User, status int) {
	sess, err := h.sessionStore.Create(user.ID)
	if err != nil {
		serverError(w, h.logger, "failed to create session", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, sessionResponse{
		User:      user,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := auth.SessionID(r.Context()); sessionID != 0 {
		if err := h.sessionStore.Delete(sessionID); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.GetByID(ownerID(r))
	if err != nil {
		serverError(w, h.logger, "failed to get user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword replaces the signed-in owner's password after checking the
// current one. Existing sessions stay valid.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner := ownerID(r)
	user, err := h.userStore.GetByID(owner)
	if err != nil {
		serverError(w, h.logger, "failed to get user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	verified, err := h.userStore.Authenticate(user.Email, req.CurrentPassword)
	if err != nil {
		serverError(w, h.logger, "failed to check password", err)
		return
	}
	if verified == nil {
		writeError(w, http.StatusForbidden, "current password is incorrect")
		return
	}

	if err := h.userStore.SetPassword(owner, req.NewPassword); err != nil {
		serverError(w, h.logger, "failed to change password", err)
		return
	}
	h.logger.Info("password changed", "user_id", owner)
	w.WriteHeader(http.StatusNoContent)
}
