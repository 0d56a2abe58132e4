package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ten99/ten99/internal/auth"
	"github.com/ten99/ten99/internal/middleware"
	"github.com/ten99/ten99/internal/model"
	"github.com/ten99/ten99/internal/store"
)

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestRegisterLoginLogout(t *testing.T) {
	env := setupEnv(t)
	us := store.NewUserStore(env.db)
	ss := store.NewSessionStore(env.db, time.Hour)
	h := NewAuthHandler(us, ss, false, env.logger)

	post := func(fn http.HandlerFunc, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/", strings.NewReader(body))
		rec := httptest.NewRecorder()
		fn(rec, req)
		return rec
	}

	rec := post(h.Register, `{"email":"sam@example.com","name":"Sam","password":"short"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short password status = %d, want 400", rec.Code)
	}

	rec = post(h.Register, `{"email":"sam@example.com","name":"Sam","password":"correct horse"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(rec)
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("session cookie = %+v", cookie)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response leaks password hash")
	}

	rec = post(h.Register, `{"email":"SAM@example.com","password":"another password"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rec.Code)
	}

	rec = post(h.Login, `{"email":"sam@example.com","password":"wrong password"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}

	rec = post(h.Login, `{"email":"sam@example.com","password":"correct horse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	cookie = sessionCookie(rec)
	sess, err := ss.GetByToken(cookie.Value)
	if err != nil || sess == nil {
		t.Fatalf("session lookup: %v, %v", sess, err)
	}

	req := httptest.NewRequest("GET", "/api/me", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{OwnerID: sess.UserID, SessionID: sess.ID}))
	rec = httptest.NewRecorder()
	h.Me(rec, req)
	if me := decode[model.User](t, rec); me.Email != "sam@example.com" || me.Name != "Sam" {
		t.Errorf("me = %+v", me)
	}

	rec = httptest.NewRecorder()
	h.Logout(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("logout status = %d", rec.Code)
	}
	if c := sessionCookie(rec); c == nil || c.MaxAge >= 0 {
		t.Errorf("logout cookie = %+v, want expired", c)
	}
	if sess, _ := ss.GetByToken(cookie.Value); sess != nil {
		t.Error("session should be deleted after logout")
	}
}

func TestChangePassword(t *testing.T) {
	env := setupEnv(t)
	us := store.NewUserStore(env.db)
	h := NewAuthHandler(us, store.NewSessionStore(env.db, time.Hour), false, env.logger)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"wrong current password", `{"current_password":"nope nope","new_password":"brand new secret"}`, http.StatusForbidden},
		{"new password too short", `{"current_password":"password123","new_password":"short"}`, http.StatusBadRequest},
		{"missing current password", `{"new_password":"brand new secret"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h.ChangePassword, env.request("PUT", "/api/me/password", tt.body))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d, body = %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec := serve(h.ChangePassword, env.request("PUT", "/api/me/password", `{"current_password":"password123","new_password":"brand new secret"}`))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if u, _ := us.Authenticate(env.user.Email, "password123"); u != nil {
		t.Error("old password still accepted")
	}
	if u, err := us.Authenticate(env.user.Email, "brand new secret"); err != nil || u == nil {
		t.Errorf("new password rejected: %v", err)
	}
}
