package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/ten99/ten99/internal/dashboard"
	"github.com/ten99/ten99/internal/ics"
	"github.com/ten99/ten99/internal/store"
)

type DashboardHandler struct {
	builder   *dashboard.Builder
	feed      *ics.Feed
	userStore *store.UserStore
	logger    *slog.Logger
}

func NewDashboardHandler(b *dashboard.Builder, feed *ics.Feed, us *store.UserStore, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{builder: b, feed: feed, userStore: us, logger: logger}
}

func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.builder.Build(ownerID(r), time.Now())
	if err != nil {
		serverError(w, h.logger, "failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Calendar serves the owner's appointments as an iCalendar feed.
func (h *DashboardHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	calName := "Ten99"
	if u, err := h.userStore.GetByID(owner); err == nil && u != nil && u.Name != "" {
		calName = u.Name + " - Ten99"
	}

	var buf bytes.Buffer
	if err := h.feed.Write(&buf, owner, calName); err != nil {
		serverError(w, h.logger, "failed to render calendar", err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="ten99.ics"`)
	w.Write(buf.Bytes())
}
