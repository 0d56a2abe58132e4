package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ten99/ten99/internal/appointment"
	"github.com/ten99/ten99/internal/assist"
	"github.com/ten99/ten99/internal/backup"
	"github.com/ten99/ten99/internal/blob"
	"github.com/ten99/ten99/internal/config"
	"github.com/ten99/ten99/internal/dashboard"
	"github.com/ten99/ten99/internal/email"
	"github.com/ten99/ten99/internal/finance"
	"github.com/ten99/ten99/internal/handler"
	"github.com/ten99/ten99/internal/ics"
	"github.com/ten99/ten99/internal/invoice"
	"github.com/ten99/ten99/internal/middleware"
	"github.com/ten99/ten99/internal/numbering"
	"github.com/ten99/ten99/internal/store"
	ws "github.com/ten99/ten99/internal/websocket"
)

// Auth endpoints allow this many attempts per IP per minute.
const authRateLimit = 10

type Server struct {
	db               *sql.DB
	hub              *ws.Hub
	authH            *handler.AuthHandler
	appointmentH     *handler.AppointmentHandler
	clientH          *handler.ClientHandler
	jobFileH         *handler.JobFileHandler
	invoiceH         *handler.InvoiceHandler
	expenseH         *handler.ExpenseHandler
	dashboardH       *handler.DashboardHandler
	sessionStore     *store.SessionStore
	userStore        *store.UserStore
	appointmentStore *store.AppointmentStore
	emailClient      *email.Client
	rateLimiter      *middleware.RateLimiter
	originPatterns   []string
	logger           *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	loc := cfg.Location()
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db, cfg.SessionTTL())
	appointmentStore := store.NewAppointmentStore(db)
	clientStore := store.NewClientStore(db)
	contactStore := store.NewContactStore(db)
	jobFileStore := store.NewJobFileStore(db)
	invoiceStore := store.NewInvoiceStore(db)
	expenseStore := store.NewExpenseStore(db)
	mileageStore := store.NewMileageStore(db)

	emailClient := email.NewClient(cfg.Postmark.Token, cfg.Postmark.From)
	parser := assist.New(cfg.Anthropic.APIKey, cfg.Anthropic.Model)
	blobs := blob.New(blobConfig(cfg))

	numbers := numbering.New(store.NewCounterStore(db), numbering.DomainInvoice, numbering.WithLocation(loc))
	invoices := invoice.NewService(invoiceStore, clientStore, userStore, numbers, emailClient, loc)
	appointments := appointment.NewService(appointmentStore)

	links := handler.NewLinkChecker(clientStore, contactStore, jobFileStore, appointmentStore)
	rates := financeRates(cfg)
	builder := dashboard.NewBuilder(appointmentStore, invoiceStore, expenseStore, mileageStore, rates, loc)
	feed := ics.NewFeed(appointmentStore, loc)

	logger.Info("integrations",
		"email", emailClient.Configured(),
		"assistant", parser.Configured(),
		"attachments", blobs.Configured(),
	)

	return &Server{
		db:               db,
		hub:              hub,
		authH:            handler.NewAuthHandler(userStore, sessionStore, strings.HasPrefix(cfg.BaseURL, "https://"), logger.With("component", "auth")),
		appointmentH:     handler.NewAppointmentHandler(appointments, parser, links, hub, loc, logger.With("component", "appointment")),
		clientH:          handler.NewClientHandler(clientStore, contactStore, hub, logger.With("component", "client")),
		jobFileH:         handler.NewJobFileHandler(jobFileStore, clientStore, blobs, hub, logger.With("component", "job_file")),
		invoiceH:         handler.NewInvoiceHandler(invoices, links, hub, logger.With("component", "invoice")),
		expenseH:         handler.NewExpenseHandler(expenseStore, mileageStore, links, hub, loc, logger.With("component", "expense")),
		dashboardH:       handler.NewDashboardHandler(builder, feed, userStore, logger.With("component", "dashboard")),
		sessionStore:     sessionStore,
		userStore:        userStore,
		appointmentStore: appointmentStore,
		emailClient:      emailClient,
		rateLimiter:      middleware.NewRateLimiter(),
		originPatterns:   originPatterns(cfg.BaseURL),
		logger:           logger,
	}
}

// originPatterns allows WebSocket connections from the configured public
// host in addition to same-origin requests.
func originPatterns(baseURL string) []string {
	if baseURL == "" {
		return nil
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

func (s *Server) UserStore() *store.UserStore {
	return s.userStore
}

// AppointmentStore returns the appointment store for the reminder job.
func (s *Server) AppointmentStore() *store.AppointmentStore {
	return s.appointmentStore
}

func (s *Server) EmailClient() *email.Client {
	return s.emailClient
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "database unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return r.URL.Path + "|" + middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, authRateLimit, time.Minute)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("PUT /api/me/password", s.authH.ChangePassword)

	// Appointments
	mux.HandleFunc("POST /api/appointments", s.appointmentH.Create)
	mux.HandleFunc("GET /api/appointments", s.appointmentH.List)
	mux.HandleFunc("POST /api/appointments/parse", s.appointmentH.Parse)
	mux.HandleFunc("GET /api/appointments/series/{series_id}", s.appointmentH.GetSeries)
	mux.HandleFunc("DELETE /api/appointments/series/{series_id}", s.appointmentH.DeleteSeries)
	mux.HandleFunc("GET /api/appointments/{id}", s.appointmentH.Get)
	mux.HandleFunc("PUT /api/appointments/{id}", s.appointmentH.Update)
	mux.HandleFunc("DELETE /api/appointments/{id}", s.appointmentH.Delete)
	mux.HandleFunc("POST /api/appointments/{id}/status", s.appointmentH.SetStatus)

	// Clients and contacts
	mux.HandleFunc("POST /api/clients", s.clientH.CreateClient)
	mux.HandleFunc("GET /api/clients", s.clientH.ListClients)
	mux.HandleFunc("GET /api/clients/{id}", s.clientH.GetClient)
	mux.HandleFunc("PUT /api/clients/{id}", s.clientH.UpdateClient)
	mux.HandleFunc("DELETE /api/clients/{id}", s.clientH.DeleteClient)
	mux.HandleFunc("POST /api/contacts", s.clientH.CreateContact)
	mux.HandleFunc("GET /api/contacts", s.clientH.ListContacts)
	mux.HandleFunc("GET /api/contacts/{id}", s.clientH.GetContact)
	mux.HandleFunc("PUT /api/contacts/{id}", s.clientH.UpdateContact)
	mux.HandleFunc("DELETE /api/contacts/{id}", s.clientH.DeleteContact)

	// Job files and attachments
	mux.HandleFunc("POST /api/jobfiles", s.jobFileH.Create)
	mux.HandleFunc("GET /api/jobfiles", s.jobFileH.List)
	mux.HandleFunc("GET /api/jobfiles/{id}", s.jobFileH.Get)
	mux.HandleFunc("PUT /api/jobfiles/{id}", s.jobFileH.Update)
	mux.HandleFunc("DELETE /api/jobfiles/{id}", s.jobFileH.Delete)
	mux.HandleFunc("POST /api/jobfiles/{id}/attachments", s.jobFileH.UploadAttachment)
	mux.HandleFunc("GET /api/jobfiles/{id}/attachments/{attachment_id}", s.jobFileH.DownloadAttachment)
	mux.HandleFunc("DELETE /api/jobfiles/{id}/attachments/{attachment_id}", s.jobFileH.DeleteAttachment)

	// Invoices
	mux.HandleFunc("POST /api/invoices", s.invoiceH.Create)
	mux.HandleFunc("GET /api/invoices", s.invoiceH.List)
	mux.HandleFunc("GET /api/invoices/{id}", s.invoiceH.Get)
	mux.HandleFunc("DELETE /api/invoices/{id}", s.invoiceH.Delete)
	mux.HandleFunc("POST /api/invoices/{id}/send", s.invoiceH.Send)
	mux.HandleFunc("POST /api/invoices/{id}/pay", s.invoiceH.Pay)
	mux.HandleFunc("POST /api/invoices/{id}/void", s.invoiceH.Void)

	// Expenses and mileage
	mux.HandleFunc("POST /api/expenses", s.expenseH.CreateExpense)
	mux.HandleFunc("GET /api/expenses", s.expenseH.ListExpenses)
	mux.HandleFunc("GET /api/expenses/{id}", s.expenseH.GetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.expenseH.UpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.expenseH.DeleteExpense)
	mux.HandleFunc("POST /api/mileage", s.expenseH.CreateMileage)
	mux.HandleFunc("GET /api/mileage", s.expenseH.ListMileage)
	mux.HandleFunc("GET /api/mileage/{id}", s.expenseH.GetMileage)
	mux.HandleFunc("PUT /api/mileage/{id}", s.expenseH.UpdateMileage)
	mux.HandleFunc("DELETE /api/mileage/{id}", s.expenseH.DeleteMileage)

	mux.HandleFunc("GET /api/dashboard", s.dashboardH.Summary)
	mux.HandleFunc("GET /api/calendar.ics", s.dashboardH.Calendar)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.originPatterns, s.logger.With("component", "websocket")))
}

func financeRates(cfg *config.Config) finance.Rates {
	return finance.Rates{
		MileageRate:   decimal.NewFromFloat(cfg.MileageRate),
		IncomeTaxRate: decimal.NewFromFloat(cfg.IncomeTaxRate),
	}
}

func blobConfig(cfg *config.Config) blob.Config {
	return blob.Config{
		Endpoint:  cfg.S3.Endpoint,
		Bucket:    cfg.S3.Bucket,
		Region:    cfg.S3.Region,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	}
}

// NewBackupManager builds the database backup manager over the same bucket
// that holds job file attachments.
func NewBackupManager(db *sql.DB, cfg *config.Config, logger *slog.Logger) *backup.Manager {
	return backup.NewManager(db, store.NewBackupStore(db), blob.New(blobConfig(cfg)), cfg.Backup.Passphrase, logger)
}
