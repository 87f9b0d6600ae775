// Package adapthttp implements the HTTP adapter for the application: the
// server-rendered screens, the browser-to-session binding and the guard.
package adapthttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"accountportal/internal/app"
	"accountportal/internal/logger"
)

// Options tune the browser-facing behavior of the Server.
type Options struct {
	// CookieSecure marks cookies Secure; enable behind HTTPS.
	CookieSecure bool
	// ClientTTL is the lifetime of the client cookie.
	ClientTTL time.Duration
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth    *app.AuthService
	account *app.AccountService
	store   *app.SessionStore
	views   *views
	log     *slog.Logger
	opts    Options
}

// New creates a Server wired to the given application services.
func New(store *app.SessionStore, auth *app.AuthService, account *app.AccountService, log *slog.Logger, opts Options) (*Server, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	if opts.ClientTTL <= 0 {
		opts.ClientTTL = 7 * 24 * time.Hour
	}
	return &Server{
		auth:    auth,
		account: account,
		store:   store,
		views:   v,
		log:     log.With(logger.Component("http")),
		opts:    opts,
	}, nil
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.StrictSlash(true)
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(staticHandler()).Methods(http.MethodGet)

	r.HandleFunc("/", s.page("home", "Welcome")).Methods(http.MethodGet)
	r.HandleFunc("/about", s.page("about", "About")).Methods(http.MethodGet)
	r.HandleFunc("/terms", s.page("terms", "Terms of Service")).Methods(http.MethodGet)
	r.HandleFunc("/privacy", s.page("privacy", "Privacy Policy")).Methods(http.MethodGet)

	r.Handle("/auth/login", s.guestOnly(http.HandlerFunc(s.handleLoginForm))).Methods(http.MethodGet)
	r.Handle("/auth/login", s.guestOnly(http.HandlerFunc(s.handleLogin))).Methods(http.MethodPost)
	r.Handle("/auth/register", s.guestOnly(http.HandlerFunc(s.handleRegisterForm))).Methods(http.MethodGet)
	r.Handle("/auth/register", s.guestOnly(http.HandlerFunc(s.handleRegister))).Methods(http.MethodPost)

	r.HandleFunc("/auth/verify-email", s.handleVerifyEmailForm).Methods(http.MethodGet)
	r.HandleFunc("/auth/verify-email", s.handleVerifyEmail).Methods(http.MethodPost)
	r.HandleFunc("/auth/resend-verification", s.handleResendVerification).Methods(http.MethodPost)
	r.HandleFunc("/auth/forgot-password", s.handleForgotPasswordForm).Methods(http.MethodGet)
	r.HandleFunc("/auth/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/auth/reset-password", s.handleResetPasswordForm).Methods(http.MethodGet)
	r.HandleFunc("/auth/reset-password", s.handleResetPassword).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	protected := []struct {
		path   string
		method string
		h      http.HandlerFunc
	}{
		{"/dashboard", http.MethodGet, s.handleDashboard},
		{"/dashboard/profile", http.MethodGet, s.handleProfileForm},
		{"/dashboard/profile", http.MethodPost, s.handleProfile},
		{"/dashboard/avatar", http.MethodGet, s.handleAvatarForm},
		{"/dashboard/avatar", http.MethodPost, s.handleAvatarUpload},
		{"/dashboard/avatar", http.MethodDelete, s.handleAvatarDelete},
		{"/dashboard/avatar/delete", http.MethodPost, s.handleAvatarDelete},
		{"/dashboard/security", http.MethodGet, s.handleSecurityForm},
		{"/dashboard/security", http.MethodPost, s.handleChangePassword},
		{"/admin/users", http.MethodGet, s.handleAdminUsers},
	}
	for _, rt := range protected {
		r.Handle(rt.path, s.requireAuth(rt.h)).Methods(rt.method)
	}

	return s.recoverer(s.logging(withNoCache(s.withClient(r))))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("health check failed", logger.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
