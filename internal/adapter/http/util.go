package adapthttp

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"accountportal/internal/app"
	"accountportal/internal/domain"
	"accountportal/internal/logger"
)

const flashCookie = "portal_flash"

const (
	flashSuccess = "success"
	flashError   = "error"
	flashInfo    = "info"
)

const msgSessionExpired = "Your session has expired. Please log in again."

// flash is a one-shot notification carried across a redirect.
type flash struct {
	Kind    string
	Message string
}

// pageData is what every template receives.
type pageData struct {
	Title   string
	Session domain.Session
	Flash   *flash
	Notice  string
	Errors  domain.ValidationErrors
	Form    map[string]string
	Data    any
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// render executes the named view into a buffer and writes it with status.
// A pending flash notification is consumed.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, status int, data pageData) {
	if data.Flash == nil {
		data.Flash = popFlash(w, r)
	}
	var buf bytes.Buffer
	if err := s.views.execute(&buf, name, data); err != nil {
		s.log.Error("render failed", "view", name, logger.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) renderLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Refresh", "3")
	w.Header().Set("Retry-After", "3")
	s.render(w, r, "loading", http.StatusServiceUnavailable, pageData{Title: "Loading"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "not_found", http.StatusNotFound, pageData{Title: "Page not found", Session: s.viewer(r)})
}

// viewer returns the session of the current request for navigation purposes.
// On routes without a guard it is loaded on demand; load errors show the
// guest navigation.
func (s *Server) viewer(r *http.Request) domain.Session {
	if sess := sessionFrom(r.Context()); !sess.Empty() {
		return sess
	}
	h := handleFrom(r.Context())
	if h == nil {
		return domain.Session{}
	}
	sess, err := h.Snapshot(r.Context())
	if err != nil {
		return domain.Session{}
	}
	return sess
}

// redirect sends the browser to path with 303 and an optional notification.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, path, kind, msg string) {
	if msg != "" {
		setFlash(w, kind, msg, s.opts.CookieSecure)
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// fail renders the view again with the outcome of a rejected submission.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, view string, data pageData, err error, fallback string) {
	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		data.Errors = verrs
		s.render(w, r, view, http.StatusUnprocessableEntity, data)
	case errors.Is(err, app.ErrDuplicateSubmission):
		data.Notice = "This request is already being processed. Please wait."
		s.render(w, r, view, http.StatusConflict, data)
	case errors.Is(err, app.ErrStaleSession), errors.Is(err, app.ErrNotAuthenticated):
		s.redirect(w, r, app.LoginPath, flashInfo, "Your session has changed. Please log in again.")
	default:
		data.Notice = domain.UserMessage(err, fallback)
		s.render(w, r, view, failureStatus(err), data)
	}
}

// failAccount is fail for authorized calls, where a rejected token means the
// session has already been cleared.
func (s *Server) failAccount(w http.ResponseWriter, r *http.Request, view string, data pageData, err error, fallback string) {
	if errors.Is(err, domain.ErrUnauthorized) {
		s.redirect(w, r, app.LoginPath, flashError, msgSessionExpired)
		return
	}
	s.fail(w, r, view, data, err, fallback)
}

func failureStatus(err error) int {
	var apiErr *domain.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	case errors.Is(err, domain.ErrBackendUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func setFlash(w http.ResponseWriter, kind, msg string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(kind + "\n" + msg)),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the pending notification.
func popFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(string(raw), "\n")
	if !ok || msg == "" {
		return nil
	}
	return &flash{Kind: kind, Message: msg}
}

// formValues echoes non-secret fields back into a re-rendered form.
func formValues(r *http.Request, keys ...string) map[string]string {
	m := make(map[string]string, len(keys))
	for _, k := range keys {
		m[k] = strings.TrimSpace(r.FormValue(k))
	}
	return m
}
