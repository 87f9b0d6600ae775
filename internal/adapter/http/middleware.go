package adapthttp

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"accountportal/internal/app"
	"accountportal/internal/domain"
	"accountportal/internal/logger"
)

type contextKey string

const (
	handleContextKey  contextKey = "session_handle"
	sessionContextKey contextKey = "session"

	clientCookie = "portal_client"
)

// withClient binds the browser to its session record through the client
// cookie, issuing a fresh random id when the cookie is missing or malformed.
func (s *Server) withClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		var clientID string
		if c, err := r.Cookie(clientCookie); err == nil {
			if id, err := uuid.Parse(c.Value); err == nil {
				clientID = id.String()
			}
		}
		if clientID == "" {
			clientID = uuid.NewString()
		}
		// Refreshed on every visit so active browsers keep their record.
		http.SetCookie(w, &http.Cookie{
			Name:     clientCookie,
			Value:    clientID,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.opts.CookieSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(s.opts.ClientTTL / time.Second),
		})

		ctx := context.WithValue(r.Context(), handleContextKey, s.store.Open(clientID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth rehydrates the session and runs the route guard before any
// protected content is produced.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := handleFrom(r.Context())
		sess, err := h.Snapshot(r.Context())
		if err != nil {
			s.log.Error("session rehydration failed", logger.ClientID(h.ClientID()), logger.Error(err))
			s.renderLoading(w, r)
			return
		}
		if d := app.Guard(sess); !d.Allow {
			http.Redirect(w, r, d.RedirectTo, http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// guestOnly sends authenticated viewers from the login and register screens
// to the dashboard.
func (s *Server) guestOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := handleFrom(r.Context())
		sess, err := h.Snapshot(r.Context())
		if err != nil {
			s.log.Warn("session rehydration failed", logger.ClientID(h.ClientID()), logger.Error(err))
		} else if d := app.GuestOnly(sess); !d.Allow {
			http.Redirect(w, r, d.RedirectTo, http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func handleFrom(ctx context.Context) *app.SessionHandle {
	h, _ := ctx.Value(handleContextKey).(*app.SessionHandle)
	return h
}

// sessionFrom returns the session loaded by requireAuth or guestOnly, or the
// empty session on open routes.
func sessionFrom(ctx context.Context) domain.Session {
	sess, _ := ctx.Value(sessionContextKey).(domain.Session)
	return sess
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// logging writes one access log line per request.
func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			logger.Duration(time.Since(start)),
		)
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.log.Error("panic serving request", "path", r.URL.Path, "panic", v, "stack", string(debug.Stack()))
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
