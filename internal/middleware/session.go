package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"catalog-admin/internal/apperror"
	"catalog-admin/internal/domain"
	"catalog-admin/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const sessionKey contextKey = "session"

// SignInPath is where the auth gate sends signed-out users
const SignInPath = "/signin"

// SessionCookie describes the cookie that carries the session id
type SessionCookie struct {
	Name   string
	Secure bool
}

// Set writes the session id cookie
func (c SessionCookie) Set(w http.ResponseWriter, sess *domain.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    sess.ID.String(),
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session id cookie
func (c SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionMiddleware loads the session named by the cookie. Requests with
// an unknown or expired session continue without one and lose the cookie.
func SessionMiddleware(store session.Store, cookie SessionCookie, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookie.Name)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := uuid.Parse(c.Value)
			if err != nil {
				logger.Debug("Malformed session cookie")
				cookie.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			sess, err := store.Get(r.Context(), id)
			if err != nil {
				if !errors.Is(err, session.ErrSessionNotFound) {
					logger.Error("Failed to load session", zap.Error(err))
				}
				cookie.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// WithSession returns ctx carrying sess
func WithSession(ctx context.Context, sess *domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// GetSession extracts the signed-in session from the request context
func GetSession(ctx context.Context) (*domain.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*domain.Session)
	return sess, ok && sess.Authenticated()
}

// RequireSession is the auth gate. Without a session, page requests are
// redirected to the sign-in page and API requests get a 401.
func RequireSession(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetSession(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			logger.Debug("Unauthenticated request", zap.String("path", r.URL.Path))

			if WantsJSON(r) {
				RespondWithError(w, http.StatusUnauthorized, apperror.SessionExpiredMessage)
				return
			}
			RedirectToSignIn(w, r)
		})
	}
}

// RedirectIfAuthenticated sends signed-in users to target
func RedirectIfAuthenticated(target string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetSession(r.Context()); ok {
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RedirectToSignIn redirects to the sign-in page, remembering where the
// user was headed for GET requests
func RedirectToSignIn(w http.ResponseWriter, r *http.Request) {
	target := SignInPath
	if r.Method == http.MethodGet && r.URL.Path != "/" {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// SafeNext returns next when it is a local path, fallback otherwise
func SafeNext(next, fallback string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

// WantsJSON reports whether the request belongs to the JSON API
func WantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
