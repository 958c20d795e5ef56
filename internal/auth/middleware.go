package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/kakomon/admin/internal/models"
	"github.com/kakomon/admin/internal/web"
)

type ctxKey struct{}

// Middleware restores the cookie session for every request and stores the
// Manager in the request context.
func Middleware(codec *SessionCodec, log *zap.Logger) func(http.Handler) http.Handler {
	log = log.Named("auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := NewManager(NewCookieStore(codec, w, r), log)
			m.Bootstrap()
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, m)))
		})
	}
}

func FromContext(ctx context.Context) *Manager {
	m, _ := ctx.Value(ctxKey{}).(*Manager)
	return m
}

// CurrentUser is nil when signed out or outside Middleware.
func CurrentUser(ctx context.Context) *models.User {
	if m := FromContext(ctx); m != nil {
		return m.User()
	}
	return nil
}

// RequireSession turns signed-out browsers away: JSON endpoints get 401,
// pages go back to the login form at /.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m := FromContext(r.Context()); m != nil && m.State() != StateSignedOut {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			web.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Sign in or continue as guest"})
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}

// RequireAdmin rejects non-admin sessions: JSON endpoints get 403, pages are
// sent to the login form.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r.Context()).IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			web.WriteJSON(w, http.StatusForbidden, models.ErrorResponse{Error: "Admin access required"})
			return
		}
		target := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, target, http.StatusSeeOther)
	})
}
