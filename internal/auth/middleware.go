package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/botpanel/internal/apperror"
	"github.com/sakif/botpanel/internal/model"
)

// SessionCookie is the name of the cookie holding the signed session token.
const SessionCookie = "session"

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. A plain string key could be read
// or shadowed by any package that knows the string. Only this package can
// create a contextKey, so only this package can read or write the user.
type contextKey string

const userKey contextKey = "user"

// UserResolver turns a session cookie into the user it belongs to. It returns
// an apperror.ErrUnauthenticated error when the cookie names no live session.
type UserResolver interface {
	CurrentUser(ctx context.Context, cookie string) (*model.User, error)
}

// RequireAuth rejects requests without a valid session with 401 and stores the
// caller in the request context otherwise.
//
// The user row is loaded on every request rather than carried in the cookie,
// so an admin flag granted or revoked takes effect on the next request.
func RequireAuth(resolver UserResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var cookie string
			if c, err := r.Cookie(SessionCookie); err == nil {
				cookie = c.Value
			}

			user, err := resolver.CurrentUser(r.Context(), cookie)
			if err != nil {
				if errors.Is(err, apperror.ErrUnauthenticated) {
					writeAuthError(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
					return
				}
				logger.Error("resolving session failed", slog.String("error", err.Error()))
				writeAuthError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireAdmin must run after RequireAuth. It answers 403 for authenticated
// callers that are not admins, and 401 if RequireAuth did not run.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
			return
		}
		if !user.IsAdmin {
			writeAuthError(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated user from the request context.
// Returns (nil, false) outside RequireAuth-protected routes.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

func writeAuthError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + errType + `","message":"` + message + `"}` + "\n"))
}
