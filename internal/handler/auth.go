package handler

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/botpanel/internal/auth"
	"github.com/sakif/botpanel/internal/service"
)

const stateCookie = "oauth_state"

// OAuthProvider is the Discord side of the login flow.
// *auth.DiscordProvider is the production implementation.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.DiscordUser, error)
}

// AuthHandler manages the Discord OAuth login flow and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin    → redirect the browser to Discord's authorization page
//   - HandleCallback → receive the code, exchange it for a user, open a session
//   - HandleLogout   → end the session and clear the cookie
//   - HandleMe       → return the currently logged-in user
type AuthHandler struct {
	provider      OAuthProvider
	auth          *service.AuthService
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. provider may be nil when Discord
// login is not configured; the login routes then answer 503.
func NewAuthHandler(provider OAuthProvider, authService *service.AuthService, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		provider:      provider,
		auth:          authService,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

func (h *AuthHandler) loginDisabled(w http.ResponseWriter) bool {
	if h.provider != nil {
		return false
	}
	writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
		Error:   "unavailable",
		Message: "Discord login is not configured",
	})
	return true
}

// HandleLogin redirects the user to Discord's authorization page.
//
// HTTP: GET /auth/discord/login
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived HttpOnly cookie and sent to
// Discord. HandleCallback only proceeds if Discord echoes the same value.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.loginDisabled(w) {
		return
	}

	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth login flow.
//
// HTTP: GET /auth/discord/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for the Discord user
//  3. Upsert the user and open a session (AuthService.Authenticate)
//  4. Set the session cookie and redirect home
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if h.loginDisabled(w) {
		return
	}

	// --- Step 1: Validate CSRF state ---
	sc, err := r.Cookie(stateCookie)
	if err != nil || sc.Value == "" || r.URL.Query().Get("state") != sc.Value {
		h.logger.Warn("auth callback: missing or mismatched state")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid OAuth state",
		})
		return
	}

	// The state cookie is single-use
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "missing OAuth code",
		})
		return
	}

	// --- Step 2: Exchange code for the Discord user ---
	du, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: Discord exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "upstream_failure",
			Message: "authentication with Discord failed",
		})
		return
	}

	// --- Step 3: Upsert user and open session ---
	res, err := h.auth.Authenticate(r.Context(), du, clientIP(r))
	if err != nil {
		h.logger.Error("auth callback: authenticate failed",
			slog.String("discordID", du.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	// --- Step 4: Session cookie ---
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    res.Cookie,
		Path:     "/",
		MaxAge:   h.auth.SessionTTL(),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout ends the session and deletes the cookie. Always 200.
//
// HTTP: POST /api/auth/logout
//
// WHY POST AND NOT GET?
// Logout changes state. A GET could be triggered by a cross-site image tag or
// a browser prefetch.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.SessionCookie); err == nil {
		h.auth.Logout(r.Context(), c.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the current user.
//
// HTTP: GET /api/user
// Auth: Required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// callerFrom builds the service Caller for an authenticated request. Only
// called on routes behind auth.RequireAuth.
func callerFrom(w http.ResponseWriter, r *http.Request) (service.Caller, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return service.Caller{}, false
	}
	return service.CallerFor(user, clientIP(r)), true
}

// clientIP returns the request's remote host. chi's RealIP middleware has
// already replaced RemoteAddr from X-Forwarded-For when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
