// Package handler provides HTTP handlers for the auth API.
package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/Bidon15/socialauth/internal/auth"
	"github.com/Bidon15/socialauth/internal/middleware"
	apierrors "github.com/Bidon15/socialauth/internal/pkg/errors"
	"github.com/Bidon15/socialauth/internal/pkg/response"
	"github.com/Bidon15/socialauth/internal/service"
)

// OAuthStateCookie is the gorilla session holding the pending OAuth state.
const OAuthStateCookie = "socialauth_oauth_state"

const msgInvalidBody = "Invalid request body"

// oauthStateTTL bounds the time between redirect and callback, in seconds.
const oauthStateTTL = 300

// AuthHandler handles authentication HTTP requests.
type AuthHandler struct {
	authService   service.AuthService
	oauthService  service.OAuthService
	sessionStore  sessions.Store
	secureCookies bool
	logger        *slog.Logger
}

// AuthHandlerConfig configures NewAuthHandler.
type AuthHandlerConfig struct {
	// SecureCookies marks the session cookie Secure (production).
	SecureCookies bool
	Logger        *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(
	authService service.AuthService,
	oauthService service.OAuthService,
	sessionStore sessions.Store,
	cfg AuthHandlerConfig,
) *AuthHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authService:   authService,
		oauthService:  oauthService,
		sessionStore:  sessionStore,
		secureCookies: cfg.SecureCookies,
		logger:        logger,
	}
}

// NewSessionStore creates the cookie store used for OAuth state.
// SameSite=Lax lets the cookie survive the redirect back from the provider.
func NewSessionStore(secret string, secure bool) sessions.Store {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   oauthStateTTL,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Routes returns a chi router with the auth routes.
// rateLimit may be nil to disable limiting.
func (h *AuthHandler) Routes(rateLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Public endpoints
	r.Group(func(r chi.Router) {
		if rateLimit != nil {
			r.Use(rateLimit)
		}
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Get("/login/google", h.GoogleLogin)
		r.Get("/login/google/callback", h.GoogleCallback)
	})
	r.Post("/logout", h.Logout)

	// Session required
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(h.authService.ValidateSession))
		r.Get("/getUserInfo", h.GetUserInfo)
		r.Post("/toggleFollow", h.ToggleFollow)
	})

	return r
}

// Signup handles POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, msgInvalidBody)
		return
	}

	res, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		middleware.RecordAuthEvent("signup", "failure")
		response.Error(w, err)
		return
	}
	middleware.RecordAuthEvent("signup", "success")

	auth.SetSessionCookie(w, res.Token, res.ExpiresAt, h.secureCookies)
	response.Created(w, res.User.PublicView())
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, msgInvalidBody)
		return
	}

	res, err := h.authService.Login(r.Context(), req)
	if err != nil {
		middleware.RecordAuthEvent("login", "failure")
		response.Error(w, err)
		return
	}
	middleware.RecordAuthEvent("login", "success")

	auth.SetSessionCookie(w, res.Token, res.ExpiresAt, h.secureCookies)
	response.OK(w, res.User.PublicView())
}

// Logout handles POST /logout. It never fails and needs no session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	response.OK(w, "Logged out successfully")
}

// GetUserInfo handles GET /getUserInfo
func (h *AuthHandler) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserInfo(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, user.PublicView())
}

// ToggleFollowHTTPRequest is the HTTP request body for toggling a follow edge.
type ToggleFollowHTTPRequest struct {
	FollowerID string `json:"followerId"`
}

// ToggleFollow handles POST /toggleFollow
func (h *AuthHandler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	var req ToggleFollowHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, msgInvalidBody)
		return
	}

	res, err := h.authService.ToggleFollow(r.Context(), middleware.GetUserID(r.Context()), req.FollowerID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, res)
}

// GoogleLogin handles GET /login/google by redirecting to the consent screen.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.oauthService.Enabled() {
		response.Error(w, apierrors.ErrServiceUnavailable.WithMessage("Google login is not configured"))
		return
	}

	// Generate state for CSRF protection
	state, err := generateSecureState()
	if err != nil {
		h.logger.Error("generate oauth state", slog.String("error", err.Error()))
		response.InternalError(w)
		return
	}

	session, _ := h.sessionStore.Get(r, OAuthStateCookie)
	session.Values["state"] = state
	session.Options.MaxAge = oauthStateTTL
	if err := session.Save(r, w); err != nil {
		h.logger.Error("save oauth state", slog.String("error", err.Error()))
		response.InternalError(w)
		return
	}

	authURL, err := h.oauthService.GetAuthURL(state)
	if err != nil {
		response.Error(w, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback handles GET /login/google/callback
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Consent denied or provider-side failure
	if errMsg := query.Get("error"); errMsg != "" {
		h.logger.Warn("oauth provider returned error", slog.String("error", errMsg))
		middleware.RecordAuthEvent("google", "failure")
		response.Error(w, apierrors.ErrOAuth)
		return
	}

	session, _ := h.sessionStore.Get(r, OAuthStateCookie)
	savedState, ok := session.Values["state"].(string)
	if !ok || savedState == "" || savedState != query.Get("state") {
		middleware.RecordAuthEvent("google", "failure")
		response.Error(w, apierrors.ErrInvalidCredentials.WithMessage("Invalid OAuth state"))
		return
	}

	// State is single use
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		h.logger.Warn("clear oauth state", slog.String("error", err.Error()))
	}

	res, err := h.oauthService.HandleCallback(r.Context(), query.Get("code"))
	if err != nil {
		middleware.RecordAuthEvent("google", "failure")
		response.Error(w, err)
		return
	}
	middleware.RecordAuthEvent("google", "success")

	auth.SetSessionCookie(w, res.Token, res.ExpiresAt, h.secureCookies)
	response.OK(w, res.User.OAuthView())
}

func generateSecureState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
