package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Bidon15/socialauth/internal/auth"
	"github.com/Bidon15/socialauth/internal/config"
	"github.com/Bidon15/socialauth/internal/models"
	apierrors "github.com/Bidon15/socialauth/internal/pkg/errors"
	"github.com/Bidon15/socialauth/internal/repository"
)

// GoogleUserInfoURL is the Google profile endpoint.
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleCallbackPath is where Google redirects after consent.
const GoogleCallbackPath = "/api/auth/login/google/callback"

// OAuthUserInfo contains user information fetched from the identity provider.
type OAuthUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// OAuthService defines the Google login flow.
type OAuthService interface {
	// Enabled reports whether Google credentials are configured.
	Enabled() bool

	// GetAuthURL returns the Google authorization URL for the given state.
	GetAuthURL(state string) (string, error)

	// HandleCallback exchanges code, finds or creates the user and issues a session.
	HandleCallback(ctx context.Context, code string) (*AuthResult, error)
}

// NewGoogleOAuthConfig builds the OAuth client configuration from settings.
// It returns nil when Google credentials are not configured.
func NewGoogleOAuthConfig(cfg config.AuthConfig) *oauth2.Config {
	if !cfg.GoogleEnabled() {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.OAuthGoogleID,
		ClientSecret: cfg.OAuthGoogleSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  strings.TrimRight(cfg.OAuthCallbackURL, "/") + GoogleCallbackPath,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/userinfo.email",
		},
	}
}

// OAuthServiceConfig configures NewOAuthService.
type OAuthServiceConfig struct {
	// OAuth2 is the provider configuration; nil disables the flow.
	OAuth2 *oauth2.Config
	// UserInfoURL defaults to GoogleUserInfoURL.
	UserInfoURL string
	// HTTPClient is the base client for provider calls; defaults to http.DefaultClient.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type oauthService struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	userRepo    repository.UserRepository
	hasher      auth.PasswordHasher
	tokens      *auth.TokenIssuer
	logger      *slog.Logger
}

// NewOAuthService creates a new OAuth service.
func NewOAuthService(
	userRepo repository.UserRepository,
	hasher auth.PasswordHasher,
	tokens *auth.TokenIssuer,
	cfg OAuthServiceConfig,
) OAuthService {
	svc := &oauthService{
		oauth:       cfg.OAuth2,
		userInfoURL: cfg.UserInfoURL,
		httpClient:  cfg.HTTPClient,
		userRepo:    userRepo,
		hasher:      hasher,
		tokens:      tokens,
		logger:      cfg.Logger,
	}
	if svc.userInfoURL == "" {
		svc.userInfoURL = GoogleUserInfoURL
	}
	if svc.httpClient == nil {
		svc.httpClient = http.DefaultClient
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

func (s *oauthService) Enabled() bool {
	return s.oauth != nil
}

func (s *oauthService) GetAuthURL(state string) (string, error) {
	if s.oauth == nil {
		return "", apierrors.ErrServiceUnavailable.WithMessage("Google login is not configured")
	}
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

func (s *oauthService) HandleCallback(ctx context.Context, code string) (*AuthResult, error) {
	if s.oauth == nil {
		return nil, apierrors.ErrServiceUnavailable.WithMessage("Google login is not configured")
	}
	if code == "" {
		return nil, apierrors.NewValidationError("code", "Missing authorization code")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	// Exchange authorization code for access token
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, s.providerError("token exchange failed", err)
	}

	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, s.providerError("fetch user info failed", err)
	}

	user, err := s.findOrCreateUser(ctx, info)
	if err != nil {
		return nil, err
	}

	signed, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("oauth callback: issue token", slog.String("error", err.Error()))
		return nil, apierrors.ErrInternal
	}

	return &AuthResult{User: user, Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *oauthService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*OAuthUserInfo, error) {
	client := s.oauth.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Google user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google API returned status %d", resp.StatusCode)
	}

	var info OAuthUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode Google user response: %w", err)
	}
	if info.ID == "" {
		return nil, errors.New("google user response has no id")
	}

	return &info, nil
}

// findOrCreateUser keys Google accounts by the provider id, which becomes the local user id.
func (s *oauthService) findOrCreateUser(ctx context.Context, info *OAuthUserInfo) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, info.ID)
	if err != nil {
		return nil, s.storeError("lookup user", err)
	}
	if user != nil {
		return user, nil
	}

	// The account has no usable password; the hash only fills the column.
	hash, err := s.hasher.Hash(info.ID)
	if err != nil {
		return nil, s.storeError("hash synthetic password", err)
	}

	username := info.Email
	if username == "" {
		username = "google_" + info.ID
	}

	user = &models.User{
		ID:             info.ID,
		Fullname:       info.Name,
		Username:       username,
		Email:          info.Email,
		Bio:            "",
		PasswordHash:   hash,
		LoginType:      models.LoginTypeGoogle,
		ProfilePicture: info.Picture,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, s.storeError("create user", err)
		}
		// Either a concurrent callback created this id, or a local account owns the username.
		existing, getErr := s.userRepo.GetByID(ctx, info.ID)
		if getErr != nil {
			return nil, s.storeError("reload user", getErr)
		}
		if existing == nil {
			return nil, apierrors.NewConflictError(msgUsernameTaken)
		}
		return existing, nil
	}

	return user, nil
}

func (s *oauthService) providerError(msg string, err error) error {
	s.logger.Error("oauth callback: "+msg, slog.String("error", err.Error()))
	return apierrors.ErrOAuth
}

func (s *oauthService) storeError(step string, err error) error {
	s.logger.Error("oauth callback failed", slog.String("step", step), slog.String("error", err.Error()))
	return apierrors.ErrInternal
}

// Compile-time check to ensure oauthService implements OAuthService.
var _ OAuthService = (*oauthService)(nil)
