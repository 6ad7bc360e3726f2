// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Bidon15/socialauth/internal/auth"
	"github.com/Bidon15/socialauth/internal/models"
	apierrors "github.com/Bidon15/socialauth/internal/pkg/errors"
	"github.com/Bidon15/socialauth/internal/pkg/ulid"
	"github.com/Bidon15/socialauth/internal/repository"
)

// Client-facing messages.
const (
	msgMissingFields    = "Please fill in all fields"
	msgPasswordMismatch = "Password don't match"
	msgUsernameTaken    = "Username already exists"
	msgInvalidFollower  = "Invalid follower"
)

// SignupRequest is the input of AuthService.Signup.
type SignupRequest struct {
	Fullname        string `json:"fullname" validate:"required"`
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
	Gender          string `json:"gender" validate:"required"`
}

// LoginRequest is the input of AuthService.Login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResult is a user together with a freshly issued session token.
type AuthResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// ToggleResult reports which way a follow toggle went. Exactly one field is set.
type ToggleResult struct {
	Created *models.Connection `json:"newConnection,omitempty"`
	Deleted *models.Connection `json:"deletedConnection,omitempty"`
}

// AuthService defines the local authentication and follow operations.
type AuthService interface {
	// Signup validates the request, creates a local user and issues a session.
	Signup(ctx context.Context, req SignupRequest) (*AuthResult, error)

	// Login checks credentials and issues a session.
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)

	// GetUserInfo returns the user behind an authenticated session.
	GetUserInfo(ctx context.Context, userID string) (*models.User, error)

	// ToggleFollow creates the edge followerID -> currentUserID if absent,
	// or deletes it if present.
	ToggleFollow(ctx context.Context, currentUserID, followerID string) (*ToggleResult, error)

	// ValidateSession resolves a session token to a user id.
	ValidateSession(ctx context.Context, token string) (string, error)
}

type authService struct {
	userRepo       repository.UserRepository
	connectionRepo repository.ConnectionRepository
	hasher         auth.PasswordHasher
	tokens         *auth.TokenIssuer
	avatarBaseURL  string
	validate       *validator.Validate
	logger         *slog.Logger
}

// AuthServiceConfig holds the non-repository settings of the auth service.
type AuthServiceConfig struct {
	AvatarBaseURL string
	Logger        *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	connectionRepo repository.ConnectionRepository,
	hasher auth.PasswordHasher,
	tokens *auth.TokenIssuer,
	cfg AuthServiceConfig,
) AuthService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		userRepo:       userRepo,
		connectionRepo: connectionRepo,
		hasher:         hasher,
		tokens:         tokens,
		avatarBaseURL:  strings.TrimRight(cfg.AvatarBaseURL, "/"),
		validate:       newValidator(),
		logger:         logger,
	}
}

func (s *authService) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, apierrors.NewValidationError(verrs[0].Field(), msgMissingFields)
		}
		return nil, apierrors.NewValidationError("", msgMissingFields)
	}

	if req.Password != req.ConfirmPassword {
		return nil, apierrors.NewValidationError("confirmPassword", msgPasswordMismatch)
	}

	existing, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, s.internal("signup", "lookup username", err)
	}
	if existing != nil {
		return nil, apierrors.NewConflictError(msgUsernameTaken)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, s.internal("signup", "hash password", err)
	}

	user := &models.User{
		ID:             uuid.NewString(),
		Fullname:       req.Fullname,
		Username:       req.Username,
		Email:          req.Email,
		Bio:            "",
		PasswordHash:   hash,
		Gender:         req.Gender,
		LoginType:      models.LoginTypeLocal,
		ProfilePicture: s.defaultAvatar(req.Gender, req.Username),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup for the same username.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apierrors.NewConflictError(msgUsernameTaken)
		}
		return nil, s.internal("signup", "create user", err)
	}

	return s.issue("signup", user)
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, s.internal("login", "lookup username", err)
	}
	if user == nil || !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, apierrors.ErrInvalidCredentials
	}

	return s.issue("login", user)
}

func (s *authService) GetUserInfo(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, s.internal("getUserInfo", "lookup user", err)
	}
	if user == nil {
		return nil, apierrors.ErrInvalidCredentials
	}
	return user, nil
}

func (s *authService) ToggleFollow(ctx context.Context, currentUserID, followerID string) (*ToggleResult, error) {
	if followerID == "" {
		return nil, apierrors.NewValidationError("followerId", msgInvalidFollower)
	}

	follower, err := s.userRepo.GetByID(ctx, followerID)
	if err != nil {
		return nil, s.internal("toggleFollow", "lookup follower", err)
	}
	if follower == nil {
		return nil, apierrors.NewValidationError("followerId", msgInvalidFollower)
	}

	existing, err := s.connectionRepo.Find(ctx, followerID, currentUserID)
	if err != nil {
		return nil, s.internal("toggleFollow", "find connection", err)
	}

	if existing != nil {
		if err := s.connectionRepo.Delete(ctx, existing.ID); err != nil {
			return nil, s.internal("toggleFollow", "delete connection", err)
		}
		return &ToggleResult{Deleted: existing}, nil
	}

	conn := &models.Connection{
		ID:          ulid.New(),
		FollowerID:  followerID,
		FollowingID: currentUserID,
	}
	if err := s.connectionRepo.Create(ctx, conn); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, s.internal("toggleFollow", "create connection", err)
		}
		// A concurrent toggle created the edge first; report that edge.
		winner, findErr := s.connectionRepo.Find(ctx, followerID, currentUserID)
		if findErr != nil || winner == nil {
			return nil, s.internal("toggleFollow", "reload connection", errors.Join(err, findErr))
		}
		conn = winner
	}

	return &ToggleResult{Created: conn}, nil
}

func (s *authService) ValidateSession(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apierrors.ErrUnauthorized
	}
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return "", apierrors.ErrUnauthorized.WithMessage("Unauthorized - Invalid Token")
	}
	return userID, nil
}

// newValidator reports JSON field names in validation errors.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// defaultAvatar builds the generated avatar URL for a local signup.
func (s *authService) defaultAvatar(gender, username string) string {
	kind := "girl"
	if gender == "male" {
		kind = "boy"
	}
	return fmt.Sprintf("%s/%s?username=%s", s.avatarBaseURL, kind, url.QueryEscape(username))
}

func (s *authService) issue(op string, user *models.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, s.internal(op, "issue token", err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// internal logs err and returns the generic internal error.
func (s *authService) internal(op, step string, err error) error {
	s.logger.Error("auth operation failed",
		slog.String("operation", op),
		slog.String("step", step),
		slog.String("error", err.Error()),
	)
	return apierrors.ErrInternal
}

// Compile-time check to ensure authService implements AuthService.
var _ AuthService = (*authService)(nil)
