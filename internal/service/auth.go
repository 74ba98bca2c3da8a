package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tagwright/tagwright-server/internal/auth"
	"github.com/tagwright/tagwright-server/internal/domain"
	domainerrors "github.com/tagwright/tagwright-server/internal/errors"
	"github.com/tagwright/tagwright-server/internal/id"
	"github.com/tagwright/tagwright-server/internal/store"
	"github.com/tagwright/tagwright-server/internal/validation"
)

// AuthService handles accounts, login and access token verification.
type AuthService struct {
	store        store.Store
	tokenService *auth.TokenService
	validate     *validation.Validator
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(store store.Store, tokenService *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:        store,
		tokenService: tokenService,
		validate:     validation.New(),
		logger:       logger,
	}
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Name     string `json:"name" validate:"required,max=32"`
	Password string `json:"password" validate:"required,max=1024"`
}

// LoginResponse carries the access token issued on login.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // seconds
	User        *domain.User `json:"user"`
}

// CreateUserRequest contains the data for a new account.
type CreateUserRequest struct {
	Name     string       `json:"name" validate:"required,username"`
	Password string       `json:"password" validate:"required,min=8,max=1024"`
	Level    domain.Level `json:"level" validate:"required"`
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByName(ctx, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.InvalidCredentials("invalid name or password")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, domainerrors.InvalidCredentials("invalid name or password")
	}

	token, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID, "name", user.Name)

	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokenService.AccessTokenDuration().Seconds()),
		User:        user,
	}, nil
}

// VerifyAccessToken validates a token and loads its user. The user's current
// level from the store wins over the level recorded in the token.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(token)
	if err != nil {
		return nil, nil, domainerrors.Unauthorized("invalid or expired access token").WithCause(err)
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.Unauthorized("user no longer exists")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	return user, claims, nil
}

// CreateUser registers an account with a hashed password.
func (s *AuthService) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}
	if req.Level.String() == "unknown" {
		return nil, domainerrors.Validationf("level %d is not a known user level", int(req.Level))
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           userID,
		Name:         req.Name,
		Level:        req.Level,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExistsf("user name %q is already taken", req.Name)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created", "user_id", user.ID, "name", user.Name, "level", user.Level.String())
	return user, nil
}

// GetUserByName returns a user by name, ignoring case.
func (s *AuthService) GetUserByName(ctx context.Context, name string) (*domain.User, error) {
	user, err := s.store.GetUserByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("user %q not found", name)
	}
	return user, err
}
