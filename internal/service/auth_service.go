package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"techatlas/internal/middleware"
	"techatlas/internal/models"
	"techatlas/internal/repository"
	"techatlas/internal/validation"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is the lifetime of locally issued access tokens.
const TokenTTL = 7 * 24 * time.Hour

const blacklistPrefix = "blacklist:"

// SignupInput is the body of a local account registration.
type SignupInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Session is a signed token and the account it belongs to.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AuthService handles local accounts and token revocation.
type AuthService struct {
	users  repository.UserRepository
	redis  *redis.Client
	secret string
	now    func() time.Time
}

// NewAuthService returns an AuthService. rdb may be nil, in which case
// logout cannot revoke tokens before they expire.
func NewAuthService(users repository.UserRepository, rdb *redis.Client, secret string) *AuthService {
	return &AuthService{users: users, redis: rdb, secret: secret, now: time.Now}
}

// Signup registers a local account with the user role.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("username, email and password are required")
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("an account with this email already exists", nil)
	}
	if existing, err = s.users.GetByUsername(ctx, in.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewConflictError("this username is taken", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username:    in.Username,
		Email:       in.Email,
		Password:    string(hash),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Role:        models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

// Login verifies email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil || user.Password == "" {
		return nil, models.NewUnauthenticatedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthenticatedError("invalid credentials")
	}
	return s.issue(ctx, user)
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*Session, error) {
	if s.secret == "" {
		return nil, models.NewConfigurationError("JWT secret not configured")
	}
	token, claims, err := middleware.IssueToken(s.secret, user.ID, TokenTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	now := s.now().UTC()
	if err := s.users.TouchLogin(ctx, user.ID, now); err != nil {
		middleware.LoggerFromContext(ctx).Warn("failed to record login time", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	user.LastLoginAt = &now
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt, User: user}, nil
}

// Logout revokes the token identified by claims until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *middleware.Claims) error {
	if claims == nil || claims.JTI == "" {
		return models.NewValidationError("token has no id to revoke")
	}
	if s.redis == nil {
		return models.NewConfigurationError("token revocation requires Redis")
	}
	ttl := time.Until(claims.ExpiresAt)
	if claims.ExpiresAt.IsZero() || ttl <= 0 {
		ttl = TokenTTL
	}
	if err := s.redis.Set(ctx, blacklistPrefix+claims.JTI, "1", ttl).Err(); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Revoked reports whether jti was logged out. Without Redis nothing is revoked.
func (s *AuthService) Revoked(ctx context.Context, jti string) (bool, error) {
	if s.redis == nil || jti == "" {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return n > 0, nil
}

// Me returns the account behind an authenticated request.
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}
