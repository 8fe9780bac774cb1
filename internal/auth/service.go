package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/internal/users"
	"github.com/yorishop/yori-backend/pkg/auth"
	"github.com/yorishop/yori-backend/pkg/auth/session"
	"github.com/yorishop/yori-backend/pkg/config"
	"github.com/yorishop/yori-backend/pkg/db"
	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/logger"
	"github.com/yorishop/yori-backend/pkg/security"
)

const minPasswordLen = 8

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// SessionManager issues, rotates, and revokes refresh sessions.
type SessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// RateLimiter applies fixed-window counters keyed by scope.
// *redis.Client satisfies it.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Service implements registration, credential login, and session lifecycle.
type Service struct {
	repo      users.Repository
	sessions  SessionManager
	limiter   RateLimiter
	jwt       config.JWTConfig
	password  config.PasswordConfig
	rateLimit config.AuthRateLimitConfig
	logg      *logger.Logger
	now       func() time.Time
}

// ServiceParams lists the dependencies required by NewService.
type ServiceParams struct {
	Repo      users.Repository
	Sessions  SessionManager
	Limiter   RateLimiter
	JWT       config.JWTConfig
	Password  config.PasswordConfig
	RateLimit config.AuthRateLimitConfig
	Logger    *logger.Logger
	Now       func() time.Time
}

// NewService validates dependencies and returns an auth service.
func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("user repository is required")
	case params.Sessions == nil:
		return nil, fmt.Errorf("session manager is required")
	case params.Limiter == nil:
		return nil, fmt.Errorf("rate limiter is required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      params.Repo,
		sessions:  params.Sessions,
		limiter:   params.Limiter,
		jwt:       params.JWT,
		password:  params.Password,
		rateLimit: params.RateLimit,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// Register creates a customer account with an argon2id password hash.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*users.ProfileDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	fullName := strings.TrimSpace(input.FullName)

	switch {
	case email == "" || !emailPattern.MatchString(email):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	case len(input.Password) < minPasswordLen:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	case fullName == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}

	if err := s.allow(ctx, "register:email:"+email, s.rateLimit.RegisterEmailLimit, s.rateLimit.RegisterWindow); err != nil {
		return nil, err
	}
	if ip := strings.TrimSpace(input.IP); ip != "" {
		if err := s.allow(ctx, "register:ip:"+ip, s.rateLimit.RegisterIPLimit, s.rateLimit.RegisterWindow); err != nil {
			return nil, err
		}
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Phone:        input.Phone,
		Role:         enums.UserRoleCustomer,
		Status:       enums.UserStatusUnverified,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "users_email_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email is already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating user")
	}

	profile := toProfile(user)
	return &profile, nil
}

// Login verifies credentials and mints a fresh access/refresh pair.
func (s *Service) Login(ctx context.Context, input LoginInput) (*SessionDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	if err := s.allow(ctx, "login:email:"+email, s.rateLimit.LoginEmailLimit, s.rateLimit.LoginWindow); err != nil {
		return nil, err
	}
	if ip := strings.TrimSpace(input.IP); ip != "" {
		if err := s.allow(ctx, "login:ip:"+ip, s.rateLimit.LoginIPLimit, s.rateLimit.LoginWindow); err != nil {
			return nil, err
		}
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	}
	if user.Status == enums.UserStatusBanned {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is banned")
	}

	tokens, err := s.issueTokens(ctx, user, session.NewAccessID())
	if err != nil {
		return nil, err
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logg.Warn(ctx, "failed to record last login: "+err.Error())
	}

	return &SessionDTO{User: toProfile(user), Tokens: *tokens}, nil
}

// Refresh rotates the refresh session tied to the presented access token.
func (s *Service) Refresh(ctx context.Context, input RefreshInput) (*SessionDTO, error) {
	if input.AccessToken == "" || input.RefreshToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access and refresh tokens are required")
	}

	claims, err := auth.ParseAccessTokenAllowExpired(s.jwt, input.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotating session")
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		_ = s.sessions.Revoke(ctx, newAccessID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading user")
	}
	if user.Status == enums.UserStatusBanned {
		_ = s.sessions.Revoke(ctx, newAccessID)
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is banned")
	}

	accessToken, err := auth.MintAccessToken(s.jwt, s.now(), auth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    newAccessID,
	})
	if err != nil {
		_ = s.sessions.Revoke(ctx, newAccessID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}

	tokens := TokenPairDTO{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresIn:    int64(s.jwt.ExpirationMinutes) * 60,
	}
	return &SessionDTO{User: toProfile(user), Tokens: tokens}, nil
}

// Logout revokes the refresh session behind the presented access ID.
func (s *Service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access id is required")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoking session")
	}
	return nil
}

// ChangePassword verifies the current credential before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	if len(input.NewPassword) < minPasswordLen {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading user")
	}

	ok, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := security.HashPassword(input.NewPassword, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}
	if err := s.repo.UpdateFields(ctx, user.ID, map[string]any{"password_hash": hash}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating password")
	}
	return nil
}

func (s *Service) issueTokens(ctx context.Context, user *models.User, accessID string) (*TokenPairDTO, error) {
	accessToken, err := auth.MintAccessToken(s.jwt, s.now(), auth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}

	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing refresh session")
	}

	return &TokenPairDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwt.ExpirationMinutes) * 60,
	}, nil
}

func (s *Service) allow(ctx context.Context, scope string, limit int, window time.Duration) error {
	if limit <= 0 || window <= 0 {
		return nil
	}
	allowed, _, err := s.limiter.FixedWindowAllow(ctx, scope, int64(limit), window)
	if err != nil {
		s.logg.Warn(ctx, "rate limit check failed, allowing request: "+err.Error())
		return nil
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later")
	}
	return nil
}

func toProfile(user *models.User) users.ProfileDTO {
	return users.ProfileDTO{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		Phone:       user.Phone,
		Role:        user.Role,
		Status:      user.Status,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}
