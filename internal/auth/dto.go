package auth

import (
	"github.com/yorishop/yori-backend/internal/users"
)

// RegisterInput carries the self-service signup fields.
type RegisterInput struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	FullName string  `json:"full_name" validate:"required"`
	Phone    *string `json:"phone,omitempty"`
	IP       string  `json:"-"`
}

// LoginInput carries the credential pair plus the caller IP for rate limiting.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	IP       string `json:"-"`
}

// RefreshInput carries the expired access token and its refresh counterpart.
type RefreshInput struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChangePasswordInput rotates the stored credential for the current user.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// TokenPairDTO is the issued access/refresh pair.
type TokenPairDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// SessionDTO bundles the authenticated user with their fresh tokens.
type SessionDTO struct {
	User   users.ProfileDTO `json:"user"`
	Tokens TokenPairDTO     `json:"tokens"`
}
