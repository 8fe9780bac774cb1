package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/internal/notifications"
	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/pagination"
	"github.com/yorishop/yori-backend/pkg/types"
)

// Emitter delivers best-effort notifications.
type Emitter interface {
	Emit(ctx context.Context, input notifications.EmitInput)
}

// ProfileDTO is the user projection returned to clients.
type ProfileDTO struct {
	ID          uuid.UUID        `json:"id"`
	Email       string           `json:"email"`
	FullName    string           `json:"full_name"`
	Phone       *string          `json:"phone,omitempty"`
	Role        enums.UserRole   `json:"role"`
	Status      enums.UserStatus `json:"status"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ListDTO wraps a page of users plus pagination metadata.
type ListDTO struct {
	Items      []ProfileDTO    `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

// UpdateProfileInput carries the optional fields a user may change.
type UpdateProfileInput struct {
	FullName *string
	Phone    *string
}

// Service exposes profile management plus admin user administration.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error)

	ListUsers(ctx context.Context, params pagination.Params, filters ListFilters) (*ListDTO, error)
	SetRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) (*ProfileDTO, error)
	Ban(ctx context.Context, userID uuid.UUID, reason string) (*ProfileDTO, error)
	Unban(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
}

// ServiceParams groups dependencies for the user service.
type ServiceParams struct {
	Repo    Repository
	Emitter Emitter
}

type service struct {
	repo    Repository
	emitter Emitter
}

// NewService builds a user service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user repo is required")
	}
	if params.Emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification emitter is required")
	}
	return &service{repo: params.Repo, emitter: params.Emitter}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := toProfileDTO(*user)
	return &dto, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error) {
	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name cannot be empty")
		}
		updates["full_name"] = name
	}
	if input.Phone != nil {
		updates["phone"] = strings.TrimSpace(*input.Phone)
	}

	if len(updates) > 0 {
		if err := s.repo.UpdateFields(ctx, userID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
		}
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := toProfileDTO(*user)
	return &dto, nil
}

func (s *service) ListUsers(ctx context.Context, params pagination.Params, filters ListFilters) (*ListDTO, error) {
	users, total, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	items := make([]ProfileDTO, 0, len(users))
	for _, user := range users {
		items = append(items, toProfileDTO(user))
	}
	return &ListDTO{
		Items:      items,
		Pagination: pagination.NewMeta(params, total),
	}, nil
}

func (s *service) SetRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) (*ProfileDTO, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid user role")
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, userID, map[string]any{"role": role}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	user.Role = role

	dto := toProfileDTO(*user)
	return &dto, nil
}

// Ban locks the account out and tells the user why.
func (s *service) Ban(ctx context.Context, userID uuid.UUID, reason string) (*ProfileDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status == enums.UserStatusBanned {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "user already banned")
	}
	if user.Role == enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admins cannot be banned")
	}

	if err := s.repo.UpdateFields(ctx, userID, map[string]any{"status": enums.UserStatusBanned}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ban user")
	}
	user.Status = enums.UserStatusBanned

	message := "Your account has been suspended"
	if strings.TrimSpace(reason) != "" {
		message = "Your account has been suspended: " + reason
	}
	s.emitter.Emit(ctx, notifications.EmitInput{
		UserID:  userID,
		Type:    enums.NotificationTypeAccountBanned,
		Title:   "Account suspended",
		Message: message,
		Data:    types.JSONMap{"user_id": userID.String()},
	})

	dto := toProfileDTO(*user)
	return &dto, nil
}

func (s *service) Unban(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != enums.UserStatusBanned {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "user is not banned")
	}
	if err := s.repo.UpdateFields(ctx, userID, map[string]any{"status": enums.UserStatusVerified}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unban user")
	}
	user.Status = enums.UserStatusVerified

	dto := toProfileDTO(*user)
	return &dto, nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func toProfileDTO(u models.User) ProfileDTO {
	return ProfileDTO{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Phone:       u.Phone,
		Role:        u.Role,
		Status:      u.Status,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
