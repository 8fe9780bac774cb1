package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/logger"
	"github.com/yorishop/yori-backend/pkg/pagination"
	"github.com/yorishop/yori-backend/pkg/types"
)

// Publisher is the slice of the redis client the emitter needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
	NotificationChannel(userID string) string
}

// Service exposes in-app notifications plus the best-effort emitter other
// domains call after their own work commits.
type Service interface {
	Emit(ctx context.Context, input EmitInput)
	EmitBroadcast(ctx context.Context, input BroadcastInput)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params, unreadOnly bool) (*ListDTO, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, notificationID uuid.UUID) error
}

// EmitInput carries one notification to deliver.
type EmitInput struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	Title   string
	Message string
	Data    types.JSONMap
}

// BroadcastInput carries one notification to deliver to every active user.
type BroadcastInput struct {
	Type    enums.NotificationType
	Title   string
	Message string
	Data    types.JSONMap
}

// ServiceParams groups dependencies for the notification service.
type ServiceParams struct {
	Repo      Repository
	Publisher Publisher
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	publisher Publisher
	logg      *logger.Logger
}

// NewService builds a notification service. The publisher is optional; without
// one, notifications are stored but not pushed.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification repo is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:      params.Repo,
		publisher: params.Publisher,
		logg:      params.Logger,
	}, nil
}

// Emit stores the notification and pushes it to the user's channel. Failures
// are logged and swallowed so callers never roll back on notification errors.
func (s *service) Emit(ctx context.Context, input EmitInput) {
	if input.UserID == uuid.Nil || !input.Type.IsValid() {
		s.logg.Warn(ctx, "dropping notification with invalid user or type")
		return
	}

	notification := &models.Notification{
		UserID:  input.UserID,
		Type:    input.Type,
		Title:   input.Title,
		Message: input.Message,
		Data:    input.Data,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		s.logg.Error(ctx, "failed to store notification", err)
		return
	}

	if s.publisher == nil {
		return
	}
	channel := s.publisher.NotificationChannel(input.UserID.String())
	if err := s.publisher.Publish(ctx, channel, toDTO(*notification)); err != nil {
		s.logg.Error(ctx, "failed to publish notification", err)
	}
}

// EmitBroadcast fans one notification out to every non-banned user. Like
// Emit it is best-effort: a failed delivery is logged and the rest continue.
func (s *service) EmitBroadcast(ctx context.Context, input BroadcastInput) {
	if !input.Type.IsValid() {
		s.logg.Warn(ctx, "dropping broadcast with invalid type")
		return
	}

	userIDs, err := s.repo.ActiveUserIDs(ctx)
	if err != nil {
		s.logg.Error(ctx, "failed to load broadcast recipients", err)
		return
	}
	for _, userID := range userIDs {
		s.Emit(ctx, EmitInput{
			UserID:  userID,
			Type:    input.Type,
			Title:   input.Title,
			Message: input.Message,
			Data:    input.Data,
		})
	}
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params, unreadOnly bool) (*ListDTO, error) {
	notifications, total, err := s.repo.List(ctx, userID, params, unreadOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	items := make([]DTO, 0, len(notifications))
	for _, notification := range notifications {
		items = append(items, toDTO(notification))
	}
	return &ListDTO{
		Items:      items,
		Pagination: pagination.NewMeta(params, total),
	}, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, userID, notificationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification")
	}
	if _, err := s.repo.MarkRead(ctx, userID, notificationID, time.Now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	affected, err := s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return affected, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, userID, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notification")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}
