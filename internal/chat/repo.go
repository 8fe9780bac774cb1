package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	"github.com/yorishop/yori-backend/pkg/pagination"
)

// Repository exposes persistence helpers for support conversations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateConversation(ctx context.Context, conversation *models.ChatConversation) error
	FindConversation(ctx context.Context, conversationID uuid.UUID) (*models.ChatConversation, error)
	FindActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*models.ChatConversation, error)
	UpdateConversation(ctx context.Context, conversationID uuid.UUID, updates map[string]any) error
	ListConversations(ctx context.Context, params pagination.Params, filters ConversationFilters) ([]models.ChatConversation, int64, error)

	CreateMessage(ctx context.Context, message *models.ChatMessage) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, params pagination.Params) ([]models.ChatMessage, int64, error)
	MarkMessagesRead(ctx context.Context, conversationID uuid.UUID, readerRole enums.ChatSenderRole, at time.Time) (int64, error)
}

// ConversationFilters describe the inputs supported by conversation listings.
type ConversationFilters struct {
	CustomerID *uuid.UUID
	Status     *enums.ConversationStatus
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a chat repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateConversation(ctx context.Context, conversation *models.ChatConversation) error {
	return r.db.WithContext(ctx).Create(conversation).Error
}

func (r *repositoryImpl) FindConversation(ctx context.Context, conversationID uuid.UUID) (*models.ChatConversation, error) {
	var conversation models.ChatConversation
	err := r.db.WithContext(ctx).
		Where("id = ?", conversationID).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// FindActiveByCustomer returns the customer's pending or open conversation,
// if any. Closed threads never resurface.
func (r *repositoryImpl) FindActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*models.ChatConversation, error) {
	var conversation models.ChatConversation
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status IN ?", customerID,
			[]enums.ConversationStatus{enums.ConversationStatusPending, enums.ConversationStatusOpen}).
		Order("created_at DESC").
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *repositoryImpl) UpdateConversation(ctx context.Context, conversationID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ChatConversation{}).
		Where("id = ?", conversationID).
		Updates(updates).Error
}

func (r *repositoryImpl) ListConversations(ctx context.Context, params pagination.Params, filters ConversationFilters) ([]models.ChatConversation, int64, error) {
	normalized := pagination.Normalize(params)
	query := r.db.WithContext(ctx).Model(&models.ChatConversation{})

	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var conversations []models.ChatConversation
	err := query.Order("COALESCE(last_message_at, created_at) DESC").
		Offset(normalized.Offset()).
		Limit(normalized.Limit).
		Find(&conversations).Error
	if err != nil {
		return nil, 0, err
	}
	return conversations, total, nil
}

func (r *repositoryImpl) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *repositoryImpl) ListMessages(ctx context.Context, conversationID uuid.UUID, params pagination.Params) ([]models.ChatMessage, int64, error) {
	normalized := pagination.Normalize(params)
	query := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("conversation_id = ?", conversationID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []models.ChatMessage
	err := query.Order("created_at ASC").
		Offset(normalized.Offset()).
		Limit(normalized.Limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// MarkMessagesRead marks the counterparty's unread messages as read.
func (r *repositoryImpl) MarkMessagesRead(ctx context.Context, conversationID uuid.UUID, readerRole enums.ChatSenderRole, at time.Time) (int64, error) {
	senderRole := enums.ChatSenderStaff
	if readerRole == enums.ChatSenderStaff {
		senderRole = enums.ChatSenderCustomer
	}
	result := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("conversation_id = ? AND sender_role = ? AND read_at IS NULL", conversationID, senderRole).
		Update("read_at", at)
	return result.RowsAffected, result.Error
}
