package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/pkg/enums"
)

// ChatConversation is a support thread between a customer and staff.
type ChatConversation struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID      uuid.UUID                `gorm:"column:customer_id;type:uuid;not null;index:chat_conversations_customer_id_idx"`
	AssignedStaffID *uuid.UUID               `gorm:"column:assigned_staff_id;type:uuid"`
	Status          enums.ConversationStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	LastMessageAt   *time.Time               `gorm:"column:last_message_at"`
	Messages        []ChatMessage            `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
