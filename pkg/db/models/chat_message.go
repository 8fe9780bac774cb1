package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/pkg/enums"
)

// ChatMessage is one message inside a conversation.
type ChatMessage struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID uuid.UUID            `gorm:"column:conversation_id;type:uuid;not null;index:chat_messages_conversation_id_idx"`
	SenderID       uuid.UUID            `gorm:"column:sender_id;type:uuid;not null"`
	SenderRole     enums.ChatSenderRole `gorm:"column:sender_role;type:text;not null"`
	Body           string               `gorm:"column:body;not null"`
	ReadAt         *time.Time           `gorm:"column:read_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}
