package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	"github.com/yorishop/yori-backend/pkg/pagination"
)

// ConversationDTO is the conversation projection returned to clients.
type ConversationDTO struct {
	ID              uuid.UUID                `json:"id"`
	CustomerID      uuid.UUID                `json:"customer_id"`
	AssignedStaffID *uuid.UUID               `json:"assigned_staff_id,omitempty"`
	Status          enums.ConversationStatus `json:"status"`
	LastMessageAt   *time.Time               `json:"last_message_at,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

// MessageDTO is one chat message as pushed over the wire and listed via the API.
type MessageDTO struct {
	ID             uuid.UUID            `json:"id"`
	ConversationID uuid.UUID            `json:"conversation_id"`
	SenderID       uuid.UUID            `json:"sender_id"`
	SenderRole     enums.ChatSenderRole `json:"sender_role"`
	Body           string               `json:"body"`
	ReadAt         *time.Time           `json:"read_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// ConversationListDTO wraps a page of conversations plus pagination metadata.
type ConversationListDTO struct {
	Items      []ConversationDTO `json:"items"`
	Pagination pagination.Meta   `json:"pagination"`
}

// MessageListDTO wraps a page of messages plus pagination metadata.
type MessageListDTO struct {
	Items      []MessageDTO    `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

func toConversationDTO(c models.ChatConversation) ConversationDTO {
	return ConversationDTO{
		ID:              c.ID,
		CustomerID:      c.CustomerID,
		AssignedStaffID: c.AssignedStaffID,
		Status:          c.Status,
		LastMessageAt:   c.LastMessageAt,
		CreatedAt:       c.CreatedAt,
	}
}

func toMessageDTO(m models.ChatMessage) MessageDTO {
	return MessageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderRole:     m.SenderRole,
		Body:           m.Body,
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
	}
}
