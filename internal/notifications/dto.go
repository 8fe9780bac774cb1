package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	"github.com/yorishop/yori-backend/pkg/pagination"
	"github.com/yorishop/yori-backend/pkg/types"
)

// DTO is the notification projection pushed over the wire and listed via the API.
type DTO struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      types.JSONMap          `json:"data,omitempty"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ListDTO wraps a page of notifications plus pagination metadata.
type ListDTO struct {
	Items      []DTO           `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

func toDTO(n models.Notification) DTO {
	return DTO{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
