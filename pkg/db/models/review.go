package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/pkg/enums"
)

// Review is a customer rating for a purchased product. One non-rejected
// review per (user, product) is enforced at the service layer so a rejected
// review can be resubmitted.
type Review struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index:reviews_user_id_idx"`
	ProductID uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index:reviews_product_id_idx"`
	OrderID   *uuid.UUID         `gorm:"column:order_id;type:uuid"`
	Rating    int                `gorm:"column:rating;not null"`
	Comment   *string            `gorm:"column:comment"`
	Status    enums.ReviewStatus `gorm:"column:status;type:text;not null;default:'approved'"`
	Reply     *string            `gorm:"column:reply"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
