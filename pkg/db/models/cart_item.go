package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one product variant line inside a cart. Lines are keyed by
// (cart, product, color, size) so repeated adds accumulate quantity.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:cart_items_variant_key"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:cart_items_variant_key"`
	Color     string    `gorm:"column:color;not null;default:'';uniqueIndex:cart_items_variant_key"`
	Size      string    `gorm:"column:size;not null;default:'';uniqueIndex:cart_items_variant_key"`
	Quantity  int       `gorm:"column:quantity;not null"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
