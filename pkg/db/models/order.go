package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/pkg/enums"
	"github.com/yorishop/yori-backend/pkg/types"
)

// Order is the checkout result, carrying immutable price snapshots.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string                `gorm:"column:code;not null;uniqueIndex:orders_code_key"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index:orders_user_id_idx"`
	Status          enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null;default:'cod'"`
	ShippingAddress types.Address         `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Note            *string               `gorm:"column:note"`
	Subtotal        int64                 `gorm:"column:subtotal;not null"`
	Discount        int64                 `gorm:"column:discount;not null;default:0"`
	ShippingFee     int64                 `gorm:"column:shipping_fee;not null;default:0"`
	Total           int64                 `gorm:"column:total;not null"`
	CouponCode      *string               `gorm:"column:coupon_code"`
	CouponSnapshot  *types.CouponSnapshot `gorm:"column:coupon_snapshot;type:jsonb;serializer:json"`
	Items           []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CancelledAt     *time.Time            `gorm:"column:cancelled_at"`
	CompletedAt     *time.Time            `gorm:"column:completed_at"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
