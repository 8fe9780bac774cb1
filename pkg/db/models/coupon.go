package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/pkg/enums"
)

// Coupon stores a discount code and the rules constraining its use.
type Coupon struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string             `gorm:"column:code;not null;uniqueIndex:coupons_code_key"`
	Description   *string            `gorm:"column:description"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue int64              `gorm:"column:discount_value;not null"`
	MaxDiscount   *int64             `gorm:"column:max_discount"`
	MinOrderValue int64              `gorm:"column:min_order_value;not null;default:0"`
	UsageLimit    *int               `gorm:"column:usage_limit"`
	UsedCount     int                `gorm:"column:used_count;not null;default:0"`
	UsedBy        []uuid.UUID        `gorm:"column:used_by;type:jsonb;serializer:json"`
	Scope         enums.CouponScope  `gorm:"column:scope;type:text;not null;default:'all'"`
	CategoryIDs   []uuid.UUID        `gorm:"column:category_ids;type:jsonb;serializer:json"`
	ProductIDs    []uuid.UUID        `gorm:"column:product_ids;type:jsonb;serializer:json"`
	StartsAt      *time.Time         `gorm:"column:starts_at"`
	ExpiresAt     *time.Time         `gorm:"column:expires_at"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
