package coupons

import (
	"time"

	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	"github.com/yorishop/yori-backend/pkg/pagination"
	"github.com/yorishop/yori-backend/pkg/types"
)

// CouponDTO is the admin-facing coupon projection.
type CouponDTO struct {
	ID            uuid.UUID          `json:"id"`
	Code          string             `json:"code"`
	Description   *string            `json:"description,omitempty"`
	DiscountType  enums.DiscountType `json:"discount_type"`
	DiscountValue int64              `json:"discount_value"`
	MaxDiscount   *int64             `json:"max_discount,omitempty"`
	MinOrderValue int64              `json:"min_order_value"`
	UsageLimit    *int               `json:"usage_limit,omitempty"`
	UsedCount     int                `json:"used_count"`
	Scope         enums.CouponScope  `json:"scope"`
	CategoryIDs   []uuid.UUID        `json:"category_ids,omitempty"`
	ProductIDs    []uuid.UUID        `json:"product_ids,omitempty"`
	StartsAt      *time.Time         `json:"starts_at,omitempty"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	IsActive      bool               `json:"is_active"`
	CreatedAt     time.Time          `json:"created_at"`
}

// CouponListDTO wraps a page of coupons plus pagination metadata.
type CouponListDTO struct {
	Items      []CouponDTO     `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

// CreateCouponInput carries the fields accepted when creating a coupon.
type CreateCouponInput struct {
	Code          string
	Description   *string
	DiscountType  enums.DiscountType
	DiscountValue int64
	MaxDiscount   *int64
	MinOrderValue int64
	UsageLimit    *int
	Scope         enums.CouponScope
	CategoryIDs   []uuid.UUID
	ProductIDs    []uuid.UUID
	StartsAt      *time.Time
	ExpiresAt     *time.Time
	IsActive      *bool
}

// UpdateCouponInput carries the optional fields accepted when updating a coupon.
type UpdateCouponInput struct {
	Description   *string
	DiscountValue *int64
	MaxDiscount   *int64
	MinOrderValue *int64
	UsageLimit    *int
	StartsAt      *time.Time
	ExpiresAt     *time.Time
	IsActive      *bool
}

// Line is one cart line presented for coupon validation.
type Line struct {
	ProductID  uuid.UUID
	CategoryID uuid.UUID
	LineTotal  int64
}

// Redemption is the outcome of a successful validation: the frozen coupon
// terms plus the computed discount for the given lines.
type Redemption struct {
	CouponID uuid.UUID
	Snapshot types.CouponSnapshot
}

func toCouponDTO(c models.Coupon) CouponDTO {
	return CouponDTO{
		ID:            c.ID,
		Code:          c.Code,
		Description:   c.Description,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue,
		MaxDiscount:   c.MaxDiscount,
		MinOrderValue: c.MinOrderValue,
		UsageLimit:    c.UsageLimit,
		UsedCount:     c.UsedCount,
		Scope:         c.Scope,
		CategoryIDs:   c.CategoryIDs,
		ProductIDs:    c.ProductIDs,
		StartsAt:      c.StartsAt,
		ExpiresAt:     c.ExpiresAt,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
	}
}
