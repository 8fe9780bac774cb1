package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	"github.com/yorishop/yori-backend/pkg/pagination"
	"github.com/yorishop/yori-backend/pkg/types"
)

// CheckoutInput carries the fields accepted when placing an order.
type CheckoutInput struct {
	PaymentMethod   enums.PaymentMethod
	ShippingAddress types.Address
	Note            *string
	CouponCode      string
}

// CouponPreviewDTO shows what a coupon would do to the current cart before
// the order is placed.
type CouponPreviewDTO struct {
	Subtotal    int64                `json:"subtotal"`
	Discount    int64                `json:"discount"`
	ShippingFee int64                `json:"shipping_fee"`
	Total       int64                `json:"total"`
	Coupon      types.CouponSnapshot `json:"coupon"`
}

// ListFilters describe the inputs supported by order listings.
type ListFilters struct {
	UserID      *uuid.UUID
	Status      *enums.OrderStatus
	Code        string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ItemDTO is one frozen order line.
type ItemDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Image     *string   `json:"image,omitempty"`
	Color     string    `json:"color,omitempty"`
	Size      string    `json:"size,omitempty"`
	UnitPrice int64     `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	LineTotal int64     `json:"line_total"`
}

// OrderDTO is the order projection returned to clients.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	Code            string                `json:"code"`
	UserID          uuid.UUID             `json:"user_id"`
	Status          enums.OrderStatus     `json:"status"`
	PaymentMethod   enums.PaymentMethod   `json:"payment_method"`
	ShippingAddress types.Address         `json:"shipping_address"`
	Note            *string               `json:"note,omitempty"`
	Items           []ItemDTO             `json:"items"`
	Subtotal        int64                 `json:"subtotal"`
	Discount        int64                 `json:"discount"`
	ShippingFee     int64                 `json:"shipping_fee"`
	Total           int64                 `json:"total"`
	CouponCode      *string               `json:"coupon_code,omitempty"`
	CouponSnapshot  *types.CouponSnapshot `json:"coupon_snapshot,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
	CompletedAt     *time.Time            `json:"completed_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// OrderListDTO wraps a page of orders plus pagination metadata.
type OrderListDTO struct {
	Items      []OrderDTO      `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

func toItemDTO(item models.OrderItem) ItemDTO {
	return ItemDTO{
		ID:        item.ID,
		ProductID: item.ProductID,
		Name:      item.Name,
		Image:     item.Image,
		Color:     item.Color,
		Size:      item.Size,
		UnitPrice: item.UnitPrice,
		Quantity:  item.Quantity,
		LineTotal: item.LineTotal,
	}
}

func toOrderDTO(order models.Order) OrderDTO {
	items := make([]ItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, toItemDTO(item))
	}
	return OrderDTO{
		ID:              order.ID,
		Code:            order.Code,
		UserID:          order.UserID,
		Status:          order.Status,
		PaymentMethod:   order.PaymentMethod,
		ShippingAddress: order.ShippingAddress,
		Note:            order.Note,
		Items:           items,
		Subtotal:        order.Subtotal,
		Discount:        order.Discount,
		ShippingFee:     order.ShippingFee,
		Total:           order.Total,
		CouponCode:      order.CouponCode,
		CouponSnapshot:  order.CouponSnapshot,
		CancelledAt:     order.CancelledAt,
		CompletedAt:     order.CompletedAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}
