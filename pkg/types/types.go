package types

// JSONMap is a free-form JSON payload persisted through the gorm json serializer.
type JSONMap map[string]any

// Address is the shipping destination captured at checkout.
type Address struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	Ward     string `json:"ward,omitempty"`
	District string `json:"district,omitempty"`
	City     string `json:"city"`
	Country  string `json:"country,omitempty"`
}

// SuccessEnvelope wraps every successful API response body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error shape returned to clients.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every failed API response body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// CouponSnapshot freezes the coupon terms applied to an order so later coupon
// edits never change historical totals.
type CouponSnapshot struct {
	Code           string `json:"code"`
	DiscountType   string `json:"discount_type"`
	DiscountValue  int64  `json:"discount_value"`
	MaxDiscount    *int64 `json:"max_discount,omitempty"`
	DiscountAmount int64  `json:"discount_amount"`
}
