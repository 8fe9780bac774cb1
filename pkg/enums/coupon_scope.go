package enums

import "fmt"

// CouponScope restricts which items a coupon may discount.
type CouponScope string

const (
	CouponScopeAll        CouponScope = "all"
	CouponScopeCategories CouponScope = "specific_categories"
	CouponScopeProducts   CouponScope = "specific_products"
)

var validCouponScopes = []CouponScope{
	CouponScopeAll,
	CouponScopeCategories,
	CouponScopeProducts,
}

// String implements fmt.Stringer.
func (c CouponScope) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CouponScope.
func (c CouponScope) IsValid() bool {
	for _, candidate := range validCouponScopes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCouponScope converts raw input into a CouponScope.
func ParseCouponScope(value string) (CouponScope, error) {
	for _, candidate := range validCouponScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon scope %q", value)
}
