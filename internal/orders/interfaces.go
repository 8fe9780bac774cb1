package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/internal/coupons"
	"github.com/yorishop/yori-backend/internal/notifications"
)

// Transactor runs a function inside one database transaction.
// *db.Client satisfies it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CouponRedeemer validates and redeems coupon codes.
type CouponRedeemer interface {
	Validate(ctx context.Context, code string, userID uuid.UUID, subtotal int64, lines []coupons.Line) (*coupons.Redemption, error)
	Redeem(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error
}

// Emitter delivers best-effort notifications after commit.
type Emitter interface {
	Emit(ctx context.Context, input notifications.EmitInput)
}
