package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/internal/notifications"
	"github.com/yorishop/yori-backend/pkg/db"
	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/pagination"
	"github.com/yorishop/yori-backend/pkg/types"
)

// Service exposes coupon validation and administration.
type Service interface {
	Validate(ctx context.Context, code string, userID uuid.UUID, subtotal int64, lines []Line) (*Redemption, error)
	Redeem(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error

	GetCoupon(ctx context.Context, couponID uuid.UUID) (*CouponDTO, error)
	ListCoupons(ctx context.Context, params pagination.Params) (*CouponListDTO, error)
	CreateCoupon(ctx context.Context, input CreateCouponInput) (*CouponDTO, error)
	UpdateCoupon(ctx context.Context, couponID uuid.UUID, input UpdateCouponInput) (*CouponDTO, error)
	DeleteCoupon(ctx context.Context, couponID uuid.UUID) error
}

// Announcer broadcasts a notification to every active user. Optional; when
// nil, new coupons are created silently.
type Announcer interface {
	EmitBroadcast(ctx context.Context, input notifications.BroadcastInput)
}

// ServiceParams groups dependencies for the coupon service.
type ServiceParams struct {
	Repo      Repository
	Announcer Announcer
	Now       func() time.Time
}

type service struct {
	repo      Repository
	announcer Announcer
	now       func() time.Time
}

// NewService builds a coupon service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, announcer: params.Announcer, now: now}, nil
}

// Validate walks the coupon rule chain and, on success, returns the frozen
// terms plus the discount computed for the given lines. It never mutates the
// coupon; Redeem does that inside the checkout transaction.
func (s *service) Validate(ctx context.Context, code string, userID uuid.UUID, subtotal int64, lines []Line) (*Redemption, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	now := s.now()
	if !coupon.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active")
	}
	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active yet")
	}
	if coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon has expired")
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon usage limit reached")
	}
	for _, used := range coupon.UsedBy {
		if used == userID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon already used")
		}
	}
	if subtotal < coupon.MinOrderValue {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order does not meet coupon minimum")
	}

	eligible := eligibleAmount(coupon, subtotal, lines)
	if eligible <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon does not apply to these items")
	}

	discount := computeDiscount(coupon, eligible)
	return &Redemption{
		CouponID: coupon.ID,
		Snapshot: types.CouponSnapshot{
			Code:           coupon.Code,
			DiscountType:   coupon.DiscountType.String(),
			DiscountValue:  coupon.DiscountValue,
			MaxDiscount:    coupon.MaxDiscount,
			DiscountAmount: discount,
		},
	}, nil
}

// Redeem records the usage inside the caller's transaction.
func (s *service) Redeem(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error {
	if err := s.repo.WithTx(tx).MarkUsed(ctx, couponID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark coupon used")
	}
	return nil
}

// eligibleAmount returns the portion of the subtotal the coupon may discount.
func eligibleAmount(coupon *models.Coupon, subtotal int64, lines []Line) int64 {
	switch coupon.Scope {
	case enums.CouponScopeCategories:
		return sumMatching(lines, func(line Line) bool {
			return containsID(coupon.CategoryIDs, line.CategoryID)
		})
	case enums.CouponScopeProducts:
		return sumMatching(lines, func(line Line) bool {
			return containsID(coupon.ProductIDs, line.ProductID)
		})
	default:
		return subtotal
	}
}

func computeDiscount(coupon *models.Coupon, eligible int64) int64 {
	var discount int64
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		discount = decimal.NewFromInt(eligible).
			Mul(decimal.NewFromInt(coupon.DiscountValue)).
			Div(decimal.NewFromInt(100)).
			Floor().
			IntPart()
		if coupon.MaxDiscount != nil && discount > *coupon.MaxDiscount {
			discount = *coupon.MaxDiscount
		}
	default:
		discount = coupon.DiscountValue
	}
	if discount > eligible {
		discount = eligible
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

func sumMatching(lines []Line, match func(Line) bool) int64 {
	var total int64
	for _, line := range lines {
		if match(line) {
			total += line.LineTotal
		}
	}
	return total
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func (s *service) GetCoupon(ctx context.Context, couponID uuid.UUID) (*CouponDTO, error) {
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	dto := toCouponDTO(*coupon)
	return &dto, nil
}

func (s *service) ListCoupons(ctx context.Context, params pagination.Params) (*CouponListDTO, error) {
	coupons, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	items := make([]CouponDTO, 0, len(coupons))
	for _, coupon := range coupons {
		items = append(items, toCouponDTO(coupon))
	}
	return &CouponListDTO{
		Items:      items,
		Pagination: pagination.NewMeta(params, total),
	}, nil
}

func (s *service) CreateCoupon(ctx context.Context, input CreateCouponInput) (*CouponDTO, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if !input.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if input.DiscountValue <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
	}
	if input.DiscountType == enums.DiscountTypePercentage && input.DiscountValue > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if input.MinOrderValue < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum order value cannot be negative")
	}
	if input.UsageLimit != nil && *input.UsageLimit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be positive")
	}

	scope := input.Scope
	if scope == "" {
		scope = enums.CouponScopeAll
	}
	if !scope.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon scope")
	}
	if scope == enums.CouponScopeCategories && len(input.CategoryIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category scope requires category ids")
	}
	if scope == enums.CouponScopeProducts && len(input.ProductIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product scope requires product ids")
	}
	if input.StartsAt != nil && input.ExpiresAt != nil && input.ExpiresAt.Before(*input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry cannot be before start")
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	coupon := &models.Coupon{
		Code:          code,
		Description:   input.Description,
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		MaxDiscount:   input.MaxDiscount,
		MinOrderValue: input.MinOrderValue,
		UsageLimit:    input.UsageLimit,
		Scope:         scope,
		CategoryIDs:   input.CategoryIDs,
		ProductIDs:    input.ProductIDs,
		StartsAt:      input.StartsAt,
		ExpiresAt:     input.ExpiresAt,
		IsActive:      isActive,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "coupons_code_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}

	if s.announcer != nil && coupon.IsActive {
		message := fmt.Sprintf("Use code %s on your next order", coupon.Code)
		if coupon.Description != nil && strings.TrimSpace(*coupon.Description) != "" {
			message = *coupon.Description
		}
		s.announcer.EmitBroadcast(ctx, notifications.BroadcastInput{
			Type:    enums.NotificationTypeNewCoupon,
			Title:   "New coupon available",
			Message: message,
			Data:    types.JSONMap{"coupon_code": coupon.Code},
		})
	}

	dto := toCouponDTO(*coupon)
	return &dto, nil
}

func (s *service) UpdateCoupon(ctx context.Context, couponID uuid.UUID, input UpdateCouponInput) (*CouponDTO, error) {
	if couponID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	updates := map[string]any{}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.DiscountValue != nil {
		if *input.DiscountValue <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
		}
		if coupon.DiscountType == enums.DiscountTypePercentage && *input.DiscountValue > 100 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
		}
		updates["discount_value"] = *input.DiscountValue
	}
	if input.MaxDiscount != nil {
		updates["max_discount"] = *input.MaxDiscount
	}
	if input.MinOrderValue != nil {
		if *input.MinOrderValue < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum order value cannot be negative")
		}
		updates["min_order_value"] = *input.MinOrderValue
	}
	if input.UsageLimit != nil {
		if *input.UsageLimit <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be positive")
		}
		updates["usage_limit"] = *input.UsageLimit
	}
	if input.StartsAt != nil {
		updates["starts_at"] = *input.StartsAt
	}
	if input.ExpiresAt != nil {
		updates["expires_at"] = *input.ExpiresAt
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, couponID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
		}
	}

	coupon, err = s.repo.FindByID(ctx, couponID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload coupon")
	}
	dto := toCouponDTO(*coupon)
	return &dto, nil
}

func (s *service) DeleteCoupon(ctx context.Context, couponID uuid.UUID) error {
	if couponID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}
	affected, err := s.repo.Delete(ctx, couponID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete coupon")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return nil
}
