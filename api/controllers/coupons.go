package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/api/middleware"
	"github.com/yorishop/yori-backend/api/responses"
	"github.com/yorishop/yori-backend/api/validators"
	"github.com/yorishop/yori-backend/internal/coupons"
	"github.com/yorishop/yori-backend/internal/orders"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/logger"
)

type couponPreviewPayload struct {
	Code string `json:"code" validate:"required"`
}

type createCouponPayload struct {
	Code          string     `json:"code" validate:"required"`
	Description   *string    `json:"description"`
	DiscountType  string     `json:"discount_type" validate:"required"`
	DiscountValue int64      `json:"discount_value" validate:"gt=0"`
	MaxDiscount   *int64     `json:"max_discount"`
	MinOrderValue int64      `json:"min_order_value"`
	UsageLimit    *int       `json:"usage_limit"`
	Scope         string     `json:"scope"`
	CategoryIDs   []string   `json:"category_ids"`
	ProductIDs    []string   `json:"product_ids"`
	StartsAt      *time.Time `json:"starts_at"`
	ExpiresAt     *time.Time `json:"expires_at"`
	IsActive      *bool      `json:"is_active"`
}

type updateCouponPayload struct {
	Description   *string    `json:"description"`
	DiscountValue *int64     `json:"discount_value"`
	MaxDiscount   *int64     `json:"max_discount"`
	MinOrderValue *int64     `json:"min_order_value"`
	UsageLimit    *int       `json:"usage_limit"`
	StartsAt      *time.Time `json:"starts_at"`
	ExpiresAt     *time.Time `json:"expires_at"`
	IsActive      *bool      `json:"is_active"`
}

// CouponPreview applies a coupon against the caller's cart without ordering.
func CouponPreview(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body couponPreviewPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		preview, err := svc.PreviewCoupon(ctx, middleware.UserIDFromContext(ctx), body.Code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

// CouponsList returns every coupon for the admin console.
func CouponsList(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.ListCoupons(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CouponGet returns one coupon with its usage counters.
func CouponGet(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		couponID, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		coupon, err := svc.GetCoupon(ctx, couponID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

// CouponCreate registers a new coupon.
func CouponCreate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body createCouponPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		categoryIDs, err := parseUUIDList(body.CategoryIDs, "category_ids")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		productIDs, err := parseUUIDList(body.ProductIDs, "product_ids")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		coupon, err := svc.CreateCoupon(ctx, coupons.CreateCouponInput{
			Code:          body.Code,
			Description:   body.Description,
			DiscountType:  enums.DiscountType(body.DiscountType),
			DiscountValue: body.DiscountValue,
			MaxDiscount:   body.MaxDiscount,
			MinOrderValue: body.MinOrderValue,
			UsageLimit:    body.UsageLimit,
			Scope:         enums.CouponScope(body.Scope),
			CategoryIDs:   categoryIDs,
			ProductIDs:    productIDs,
			StartsAt:      body.StartsAt,
			ExpiresAt:     body.ExpiresAt,
			IsActive:      body.IsActive,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

// CouponUpdate applies a sparse update to a coupon.
func CouponUpdate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		couponID, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body updateCouponPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		coupon, err := svc.UpdateCoupon(ctx, couponID, coupons.UpdateCouponInput{
			Description:   body.Description,
			DiscountValue: body.DiscountValue,
			MaxDiscount:   body.MaxDiscount,
			MinOrderValue: body.MinOrderValue,
			UsageLimit:    body.UsageLimit,
			StartsAt:      body.StartsAt,
			ExpiresAt:     body.ExpiresAt,
			IsActive:      body.IsActive,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

// CouponDelete removes a coupon.
func CouponDelete(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		couponID, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.DeleteCoupon(ctx, couponID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func parseUUIDList(raw []string, field string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "list entries must be uuids").
				WithDetails(map[string]any{"field": field})
		}
		ids = append(ids, id)
	}
	return ids, nil
}
