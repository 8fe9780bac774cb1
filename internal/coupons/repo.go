package coupons

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/pagination"
)

// Repository exposes persistence helpers for coupons.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, coupon *models.Coupon) error
	Update(ctx context.Context, couponID uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, couponID uuid.UUID) (int64, error)
	FindByID(ctx context.Context, couponID uuid.UUID) (*models.Coupon, error)
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context, params pagination.Params) ([]models.Coupon, int64, error)
	MarkUsed(ctx context.Context, couponID, userID uuid.UUID) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a coupon repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *repositoryImpl) Update(ctx context.Context, couponID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ?", couponID).
		Updates(updates).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, couponID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", couponID).Delete(&models.Coupon{})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, couponID uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).Where("id = ?", couponID).First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repositoryImpl) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repositoryImpl) List(ctx context.Context, params pagination.Params) ([]models.Coupon, int64, error) {
	normalized := pagination.Normalize(params)
	query := r.db.WithContext(ctx).Model(&models.Coupon{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var coupons []models.Coupon
	err := query.Order("created_at DESC").
		Offset(normalized.Offset()).
		Limit(normalized.Limit).
		Find(&coupons).Error
	if err != nil {
		return nil, 0, err
	}
	return coupons, total, nil
}

// MarkUsed bumps the usage counter and records the redeeming user.
// Callers are expected to run it inside the checkout transaction.
func (r *repositoryImpl) MarkUsed(ctx context.Context, couponID, userID uuid.UUID) error {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).Where("id = ?", couponID).First(&coupon).Error; err != nil {
		return err
	}
	usedBy := append(coupon.UsedBy, userID)
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ?", couponID).
		Updates(map[string]any{
			"used_count": gorm.Expr("used_count + 1"),
			"used_by":    usedBy,
		}).Error
}
