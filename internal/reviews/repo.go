package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	"github.com/yorishop/yori-backend/pkg/pagination"
)

// Repository exposes persistence helpers for reviews.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, reviewID uuid.UUID) (*models.Review, error)
	UpdateFields(ctx context.Context, reviewID uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, reviewID uuid.UUID) (int64, error)
	ListByProduct(ctx context.Context, productID, viewer uuid.UUID, params pagination.Params) ([]models.Review, int64, error)
	ListByStatus(ctx context.Context, params pagination.Params, status enums.ReviewStatus) ([]models.Review, int64, error)
	RatingBreakdown(ctx context.Context, productID uuid.UUID) (map[int]int64, error)
	HasNonRejected(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	HasCompletedPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	RatingStats(ctx context.Context, productID uuid.UUID) (avg float64, count int, err error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a review repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, reviewID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).Where("id = ?", reviewID).First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repositoryImpl) UpdateFields(ctx context.Context, reviewID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", reviewID).
		Updates(updates).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, reviewID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", reviewID).Delete(&models.Review{})
	return result.RowsAffected, result.Error
}

// ListByProduct returns approved reviews for a product. A non-nil viewer also
// sees their own reviews regardless of status.
func (r *repositoryImpl) ListByProduct(ctx context.Context, productID, viewer uuid.UUID, params pagination.Params) ([]models.Review, int64, error) {
	normalized := pagination.Normalize(params)
	query := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("product_id = ?", productID)
	if viewer == uuid.Nil {
		query = query.Where("status = ?", enums.ReviewStatusApproved)
	} else {
		query = query.Where("status = ? OR user_id = ?", enums.ReviewStatusApproved, viewer)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []models.Review
	err := query.Order("created_at DESC").
		Offset(normalized.Offset()).
		Limit(normalized.Limit).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (r *repositoryImpl) ListByStatus(ctx context.Context, params pagination.Params, status enums.ReviewStatus) ([]models.Review, int64, error) {
	normalized := pagination.Normalize(params)
	query := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("status = ?", status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []models.Review
	err := query.Order("created_at ASC").
		Offset(normalized.Offset()).
		Limit(normalized.Limit).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (r *repositoryImpl) HasNonRejected(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("user_id = ? AND product_id = ? AND status <> ?", userID, productID, enums.ReviewStatusRejected).
		Count(&count).Error
	return count > 0, err
}

// HasCompletedPurchase reports whether the user has a completed order that
// contains the product.
func (r *repositoryImpl) HasCompletedPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.product_id = ?",
			userID, enums.OrderStatusCompleted, productID).
		Count(&count).Error
	return count > 0, err
}

// RatingBreakdown counts approved reviews per star value.
func (r *repositoryImpl) RatingBreakdown(ctx context.Context, productID uuid.UUID) (map[int]int64, error) {
	var rows []struct {
		Rating int
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("rating, COUNT(*) AS count").
		Where("product_id = ? AND status = ?", productID, enums.ReviewStatusApproved).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	breakdown := make(map[int]int64, len(rows))
	for _, row := range rows {
		breakdown[row.Rating] = row.Count
	}
	return breakdown, nil
}

// RatingStats aggregates approved reviews only.
func (r *repositoryImpl) RatingStats(ctx context.Context, productID uuid.UUID) (float64, int, error) {
	var row struct {
		Avg   float64
		Count int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("product_id = ? AND status = ?", productID, enums.ReviewStatusApproved).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Avg, row.Count, nil
}
