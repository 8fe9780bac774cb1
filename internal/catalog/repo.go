package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	"github.com/yorishop/yori-backend/pkg/pagination"
)

// Repository exposes persistence helpers for products and categories.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, productID uuid.UUID, updates map[string]any) error
	DeleteProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) ([]models.Product, int64, error)
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int64, error)
	IncrementSold(ctx context.Context, productID uuid.UUID, qty int) error
	IncrementViews(ctx context.Context, productID uuid.UUID) error
	SetRating(ctx context.Context, productID uuid.UUID, avg float64, count int) error

	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, categoryID uuid.UUID, updates map[string]any) error
	DeleteCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
	FindCategoryByID(ctx context.Context, categoryID uuid.UUID) (*models.Category, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CountProductsInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repositoryImpl) UpdateProduct(ctx context.Context, productID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(updates).Error
}

func (r *repositoryImpl) DeleteProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", productID).Delete(&models.Product{})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repositoryImpl) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("slug = ?", slug).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repositoryImpl) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&products).Error
	return products, err
}

func (r *repositoryImpl) ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) ([]models.Product, int64, error) {
	normalized := pagination.Normalize(params)
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if filters.CategoryID != nil {
		query = query.Where("category_id = ?", *filters.CategoryID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.MinPrice != nil {
		query = query.Where("price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		query = query.Where("price <= ?", *filters.MaxPrice)
	}
	if filters.Query != "" {
		query = query.Where("name LIKE ?", "%"+filters.Query+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(orderClause(filters.Sort)).
		Offset(normalized.Offset()).
		Limit(normalized.Limit)

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func orderClause(sort ProductSort) string {
	switch sort {
	case ProductSortPriceAsc:
		return "price ASC, id ASC"
	case ProductSortPriceDesc:
		return "price DESC, id ASC"
	case ProductSortBestSelling:
		return "sold_count DESC, id ASC"
	default:
		return "created_at DESC, id DESC"
	}
}

// AdjustStock applies a stock delta and flips status when stock runs out.
// A negative delta only succeeds when enough stock remains, so concurrent
// checkouts cannot drive stock below zero.
func (r *repositoryImpl) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID)
	if delta < 0 {
		query = query.Where("stock >= ?", -delta)
	}
	result := query.UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		err := r.db.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND stock = 0 AND status = ?", productID, enums.ProductStatusActive).
			UpdateColumn("status", enums.ProductStatusOutOfStock).Error
		if err != nil {
			return result.RowsAffected, err
		}
		if delta > 0 {
			err = r.db.WithContext(ctx).
				Model(&models.Product{}).
				Where("id = ? AND stock > 0 AND status = ?", productID, enums.ProductStatusOutOfStock).
				UpdateColumn("status", enums.ProductStatusActive).Error
			if err != nil {
				return result.RowsAffected, err
			}
		}
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) IncrementSold(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("sold_count", gorm.Expr("sold_count + ?", qty)).Error
}

func (r *repositoryImpl) IncrementViews(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (r *repositoryImpl) SetRating(ctx context.Context, productID uuid.UUID, avg float64, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]any{
			"rating_avg":   avg,
			"rating_count": count,
		}).Error
}

func (r *repositoryImpl) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *repositoryImpl) UpdateCategory(ctx context.Context, categoryID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("id = ?", categoryID).
		Updates(updates).Error
}

func (r *repositoryImpl) DeleteCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", categoryID).Delete(&models.Category{})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) FindCategoryByID(ctx context.Context, categoryID uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).Where("id = ?", categoryID).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repositoryImpl) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repositoryImpl) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *repositoryImpl) CountProductsInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}
