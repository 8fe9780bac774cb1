package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	"github.com/yorishop/yori-backend/pkg/pagination"
)

// ProductSort names the supported list orderings.
type ProductSort string

const (
	ProductSortNewest      ProductSort = "newest"
	ProductSortPriceAsc    ProductSort = "price_asc"
	ProductSortPriceDesc   ProductSort = "price_desc"
	ProductSortBestSelling ProductSort = "best_selling"
)

// ProductFilters describe the inputs supported by the product list.
type ProductFilters struct {
	CategoryID *uuid.UUID
	Status     *enums.ProductStatus
	MinPrice   *int64
	MaxPrice   *int64
	Query      string
	Sort       ProductSort
}

// ProductDTO is the public product projection.
type ProductDTO struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Slug        string              `json:"slug"`
	Description *string             `json:"description,omitempty"`
	CategoryID  uuid.UUID           `json:"category_id"`
	Category    *CategoryDTO        `json:"category,omitempty"`
	Price       int64               `json:"price"`
	PriceBefore *int64              `json:"price_before_discount,omitempty"`
	Images      []string            `json:"images"`
	Colors      []string            `json:"colors"`
	Sizes       []string            `json:"sizes"`
	Stock       int                 `json:"stock"`
	Status      enums.ProductStatus `json:"status"`
	RatingAvg   float64             `json:"rating_avg"`
	RatingCount int                 `json:"rating_count"`
	SoldCount   int                 `json:"sold_count"`
	ViewCount   int64               `json:"view_count"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// CategoryDTO is the public category projection.
type CategoryDTO struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description *string    `json:"description,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProductListDTO wraps a page of products plus pagination metadata.
type ProductListDTO struct {
	Items      []ProductDTO    `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

// CreateProductInput carries the fields accepted when creating a product.
type CreateProductInput struct {
	Name        string
	Slug        string
	Description *string
	CategoryID  uuid.UUID
	Price       int64
	PriceBefore *int64
	Images      []string
	Colors      []string
	Sizes       []string
	Stock       int
}

// UpdateProductInput carries the optional fields accepted when updating a product.
type UpdateProductInput struct {
	Name        *string
	Description *string
	CategoryID  *uuid.UUID
	Price       *int64
	PriceBefore *int64
	Images      []string
	Colors      []string
	Sizes       []string
	Stock       *int
	Status      *enums.ProductStatus
}

// CreateCategoryInput carries the fields accepted when creating a category.
type CreateCategoryInput struct {
	Name        string
	Slug        string
	Description *string
	ParentID    *uuid.UUID
}

// UpdateCategoryInput carries the optional fields accepted when updating a category.
type UpdateCategoryInput struct {
	Name        *string
	Description *string
	ParentID    *uuid.UUID
}

func toProductDTO(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		Price:       p.Price,
		PriceBefore: p.PriceBefore,
		Images:      p.Images,
		Colors:      p.Colors,
		Sizes:       p.Sizes,
		Stock:       p.Stock,
		Status:      p.Status,
		RatingAvg:   p.RatingAvg,
		RatingCount: p.RatingCount,
		SoldCount:   p.SoldCount,
		ViewCount:   p.ViewCount,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Category != nil {
		category := toCategoryDTO(*p.Category)
		dto.Category = &category
	}
	return dto
}

func toCategoryDTO(c models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ParentID:    c.ParentID,
		CreatedAt:   c.CreatedAt,
	}
}
