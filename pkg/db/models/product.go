package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/pkg/enums"
)

// Product represents a catalog listing.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string              `gorm:"column:name;not null"`
	Slug        string              `gorm:"column:slug;not null;uniqueIndex:products_slug_key"`
	Description *string             `gorm:"column:description"`
	CategoryID  uuid.UUID           `gorm:"column:category_id;type:uuid;not null;index:products_category_id_idx"`
	Price       int64               `gorm:"column:price;not null"`
	PriceBefore *int64              `gorm:"column:price_before_discount"`
	Images      []string            `gorm:"column:images;type:jsonb;serializer:json"`
	Colors      []string            `gorm:"column:colors;type:jsonb;serializer:json"`
	Sizes       []string            `gorm:"column:sizes;type:jsonb;serializer:json"`
	Stock       int                 `gorm:"column:stock;not null;default:0"`
	Status      enums.ProductStatus `gorm:"column:status;type:text;not null;default:'active'"`
	RatingAvg   float64             `gorm:"column:rating_avg;not null;default:0"`
	RatingCount int                 `gorm:"column:rating_count;not null;default:0"`
	SoldCount   int                 `gorm:"column:sold_count;not null;default:0"`
	ViewCount   int64               `gorm:"column:view_count;not null;default:0"`
	Category    *Category           `gorm:"foreignKey:CategoryID"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
