package wishlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/pagination"
)

// ProductReader is the slice of the catalog the wishlist needs.
type ProductReader interface {
	FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

// ItemDTO is one liked product.
type ItemDTO struct {
	ProductID uuid.UUID           `json:"product_id"`
	Name      string              `json:"name"`
	Slug      string              `json:"slug"`
	Image     string              `json:"image,omitempty"`
	Price     int64               `json:"price"`
	Status    enums.ProductStatus `json:"status"`
	LikedAt   time.Time           `json:"liked_at"`
}

// ListDTO wraps a page of wishlist items plus pagination metadata.
type ListDTO struct {
	Items      []ItemDTO       `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

// Service exposes wishlist operations for the authenticated user.
type Service interface {
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListDTO, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	Repo     Repository
	Products ProductReader
}

type service struct {
	repo     Repository
	products ProductReader
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product reader is required")
	}
	return &service{repo: params.Repo, products: params.Products}, nil
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if _, err := s.products.FindProductByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if err := s.repo.Add(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	return nil
}

// Remove is idempotent: unliking a product that was never liked succeeds.
func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if _, err := s.repo.Remove(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListDTO, error) {
	items, total, err := s.repo.List(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}

	dtos := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		dto := ItemDTO{ProductID: item.ProductID, LikedAt: item.CreatedAt}
		if item.Product != nil {
			dto.Name = item.Product.Name
			dto.Slug = item.Product.Slug
			dto.Price = item.Product.Price
			dto.Status = item.Product.Status
			if len(item.Product.Images) > 0 {
				dto.Image = item.Product.Images[0]
			}
		}
		dtos = append(dtos, dto)
	}
	return &ListDTO{
		Items:      dtos,
		Pagination: pagination.NewMeta(params, total),
	}, nil
}
