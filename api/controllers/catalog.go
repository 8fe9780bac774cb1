package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/api/responses"
	"github.com/yorishop/yori-backend/api/validators"
	"github.com/yorishop/yori-backend/internal/catalog"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/logger"
)

type createProductPayload struct {
	Name        string   `json:"name" validate:"required"`
	Slug        string   `json:"slug"`
	Description *string  `json:"description"`
	CategoryID  string   `json:"category_id" validate:"required"`
	Price       int64    `json:"price" validate:"gt=0"`
	PriceBefore *int64   `json:"price_before_discount"`
	Images      []string `json:"images"`
	Colors      []string `json:"colors"`
	Sizes       []string `json:"sizes"`
	Stock       int      `json:"stock" validate:"gte=0"`
}

type updateProductPayload struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	CategoryID  *string  `json:"category_id"`
	Price       *int64   `json:"price"`
	PriceBefore *int64   `json:"price_before_discount"`
	Images      []string `json:"images"`
	Colors      []string `json:"colors"`
	Sizes       []string `json:"sizes"`
	Stock       *int     `json:"stock"`
	Status      *string  `json:"status"`
}

type categoryPayload struct {
	Name        string  `json:"name" validate:"required"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
	ParentID    *string `json:"parent_id"`
}

type updateCategoryPayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentID    *string `json:"parent_id"`
}

// ProductsList returns the public product listing with filters and paging.
func ProductsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		filters, err := productFiltersFromQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.ListProducts(ctx, params, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProductGet resolves a product by UUID or slug.
func ProductGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		idOrSlug := strings.TrimSpace(chi.URLParam(r, "idOrSlug"))
		if idOrSlug == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id or slug is required"))
			return
		}

		product, err := svc.GetProduct(ctx, idOrSlug)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductCreate adds a new product to the catalog.
func ProductCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body createProductPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		categoryID, err := uuid.Parse(body.CategoryID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "category_id must be a uuid"))
			return
		}

		product, err := svc.CreateProduct(ctx, catalog.CreateProductInput{
			Name:        body.Name,
			Slug:        body.Slug,
			Description: body.Description,
			CategoryID:  categoryID,
			Price:       body.Price,
			PriceBefore: body.PriceBefore,
			Images:      body.Images,
			Colors:      body.Colors,
			Sizes:       body.Sizes,
			Stock:       body.Stock,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ProductUpdate applies a sparse update to a product.
func ProductUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body updateProductPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := catalog.UpdateProductInput{
			Name:        body.Name,
			Description: body.Description,
			Price:       body.Price,
			PriceBefore: body.PriceBefore,
			Images:      body.Images,
			Colors:      body.Colors,
			Sizes:       body.Sizes,
			Stock:       body.Stock,
		}
		if body.CategoryID != nil {
			categoryID, err := uuid.Parse(*body.CategoryID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "category_id must be a uuid"))
				return
			}
			input.CategoryID = &categoryID
		}
		if body.Status != nil {
			status := enums.ProductStatus(*body.Status)
			if !status.IsValid() {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status"))
				return
			}
			input.Status = &status
		}

		product, err := svc.UpdateProduct(ctx, productID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductDelete removes a product from the catalog.
func ProductDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.DeleteProduct(ctx, productID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// CategoriesList returns all categories.
func CategoriesList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		categories, err := svc.ListCategories(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

// CategoryCreate adds a new category.
func CategoryCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body categoryPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := catalog.CreateCategoryInput{
			Name:        body.Name,
			Slug:        body.Slug,
			Description: body.Description,
		}
		if body.ParentID != nil {
			parentID, err := uuid.Parse(*body.ParentID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "parent_id must be a uuid"))
				return
			}
			input.ParentID = &parentID
		}

		category, err := svc.CreateCategory(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

// CategoryUpdate applies a sparse update to a category.
func CategoryUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		categoryID, err := validators.ParseUUIDParam(r, "categoryId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body updateCategoryPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := catalog.UpdateCategoryInput{
			Name:        body.Name,
			Description: body.Description,
		}
		if body.ParentID != nil {
			parentID, err := uuid.Parse(*body.ParentID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "parent_id must be a uuid"))
				return
			}
			input.ParentID = &parentID
		}

		category, err := svc.UpdateCategory(ctx, categoryID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

// CategoryDelete removes an empty category.
func CategoryDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		categoryID, err := validators.ParseUUIDParam(r, "categoryId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.DeleteCategory(ctx, categoryID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func productFiltersFromQuery(r *http.Request) (catalog.ProductFilters, error) {
	var filters catalog.ProductFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("category_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "category_id must be a uuid")
		}
		filters.CategoryID = &id
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.ProductStatus(raw)
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
		}
		filters.Status = &status
	}
	if value, err := validators.ParseQueryInt(r, "min_price", 0, 0, 1<<31); err != nil {
		return filters, err
	} else if value > 0 {
		price := int64(value)
		filters.MinPrice = &price
	}
	if value, err := validators.ParseQueryInt(r, "max_price", 0, 0, 1<<31); err != nil {
		return filters, err
	} else if value > 0 {
		price := int64(value)
		filters.MaxPrice = &price
	}
	filters.Query = strings.TrimSpace(r.URL.Query().Get("q"))
	filters.Sort = catalog.ProductSort(strings.TrimSpace(r.URL.Query().Get("sort")))

	return filters, nil
}
