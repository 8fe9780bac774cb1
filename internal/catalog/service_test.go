package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/pagination"
)

type fakeRepository struct {
	createProductFn           func(ctx context.Context, product *models.Product) error
	updateProductFn           func(ctx context.Context, productID uuid.UUID, updates map[string]any) error
	deleteProductFn           func(ctx context.Context, productID uuid.UUID) (int64, error)
	findProductByIDFn         func(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	findProductBySlugFn       func(ctx context.Context, slug string) (*models.Product, error)
	findProductsByIDsFn       func(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	listProductsFn            func(ctx context.Context, params pagination.Params, filters ProductFilters) ([]models.Product, int64, error)
	adjustStockFn             func(ctx context.Context, productID uuid.UUID, delta int) (int64, error)
	incrementSoldFn           func(ctx context.Context, productID uuid.UUID, qty int) error
	incrementViewsFn          func(ctx context.Context, productID uuid.UUID) error
	setRatingFn               func(ctx context.Context, productID uuid.UUID, avg float64, count int) error
	createCategoryFn          func(ctx context.Context, category *models.Category) error
	updateCategoryFn          func(ctx context.Context, categoryID uuid.UUID, updates map[string]any) error
	deleteCategoryFn          func(ctx context.Context, categoryID uuid.UUID) (int64, error)
	findCategoryByIDFn        func(ctx context.Context, categoryID uuid.UUID) (*models.Category, error)
	findCategoryBySlugFn      func(ctx context.Context, slug string) (*models.Category, error)
	listCategoriesFn          func(ctx context.Context) ([]models.Category, error)
	countProductsInCategoryFn func(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	return f.createProductFn(ctx, product)
}

func (f *fakeRepository) UpdateProduct(ctx context.Context, productID uuid.UUID, updates map[string]any) error {
	return f.updateProductFn(ctx, productID, updates)
}

func (f *fakeRepository) DeleteProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	return f.deleteProductFn(ctx, productID)
}

func (f *fakeRepository) FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	return f.findProductByIDFn(ctx, productID)
}

func (f *fakeRepository) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return f.findProductBySlugFn(ctx, slug)
}

func (f *fakeRepository) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	return f.findProductsByIDsFn(ctx, ids)
}

func (f *fakeRepository) ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) ([]models.Product, int64, error) {
	return f.listProductsFn(ctx, params, filters)
}

func (f *fakeRepository) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int64, error) {
	return f.adjustStockFn(ctx, productID, delta)
}

func (f *fakeRepository) IncrementSold(ctx context.Context, productID uuid.UUID, qty int) error {
	return f.incrementSoldFn(ctx, productID, qty)
}

func (f *fakeRepository) IncrementViews(ctx context.Context, productID uuid.UUID) error {
	if f.incrementViewsFn == nil {
		return nil
	}
	return f.incrementViewsFn(ctx, productID)
}

func (f *fakeRepository) SetRating(ctx context.Context, productID uuid.UUID, avg float64, count int) error {
	return f.setRatingFn(ctx, productID, avg, count)
}

func (f *fakeRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	return f.createCategoryFn(ctx, category)
}

func (f *fakeRepository) UpdateCategory(ctx context.Context, categoryID uuid.UUID, updates map[string]any) error {
	return f.updateCategoryFn(ctx, categoryID, updates)
}

func (f *fakeRepository) DeleteCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	return f.deleteCategoryFn(ctx, categoryID)
}

func (f *fakeRepository) FindCategoryByID(ctx context.Context, categoryID uuid.UUID) (*models.Category, error) {
	return f.findCategoryByIDFn(ctx, categoryID)
}

func (f *fakeRepository) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return f.findCategoryBySlugFn(ctx, slug)
}

func (f *fakeRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	return f.listCategoriesFn(ctx)
}

func (f *fakeRepository) CountProductsInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	return f.countProductsInCategoryFn(ctx, categoryID)
}

func newServiceWithRepo(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Basic Tee", "basic-tee"},
		{"  Summer  Dress 2025 ", "summer-dress-2025"},
		{"Áo Thun", "o-thun"},
		{"--weird__input--", "weird-input"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})
	ctx := context.Background()
	samePrice := int64(1000)

	cases := []struct {
		name  string
		input CreateProductInput
	}{
		{"empty name", CreateProductInput{Price: 1000, CategoryID: uuid.New()}},
		{"zero price", CreateProductInput{Name: "Tee", CategoryID: uuid.New()}},
		{"negative stock", CreateProductInput{Name: "Tee", Price: 1000, Stock: -1, CategoryID: uuid.New()}},
		{"missing category", CreateProductInput{Name: "Tee", Price: 1000}},
		{"pre-discount price not above price", CreateProductInput{Name: "Tee", Price: 1000, PriceBefore: &samePrice, CategoryID: uuid.New()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, tc.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %v", err)
			}
		})
	}
}

func TestCreateProductGeneratesSlugAndStatus(t *testing.T) {
	categoryID := uuid.New()
	var created *models.Product
	repo := &fakeRepository{
		findCategoryByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Category, error) {
			return &models.Category{ID: id, Name: "Shirts"}, nil
		},
		createProductFn: func(ctx context.Context, product *models.Product) error {
			product.ID = uuid.New()
			created = product
			return nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	dto, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "Basic Tee",
		Price:      150000,
		Stock:      0,
		CategoryID: categoryID,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if created == nil {
		t.Fatal("expected repository create call")
	}
	if created.Slug != "basic-tee" {
		t.Fatalf("expected generated slug, got %q", created.Slug)
	}
	if dto.Status != enums.ProductStatusOutOfStock {
		t.Fatalf("expected out_of_stock for zero stock, got %s", dto.Status)
	}
}

func TestCreateProductSlugConflict(t *testing.T) {
	repo := &fakeRepository{
		findCategoryByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Category, error) {
			return &models.Category{ID: id}, nil
		},
		createProductFn: func(ctx context.Context, product *models.Product) error {
			return fmt.Errorf(`duplicate key value violates unique constraint "products_slug_key"`)
		},
	}
	svc := newServiceWithRepo(t, repo)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "Basic Tee",
		Price:      150000,
		Stock:      5,
		CategoryID: uuid.New(),
	})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict code, got %v", err)
	}
}

func TestGetProductDispatchesByIDOrSlug(t *testing.T) {
	productID := uuid.New()
	var byIDCalls, bySlugCalls int
	repo := &fakeRepository{
		findProductByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			byIDCalls++
			return &models.Product{ID: id, Name: "Tee", Status: enums.ProductStatusActive}, nil
		},
		findProductBySlugFn: func(ctx context.Context, slug string) (*models.Product, error) {
			bySlugCalls++
			return &models.Product{ID: productID, Slug: slug, Status: enums.ProductStatusActive}, nil
		},
	}
	svc := newServiceWithRepo(t, repo)
	ctx := context.Background()

	if _, err := svc.GetProduct(ctx, productID.String()); err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if _, err := svc.GetProduct(ctx, "basic-tee"); err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if byIDCalls != 1 || bySlugCalls != 1 {
		t.Fatalf("expected one call each, got id=%d slug=%d", byIDCalls, bySlugCalls)
	}
}

func TestGetProductBumpsViewCount(t *testing.T) {
	productID := uuid.New()
	var bumped []uuid.UUID
	repo := &fakeRepository{
		findProductByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return &models.Product{ID: id, Name: "Tee", Status: enums.ProductStatusActive, ViewCount: 9}, nil
		},
		incrementViewsFn: func(ctx context.Context, id uuid.UUID) error {
			bumped = append(bumped, id)
			return nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	dto, err := svc.GetProduct(context.Background(), productID.String())
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if len(bumped) != 1 || bumped[0] != productID {
		t.Fatalf("expected one view bump for %s, got %v", productID, bumped)
	}
	if dto.ViewCount != 10 {
		t.Fatalf("expected view count 10, got %d", dto.ViewCount)
	}
}

func TestGetProductViewBumpFailureIgnored(t *testing.T) {
	repo := &fakeRepository{
		findProductByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return &models.Product{ID: id, Name: "Tee", Status: enums.ProductStatusActive}, nil
		},
		incrementViewsFn: func(ctx context.Context, id uuid.UUID) error {
			return gorm.ErrInvalidDB
		},
	}
	svc := newServiceWithRepo(t, repo)

	if _, err := svc.GetProduct(context.Background(), uuid.New().String()); err != nil {
		t.Fatalf("view bump failure must not fail the read: %v", err)
	}
}

func TestGetProductNotFound(t *testing.T) {
	repo := &fakeRepository{
		findProductBySlugFn: func(ctx context.Context, slug string) (*models.Product, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := newServiceWithRepo(t, repo)

	_, err := svc.GetProduct(context.Background(), "missing-slug")
	if err == nil {
		t.Fatal("expected not found error")
	}
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestUpdateProductBuildsSparseUpdates(t *testing.T) {
	productID := uuid.New()
	var captured []map[string]any
	repo := &fakeRepository{
		findProductByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return &models.Product{ID: id, Name: "Tee", Price: 1000, Status: enums.ProductStatusActive}, nil
		},
		updateProductFn: func(ctx context.Context, id uuid.UUID, updates map[string]any) error {
			captured = append(captured, updates)
			return nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	price := int64(200000)
	_, err := svc.UpdateProduct(context.Background(), productID, UpdateProductInput{
		Price:  &price,
		Colors: []string{"black", "white"},
	})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if len(captured) != 2 {
		t.Fatalf("expected scalar and variant update calls, got %d", len(captured))
	}
	if got, ok := captured[0]["price"].(int64); !ok || got != price {
		t.Fatalf("expected price update, got %v", captured[0])
	}
	if _, ok := captured[0]["name"]; ok {
		t.Fatal("did not expect name in updates")
	}
	if _, ok := captured[1]["colors"]; !ok {
		t.Fatalf("expected colors in variant updates, got %v", captured[1])
	}
}

func TestDeleteCategoryRefusesWhenProductsRemain(t *testing.T) {
	repo := &fakeRepository{
		countProductsInCategoryFn: func(ctx context.Context, categoryID uuid.UUID) (int64, error) {
			return 3, nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	err := svc.DeleteCategory(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict code, got %v", err)
	}
}

func TestDeleteCategoryNotFound(t *testing.T) {
	repo := &fakeRepository{
		countProductsInCategoryFn: func(ctx context.Context, categoryID uuid.UUID) (int64, error) {
			return 0, nil
		},
		deleteCategoryFn: func(ctx context.Context, categoryID uuid.UUID) (int64, error) {
			return 0, nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	err := svc.DeleteCategory(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected not found error")
	}
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}
