package wishlist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/pagination"
)

type fakeRepository struct {
	addFn      func(ctx context.Context, userID, productID uuid.UUID) error
	removeFn   func(ctx context.Context, userID, productID uuid.UUID) (int64, error)
	listFn     func(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WishlistItem, int64, error)
	containsFn func(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	return f.addFn(ctx, userID, productID)
}

func (f *fakeRepository) Remove(ctx context.Context, userID, productID uuid.UUID) (int64, error) {
	return f.removeFn(ctx, userID, productID)
}

func (f *fakeRepository) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WishlistItem, int64, error) {
	return f.listFn(ctx, userID, params)
}

func (f *fakeRepository) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	return f.containsFn(ctx, userID, productID)
}

type fakeProducts struct {
	product *models.Product
}

func (f *fakeProducts) FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if f.product == nil || f.product.ID != productID {
		return nil, gorm.ErrRecordNotFound
	}
	return f.product, nil
}

func newServiceWith(t *testing.T, repo Repository, products ProductReader) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo, Products: products})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc
}

func TestAddUnknownProduct(t *testing.T) {
	svc := newServiceWith(t, &fakeRepository{}, &fakeProducts{})

	err := svc.Add(context.Background(), uuid.New(), uuid.New())
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	product := &models.Product{ID: uuid.New(), Name: "Tee"}
	calls := 0
	repo := &fakeRepository{
		addFn: func(ctx context.Context, userID, productID uuid.UUID) error {
			calls++
			return nil
		},
	}
	svc := newServiceWith(t, repo, &fakeProducts{product: product})
	userID := uuid.New()

	if err := svc.Add(context.Background(), userID, product.ID); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := svc.Add(context.Background(), userID, product.ID); err != nil {
		t.Fatalf("second add must not error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected repo called twice, got %d", calls)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	affected := int64(1)
	repo := &fakeRepository{
		removeFn: func(ctx context.Context, userID, productID uuid.UUID) (int64, error) {
			return affected, nil
		},
	}
	svc := newServiceWith(t, repo, &fakeProducts{})
	userID, productID := uuid.New(), uuid.New()

	if err := svc.Remove(context.Background(), userID, productID); err != nil {
		t.Fatalf("first remove: %v", err)
	}

	affected = 0
	if err := svc.Remove(context.Background(), userID, productID); err != nil {
		t.Fatalf("remove of absent item must be a no-op, got %v", err)
	}
}

func TestRemoveStorageFailure(t *testing.T) {
	repo := &fakeRepository{
		removeFn: func(ctx context.Context, userID, productID uuid.UUID) (int64, error) {
			return 0, gorm.ErrInvalidDB
		},
	}
	svc := newServiceWith(t, repo, &fakeProducts{})

	err := svc.Remove(context.Background(), uuid.New(), uuid.New())
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestListProjectsProducts(t *testing.T) {
	productID := uuid.New()
	repo := &fakeRepository{
		listFn: func(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WishlistItem, int64, error) {
			return []models.WishlistItem{
				{
					UserID:    userID,
					ProductID: productID,
					Product: &models.Product{
						ID:     productID,
						Name:   "Tee",
						Slug:   "tee",
						Price:  100,
						Images: []string{"tee.jpg"},
						Status: enums.ProductStatusActive,
					},
				},
			}, 1, nil
		},
	}
	svc := newServiceWith(t, repo, &fakeProducts{})

	dto, err := svc.List(context.Background(), uuid.New(), pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dto.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(dto.Items))
	}
	item := dto.Items[0]
	if item.Name != "Tee" || item.Image != "tee.jpg" || item.Price != 100 {
		t.Fatalf("unexpected projection %+v", item)
	}
	if dto.Pagination.TotalItems != 1 {
		t.Fatalf("expected total 1, got %d", dto.Pagination.TotalItems)
	}
}
