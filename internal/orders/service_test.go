package orders

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/internal/cart"
	"github.com/yorishop/yori-backend/internal/catalog"
	"github.com/yorishop/yori-backend/internal/coupons"
	"github.com/yorishop/yori-backend/internal/notifications"
	"github.com/yorishop/yori-backend/pkg/config"
	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/logger"
	"github.com/yorishop/yori-backend/pkg/pagination"
	"github.com/yorishop/yori-backend/pkg/types"
)

type fakeOrderRepo struct {
	createFn       func(ctx context.Context, order *models.Order) error
	findByIDFn     func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	findByCodeFn   func(ctx context.Context, code string) (*models.Order, error)
	listFn         func(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, int64, error)
	countFn        func(ctx context.Context) (map[enums.OrderStatus]int64, error)
	updateFieldsFn func(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error {
	return f.createFn(ctx, order)
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return f.findByIDFn(ctx, orderID)
}

func (f *fakeOrderRepo) FindByCode(ctx context.Context, code string) (*models.Order, error) {
	return f.findByCodeFn(ctx, code)
}

func (f *fakeOrderRepo) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, int64, error) {
	return f.listFn(ctx, params, filters)
}

func (f *fakeOrderRepo) CountByStatus(ctx context.Context) (map[enums.OrderStatus]int64, error) {
	return f.countFn(ctx)
}

func (f *fakeOrderRepo) UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return f.updateFieldsFn(ctx, orderID, updates)
}

// fakeCartRepo embeds the interface so only the methods checkout touches need
// implementations.
type fakeCartRepo struct {
	cart.Repository
	findByUserFn func(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	cleared      []uuid.UUID
}

func (f *fakeCartRepo) WithTx(tx *gorm.DB) cart.Repository { return f }

func (f *fakeCartRepo) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return f.findByUserFn(ctx, userID)
}

func (f *fakeCartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	f.cleared = append(f.cleared, cartID)
	return nil
}

type stockChange struct {
	productID uuid.UUID
	delta     int
}

type fakeCatalogRepo struct {
	catalog.Repository
	adjustments []stockChange
	sold        []stockChange
	adjustErr   error
	noRows      bool
}

func (f *fakeCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return f }

func (f *fakeCatalogRepo) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int64, error) {
	if f.adjustErr != nil {
		return 0, f.adjustErr
	}
	if f.noRows {
		return 0, nil
	}
	f.adjustments = append(f.adjustments, stockChange{productID: productID, delta: delta})
	return 1, nil
}

func (f *fakeCatalogRepo) IncrementSold(ctx context.Context, productID uuid.UUID, qty int) error {
	f.sold = append(f.sold, stockChange{productID: productID, delta: qty})
	return nil
}

type fakeCoupons struct {
	redemption  *coupons.Redemption
	validateErr error
	redeemed    []uuid.UUID
}

func (f *fakeCoupons) Validate(ctx context.Context, code string, userID uuid.UUID, subtotal int64, lines []coupons.Line) (*coupons.Redemption, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return f.redemption, nil
}

func (f *fakeCoupons) Redeem(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error {
	f.redeemed = append(f.redeemed, couponID)
	return nil
}

type fakeEmitter struct {
	emitted []notifications.EmitInput
}

func (f *fakeEmitter) Emit(ctx context.Context, input notifications.EmitInput) {
	f.emitted = append(f.emitted, input)
}

type fakeTransactor struct {
	calls int
	fail  error
}

func (f *fakeTransactor) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	if f.fail != nil {
		return f.fail
	}
	return fn(nil)
}

type checkoutFixture struct {
	svc     Service
	orders  *fakeOrderRepo
	carts   *fakeCartRepo
	catalog *fakeCatalogRepo
	coupons *fakeCoupons
	emitter *fakeEmitter
	tx      *fakeTransactor
	userID  uuid.UUID
	cartID  uuid.UUID
	tee     *models.Product
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	userID := uuid.New()
	cartID := uuid.New()
	tee := &models.Product{
		ID:         uuid.New(),
		Name:       "Basic Tee",
		CategoryID: uuid.New(),
		Price:      100,
		Stock:      10,
		Status:     enums.ProductStatusActive,
	}

	fix := &checkoutFixture{
		orders: &fakeOrderRepo{
			createFn: func(ctx context.Context, order *models.Order) error {
				order.ID = uuid.New()
				return nil
			},
		},
		carts: &fakeCartRepo{
			findByUserFn: func(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
				return &models.Cart{
					ID:     cartID,
					UserID: userID,
					Items: []models.CartItem{
						{ID: uuid.New(), CartID: cartID, ProductID: tee.ID, Quantity: 2, Product: tee},
					},
				}, nil
			},
		},
		catalog: &fakeCatalogRepo{},
		coupons: &fakeCoupons{},
		emitter: &fakeEmitter{},
		tx:      &fakeTransactor{},
		userID:  userID,
		cartID:  cartID,
		tee:     tee,
	}

	svc, err := NewService(ServiceParams{
		Repo:     fix.orders,
		Carts:    fix.carts,
		Catalog:  fix.catalog,
		Coupons:  fix.coupons,
		Emitter:  fix.emitter,
		Tx:       fix.tx,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		Checkout: config.CheckoutConfig{ShippingFee: 20, OrderCodePrefix: "YORI-"},
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	fix.svc = svc
	return fix
}

func shippingAddress() types.Address {
	return types.Address{FullName: "Linh Tran", Phone: "0901234567", Line1: "12 Hang Bac", City: "Hanoi"}
}

func TestCheckoutComputesTotals(t *testing.T) {
	fix := newCheckoutFixture(t)
	fix.coupons.redemption = &coupons.Redemption{
		CouponID: uuid.New(),
		Snapshot: types.CouponSnapshot{Code: "SUMMER50", DiscountType: "fixed_amount", DiscountValue: 50, DiscountAmount: 50},
	}

	dto, err := fix.svc.Checkout(context.Background(), fix.userID, CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: shippingAddress(),
		CouponCode:      "SUMMER50",
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// 2 x 100 minus the 50 coupon plus the 20 shipping fee.
	if dto.Subtotal != 200 {
		t.Fatalf("expected subtotal 200, got %d", dto.Subtotal)
	}
	if dto.Discount != 50 {
		t.Fatalf("expected discount 50, got %d", dto.Discount)
	}
	if dto.ShippingFee != 20 {
		t.Fatalf("expected shipping fee 20, got %d", dto.ShippingFee)
	}
	if dto.Total != 170 {
		t.Fatalf("expected total 170, got %d", dto.Total)
	}
	if dto.Total != dto.Subtotal-dto.Discount+dto.ShippingFee {
		t.Fatal("total does not reconcile with its parts")
	}

	if len(fix.catalog.adjustments) != 1 || fix.catalog.adjustments[0].delta != -2 {
		t.Fatalf("expected stock decremented by 2, got %+v", fix.catalog.adjustments)
	}
	if len(fix.catalog.sold) != 1 || fix.catalog.sold[0].delta != 2 {
		t.Fatalf("expected sold count incremented by 2, got %+v", fix.catalog.sold)
	}
	if len(fix.coupons.redeemed) != 1 {
		t.Fatalf("expected coupon redeemed once, got %d", len(fix.coupons.redeemed))
	}
	if len(fix.carts.cleared) != 1 || fix.carts.cleared[0] != fix.cartID {
		t.Fatalf("expected cart cleared, got %+v", fix.carts.cleared)
	}
	if len(fix.emitter.emitted) != 1 || fix.emitted0Type(t) != enums.NotificationTypeOrderPlaced {
		t.Fatalf("expected one order_placed notification, got %+v", fix.emitter.emitted)
	}
	if dto.Code == "" || dto.Code[:5] != "YORI-" {
		t.Fatalf("expected YORI- order code, got %q", dto.Code)
	}
}

func (fix *checkoutFixture) emitted0Type(t *testing.T) enums.NotificationType {
	t.Helper()
	if len(fix.emitter.emitted) == 0 {
		t.Fatal("no notifications emitted")
	}
	return fix.emitter.emitted[0].Type
}

func TestCheckoutWithoutCoupon(t *testing.T) {
	fix := newCheckoutFixture(t)

	dto, err := fix.svc.Checkout(context.Background(), fix.userID, CheckoutInput{
		PaymentMethod:   enums.PaymentMethodBankTransfer,
		ShippingAddress: shippingAddress(),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if dto.Total != 220 {
		t.Fatalf("expected total 220, got %d", dto.Total)
	}
	if len(fix.coupons.redeemed) != 0 {
		t.Fatal("expected no coupon redemption")
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	fix := newCheckoutFixture(t)
	fix.carts.findByUserFn = func(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
		return &models.Cart{ID: fix.cartID, UserID: fix.userID}, nil
	}

	_, err := fix.svc.Checkout(context.Background(), fix.userID, CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: shippingAddress(),
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckoutIncompleteAddress(t *testing.T) {
	fix := newCheckoutFixture(t)

	_, err := fix.svc.Checkout(context.Background(), fix.userID, CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: types.Address{FullName: "Linh Tran"},
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckoutInsufficientStockAborts(t *testing.T) {
	fix := newCheckoutFixture(t)
	fix.catalog.noRows = true

	_, err := fix.svc.Checkout(context.Background(), fix.userID, CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: shippingAddress(),
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if len(fix.emitter.emitted) != 0 {
		t.Fatal("expected no notification after failed checkout")
	}
}

func TestCheckoutRetriesOrderCodeCollision(t *testing.T) {
	fix := newCheckoutFixture(t)
	var codes []string
	attempts := 0
	fix.orders.createFn = func(ctx context.Context, order *models.Order) error {
		attempts++
		codes = append(codes, order.Code)
		if attempts == 1 {
			return fmt.Errorf(`duplicate key value violates unique constraint "orders_code_key"`)
		}
		order.ID = uuid.New()
		return nil
	}

	_, err := fix.svc.Checkout(context.Background(), fix.userID, CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: shippingAddress(),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 create attempts, got %d", attempts)
	}
	if len(codes) == 2 && codes[0] == codes[1] {
		t.Fatal("expected a fresh code on retry")
	}
}

func TestCancelFromPendingRestocks(t *testing.T) {
	fix := newCheckoutFixture(t)
	orderID := uuid.New()
	fix.orders.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{
			ID:     orderID,
			Code:   "YORI-1-AAAA",
			UserID: fix.userID,
			Status: enums.OrderStatusPending,
			Items:  []models.OrderItem{{ProductID: fix.tee.ID, Quantity: 2}},
		}, nil
	}
	var captured map[string]any
	fix.orders.updateFieldsFn = func(ctx context.Context, id uuid.UUID, updates map[string]any) error {
		captured = updates
		return nil
	}

	dto, err := fix.svc.Cancel(context.Background(), fix.userID, false, orderID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if dto.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", dto.Status)
	}
	if captured["status"] != enums.OrderStatusCancelled {
		t.Fatalf("expected status update, got %v", captured)
	}
	if _, ok := captured["cancelled_at"]; !ok {
		t.Fatal("expected cancelled_at set")
	}
	if len(fix.catalog.adjustments) != 1 || fix.catalog.adjustments[0].delta != 2 {
		t.Fatalf("expected restock of 2, got %+v", fix.catalog.adjustments)
	}
	if fix.emitted0Type(t) != enums.NotificationTypeOrderCancelled {
		t.Fatal("expected order_cancelled notification")
	}
}

func TestCancelAfterShippingRefused(t *testing.T) {
	fix := newCheckoutFixture(t)
	orderID := uuid.New()
	fix.orders.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{ID: orderID, UserID: fix.userID, Status: enums.OrderStatusShipping}, nil
	}

	_, err := fix.svc.Cancel(context.Background(), fix.userID, false, orderID)
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if fix.tx.calls != 0 {
		t.Fatal("expected no transaction for refused cancel")
	}
}

func TestCancelByOtherUserLooksLikeNotFound(t *testing.T) {
	fix := newCheckoutFixture(t)
	orderID := uuid.New()
	fix.orders.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{ID: orderID, UserID: uuid.New(), Status: enums.OrderStatusPending}, nil
	}

	_, err := fix.svc.Cancel(context.Background(), fix.userID, false, orderID)
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdvanceStatusOneStepOnly(t *testing.T) {
	fix := newCheckoutFixture(t)
	orderID := uuid.New()
	status := enums.OrderStatusPending
	fix.orders.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{ID: orderID, UserID: fix.userID, Status: status}, nil
	}
	var captured map[string]any
	fix.orders.updateFieldsFn = func(ctx context.Context, id uuid.UUID, updates map[string]any) error {
		captured = updates
		return nil
	}

	// Skipping processing is refused.
	_, err := fix.svc.AdvanceStatus(context.Background(), orderID, enums.OrderStatusShipping)
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for skipped step, got %v", err)
	}

	dto, err := fix.svc.AdvanceStatus(context.Background(), orderID, enums.OrderStatusProcessing)
	if err != nil {
		t.Fatalf("advance to processing: %v", err)
	}
	if dto.Status != enums.OrderStatusProcessing {
		t.Fatalf("expected processing, got %s", dto.Status)
	}
	if _, ok := captured["completed_at"]; ok {
		t.Fatal("completed_at must not be set before completion")
	}

	// Completion stamps completed_at.
	status = enums.OrderStatusShipping
	dto, err = fix.svc.AdvanceStatus(context.Background(), orderID, enums.OrderStatusCompleted)
	if err != nil {
		t.Fatalf("advance to completed: %v", err)
	}
	if dto.CompletedAt == nil {
		t.Fatal("expected completed_at on the DTO")
	}
	if _, ok := captured["completed_at"]; !ok {
		t.Fatal("expected completed_at in updates")
	}
}

func TestAdvanceStatusRejectsCancelledTarget(t *testing.T) {
	fix := newCheckoutFixture(t)

	_, err := fix.svc.AdvanceStatus(context.Background(), uuid.New(), enums.OrderStatusCancelled)
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetOrderOwnership(t *testing.T) {
	fix := newCheckoutFixture(t)
	orderID := uuid.New()
	owner := fix.userID
	fix.orders.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{ID: orderID, UserID: owner, Status: enums.OrderStatusPending}, nil
	}

	if _, err := fix.svc.GetOrder(context.Background(), owner, false, orderID.String()); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := fix.svc.GetOrder(context.Background(), uuid.New(), true, orderID.String()); err != nil {
		t.Fatalf("staff lookup: %v", err)
	}

	_, err := fix.svc.GetOrder(context.Background(), uuid.New(), false, orderID.String())
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for stranger, got %v", err)
	}
}

func TestGetOrderByCode(t *testing.T) {
	fix := newCheckoutFixture(t)
	fix.orders.findByCodeFn = func(ctx context.Context, code string) (*models.Order, error) {
		return &models.Order{ID: uuid.New(), Code: code, UserID: fix.userID}, nil
	}

	dto, err := fix.svc.GetOrder(context.Background(), fix.userID, false, "YORI-1748779200-3F9A")
	if err != nil {
		t.Fatalf("lookup by code: %v", err)
	}
	if dto.Code != "YORI-1748779200-3F9A" {
		t.Fatalf("unexpected code %q", dto.Code)
	}
}

func TestPreviewCouponDoesNotTouchStockOrCart(t *testing.T) {
	fix := newCheckoutFixture(t)
	fix.coupons.redemption = &coupons.Redemption{
		CouponID: uuid.New(),
		Snapshot: types.CouponSnapshot{Code: "SUMMER50", DiscountType: "fixed_amount", DiscountValue: 50, DiscountAmount: 50},
	}

	preview, err := fix.svc.PreviewCoupon(context.Background(), fix.userID, "SUMMER50")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.Subtotal != 200 || preview.Discount != 50 || preview.Total != 170 {
		t.Fatalf("unexpected preview %+v", preview)
	}
	if len(fix.catalog.adjustments) != 0 || len(fix.carts.cleared) != 0 || len(fix.coupons.redeemed) != 0 {
		t.Fatal("preview must not mutate stock, cart, or coupon usage")
	}
	if fix.tx.calls != 0 {
		t.Fatal("preview must not open a transaction")
	}
}

func TestPreviewCouponRequiresCode(t *testing.T) {
	fix := newCheckoutFixture(t)

	_, err := fix.svc.PreviewCoupon(context.Background(), fix.userID, "  ")
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStatusCountsFillsMissingStatuses(t *testing.T) {
	fix := newCheckoutFixture(t)
	fix.orders.countFn = func(ctx context.Context) (map[enums.OrderStatus]int64, error) {
		return map[enums.OrderStatus]int64{
			enums.OrderStatusPending:   3,
			enums.OrderStatusCompleted: 7,
		}, nil
	}

	counts, err := fix.svc.StatusCounts(context.Background())
	if err != nil {
		t.Fatalf("status counts: %v", err)
	}
	if counts[enums.OrderStatusPending] != 3 || counts[enums.OrderStatusCompleted] != 7 {
		t.Fatalf("unexpected counts %+v", counts)
	}
	for _, status := range enums.OrderStatuses() {
		if _, ok := counts[status]; !ok {
			t.Fatalf("expected %s present with zero count", status)
		}
	}
}
