package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/internal/cart"
	"github.com/yorishop/yori-backend/internal/catalog"
	"github.com/yorishop/yori-backend/internal/coupons"
	"github.com/yorishop/yori-backend/internal/notifications"
	"github.com/yorishop/yori-backend/pkg/config"
	"github.com/yorishop/yori-backend/pkg/db"
	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/logger"
	"github.com/yorishop/yori-backend/pkg/pagination"
	"github.com/yorishop/yori-backend/pkg/types"
)

const codeGenAttempts = 3

// Service exposes checkout and the order lifecycle.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*OrderDTO, error)
	PreviewCoupon(ctx context.Context, userID uuid.UUID, code string) (*CouponPreviewDTO, error)
	GetOrder(ctx context.Context, actorID uuid.UUID, isStaff bool, idOrCode string) (*OrderDTO, error)
	ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params, status *enums.OrderStatus) (*OrderListDTO, error)
	ListAllOrders(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderListDTO, error)
	StatusCounts(ctx context.Context) (map[enums.OrderStatus]int64, error)
	Cancel(ctx context.Context, actorID uuid.UUID, isStaff bool, orderID uuid.UUID) (*OrderDTO, error)
	AdvanceStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error)
}

// ServiceParams groups dependencies for the order service.
type ServiceParams struct {
	Repo     Repository
	Carts    cart.Repository
	Catalog  catalog.Repository
	Coupons  CouponRedeemer
	Emitter  Emitter
	Tx       Transactor
	Logger   *logger.Logger
	Checkout config.CheckoutConfig
}

type service struct {
	repo    Repository
	carts   cart.Repository
	catalog catalog.Repository
	coupons CouponRedeemer
	emitter Emitter
	tx      Transactor
	logg    *logger.Logger
	cfg     config.CheckoutConfig
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order repo is required")
	case params.Carts == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repo is required")
	case params.Catalog == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	case params.Coupons == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon redeemer is required")
	case params.Emitter == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification emitter is required")
	case params.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transactor is required")
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:    params.Repo,
		carts:   params.Carts,
		catalog: params.Catalog,
		coupons: params.Coupons,
		emitter: params.Emitter,
		tx:      params.Tx,
		logg:    params.Logger,
		cfg:     params.Checkout,
	}, nil
}

// Checkout turns the user's cart into an order inside one transaction. Prices
// are frozen into order items, stock is decremented with an overdraw guard,
// the coupon (if any) is redeemed and the cart is cleared. The order_placed
// notification goes out only after the transaction commits.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*OrderDTO, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if err := validateAddress(input.ShippingAddress); err != nil {
		return nil, err
	}

	loaded, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(loaded.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	items, couponLines, subtotal, err := buildOrderLines(loaded.Items)
	if err != nil {
		return nil, err
	}

	var (
		discount   int64
		redemption *coupons.Redemption
		couponCode *string
		snapshot   *types.CouponSnapshot
	)
	if strings.TrimSpace(input.CouponCode) != "" {
		redemption, err = s.coupons.Validate(ctx, input.CouponCode, userID, subtotal, couponLines)
		if err != nil {
			return nil, err
		}
		discount = redemption.Snapshot.DiscountAmount
		couponCode = &redemption.Snapshot.Code
		snap := redemption.Snapshot
		snapshot = &snap
	}

	shippingFee := s.cfg.ShippingFee
	total := subtotal - discount + shippingFee

	order := &models.Order{
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		PaymentMethod:   input.PaymentMethod,
		ShippingAddress: input.ShippingAddress,
		Note:            input.Note,
		Subtotal:        subtotal,
		Discount:        discount,
		ShippingFee:     shippingFee,
		Total:           total,
		CouponCode:      couponCode,
		CouponSnapshot:  snapshot,
		Items:           items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)
		cartRepo := s.carts.WithTx(tx)

		if err := s.createWithFreshCode(ctx, orderRepo, order); err != nil {
			return err
		}
		for _, item := range order.Items {
			affected, err := catalogRepo.AdjustStock(ctx, item.ProductID, -item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
					WithDetails(map[string]any{"product_id": item.ProductID})
			}
			if err := catalogRepo.IncrementSold(ctx, item.ProductID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment sold count")
			}
		}
		if redemption != nil {
			if err := s.coupons.Redeem(ctx, tx, redemption.CouponID, userID); err != nil {
				return err
			}
		}
		if err := cartRepo.ClearItems(ctx, loaded.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout transaction")
	}

	s.emitter.Emit(ctx, notifications.EmitInput{
		UserID:  userID,
		Type:    enums.NotificationTypeOrderPlaced,
		Title:   "Order placed",
		Message: fmt.Sprintf("Your order %s has been placed", order.Code),
		Data:    types.JSONMap{"order_id": order.ID.String(), "order_code": order.Code},
	})

	dto := toOrderDTO(*order)
	return &dto, nil
}

// PreviewCoupon applies a coupon against the current cart without placing an
// order, so the client can show the discounted total at checkout.
func (s *service) PreviewCoupon(ctx context.Context, userID uuid.UUID, code string) (*CouponPreviewDTO, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	loaded, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(loaded.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	_, couponLines, subtotal, err := buildOrderLines(loaded.Items)
	if err != nil {
		return nil, err
	}

	redemption, err := s.coupons.Validate(ctx, code, userID, subtotal, couponLines)
	if err != nil {
		return nil, err
	}

	discount := redemption.Snapshot.DiscountAmount
	return &CouponPreviewDTO{
		Subtotal:    subtotal,
		Discount:    discount,
		ShippingFee: s.cfg.ShippingFee,
		Total:       subtotal - discount + s.cfg.ShippingFee,
		Coupon:      redemption.Snapshot,
	}, nil
}

// createWithFreshCode retries code generation when the unique index rejects a
// collision.
func (s *service) createWithFreshCode(ctx context.Context, repo Repository, order *models.Order) error {
	for attempt := 0; attempt < codeGenAttempts; attempt++ {
		order.Code = newOrderCode(s.cfg.OrderCodePrefix)
		err := repo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, "orders_code_key") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
	}
	return pkgerrors.New(pkgerrors.CodeDependency, "could not allocate order code")
}

func (s *service) GetOrder(ctx context.Context, actorID uuid.UUID, isStaff bool, idOrCode string) (*OrderDTO, error) {
	idOrCode = strings.TrimSpace(idOrCode)
	if idOrCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var (
		order *models.Order
		err   error
	)
	if id, parseErr := uuid.Parse(idOrCode); parseErr == nil {
		order, err = s.repo.FindByID(ctx, id)
	} else {
		order, err = s.repo.FindByCode(ctx, idOrCode)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !isStaff && order.UserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	dto := toOrderDTO(*order)
	return &dto, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params, status *enums.OrderStatus) (*OrderListDTO, error) {
	return s.list(ctx, params, ListFilters{UserID: &userID, Status: status})
}

func (s *service) ListAllOrders(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderListDTO, error) {
	return s.list(ctx, params, filters)
}

// StatusCounts returns the per-status order totals for the staff dashboard.
// Statuses with no orders are present with a zero count.
func (s *service) StatusCounts(ctx context.Context) (map[enums.OrderStatus]int64, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	for _, status := range enums.OrderStatuses() {
		if _, ok := counts[status]; !ok {
			counts[status] = 0
		}
	}
	return counts, nil
}

func (s *service) list(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderListDTO, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	orders, total, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	items := make([]OrderDTO, 0, len(orders))
	for _, order := range orders {
		items = append(items, toOrderDTO(order))
	}
	return &OrderListDTO{
		Items:      items,
		Pagination: pagination.NewMeta(params, total),
	}, nil
}

// Cancel stops an order that has not shipped yet and puts the stock back.
func (s *service) Cancel(ctx context.Context, actorID uuid.UUID, isStaff bool, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !isStaff && order.UserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !order.Status.Cancellable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
			WithDetails(map[string]any{"status": order.Status})
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		if err := orderRepo.UpdateFields(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		for _, item := range order.Items {
			if _, err := catalogRepo.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock product")
			}
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel transaction")
	}

	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now

	s.emitter.Emit(ctx, notifications.EmitInput{
		UserID:  order.UserID,
		Type:    enums.NotificationTypeOrderCancelled,
		Title:   "Order cancelled",
		Message: fmt.Sprintf("Your order %s has been cancelled", order.Code),
		Data:    types.JSONMap{"order_id": order.ID.String(), "order_code": order.Code},
	})

	dto := toOrderDTO(*order)
	return &dto, nil
}

// AdvanceStatus moves an order one step forward in the lifecycle. Skipping
// steps and moving backwards are both refused.
func (s *service) AdvanceStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error) {
	if !next.IsValid() || next == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !order.Status.CanAdvanceTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "state transition disallowed").
			WithDetails(map[string]any{"from": order.Status, "to": next})
	}

	updates := map[string]any{"status": next}
	var completedAt *time.Time
	if next == enums.OrderStatusCompleted {
		now := time.Now().UTC()
		completedAt = &now
		updates["completed_at"] = now
	}
	if err := s.repo.UpdateFields(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	order.Status = next
	order.CompletedAt = completedAt

	s.emitter.Emit(ctx, notifications.EmitInput{
		UserID:  order.UserID,
		Type:    statusNotificationType(next),
		Title:   "Order update",
		Message: fmt.Sprintf("Your order %s is now %s", order.Code, next),
		Data:    types.JSONMap{"order_id": order.ID.String(), "order_code": order.Code, "status": next.String()},
	})

	dto := toOrderDTO(*order)
	return &dto, nil
}

func statusNotificationType(status enums.OrderStatus) enums.NotificationType {
	switch status {
	case enums.OrderStatusShipping:
		return enums.NotificationTypeOrderShipped
	case enums.OrderStatusCompleted:
		return enums.NotificationTypeOrderDelivered
	default:
		return enums.NotificationTypeOrderStatusUpdate
	}
}

// buildOrderLines freezes cart lines into order items and rejects anything
// that can no longer be bought.
func buildOrderLines(cartItems []models.CartItem) ([]models.OrderItem, []coupons.Line, int64, error) {
	items := make([]models.OrderItem, 0, len(cartItems))
	couponLines := make([]coupons.Line, 0, len(cartItems))
	var subtotal int64

	for _, cartItem := range cartItems {
		product := cartItem.Product
		if product == nil {
			return nil, nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "product no longer exists").
				WithDetails(map[string]any{"product_id": cartItem.ProductID})
		}
		if product.Status != enums.ProductStatusActive {
			return nil, nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
				WithDetails(map[string]any{"product_id": product.ID})
		}
		if cartItem.Quantity > product.Stock {
			return nil, nil, 0, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
				WithDetails(map[string]any{"product_id": product.ID, "available": product.Stock})
		}

		lineTotal := product.Price * int64(cartItem.Quantity)
		var image *string
		if len(product.Images) > 0 {
			image = &product.Images[0]
		}
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     image,
			Color:     cartItem.Color,
			Size:      cartItem.Size,
			UnitPrice: product.Price,
			Quantity:  cartItem.Quantity,
			LineTotal: lineTotal,
		})
		couponLines = append(couponLines, coupons.Line{
			ProductID:  product.ID,
			CategoryID: product.CategoryID,
			LineTotal:  lineTotal,
		})
		subtotal += lineTotal
	}
	return items, couponLines, subtotal, nil
}

func validateAddress(address types.Address) error {
	missing := []string{}
	if strings.TrimSpace(address.FullName) == "" {
		missing = append(missing, "full_name")
	}
	if strings.TrimSpace(address.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(address.Line1) == "" {
		missing = append(missing, "line1")
	}
	if strings.TrimSpace(address.City) == "" {
		missing = append(missing, "city")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

// newOrderCode yields codes like YORI-1748779200-3F9A. The unique index on
// orders.code catches the rare collision and the caller retries.
func newOrderCode(prefix string) string {
	buf := make([]byte, 2)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%s%d-%s", prefix, time.Now().Unix(), strings.ToUpper(hex.EncodeToString(buf)))
}
