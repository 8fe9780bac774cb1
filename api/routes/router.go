package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yorishop/yori-backend/api/controllers"
	"github.com/yorishop/yori-backend/api/middleware"
	"github.com/yorishop/yori-backend/internal/auth"
	"github.com/yorishop/yori-backend/internal/cart"
	"github.com/yorishop/yori-backend/internal/catalog"
	"github.com/yorishop/yori-backend/internal/chat"
	"github.com/yorishop/yori-backend/internal/coupons"
	"github.com/yorishop/yori-backend/internal/notifications"
	"github.com/yorishop/yori-backend/internal/orders"
	"github.com/yorishop/yori-backend/internal/reviews"
	"github.com/yorishop/yori-backend/internal/users"
	"github.com/yorishop/yori-backend/internal/wishlist"
	"github.com/yorishop/yori-backend/pkg/auth/session"
	"github.com/yorishop/yori-backend/pkg/config"
	"github.com/yorishop/yori-backend/pkg/logger"
	"github.com/yorishop/yori-backend/pkg/metrics"
	redisclient "github.com/yorishop/yori-backend/pkg/redis"
	"github.com/yorishop/yori-backend/pkg/ws"
)

// Deps carries everything the router mounts. Keeping it a struct makes the
// main wiring readable and lets tests swap in fakes per field.
type Deps struct {
	Cfg  *config.Config
	Logg *logger.Logger

	DB    controllers.Pinger
	Cache *redisclient.Client

	Sessions    session.AccessSessionChecker
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics
	Hub         *ws.Hub

	Auth          *auth.Service
	Users         users.Service
	Catalog       catalog.Service
	Cart          cart.Service
	Coupons       coupons.Service
	Orders        orders.Service
	Notifications notifications.Service
	Wishlist      wishlist.Service
	Reviews       reviews.Service
	Chat          chat.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Cfg, d.Logg

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Metrics(d.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(d.DB, d.Cache, logg))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
				r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
				r.Post("/change-password", controllers.AuthChangePassword(d.Auth, logg))
			})
		})

		r.Get("/products", controllers.ProductsList(d.Catalog, logg))
		r.Get("/products/{idOrSlug}", controllers.ProductGet(d.Catalog, logg))
		r.With(middleware.OptionalAuth(cfg.JWT, d.Sessions, logg)).
			Get("/products/{productId}/reviews", controllers.ProductReviewsList(d.Reviews, logg))
		r.Get("/categories", controllers.CategoriesList(d.Catalog, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))

			r.Get("/me", controllers.Me(d.Users, logg))
			r.Put("/me", controllers.MeUpdate(d.Users, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(d.Cart, logg))
				r.Delete("/", controllers.CartClear(d.Cart, logg))
				r.Post("/items", controllers.CartAddItem(d.Cart, logg))
				r.Put("/items/{itemId}", controllers.CartUpdateItem(d.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(d.Cart, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistList(d.Wishlist, logg))
				r.Post("/", controllers.WishlistAdd(d.Wishlist, logg))
				r.Delete("/{productId}", controllers.WishlistRemove(d.Wishlist, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.OrderCheckout(d.Orders, logg))
				r.Get("/", controllers.OrdersList(d.Orders, logg))
				r.Get("/{idOrCode}", controllers.OrderGet(d.Orders, logg))
				r.Post("/{orderId}/cancel", controllers.OrderCancel(d.Orders, logg))
			})

			r.Post("/coupons/preview", controllers.CouponPreview(d.Orders, logg))
			r.Post("/reviews", controllers.ReviewCreate(d.Reviews, logg))
			r.Put("/reviews/{reviewId}", controllers.ReviewUpdate(d.Reviews, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.NotificationsList(d.Notifications, logg))
				r.Get("/unread-count", controllers.NotificationsUnreadCount(d.Notifications, logg))
				r.Post("/read-all", controllers.NotificationsMarkAllRead(d.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.NotificationMarkRead(d.Notifications, logg))
				r.Delete("/{notificationId}", controllers.NotificationDelete(d.Notifications, logg))
			})

			r.Route("/chat", func(r chi.Router) {
				r.Post("/conversations", controllers.ChatStart(d.Chat, logg))
				r.Get("/conversations/{conversationId}", controllers.ChatGetConversation(d.Chat, logg))
				r.Get("/conversations/{conversationId}/messages", controllers.ChatMessagesList(d.Chat, logg))
				r.Post("/conversations/{conversationId}/messages", controllers.ChatSendMessage(d.Chat, logg))
				r.Post("/conversations/{conversationId}/read", controllers.ChatMarkRead(d.Chat, logg))
			})
		})

		// The upgrade handler authenticates from the token itself so browser
		// clients can connect without an Authorization header.
		r.Get("/ws", controllers.WSConnect(d.Hub, d.Cache, d.Chat, cfg.JWT, d.Sessions, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, d.Sessions, logg),
			middleware.RequireStaff(logg),
		)

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.ProductCreate(d.Catalog, logg))
			r.Put("/{productId}", controllers.ProductUpdate(d.Catalog, logg))
			r.Delete("/{productId}", controllers.ProductDelete(d.Catalog, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.CategoryCreate(d.Catalog, logg))
			r.Put("/{categoryId}", controllers.CategoryUpdate(d.Catalog, logg))
			r.Delete("/{categoryId}", controllers.CategoryDelete(d.Catalog, logg))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", controllers.CouponsList(d.Coupons, logg))
			r.Post("/", controllers.CouponCreate(d.Coupons, logg))
			r.Get("/{couponId}", controllers.CouponGet(d.Coupons, logg))
			r.Put("/{couponId}", controllers.CouponUpdate(d.Coupons, logg))
			r.Delete("/{couponId}", controllers.CouponDelete(d.Coupons, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrdersList(d.Orders, logg))
			r.Get("/stats", controllers.AdminOrderStats(d.Orders, logg))
			r.Post("/{orderId}/advance", controllers.AdminOrderAdvance(d.Orders, logg))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", controllers.AdminReviewsList(d.Reviews, logg))
			r.Post("/{reviewId}/approve", controllers.AdminReviewApprove(d.Reviews, logg))
			r.Post("/{reviewId}/reject", controllers.AdminReviewReject(d.Reviews, logg))
			r.Post("/{reviewId}/reply", controllers.AdminReviewReply(d.Reviews, logg))
			r.Delete("/{reviewId}", controllers.AdminReviewDelete(d.Reviews, logg))
		})

		r.Route("/chat", func(r chi.Router) {
			r.Get("/conversations", controllers.AdminChatList(d.Chat, logg))
			r.Post("/conversations/{conversationId}/assign", controllers.AdminChatAssign(d.Chat, logg))
			r.Post("/conversations/{conversationId}/close", controllers.AdminChatClose(d.Chat, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminUsersList(d.Users, logg))
			r.Put("/{userId}/role", controllers.AdminUserSetRole(d.Users, logg))
			r.Post("/{userId}/ban", controllers.AdminUserBan(d.Users, logg))
			r.Post("/{userId}/unban", controllers.AdminUserUnban(d.Users, logg))
		})
	})

	return r
}
