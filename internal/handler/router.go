package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/flicky/apnishop-api/internal/middleware"
)

type Handlers struct {
	Auth     *AuthHandler
	Product  *ProductHandler
	Category *CategoryHandler
	Cart     *CartHandler
	Address  *AddressHandler
	Order    *OrderHandler
	Coupon   *CouponHandler
	Wishlist *WishlistHandler
	Review   *ReviewHandler
	User     *UserHandler
	Admin    *AdminHandler
	Health   *HealthHandler
}

// NewRouter mounts every route under /api/v1 plus the health checks.
func NewRouter(h Handlers, jwtSecret string, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	router.GET("/healthz", h.Health.Healthz)
	router.GET("/readyz", h.Health.Readyz)

	authed := middleware.AuthMiddleware(jwtSecret)
	admin := middleware.AdminOnly()

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)

		users := v1.Group("/users", authed)
		users.GET("/me", h.User.Profile)
		users.PUT("/me", h.User.UpdateProfile)

		products := v1.Group("/products")
		products.GET("", h.Product.List)
		products.GET("/:id", h.Product.GetByID)
		products.GET("/:id/reviews", h.Review.ListForProduct)
		products.GET("/:id/rating", h.Review.Summary)
		products.POST("/:id/reviews", authed, h.Review.Add)

		adminProducts := products.Group("", authed, admin)
		adminProducts.POST("", h.Product.Create)
		adminProducts.PUT("/:id", h.Product.Update)
		adminProducts.DELETE("/:id", h.Product.Delete)
		adminProducts.POST("/:id/stock", h.Product.AdjustStock)
		adminProducts.POST("/:id/images", h.Product.AddImage)

		categories := v1.Group("/categories")
		categories.GET("", h.Category.List)

		adminCategories := categories.Group("", authed, admin)
		adminCategories.GET("/all", h.Category.ListAll)
		adminCategories.POST("", h.Category.Create)
		adminCategories.PUT("/:id", h.Category.Update)
		adminCategories.DELETE("/:id", h.Category.Delete)
		adminCategories.POST("/:id/subcategories", h.Category.CreateSubCategory)

		subcategories := v1.Group("/subcategories", authed, admin)
		subcategories.PUT("/:id", h.Category.UpdateSubCategory)
		subcategories.DELETE("/:id", h.Category.DeleteSubCategory)

		reviews := v1.Group("/reviews")
		reviews.GET("", h.Review.List)
		reviews.PUT("/:id", authed, h.Review.Update)
		reviews.DELETE("/:id", authed, h.Review.Delete)

		cart := v1.Group("/cart", authed)
		cart.GET("", h.Cart.GetCart)
		cart.DELETE("", h.Cart.Clear)
		cart.POST("/items", h.Cart.AddItem)
		cart.PUT("/items/:id", h.Cart.UpdateItem)
		cart.DELETE("/items/:id", h.Cart.DeleteItem)

		addresses := v1.Group("/addresses", authed)
		addresses.GET("", h.Address.List)
		addresses.POST("", h.Address.Create)
		addresses.GET("/:id", h.Address.Get)
		addresses.PUT("/:id", h.Address.Update)
		addresses.DELETE("/:id", h.Address.Delete)
		addresses.POST("/:id/default", h.Address.SetDefault)

		v1.POST("/checkout", authed, h.Order.Checkout)

		orders := v1.Group("/orders", authed)
		orders.GET("", h.Order.ListOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.POST("/:id/status", admin, h.Order.UpdateStatus)
		orders.POST("/:id/payment", admin, h.Order.UpdatePayment)

		coupons := v1.Group("/coupons", authed)
		coupons.POST("/validate", h.Coupon.Validate)
		coupons.GET("", admin, h.Coupon.List)
		coupons.POST("", admin, h.Coupon.Create)
		coupons.PUT("/:id", admin, h.Coupon.Update)
		coupons.POST("/:id/deactivate", admin, h.Coupon.Deactivate)

		wishlist := v1.Group("/wishlist", authed)
		wishlist.GET("", h.Wishlist.List)
		wishlist.POST("/items", h.Wishlist.Add)
		wishlist.DELETE("/items/:id", h.Wishlist.Remove)
		wishlist.POST("/items/:id/move-to-cart", h.Wishlist.MoveToCart)

		v1.GET("/admin/stats", authed, admin, h.Admin.Stats)
		v1.GET("/admin/users", authed, admin, h.User.List)
	}

	return router
}
