package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/apnishop-api/internal/model"
	"github.com/flicky/apnishop-api/internal/pricing"
)

// --- Checkout & orders ---

type CheckoutRequest struct {
	ShippingAddressID uuid.UUID `json:"shipping_address_id" binding:"required"`
	PaymentMethod     string    `json:"payment_method" binding:"required,payment_method"`
	CouponCode        string    `json:"coupon_code" binding:"omitempty,max=50"`
	CustomerNotes     string    `json:"customer_notes" binding:"max=1000"`
}

type UpdateOrderStatusRequest struct {
	Status     string `json:"status" binding:"required"`
	AdminNotes string `json:"admin_notes" binding:"max=1000"`
}

type UpdatePaymentRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required,payment_status"`
	PaymentID     string `json:"payment_id" binding:"max=100"`
}

type ListOrdersRequest struct {
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Status string `form:"status" binding:"omitempty,order_status"`
}

type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          model.OrderStatus   `json:"status"`
	PaymentMethod   model.PaymentMethod `json:"payment_method"`
	PaymentStatus   model.PaymentStatus `json:"payment_status"`
	PaymentID       string              `json:"payment_id,omitempty"`
	CouponID        *uuid.UUID          `json:"coupon_id,omitempty"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	DiscountAmount  decimal.Decimal     `json:"discount_amount"`
	ShippingCharge  decimal.Decimal     `json:"shipping_charge"`
	TaxAmount       decimal.Decimal     `json:"tax_amount"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	CustomerNotes   string              `json:"customer_notes,omitempty"`
	AdminNotes      string              `json:"admin_notes,omitempty"`
	ShippingAddress *AddressResponse    `json:"shipping_address,omitempty"`
	Items           []OrderItemResponse `json:"items"`
	TotalItems      int                 `json:"total_items"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	ConfirmedAt     *time.Time          `json:"confirmed_at,omitempty"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
}

func NewOrderResponse(o *model.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Total:       item.Total,
		})
	}
	resp := OrderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		Status:         o.Status,
		PaymentMethod:  o.PaymentMethod,
		PaymentStatus:  o.PaymentStatus,
		PaymentID:      o.PaymentID,
		Subtotal:       o.Subtotal,
		DiscountAmount: o.DiscountAmount,
		ShippingCharge: o.ShippingCharge,
		TaxAmount:      o.TaxAmount,
		TotalAmount:    o.TotalAmount,
		CustomerNotes:  o.CustomerNotes,
		AdminNotes:     o.AdminNotes,
		Items:          items,
		TotalItems:     o.TotalItems(),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		ConfirmedAt:    o.ConfirmedAt,
		ShippedAt:      o.ShippedAt,
		DeliveredAt:    o.DeliveredAt,
	}
	if o.CouponID.Valid {
		id := o.CouponID.UUID
		resp.CouponID = &id
	}
	if o.ShippingAddress != nil {
		addr := NewAddressResponse(o.ShippingAddress)
		resp.ShippingAddress = &addr
	}
	return resp
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

// --- Coupons ---

type CreateCouponRequest struct {
	Code          string           `json:"code" binding:"required,alphanum,min=3,max=50"`
	Description   string           `json:"description" binding:"max=255"`
	DiscountType  string           `json:"discount_type" binding:"required,oneof=PERCENTAGE FIXED"`
	DiscountValue decimal.Decimal  `json:"discount_value" binding:"decimal_gt0"`
	MinOrderValue decimal.Decimal  `json:"min_order_value" binding:"decimal_gte0"`
	MaxDiscount   *decimal.Decimal `json:"max_discount" binding:"omitempty,decimal_gte0"`
	UsageLimit    *int             `json:"usage_limit" binding:"omitempty,min=1"`
	ValidFrom     time.Time        `json:"valid_from" binding:"required"`
	ValidTo       time.Time        `json:"valid_to" binding:"required,gtfield=ValidFrom"`
	IsActive      *bool            `json:"is_active"`
}

func (r CreateCouponRequest) ToModel() *model.Coupon {
	c := &model.Coupon{
		Code:          r.Code,
		Description:   r.Description,
		DiscountType:  pricing.DiscountType(r.DiscountType),
		DiscountValue: r.DiscountValue,
		MinOrderValue: r.MinOrderValue,
		UsageLimit:    r.UsageLimit,
		ValidFrom:     r.ValidFrom,
		ValidTo:       r.ValidTo,
		IsActive:      r.IsActive == nil || *r.IsActive,
	}
	if r.MaxDiscount != nil {
		c.MaxDiscount = decimal.NewNullDecimal(*r.MaxDiscount)
	}
	return c
}

type ValidateCouponRequest struct {
	Code        string          `json:"code" binding:"required,max=50"`
	OrderAmount decimal.Decimal `json:"order_amount" binding:"decimal_gte0"`
}

type ValidateCouponResponse struct {
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
}

type CouponResponse struct {
	ID            uuid.UUID            `json:"id"`
	Code          string               `json:"code"`
	Description   string               `json:"description"`
	DiscountType  pricing.DiscountType `json:"discount_type"`
	DiscountValue decimal.Decimal      `json:"discount_value"`
	MinOrderValue decimal.Decimal      `json:"min_order_value"`
	MaxDiscount   *decimal.Decimal     `json:"max_discount,omitempty"`
	UsageLimit    *int                 `json:"usage_limit,omitempty"`
	UsedCount     int                  `json:"used_count"`
	ValidFrom     time.Time            `json:"valid_from"`
	ValidTo       time.Time            `json:"valid_to"`
	IsActive      bool                 `json:"is_active"`
}

func NewCouponResponse(c *model.Coupon) CouponResponse {
	resp := CouponResponse{
		ID:            c.ID,
		Code:          c.Code,
		Description:   c.Description,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue,
		MinOrderValue: c.MinOrderValue,
		UsageLimit:    c.UsageLimit,
		UsedCount:     c.UsedCount,
		ValidFrom:     c.ValidFrom,
		ValidTo:       c.ValidTo,
		IsActive:      c.IsActive,
	}
	if c.MaxDiscount.Valid {
		d := c.MaxDiscount.Decimal
		resp.MaxDiscount = &d
	}
	return resp
}

// --- Wishlist ---

type AddWishlistItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
}

type WishlistItemResponse struct {
	ID      uuid.UUID       `json:"id"`
	Product ProductResponse `json:"product"`
	AddedAt time.Time       `json:"added_at"`
}

func NewWishlistItemResponse(item *model.WishlistItem) WishlistItemResponse {
	return WishlistItemResponse{ID: item.ID, Product: NewProductResponse(&item.Product), AddedAt: item.AddedAt}
}

// --- Admin ---

type StatsResponse struct {
	TotalUsers       int64           `json:"total_users"`
	TotalProducts    int64           `json:"total_products"`
	TotalOrders      int64           `json:"total_orders"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	RecentOrders     int64           `json:"recent_orders"`
	LowStockProducts int64           `json:"low_stock_products"`
}

func NewStatsResponse(s *model.Stats) StatsResponse {
	return StatsResponse{
		TotalUsers:       s.TotalUsers,
		TotalProducts:    s.TotalProducts,
		TotalOrders:      s.TotalOrders,
		TotalRevenue:     s.TotalRevenue,
		RecentOrders:     s.RecentOrders7d,
		LowStockProducts: s.LowStockProducts,
	}
}
