package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/apnishop-api/internal/dto"
	"github.com/flicky/apnishop-api/internal/middleware"
	"github.com/flicky/apnishop-api/internal/model"
	"github.com/flicky/apnishop-api/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Checkout(c.Request.Context(), middleware.GetUserID(c), service.CheckoutInput{
		ShippingAddressID: req.ShippingAddressID,
		PaymentMethod:     model.PaymentMethod(req.PaymentMethod),
		CouponCode:        req.CouponCode,
		CustomerNotes:     req.CustomerNotes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewOrderResponse(order))
}

// ListOrders returns the caller's orders. Admins get every order, filtered by ?status= and
// paginated with ?page= and ?limit=.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var (
		orders []model.Order
		total  int
		err    error
	)
	if middleware.IsAdmin(c) {
		var req dto.ListOrdersRequest
		if !bindQuery(c, &req) {
			return
		}
		orders, total, err = h.orderService.ListAll(c.Request.Context(), model.OrderStatus(req.Status), req.Page, req.Limit)
	} else {
		orders, err = h.orderService.List(c.Request.Context(), middleware.GetUserID(c))
		total = len(orders)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, dto.NewOrderResponse(&o))
	}
	c.JSON(http.StatusOK, dto.OrderListResponse{Orders: items, Total: total})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.Get(c.Request.Context(), middleware.GetUserID(c), middleware.IsAdmin(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), orderID, model.OrderStatus(req.Status), req.AdminNotes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

func (h *OrderHandler) UpdatePayment(c *gin.Context) {
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdatePayment(c.Request.Context(), orderID, model.PaymentStatus(req.PaymentStatus), req.PaymentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}
