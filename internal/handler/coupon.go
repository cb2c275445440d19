package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/apnishop-api/internal/dto"
	"github.com/flicky/apnishop-api/internal/service"
)

type CouponHandler struct {
	couponService *service.CouponService
}

func NewCouponHandler(couponService *service.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService}
}

func (h *CouponHandler) Validate(c *gin.Context) {
	var req dto.ValidateCouponRequest
	if !bindJSON(c, &req) {
		return
	}

	valid, discount, err := h.couponService.Validate(c.Request.Context(), req.Code, req.OrderAmount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ValidateCouponResponse{Valid: valid, Discount: discount})
}

func (h *CouponHandler) Create(c *gin.Context) {
	var req dto.CreateCouponRequest
	if !bindJSON(c, &req) {
		return
	}

	coupon, err := h.couponService.Create(c.Request.Context(), req.ToModel())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewCouponResponse(coupon))
}

func (h *CouponHandler) List(c *gin.Context) {
	coupons, err := h.couponService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]dto.CouponResponse, 0, len(coupons))
	for _, cp := range coupons {
		resp = append(resp, dto.NewCouponResponse(&cp))
	}
	c.JSON(http.StatusOK, resp)
}

// Update replaces the coupon's terms. The body has the same shape as Create.
func (h *CouponHandler) Update(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateCouponRequest
	if !bindJSON(c, &req) {
		return
	}

	coupon, err := h.couponService.Update(c.Request.Context(), id, req.ToModel())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCouponResponse(coupon))
}

func (h *CouponHandler) Deactivate(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	coupon, err := h.couponService.Deactivate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCouponResponse(coupon))
}
