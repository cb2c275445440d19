package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/apnishop-api/internal/dto"
	"github.com/flicky/apnishop-api/internal/middleware"
	"github.com/flicky/apnishop-api/internal/service"
)

type WishlistHandler struct {
	wishlistService *service.WishlistService
}

func NewWishlistHandler(wishlistService *service.WishlistService) *WishlistHandler {
	return &WishlistHandler{wishlistService: wishlistService}
}

func (h *WishlistHandler) List(c *gin.Context) {
	items, err := h.wishlistService.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]dto.WishlistItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, dto.NewWishlistItemResponse(&item))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WishlistHandler) Add(c *gin.Context) {
	var req dto.AddWishlistItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.wishlistService.Add(c.Request.Context(), middleware.GetUserID(c), req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": item.ID, "product_id": item.ProductID, "added_at": item.AddedAt})
}

func (h *WishlistHandler) Remove(c *gin.Context) {
	itemID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.wishlistService.Remove(c.Request.Context(), middleware.GetUserID(c), itemID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WishlistHandler) MoveToCart(c *gin.Context) {
	itemID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.wishlistService.MoveToCart(c.Request.Context(), middleware.GetUserID(c), itemID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
