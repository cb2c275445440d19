package handler

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/apnishop-api/internal/dto"
	"github.com/flicky/apnishop-api/internal/middleware"
	"github.com/flicky/apnishop-api/internal/model"
	"github.com/flicky/apnishop-api/internal/service"
)

type ReviewHandler struct {
	reviewService *service.ReviewService
}

func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// Add posts the caller's review of the product in the path.
func (h *ReviewHandler) Add(c *gin.Context) {
	productID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	rv, err := h.reviewService.Add(c.Request.Context(), middleware.GetUserID(c), productID, reviewInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewReviewResponse(rv))
}

// List serves /reviews, filtered by the product_id and rating query parameters.
func (h *ReviewHandler) List(c *gin.Context) {
	var req dto.ListReviewsRequest
	if !bindQuery(c, &req) {
		return
	}
	var productID uuid.NullUUID
	if req.ProductID != "" {
		productID = uuid.NullUUID{UUID: uuid.MustParse(req.ProductID), Valid: true}
	}
	h.list(c, req, productID)
}

// ListForProduct serves /products/:id/reviews.
func (h *ReviewHandler) ListForProduct(c *gin.Context) {
	productID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ListReviewsRequest
	if !bindQuery(c, &req) {
		return
	}
	h.list(c, req, uuid.NullUUID{UUID: productID, Valid: true})
}

func (h *ReviewHandler) list(c *gin.Context, req dto.ListReviewsRequest, productID uuid.NullUUID) {
	reviews, total, err := h.reviewService.List(c.Request.Context(), model.ReviewFilter{
		ProductID: productID,
		Rating:    req.Rating,
		Limit:     req.Limit,
		Offset:    (req.Page - 1) * req.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	resp := dto.ReviewListResponse{Reviews: make([]dto.ReviewResponse, 0, len(reviews)), Total: total, Page: req.Page, Limit: req.Limit}
	for _, rv := range reviews {
		resp.Reviews = append(resp.Reviews, dto.NewReviewResponse(&rv))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReviewHandler) Summary(c *gin.Context) {
	productID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	summary, err := h.reviewService.Summary(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RatingSummaryResponse{
		ProductID:     productID,
		TotalReviews:  summary.Count,
		AverageRating: math.Round(summary.Average*100) / 100,
	})
}

func (h *ReviewHandler) Update(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	rv, err := h.reviewService.Update(c.Request.Context(), middleware.GetUserID(c), id, reviewInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewReviewResponse(rv))
}

func (h *ReviewHandler) Delete(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.reviewService.Delete(c.Request.Context(), middleware.GetUserID(c), id, middleware.IsAdmin(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func reviewInput(req dto.ReviewRequest) service.ReviewInput {
	return service.ReviewInput{Rating: req.Rating, Title: req.Title, Comment: req.Comment}
}
