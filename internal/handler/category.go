package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/apnishop-api/internal/dto"
	"github.com/flicky/apnishop-api/internal/service"
)

type CategoryHandler struct {
	categoryService *service.CategoryService
}

func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// List returns the active category tree.
func (h *CategoryHandler) List(c *gin.Context) { h.list(c, false) }

// ListAll includes inactive categories for the admin catalog screens.
func (h *CategoryHandler) ListAll(c *gin.Context) { h.list(c, true) }

func (h *CategoryHandler) list(c *gin.Context, includeInactive bool) {
	categories, err := h.categoryService.List(c.Request.Context(), includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]dto.CategoryResponse, 0, len(categories))
	for _, cat := range categories {
		resp = append(resp, dto.NewCategoryResponse(&cat))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	cat, err := h.categoryService.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewCategoryResponse(cat))
}

func (h *CategoryHandler) CreateSubCategory(c *gin.Context) {
	categoryID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateSubCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	sc, err := h.categoryService.CreateSubCategory(c.Request.Context(), categoryID, req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSubCategoryResponse(sc))
}

func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	cat, err := h.categoryService.Update(c.Request.Context(), id, categoryUpdate(req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCategoryResponse(cat))
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CategoryHandler) UpdateSubCategory(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	sc, err := h.categoryService.UpdateSubCategory(c.Request.Context(), id, categoryUpdate(req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSubCategoryResponse(sc))
}

func (h *CategoryHandler) DeleteSubCategory(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.categoryService.DeleteSubCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func categoryUpdate(req dto.UpdateCategoryRequest) service.CategoryUpdate {
	return service.CategoryUpdate{Name: req.Name, Description: req.Description, IsActive: req.IsActive}
}
