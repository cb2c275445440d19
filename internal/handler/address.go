package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/apnishop-api/internal/dto"
	"github.com/flicky/apnishop-api/internal/middleware"
	"github.com/flicky/apnishop-api/internal/service"
)

type AddressHandler struct {
	addressService *service.AddressService
}

func NewAddressHandler(addressService *service.AddressService) *AddressHandler {
	return &AddressHandler{addressService: addressService}
}

func (h *AddressHandler) List(c *gin.Context) {
	addresses, err := h.addressService.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]dto.AddressResponse, 0, len(addresses))
	for _, a := range addresses {
		resp = append(resp, dto.NewAddressResponse(&a))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AddressHandler) Create(c *gin.Context) {
	var req dto.AddressRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.addressService.Create(c.Request.Context(), middleware.GetUserID(c), req.ToModel())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewAddressResponse(a))
}

func (h *AddressHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.addressService.Get(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAddressResponse(a))
}

func (h *AddressHandler) Update(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AddressRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.addressService.Update(c.Request.Context(), middleware.GetUserID(c), id, req.ToModel())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAddressResponse(a))
}

func (h *AddressHandler) Delete(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.addressService.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AddressHandler) SetDefault(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.addressService.SetDefault(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAddressResponse(a))
}
