package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/flicky/apnishop-api/internal/apperror"
	"github.com/flicky/apnishop-api/internal/dto"
)

// respondError writes the JSON error body for err. Errors outside the apperror taxonomy
// become a 500 and are attached to the context for the request logger.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperror.As(err); ok {
		if appErr.Unwrap() != nil {
			_ = c.Error(err)
		}
		c.AbortWithStatusJSON(appErr.HTTPStatus(), dto.ErrorResponse{Error: appErr.Code, Message: appErr.Message})
		return
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error: "InternalError", Message: "internal server error",
	})
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, bindingError(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		respondError(c, bindingError(err))
		return false
	}
	return true
}

// bindingError turns binding failures into a validation error naming the offending fields.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return apperror.ErrValidation.WithMessage(strings.Join(fields, "; "))
	}
	return apperror.ErrValidation.WithMessage("malformed request body")
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperror.ErrValidation.WithMessage("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
