package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rxanchor/rxanchor/internal/baas"
	"github.com/rxanchor/rxanchor/internal/domain/record"
	"github.com/rxanchor/rxanchor/internal/service"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	if se, ok := baas.IsSubmitError(err); ok {
		switch se.Reason {
		case baas.ReasonAuth:
			c.JSON(http.StatusBadGateway, ErrorResponse{Error: "blockchain platform rejected credentials", Code: "BAAS_AUTH"})
		case baas.ReasonValidation:
			c.JSON(http.StatusBadGateway, ErrorResponse{Error: "blockchain platform rejected the payload", Code: "BAAS_VALIDATION"})
		case baas.ReasonNetwork:
			c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "blockchain platform unreachable", Code: "BAAS_NETWORK"})
		default:
			c.JSON(http.StatusBadGateway, ErrorResponse{Error: "blockchain platform error", Code: "BAAS_SERVER"})
		}
		return
	}

	switch {
	case errors.Is(err, record.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, record.ErrDuplicateTrackingID):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, record.ErrInvalidTransition),
		errors.Is(err, record.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}
