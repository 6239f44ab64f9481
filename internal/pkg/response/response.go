package response

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
)

// Pagination metadata returned with paginated responses.
type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"currentPage"`
	TotalPage   int   `json:"totalPage"`
	Size        int   `json:"size"`
	HasNextPage bool  `json:"hasNextPage"`
}

type pagedResponse struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Paged sends a paginated response.
func Paged(c *gin.Context, data any, pagination Pagination) {
	c.JSON(http.StatusOK, pagedResponse{Data: data, Pagination: pagination})
}

// OK sends a 200 response. Arrays/slices are wrapped in {data: [...]}.
func OK(c *gin.Context, data any) {
	if data != nil {
		v := reflect.ValueOf(data)
		if v.Kind() == reflect.Slice {
			c.JSON(http.StatusOK, gin.H{"data": data})
			return
		}
	}
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 response.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error aborts with the {ok, code, message} envelope plus any extra fields.
func Error(c *gin.Context, status int, message string, extra gin.H) {
	body := gin.H{"ok": 0, "code": status, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message, nil)
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "sign in to continue", nil)
}

// PaymentRequired sends a 402 carrying the current credit balance.
func PaymentRequired(c *gin.Context, message string, remaining, total int) {
	Error(c, http.StatusPaymentRequired, message, gin.H{"remaining": remaining, "total": total})
}

// UpgradeRequired sends a 403 asking the user to move to requiredTier.
func UpgradeRequired(c *gin.Context, message, feature, requiredTier string) {
	Error(c, http.StatusForbidden, message, gin.H{
		"feature":      feature,
		"requiredTier": requiredTier,
		"upgrade":      true,
	})
}

// NotFoundMsg sends a 404 error with a custom message.
func NotFoundMsg(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}

// Conflict sends a 409 error response.
func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message, nil)
}

// UnprocessableEntity sends a 422 error response.
func UnprocessableEntity(c *gin.Context, message string) {
	Error(c, http.StatusUnprocessableEntity, message, nil)
}

// InternalError sends a 500 error response.
func InternalError(c *gin.Context, err error) {
	Error(c, http.StatusInternalServerError, err.Error(), nil)
}

// BadGateway sends a 502 for failures of an upstream service.
func BadGateway(c *gin.Context, message string) {
	Error(c, http.StatusBadGateway, message, nil)
}

