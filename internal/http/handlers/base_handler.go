// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kiloadmin/internal/modules/auth"
	"kiloadmin/internal/modules/customer"
	"kiloadmin/internal/modules/driver"
	"kiloadmin/internal/modules/pricing"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps module errors onto HTTP statuses. Anything
// unrecognised is logged by the request logger and hidden from the client.
func writeServiceError(c *gin.Context, err error) {
	var (
		priceErr  *pricing.ValidationError
		driverErr *driver.ValidationError
		dupErr    *driver.DuplicateError
	)
	switch {
	case errors.As(err, &dupErr):
		writeJSON(c, http.StatusConflict, errorResponse{Error: dupErr.Error(), Code: dupErr.Code()})
	case errors.As(err, &priceErr):
		writeJSON(c, http.StatusBadRequest, errorResponse{Error: "invalid fee config", Code: "VALIDATION", Fields: priceErr.Fields})
	case errors.As(err, &driverErr):
		writeJSON(c, http.StatusBadRequest, errorResponse{Error: "invalid driver", Code: "VALIDATION", Fields: driverErr.Fields})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, pricing.ErrBadRequest), errors.Is(err, driver.ErrBadRequest),
		errors.Is(err, customer.ErrBadRequest), errors.Is(err, auth.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, pricing.ErrNotFound), errors.Is(err, driver.ErrNotFound),
		errors.Is(err, customer.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, driver.ErrConflict), errors.Is(err, auth.ErrAdminExists):
		writeError(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
