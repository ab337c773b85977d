// README: Customer list and detail handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"kiloadmin/internal/modules/customer"
	"kiloadmin/internal/types"
)

type CustomerService interface {
	List(ctx context.Context) ([]customer.Customer, error)
	Get(ctx context.Context, id types.ID) (*customer.Customer, error)
}

type CustomerHandler struct {
	customers CustomerService
}

func NewCustomerHandler(svc CustomerService) *CustomerHandler {
	return &CustomerHandler{customers: svc}
}

func (h *CustomerHandler) List(c *gin.Context) {
	list, err := h.customers.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, list)
}

func (h *CustomerHandler) Get(c *gin.Context) {
	cu, err := h.customers.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, cu)
}
