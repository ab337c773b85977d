// README: Driver list, create account, edit and delete handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"kiloadmin/internal/modules/driver"
	"kiloadmin/internal/types"
)

type DriverService interface {
	List(ctx context.Context, q driver.ListQuery) ([]driver.Driver, error)
	Get(ctx context.Context, id types.ID) (*driver.Driver, error)
	Create(ctx context.Context, cmd driver.CreateCommand) (*driver.Driver, error)
	Update(ctx context.Context, cmd driver.UpdateCommand) (*driver.Driver, error)
	Delete(ctx context.Context, id types.ID) error
}

type DriverHandler struct {
	drivers DriverService
}

func NewDriverHandler(svc DriverService) *DriverHandler {
	return &DriverHandler{drivers: svc}
}

func (h *DriverHandler) Tiers(c *gin.Context) {
	writeJSON(c, http.StatusOK, driver.AllTiers())
}

func (h *DriverHandler) List(c *gin.Context) {
	q, err := driver.ParseListQuery(c.Query("tier"), c.Query("order"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "tier must be 0-2 and order asc or desc")
		return
	}
	drivers, err := h.drivers.List(c.Request.Context(), q)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, drivers)
}

func (h *DriverHandler) Get(c *gin.Context) {
	d, err := h.drivers.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *DriverHandler) Create(c *gin.Context) {
	var cmd driver.CreateCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.drivers.Create(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, d)
}

type updateDriverReq struct {
	Disabled             bool    `json:"disabled"`
	DrivingLicenseNumber *string `json:"driving_license_number"`
	VehicleModel         *string `json:"vehicle_model"`
	Street               *string `json:"street"`
	City                 *string `json:"city"`
}

func (h *DriverHandler) Update(c *gin.Context) {
	var req updateDriverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.drivers.Update(c.Request.Context(), driver.UpdateCommand{
		ID:                   types.ID(c.Param("id")),
		Disabled:             req.Disabled,
		DrivingLicenseNumber: req.DrivingLicenseNumber,
		VehicleModel:         req.VehicleModel,
		Street:               req.Street,
		City:                 req.City,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *DriverHandler) Delete(c *gin.Context) {
	if err := h.drivers.Delete(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
