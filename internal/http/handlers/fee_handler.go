// README: Setup Fees handlers: fee configs, time-based fee slots and live quotes.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"kiloadmin/internal/modules/pricing"
	"kiloadmin/internal/types"
)

type FeeService interface {
	List(ctx context.Context) ([]pricing.FeeConfig, error)
	Get(ctx context.Context, id types.ID) (*pricing.FeeConfig, error)
	Create(ctx context.Context, cmd pricing.SaveCommand) (*pricing.FeeConfig, error)
	Save(ctx context.Context, cmd pricing.SaveCommand) (*pricing.FeeConfig, error)
	AddSlot(ctx context.Context, configID types.ID, in pricing.SlotInput) (*pricing.TimeSlot, error)
	UpdateSlot(ctx context.Context, in pricing.SlotInput) (*pricing.TimeSlot, error)
	DeleteSlot(ctx context.Context, id types.ID) error
	Quote(ctx context.Context, id types.ID, at pricing.Clock) (*pricing.Quote, error)
}

type FeeHandler struct {
	fees FeeService
}

func NewFeeHandler(svc FeeService) *FeeHandler {
	return &FeeHandler{fees: svc}
}

// slotReq uses pointers so an omitted hour stays distinguishable from 00:00.
type slotReq struct {
	ID    string         `json:"id"`
	Start *pricing.Clock `json:"start_hour"`
	End   *pricing.Clock `json:"end_hour"`
	Fee   types.Money    `json:"fee"`
}

func clockOrNone(c *pricing.Clock) pricing.Clock {
	if c == nil {
		return pricing.NoClock
	}
	return *c
}

func (r slotReq) input() pricing.SlotInput {
	return pricing.SlotInput{
		ID:    types.ID(r.ID),
		Start: clockOrNone(r.Start),
		End:   clockOrNone(r.End),
		Fee:   r.Fee,
	}
}

type feeConfigReq struct {
	BaseFee             types.Money            `json:"base_fee"`
	InsuranceFee        types.Money            `json:"insurance_fee"`
	PlatformFee         types.Money            `json:"platform_fee"`
	WaitingFeePerMinute types.Money            `json:"waiting_fee_per_minute"`
	FreeWaitingMinute   *int                   `json:"free_waiting_minute"`
	DistanceFeePerKm    types.Money            `json:"distance_fee_per_km"`
	CommissionRateType  pricing.CommissionType `json:"commission_rate_type"`
	CommissionRate      float64                `json:"commission_rate"`
	OutOfTown           types.Money            `json:"out_of_town"`
	TimeBasedFees       []slotReq              `json:"time_based_fees"`
}

func (r feeConfigReq) command(id types.ID) pricing.SaveCommand {
	freeWaiting := 10
	if r.FreeWaitingMinute != nil {
		freeWaiting = *r.FreeWaitingMinute
	}
	commissionType := r.CommissionRateType
	if commissionType == "" {
		commissionType = pricing.CommissionFixed
	}
	slots := make([]pricing.SlotInput, 0, len(r.TimeBasedFees))
	for _, s := range r.TimeBasedFees {
		slots = append(slots, s.input())
	}
	return pricing.SaveCommand{
		ID:                  id,
		BaseFee:             r.BaseFee,
		InsuranceFee:        r.InsuranceFee,
		PlatformFee:         r.PlatformFee,
		WaitingFeePerMinute: r.WaitingFeePerMinute,
		FreeWaitingMinute:   freeWaiting,
		DistanceFeePerKm:    r.DistanceFeePerKm,
		CommissionRateType:  commissionType,
		CommissionRate:      r.CommissionRate,
		OutOfTown:           r.OutOfTown,
		TimeBasedFees:       slots,
	}
}

func (h *FeeHandler) List(c *gin.Context) {
	configs, err := h.fees.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if configs == nil {
		configs = []pricing.FeeConfig{}
	}
	writeJSON(c, http.StatusOK, configs)
}

func (h *FeeHandler) Get(c *gin.Context) {
	cfg, err := h.fees.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, cfg)
}

func (h *FeeHandler) Create(c *gin.Context) {
	var req feeConfigReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cfg, err := h.fees.Create(c.Request.Context(), req.command(""))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, cfg)
}

// Save is the Setup Fees form submit: scalars plus the full slot list.
func (h *FeeHandler) Save(c *gin.Context) {
	var req feeConfigReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cfg, err := h.fees.Save(c.Request.Context(), req.command(types.ID(c.Param("id"))))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, cfg)
}

// Quote returns the live fee at ?at=HH:MM, or now when at is omitted.
func (h *FeeHandler) Quote(c *gin.Context) {
	at, err := pricing.ParseClock(c.Query("at"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "at must be HH:MM")
		return
	}
	q, err := h.fees.Quote(c.Request.Context(), types.ID(c.Param("id")), at)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

func (h *FeeHandler) AddSlot(c *gin.Context) {
	var req slotReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	slot, err := h.fees.AddSlot(c.Request.Context(), types.ID(c.Param("id")), req.input())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, slot)
}

func (h *FeeHandler) UpdateSlot(c *gin.Context) {
	var req slotReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.ID = c.Param("id")
	slot, err := h.fees.UpdateSlot(c.Request.Context(), req.input())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, slot)
}

func (h *FeeHandler) DeleteSlot(c *gin.Context) {
	if err := h.fees.DeleteSlot(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
