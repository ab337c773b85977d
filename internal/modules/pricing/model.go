// README: Fee configuration, time-based surcharge slots and quote types.
package pricing

import (
	"time"

	"kiloadmin/internal/types"
)

type CommissionType string

const (
	CommissionPercentage CommissionType = "percentage"
	CommissionFixed      CommissionType = "fixed"
)

func (c CommissionType) Valid() bool {
	return c == CommissionPercentage || c == CommissionFixed
}

// FeeConfig is a ride's base pricing parameters plus its surcharge slots.
// BaseFee is what admins edit; InitialFee is BaseFee plus whatever surcharge
// the scheduler last applied.
type FeeConfig struct {
	ID                  types.ID       `json:"id"`
	BaseFee             types.Money    `json:"base_fee"`
	InitialFee          types.Money    `json:"initial_fee"`
	InsuranceFee        types.Money    `json:"insurance_fee"`
	PlatformFee         types.Money    `json:"platform_fee"`
	WaitingFeePerMinute types.Money    `json:"waiting_fee_per_minute"`
	FreeWaitingMinute   int            `json:"free_waiting_minute"`
	DistanceFeePerKm    types.Money    `json:"distance_fee_per_km"`
	CommissionRateType  CommissionType `json:"commission_rate_type"`
	CommissionRate      float64        `json:"commission_rate"`
	OutOfTown           types.Money    `json:"out_of_town"`
	TimeBasedFees       []TimeSlot     `json:"time_based_fees"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// TimeSlot is a surcharge applied while the clock is inside [Start, End).
// Start > End wraps past midnight.
type TimeSlot struct {
	ID    types.ID    `json:"id"`
	Start Clock       `json:"start_hour"`
	End   Clock       `json:"end_hour"`
	Fee   types.Money `json:"fee"`
}

// Boundary names which edge of a slot fired.
type Boundary string

const (
	BoundaryStart Boundary = "start"
	BoundaryEnd   Boundary = "end"
)

type Quote struct {
	ConfigID    types.ID    `json:"fee_config_id"`
	At          Clock       `json:"at"`
	Base        types.Money `json:"base"`
	Surcharge   types.Money `json:"surcharge"`
	Total       types.Money `json:"total"`
	ActiveSlots []TimeSlot  `json:"active_slots"`
}
