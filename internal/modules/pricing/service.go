// README: Pricing service: fee config CRUD, live quotes and boundary application.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kiloadmin/internal/types"
)

var (
	ErrNotFound   = errors.New("fee config not found")
	ErrBadRequest = errors.New("bad request")
)

// ValidationError lists field problems for a rejected command.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fee config (%d fields)", len(e.Fields))
}

func (e *ValidationError) Unwrap() error { return ErrBadRequest }

type Repository interface {
	ListConfigs(ctx context.Context) ([]FeeConfig, error)
	GetConfig(ctx context.Context, id types.ID) (*FeeConfig, error)
	CreateConfig(ctx context.Context, c *FeeConfig) error
	SaveConfig(ctx context.Context, c *FeeConfig) error
	InsertSlot(ctx context.Context, configID types.ID, slot *TimeSlot) error
	UpdateSlot(ctx context.Context, slot TimeSlot) (types.ID, error)
	DeleteSlot(ctx context.Context, id types.ID) (types.ID, error)
	// ApplySurcharge sets initial_fee to the stored base fee plus surcharge
	// and returns the written value.
	ApplySurcharge(ctx context.Context, id types.ID, surcharge types.Money) (types.Money, error)
}

type Service struct {
	store Repository
	cache ConfigCache
	loc   *time.Location
	log   *zap.Logger
	now   func() time.Time
}

// NewService wires the pricing service. A nil cache disables caching, a nil
// loc means UTC.
func NewService(store Repository, cache ConfigCache, loc *time.Location, log *zap.Logger) *Service {
	if cache == nil {
		cache = nopCache{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, cache: cache, loc: loc, log: log, now: time.Now}
}

// Now returns the current time in the fee timezone.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// SlotInput is one row of the time-based fee list in a save command.
// An empty ID means a new slot.
type SlotInput struct {
	ID    types.ID
	Start Clock
	End   Clock
	Fee   types.Money
}

// SaveCommand is a full Setup Fees form submission.
type SaveCommand struct {
	ID                  types.ID
	BaseFee             types.Money
	InsuranceFee        types.Money
	PlatformFee         types.Money
	WaitingFeePerMinute types.Money
	FreeWaitingMinute   int
	DistanceFeePerKm    types.Money
	CommissionRateType  CommissionType
	CommissionRate      float64
	OutOfTown           types.Money
	TimeBasedFees       []SlotInput
}

func (cmd SaveCommand) validate() error {
	fields := map[string]string{}
	money := map[string]types.Money{
		"base_fee":               cmd.BaseFee,
		"insurance_fee":          cmd.InsuranceFee,
		"platform_fee":           cmd.PlatformFee,
		"waiting_fee_per_minute": cmd.WaitingFeePerMinute,
		"distance_fee_per_km":    cmd.DistanceFeePerKm,
		"out_of_town":            cmd.OutOfTown,
	}
	for name, v := range money {
		if v < 0 {
			fields[name] = "must not be negative"
		}
	}
	if cmd.FreeWaitingMinute < 0 {
		fields["free_waiting_minute"] = "must not be negative"
	}
	if !cmd.CommissionRateType.Valid() {
		fields["commission_rate_type"] = "must be percentage or fixed"
	}
	if cmd.CommissionRate < 0 {
		fields["commission_rate"] = "must not be negative"
	} else if cmd.CommissionRateType == CommissionPercentage && cmd.CommissionRate > 100 {
		fields["commission_rate"] = "percentage must be at most 100"
	}
	for i, slot := range cmd.TimeBasedFees {
		prefix := fmt.Sprintf("time_based_fees.%d.", i)
		if err := validateSlot(slot.Start, slot.End, slot.Fee); err != nil {
			for k, v := range err {
				fields[prefix+k] = v
			}
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validateSlot(start, end Clock, fee types.Money) map[string]string {
	fields := map[string]string{}
	if !start.Valid() {
		fields["start_hour"] = "Start Hour required"
	}
	if !end.Valid() {
		fields["end_hour"] = "End Hour required"
	}
	if fee < 0 {
		fields["fee"] = "must not be negative"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func (cmd SaveCommand) toConfig() *FeeConfig {
	slots := make([]TimeSlot, 0, len(cmd.TimeBasedFees))
	for _, in := range cmd.TimeBasedFees {
		slots = append(slots, TimeSlot{ID: in.ID, Start: in.Start, End: in.End, Fee: in.Fee})
	}
	return &FeeConfig{
		ID:                  cmd.ID,
		BaseFee:             cmd.BaseFee,
		InsuranceFee:        cmd.InsuranceFee,
		PlatformFee:         cmd.PlatformFee,
		WaitingFeePerMinute: cmd.WaitingFeePerMinute,
		FreeWaitingMinute:   cmd.FreeWaitingMinute,
		DistanceFeePerKm:    cmd.DistanceFeePerKm,
		CommissionRateType:  cmd.CommissionRateType,
		CommissionRate:      cmd.CommissionRate,
		OutOfTown:           cmd.OutOfTown,
		TimeBasedFees:       slots,
	}
}

// List returns every fee config, ordered by commission rate, read through
// the cache.
func (s *Service) List(ctx context.Context) ([]FeeConfig, error) {
	if configs, ok, err := s.cache.Get(ctx); err != nil {
		s.log.Warn("fee cache read failed", zap.Error(err))
	} else if ok {
		return configs, nil
	}
	configs, err := s.store.ListConfigs(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, configs); err != nil {
		s.log.Warn("fee cache write failed", zap.Error(err))
	}
	return configs, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*FeeConfig, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	return s.store.GetConfig(ctx, id)
}

// Create stores a new config. Its ID in cmd is ignored.
func (s *Service) Create(ctx context.Context, cmd SaveCommand) (*FeeConfig, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	c := cmd.toConfig()
	c.ID = ""
	for i := range c.TimeBasedFees {
		c.TimeBasedFees[i].ID = ""
	}
	c.InitialFee = LiveFee(c.BaseFee, c.TimeBasedFees, ClockOf(s.Now()))
	if err := s.store.CreateConfig(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.store.GetConfig(ctx, c.ID)
}

// Save applies a full form submission: config fields plus the complete slot
// list. The effective initial fee is recomputed for the current time so the
// stored value never drifts from base plus the applicable surcharge.
func (s *Service) Save(ctx context.Context, cmd SaveCommand) (*FeeConfig, error) {
	if cmd.ID == "" {
		return nil, ErrBadRequest
	}
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	c := cmd.toConfig()
	c.InitialFee = LiveFee(c.BaseFee, c.TimeBasedFees, ClockOf(s.Now()))
	if err := s.store.SaveConfig(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.log.Info("fee config saved",
		zap.String("fee_config_id", string(c.ID)),
		zap.Int64("base_fee", int64(c.BaseFee)),
		zap.Int64("initial_fee", int64(c.InitialFee)),
		zap.Int("slots", len(c.TimeBasedFees)),
	)
	return s.store.GetConfig(ctx, c.ID)
}

func (s *Service) AddSlot(ctx context.Context, configID types.ID, in SlotInput) (*TimeSlot, error) {
	if configID == "" {
		return nil, ErrBadRequest
	}
	if fields := validateSlot(in.Start, in.End, in.Fee); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	slot := &TimeSlot{Start: in.Start, End: in.End, Fee: in.Fee}
	if err := s.store.InsertSlot(ctx, configID, slot); err != nil {
		return nil, err
	}
	s.refreshInitialFee(ctx, configID)
	return slot, nil
}

func (s *Service) UpdateSlot(ctx context.Context, in SlotInput) (*TimeSlot, error) {
	if in.ID == "" {
		return nil, ErrBadRequest
	}
	if fields := validateSlot(in.Start, in.End, in.Fee); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	slot := TimeSlot{ID: in.ID, Start: in.Start, End: in.End, Fee: in.Fee}
	configID, err := s.store.UpdateSlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	s.refreshInitialFee(ctx, configID)
	return &slot, nil
}

func (s *Service) DeleteSlot(ctx context.Context, id types.ID) error {
	if id == "" {
		return ErrBadRequest
	}
	configID, err := s.store.DeleteSlot(ctx, id)
	if err != nil {
		return err
	}
	s.refreshInitialFee(ctx, configID)
	return nil
}

// Quote computes the live fee of a config at the given minute.
func (s *Service) Quote(ctx context.Context, id types.ID, at Clock) (*Quote, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !at.Valid() {
		at = ClockOf(s.Now())
	}
	surcharge := ApplicableSurcharge(c.TimeBasedFees, at)
	return &Quote{
		ConfigID:    c.ID,
		At:          at,
		Base:        c.BaseFee,
		Surcharge:   surcharge,
		Total:       c.BaseFee + surcharge,
		ActiveSlots: ActiveSlots(c.TimeBasedFees, at),
	}, nil
}

// ApplyBoundary persists the effective fee of c at minute at and returns it.
// The base fee is read by the store, so a stale c only affects the surcharge.
func (s *Service) ApplyBoundary(ctx context.Context, c FeeConfig, at Clock) (types.Money, error) {
	fee, err := s.store.ApplySurcharge(ctx, c.ID, ApplicableSurcharge(c.TimeBasedFees, at))
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	return fee, nil
}

// refreshInitialFee re-derives the stored initial fee after a single-slot
// mutation. Failures are logged; the slot write itself already succeeded.
func (s *Service) refreshInitialFee(ctx context.Context, configID types.ID) {
	defer s.invalidate(ctx)
	c, err := s.store.GetConfig(ctx, configID)
	if err != nil {
		s.log.Warn("reload fee config after slot change", zap.String("fee_config_id", string(configID)), zap.Error(err))
		return
	}
	surcharge := ApplicableSurcharge(c.TimeBasedFees, ClockOf(s.Now()))
	if c.BaseFee+surcharge == c.InitialFee {
		return
	}
	if _, err := s.store.ApplySurcharge(ctx, configID, surcharge); err != nil {
		s.log.Warn("refresh initial fee", zap.String("fee_config_id", string(configID)), zap.Error(err))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("fee cache invalidate failed", zap.Error(err))
	}
}
