// README: Driver service: account creation, profile edits, tier views and geocoding.
package driver

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"kiloadmin/internal/types"
)

type Repository interface {
	List(ctx context.Context) ([]Driver, error)
	Get(ctx context.Context, id types.ID) (*Driver, error)
	Create(ctx context.Context, in NewDriver) (*Driver, error)
	Update(ctx context.Context, id types.ID, p Patch, point *Point) (*Driver, error)
	Delete(ctx context.Context, id types.ID) error
}

// Geocoder resolves a free-form address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, err error)
}

type Service struct {
	store    Repository
	geocoder Geocoder
	validate *validator.Validate
	log      *zap.Logger
	hashCost int
}

// NewService wires the driver service. A nil geocoder disables geocoding.
func NewService(store Repository, geocoder Geocoder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		geocoder: geocoder,
		validate: newValidator(),
		log:      log,
		hashCost: bcrypt.DefaultCost,
	}
}

var driverIDPattern = regexp.MustCompile(`^7B\d{3}$`)

// validDriverID accepts 7B001 through 7B999.
func validDriverID(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if !driverIDPattern.MatchString(v) {
		return false
	}
	n, _ := strconv.Atoi(v[len(driverIDPrefix):])
	return n >= 1 && n <= 999
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("driverid", validDriverID)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// CreateCommand is the Create Account form.
type CreateCommand struct {
	DriverID      string `json:"driver_id" validate:"required,driverid"`
	Name          string `json:"name" validate:"required,min=2"`
	Phone         string `json:"phone" validate:"required,number,min=9,max=11"`
	VehicleNumber string `json:"vehicle_number" validate:"required,min=3"`
	Password      string `json:"password" validate:"required,len=6"`
}

var fieldMessages = map[string]string{
	"driver_id":      "Driver ID must be 7B followed by 001-999",
	"name":           "Name must be at least 2 characters",
	"phone":          "Phone must be 9 to 11 digits",
	"vehicle_number": "Vehicle number must be at least 3 characters",
	"password":       "Password must be exactly 6 characters",
}

func (s *Service) check(cmd any) error {
	err := s.validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = "invalid value"
		}
		fields[fe.Field()] = msg
	}
	return &ValidationError{Fields: fields}
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Driver, error) {
	cmd.DriverID = strings.ToUpper(strings.TrimSpace(cmd.DriverID))
	cmd.Name = strings.TrimSpace(cmd.Name)
	cmd.Phone = strings.TrimSpace(cmd.Phone)
	cmd.VehicleNumber = strings.TrimSpace(cmd.VehicleNumber)
	if err := s.check(cmd); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.hashCost)
	if err != nil {
		return nil, err
	}
	d, err := s.store.Create(ctx, NewDriver{
		DriverID:      cmd.DriverID,
		Name:          cmd.Name,
		Phone:         cmd.Phone,
		VehicleNumber: cmd.VehicleNumber,
		PasswordHash:  string(hash),
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("driver created", zap.String("driver_id", d.DriverID), zap.String("id", string(d.ID)))
	return d, nil
}

// UpdateCommand is the driver edit form. Blank strings count as absent.
type UpdateCommand struct {
	ID                   types.ID
	Disabled             bool
	DrivingLicenseNumber *string
	VehicleModel         *string
	Street               *string
	City                 *string
}

func present(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

// JoinAddress builds "street, city" from the parts that are present.
func JoinAddress(street, city *string) *string {
	parts := make([]string, 0, 2)
	for _, p := range []*string{street, city} {
		if p = present(p); p != nil {
			parts = append(parts, *p)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, ", ")
	return &joined
}

func (cmd UpdateCommand) patch() Patch {
	license := present(cmd.DrivingLicenseNumber)
	model := present(cmd.VehicleModel)
	street, city := present(cmd.Street), present(cmd.City)
	return Patch{
		Disabled:             cmd.Disabled,
		DrivingLicenseNumber: license,
		VehicleModel:         model,
		Address:              JoinAddress(street, city),
		Verified:             license != nil && model != nil && street != nil && city != nil,
	}
}

func (s *Service) Update(ctx context.Context, cmd UpdateCommand) (*Driver, error) {
	if cmd.ID == "" {
		return nil, ErrBadRequest
	}
	current, err := s.store.Get(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	p := cmd.patch()

	var point *Point
	if p.Address != nil && !sameString(current.Address, p.Address) && s.geocoder != nil {
		lat, lng, err := s.geocoder.Geocode(ctx, *p.Address)
		if err != nil {
			s.log.Warn("geocode driver address failed",
				zap.String("id", string(cmd.ID)), zap.Error(err))
		} else {
			point = &Point{Lat: lat, Lng: lng}
		}
	}
	return s.store.Update(ctx, cmd.ID, p, point)
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Driver, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	return s.store.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id types.ID) error {
	if id == "" {
		return ErrBadRequest
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("driver deleted", zap.String("id", string(id)))
	return nil
}

type ListQuery struct {
	Tier  int
	Order SortOrder
}

// ParseListQuery reads the tier and order query parameters.
func ParseListQuery(tier, order string) (ListQuery, error) {
	var q ListQuery
	if tier != "" {
		n, err := strconv.Atoi(tier)
		if err != nil || n < 0 || n > 2 {
			return q, ErrBadRequest
		}
		q.Tier = n
	}
	switch SortOrder(strings.ToLower(order)) {
	case "":
	case SortAsc:
		q.Order = SortAsc
	case SortDesc:
		q.Order = SortDesc
	default:
		return q, ErrBadRequest
	}
	return q, nil
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]Driver, error) {
	drivers, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	drivers = FilterByTier(drivers, q.Tier)
	if q.Order != "" {
		drivers = SortByTier(drivers, q.Order)
	}
	return drivers, nil
}
