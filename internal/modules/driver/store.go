// README: Driver store backed by PostgreSQL.
package driver

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kiloadmin/internal/types"
)

const uniqueViolation = "23505"

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const driverColumns = `id::text, driver_id, name, phone, vehicle_number, vehicle_model,
	driving_license_number, address, address_lat, address_lng, profile_picture_url,
	balance, birth_date, disabled, verified, created_at`

func scanDriver(row pgx.Row) (*Driver, error) {
	var d Driver
	err := row.Scan(
		&d.ID, &d.DriverID, &d.Name, &d.Phone, &d.VehicleNumber, &d.VehicleModel,
		&d.DrivingLicenseNumber, &d.Address, &d.AddressLat, &d.AddressLng, &d.ProfilePictureURL,
		&d.Balance, &d.BirthDate, &d.Disabled, &d.Verified, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Tier = ClassifyTier(d.DriverID)
	return &d, nil
}

func (s *Store) List(ctx context.Context) ([]Driver, error) {
	rows, err := s.db.Query(ctx, `SELECT `+driverColumns+` FROM drivers ORDER BY created_at ASC, driver_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drivers := []Driver{}
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, *d)
	}
	return drivers, rows.Err()
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Driver, error) {
	if _, err := uuid.Parse(string(id)); err != nil {
		return nil, ErrNotFound
	}
	d, err := scanDriver(s.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *Store) Create(ctx context.Context, in NewDriver) (*Driver, error) {
	id := uuid.NewString()
	row := s.db.QueryRow(ctx, `
		INSERT INTO drivers (id, driver_id, name, phone, vehicle_number, password_hash,
			driving_license_number, vehicle_model, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+driverColumns,
		id, in.DriverID, in.Name, in.Phone, in.VehicleNumber, in.PasswordHash,
		in.DrivingLicenseNumber, in.VehicleModel, in.Address,
	)
	d, err := scanDriver(row)
	if err != nil {
		return nil, duplicateError(err, in)
	}
	return d, nil
}

// duplicateError turns a unique violation into the matching domain error.
func duplicateError(err error, in NewDriver) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "drivers_driver_id_key":
		return &DuplicateError{Field: "driver_id", Value: in.DriverID}
	case "drivers_phone_key":
		return &DuplicateError{Field: "phone", Value: in.Phone}
	}
	return err
}

// Update writes the patch and, when point is non-nil, the geocoded address.
// A nil point clears the coordinates if the address itself was cleared.
func (s *Store) Update(ctx context.Context, id types.ID, p Patch, point *Point) (*Driver, error) {
	if _, err := uuid.Parse(string(id)); err != nil {
		return nil, ErrNotFound
	}
	var lat, lng *float64
	if point != nil {
		lat, lng = &point.Lat, &point.Lng
	}
	row := s.db.QueryRow(ctx, `
		UPDATE drivers SET
			disabled = $2,
			driving_license_number = $3,
			vehicle_model = $4,
			address = $5,
			verified = $6,
			address_lat = CASE WHEN $5::text IS NULL THEN NULL WHEN $7::float8 IS NULL THEN address_lat ELSE $7 END,
			address_lng = CASE WHEN $5::text IS NULL THEN NULL WHEN $8::float8 IS NULL THEN address_lng ELSE $8 END
		WHERE id = $1
		RETURNING `+driverColumns,
		string(id), p.Disabled, p.DrivingLicenseNumber, p.VehicleModel, p.Address, p.Verified, lat, lng,
	)
	d, err := scanDriver(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *Store) Delete(ctx context.Context, id types.ID) error {
	if _, err := uuid.Parse(string(id)); err != nil {
		return ErrNotFound
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM drivers WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
