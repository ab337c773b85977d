// README: Fee config store backed by PostgreSQL.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kiloadmin/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const configColumns = `id::text, base_fee, initial_fee, insurance_fee, platform_fee,
	waiting_fee_per_minute, free_waiting_minute, distance_fee_per_km,
	commission_rate_type, commission_rate, out_of_town, updated_at`

const slotColumns = `id::text, fee_config_id::text, to_char(start_hour, 'HH24:MI'), to_char(end_hour, 'HH24:MI'), fee`

// validID reports whether id can be a stored row id. Anything else is
// reported as not found rather than reaching postgres as a bad uuid cast.
func validID(id types.ID) bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}

func scanConfig(row pgx.Row) (*FeeConfig, error) {
	var c FeeConfig
	err := row.Scan(
		&c.ID, &c.BaseFee, &c.InitialFee, &c.InsuranceFee, &c.PlatformFee,
		&c.WaitingFeePerMinute, &c.FreeWaitingMinute, &c.DistanceFeePerKm,
		&c.CommissionRateType, &c.CommissionRate, &c.OutOfTown, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.TimeBasedFees = []TimeSlot{}
	return &c, nil
}

func scanSlot(rows pgx.Rows) (types.ID, TimeSlot, error) {
	var (
		s          TimeSlot
		configID   types.ID
		start, end string
	)
	if err := rows.Scan(&s.ID, &configID, &start, &end, &s.Fee); err != nil {
		return "", s, err
	}
	var err error
	if s.Start, err = ParseClock(start); err != nil {
		return "", s, err
	}
	if s.End, err = ParseClock(end); err != nil {
		return "", s, err
	}
	return configID, s, nil
}

func (s *Store) ListConfigs(ctx context.Context) ([]FeeConfig, error) {
	rows, err := s.db.Query(ctx, `SELECT `+configColumns+` FROM fee_configs ORDER BY commission_rate ASC, id`)
	if err != nil {
		return nil, err
	}
	var configs []FeeConfig
	index := map[types.ID]int{}
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[c.ID] = len(configs)
		configs = append(configs, *c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slotRows, err := s.db.Query(ctx, `SELECT `+slotColumns+` FROM time_based_fee ORDER BY position, id`)
	if err != nil {
		return nil, err
	}
	defer slotRows.Close()
	for slotRows.Next() {
		configID, slot, err := scanSlot(slotRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[configID]; ok {
			configs[i].TimeBasedFees = append(configs[i].TimeBasedFees, slot)
		}
	}
	if configs == nil {
		configs = []FeeConfig{}
	}
	return configs, slotRows.Err()
}

func (s *Store) GetConfig(ctx context.Context, id types.ID) (*FeeConfig, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	c, err := scanConfig(s.db.QueryRow(ctx, `SELECT `+configColumns+` FROM fee_configs WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `SELECT `+slotColumns+` FROM time_based_fee WHERE fee_config_id = $1 ORDER BY position, id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		_, slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		c.TimeBasedFees = append(c.TimeBasedFees, slot)
	}
	return c, rows.Err()
}

// CreateConfig inserts c and its slots, assigning IDs.
func (s *Store) CreateConfig(ctx context.Context, c *FeeConfig) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		c.ID = types.ID(uuid.NewString())
		_, err := tx.Exec(ctx, `
			INSERT INTO fee_configs (
				id, base_fee, initial_fee, insurance_fee, platform_fee,
				waiting_fee_per_minute, free_waiting_minute, distance_fee_per_km,
				commission_rate_type, commission_rate, out_of_town, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())`,
			string(c.ID), c.BaseFee, c.InitialFee, c.InsuranceFee, c.PlatformFee,
			c.WaitingFeePerMinute, c.FreeWaitingMinute, c.DistanceFeePerKm,
			string(c.CommissionRateType), c.CommissionRate, c.OutOfTown,
		)
		if err != nil {
			return err
		}
		for i := range c.TimeBasedFees {
			if err := insertSlot(ctx, tx, c.ID, &c.TimeBasedFees[i], i); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveConfig updates the scalar fields of c and replaces its slot list:
// slots with an ID are updated in place, slots without one are inserted, and
// stored slots absent from c are deleted. All in one transaction.
func (s *Store) SaveConfig(ctx context.Context, c *FeeConfig) error {
	if !validID(c.ID) {
		return ErrNotFound
	}
	for _, slot := range c.TimeBasedFees {
		if slot.ID != "" && !validID(slot.ID) {
			return fmt.Errorf("time-based fee %s: %w", slot.ID, ErrNotFound)
		}
	}
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE fee_configs SET
				base_fee = $2,
				initial_fee = $3,
				insurance_fee = $4,
				platform_fee = $5,
				waiting_fee_per_minute = $6,
				free_waiting_minute = $7,
				distance_fee_per_km = $8,
				commission_rate_type = $9,
				commission_rate = $10,
				out_of_town = $11,
				updated_at = NOW()
			WHERE id = $1`,
			string(c.ID), c.BaseFee, c.InitialFee, c.InsuranceFee, c.PlatformFee,
			c.WaitingFeePerMinute, c.FreeWaitingMinute, c.DistanceFeePerKm,
			string(c.CommissionRateType), c.CommissionRate, c.OutOfTown,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		keep := make([]string, 0, len(c.TimeBasedFees))
		for i := range c.TimeBasedFees {
			slot := &c.TimeBasedFees[i]
			if slot.ID == "" {
				if err := insertSlot(ctx, tx, c.ID, slot, i); err != nil {
					return err
				}
				keep = append(keep, string(slot.ID))
				continue
			}
			tag, err := tx.Exec(ctx, `
				UPDATE time_based_fee
				SET start_hour = $3::time, end_hour = $4::time, fee = $5, position = $6
				WHERE id = $1 AND fee_config_id = $2`,
				string(slot.ID), string(c.ID), slot.Start.String(), slot.End.String(), slot.Fee, i,
			)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("time-based fee %s: %w", slot.ID, ErrNotFound)
			}
			keep = append(keep, string(slot.ID))
		}

		_, err = tx.Exec(ctx, `
			DELETE FROM time_based_fee
			WHERE fee_config_id = $1 AND NOT (id::text = ANY($2))`,
			string(c.ID), keep,
		)
		return err
	})
}

func insertSlot(ctx context.Context, tx pgx.Tx, configID types.ID, slot *TimeSlot, position int) error {
	slot.ID = types.ID(uuid.NewString())
	_, err := tx.Exec(ctx, `
		INSERT INTO time_based_fee (id, fee_config_id, start_hour, end_hour, fee, position)
		VALUES ($1, $2, $3::time, $4::time, $5, $6)`,
		string(slot.ID), string(configID), slot.Start.String(), slot.End.String(), slot.Fee, position,
	)
	return err
}

// InsertSlot appends slot to the end of the config's slot list.
func (s *Store) InsertSlot(ctx context.Context, configID types.ID, slot *TimeSlot) error {
	if !validID(configID) {
		return ErrNotFound
	}
	slot.ID = types.ID(uuid.NewString())
	_, err := s.db.Exec(ctx, `
		INSERT INTO time_based_fee (id, fee_config_id, start_hour, end_hour, fee, position)
		SELECT $1, $2, $3::time, $4::time, $5,
			COALESCE((SELECT MAX(position) + 1 FROM time_based_fee WHERE fee_config_id = $2), 0)`,
		string(slot.ID), string(configID), slot.Start.String(), slot.End.String(), slot.Fee,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrNotFound
	}
	return err
}

// UpdateSlot rewrites a slot and returns the owning config id.
func (s *Store) UpdateSlot(ctx context.Context, slot TimeSlot) (types.ID, error) {
	if !validID(slot.ID) {
		return "", ErrNotFound
	}
	var configID types.ID
	err := s.db.QueryRow(ctx, `
		UPDATE time_based_fee
		SET start_hour = $2::time, end_hour = $3::time, fee = $4
		WHERE id = $1
		RETURNING fee_config_id::text`,
		string(slot.ID), slot.Start.String(), slot.End.String(), slot.Fee,
	).Scan(&configID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return configID, err
}

// DeleteSlot removes a slot and returns the owning config id.
func (s *Store) DeleteSlot(ctx context.Context, id types.ID) (types.ID, error) {
	if !validID(id) {
		return "", ErrNotFound
	}
	var configID types.ID
	err := s.db.QueryRow(ctx, `DELETE FROM time_based_fee WHERE id = $1 RETURNING fee_config_id::text`, string(id)).Scan(&configID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return configID, err
}

func (s *Store) ApplySurcharge(ctx context.Context, id types.ID, surcharge types.Money) (types.Money, error) {
	if !validID(id) {
		return 0, ErrNotFound
	}
	var fee types.Money
	err := s.db.QueryRow(ctx,
		`UPDATE fee_configs SET initial_fee = base_fee + $2, updated_at = NOW() WHERE id = $1 RETURNING initial_fee`,
		string(id), surcharge).Scan(&fee)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return fee, err
}
