// README: Read-only customer listing for the dashboard; the password column is never selected.
package customer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kiloadmin/internal/types"
)

var (
	ErrNotFound   = errors.New("customer not found")
	ErrBadRequest = errors.New("bad request")
)

type Customer struct {
	ID                types.ID  `json:"id"`
	Name              string    `json:"name"`
	Email             *string   `json:"email"`
	Phone             string    `json:"phone"`
	ProfilePictureURL *string   `json:"profile_picture_url"`
	FCMToken          *string   `json:"fcm_token"`
	Disabled          bool      `json:"disabled"`
	CreatedAt         time.Time `json:"created_at"`
}

type Repository interface {
	List(ctx context.Context) ([]Customer, error)
	Get(ctx context.Context, id types.ID) (*Customer, error)
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const customerColumns = `id::text, name, email, phone, profile_picture_url, fcm_token, disabled, created_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.ProfilePictureURL, &c.FCMToken, &c.Disabled, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) List(ctx context.Context) ([]Customer, error) {
	rows, err := s.db.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at ASC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Customer, error) {
	if _, err := uuid.Parse(string(id)); err != nil {
		return nil, ErrNotFound
	}
	c, err := scanCustomer(s.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

type Service struct {
	store Repository
}

func NewService(store Repository) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context) ([]Customer, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Customer, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	return s.store.Get(ctx, id)
}
