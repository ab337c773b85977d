// README: Admin account store backed by PostgreSQL.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kiloadmin/internal/types"
)

type Admin struct {
	ID           types.ID  `json:"id"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) FindByPhone(ctx context.Context, phone string) (*Admin, error) {
	var a Admin
	err := s.db.QueryRow(ctx, `
		SELECT id::text, phone, password_hash, role, created_at
		FROM admins WHERE phone = $1`, phone,
	).Scan(&a.ID, &a.Phone, &a.PasswordHash, &a.Role, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Admin) error {
	if a.ID == "" {
		a.ID = types.ID(uuid.NewString())
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO admins (id, phone, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		string(a.ID), a.Phone, a.PasswordHash, string(a.Role),
	).Scan(&a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAdminExists
	}
	return err
}
