package customer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiloadmin/internal/testdb"
	"kiloadmin/internal/types"
)

func TestStore_ListOmitsPassword(t *testing.T) {
	db := testdb.Open(t, "customers")
	ctx := context.Background()
	id := uuid.NewString()
	_, err := db.Exec(ctx, `INSERT INTO customers (id, name, phone, password, created_at) VALUES
		($1, 'Su Su', '091111111', 'secret', NOW() - INTERVAL '1 hour'),
		($2, 'Mya Mya', '092222222', 'secret', NOW())`, id, uuid.NewString())
	require.NoError(t, err)

	svc := NewService(NewStore(db))
	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Su Su", list[0].Name)

	raw, err := json.Marshal(list)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.NotContains(t, string(raw), "password")

	c, err := svc.Get(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, id, string(c.ID))

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, ErrBadRequest)
}

type fakeRepo struct {
	items []Customer
}

func (f *fakeRepo) List(ctx context.Context) ([]Customer, error) { return f.items, nil }

func (f *fakeRepo) Get(ctx context.Context, id types.ID) (*Customer, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, ErrNotFound
}

func TestService_Get(t *testing.T) {
	svc := NewService(&fakeRepo{items: []Customer{{ID: "c1", Name: "Su Su"}}})

	c, err := svc.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Su Su", c.Name)

	_, err = svc.Get(context.Background(), "c2")
	assert.ErrorIs(t, err, ErrNotFound)
}
