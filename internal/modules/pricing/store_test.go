// README: Fee store tests; database cases are skipped without KILO_TEST_DSN.
package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiloadmin/internal/testdb"
)

func TestStore_ConfigLifecycle(t *testing.T) {
	store := NewStore(testdb.Open(t, "time_based_fee", "fee_configs"))
	ctx := context.Background()

	cheap := &FeeConfig{BaseFee: 100, InitialFee: 100, FreeWaitingMinute: 10, CommissionRateType: CommissionFixed, CommissionRate: 5,
		TimeBasedFees: []TimeSlot{
			{Start: NewClock(9, 0), End: NewClock(17, 0), Fee: 20},
			{Start: NewClock(22, 0), End: NewClock(6, 0), Fee: 30},
		},
	}
	pricey := &FeeConfig{BaseFee: 300, InitialFee: 300, CommissionRateType: CommissionPercentage, CommissionRate: 2}
	require.NoError(t, store.CreateConfig(ctx, cheap))
	require.NoError(t, store.CreateConfig(ctx, pricey))

	all, err := store.ListConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, pricey.ID, all[0].ID, "ordered by commission rate")
	require.Len(t, all[1].TimeBasedFees, 2)
	assert.Equal(t, NewClock(22, 0), all[1].TimeBasedFees[1].Start)

	got, err := store.GetConfig(ctx, cheap.ID)
	require.NoError(t, err)
	keep := got.TimeBasedFees[0]
	keep.Fee = 25
	got.BaseFee = 120
	got.TimeBasedFees = []TimeSlot{keep, {Start: NewClock(18, 0), End: NewClock(19, 30), Fee: 5}}
	require.NoError(t, store.SaveConfig(ctx, got))

	got, err = store.GetConfig(ctx, cheap.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120), int64(got.BaseFee))
	require.Len(t, got.TimeBasedFees, 2)
	assert.Equal(t, keep.ID, got.TimeBasedFees[0].ID)
	assert.Equal(t, int64(25), int64(got.TimeBasedFees[0].Fee))
	assert.Equal(t, NewClock(19, 30), got.TimeBasedFees[1].End)

	fee, err := store.ApplySurcharge(ctx, cheap.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(145), int64(fee), "base fee read in the update")
	got, err = store.GetConfig(ctx, cheap.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(145), int64(got.InitialFee))
}

func TestStore_SlotMutations(t *testing.T) {
	store := NewStore(testdb.Open(t, "time_based_fee", "fee_configs"))
	ctx := context.Background()

	cfg := &FeeConfig{BaseFee: 100, CommissionRateType: CommissionFixed}
	require.NoError(t, store.CreateConfig(ctx, cfg))

	slot := &TimeSlot{Start: NewClock(7, 0), End: NewClock(9, 0), Fee: 10}
	require.NoError(t, store.InsertSlot(ctx, cfg.ID, slot))
	require.NotEmpty(t, slot.ID)

	slot.Fee = 15
	owner, err := store.UpdateSlot(ctx, *slot)
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, owner)

	owner, err = store.DeleteSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, owner)

	_, err = store.DeleteSlot(ctx, slot.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.InsertSlot(ctx, "00000000-0000-0000-0000-000000000000", &TimeSlot{Start: NewClock(1, 0), End: NewClock(2, 0)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_GetMissing(t *testing.T) {
	store := NewStore(testdb.Open(t, "time_based_fee", "fee_configs"))
	_, err := store.GetConfig(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_MalformedIDsAreNotFound(t *testing.T) {
	// Rejected before any query, so no database is needed.
	store := NewStore(nil)
	ctx := context.Background()

	_, err := store.GetConfig(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.SaveConfig(ctx, &FeeConfig{ID: "abc"}), ErrNotFound)
	assert.ErrorIs(t, store.SaveConfig(ctx, &FeeConfig{
		ID:            "00000000-0000-0000-0000-000000000000",
		TimeBasedFees: []TimeSlot{{ID: "slot-1"}},
	}), ErrNotFound)
	assert.ErrorIs(t, store.InsertSlot(ctx, "abc", &TimeSlot{}), ErrNotFound)
	_, err = store.UpdateSlot(ctx, TimeSlot{ID: "abc"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.DeleteSlot(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.ApplySurcharge(ctx, "abc", 10)
	assert.ErrorIs(t, err, ErrNotFound)
}
