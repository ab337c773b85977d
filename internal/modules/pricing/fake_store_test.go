package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"kiloadmin/internal/types"
)

// fakeStore is an in-memory Repository.
type fakeStore struct {
	mu       sync.Mutex
	configs  map[types.ID]*FeeConfig
	seq      int
	lists    int
	setFees  []types.Money
	failSet  error
	failList error
}

func newFakeStore(configs ...FeeConfig) *fakeStore {
	f := &fakeStore{configs: map[types.ID]*FeeConfig{}}
	for i := range configs {
		c := configs[i]
		f.configs[c.ID] = &c
	}
	return f
}

func (f *fakeStore) nextID(prefix string) types.ID {
	f.seq++
	return types.ID(fmt.Sprintf("%s-%d", prefix, f.seq))
}

func clone(c *FeeConfig) *FeeConfig {
	cp := *c
	cp.TimeBasedFees = append([]TimeSlot{}, c.TimeBasedFees...)
	return &cp
}

func (f *fakeStore) ListConfigs(context.Context) ([]FeeConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]FeeConfig, 0, len(f.configs))
	for _, c := range f.configs {
		out = append(out, *clone(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommissionRate < out[j].CommissionRate })
	return out, nil
}

func (f *fakeStore) GetConfig(_ context.Context, id types.ID) (*FeeConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.configs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(c), nil
}

func (f *fakeStore) CreateConfig(_ context.Context, c *FeeConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID("cfg")
	for i := range c.TimeBasedFees {
		c.TimeBasedFees[i].ID = f.nextID("slot")
	}
	f.configs[c.ID] = clone(c)
	return nil
}

func (f *fakeStore) SaveConfig(_ context.Context, c *FeeConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.configs[c.ID]
	if !ok {
		return ErrNotFound
	}
	known := map[types.ID]bool{}
	for _, s := range old.TimeBasedFees {
		known[s.ID] = true
	}
	for i := range c.TimeBasedFees {
		if c.TimeBasedFees[i].ID == "" {
			c.TimeBasedFees[i].ID = f.nextID("slot")
		} else if !known[c.TimeBasedFees[i].ID] {
			return ErrNotFound
		}
	}
	f.configs[c.ID] = clone(c)
	return nil
}

func (f *fakeStore) findSlot(id types.ID) (*FeeConfig, int) {
	for _, c := range f.configs {
		for i, s := range c.TimeBasedFees {
			if s.ID == id {
				return c, i
			}
		}
	}
	return nil, -1
}

func (f *fakeStore) InsertSlot(_ context.Context, configID types.ID, slot *TimeSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.configs[configID]
	if !ok {
		return ErrNotFound
	}
	slot.ID = f.nextID("slot")
	c.TimeBasedFees = append(c.TimeBasedFees, *slot)
	return nil
}

func (f *fakeStore) UpdateSlot(_ context.Context, slot TimeSlot) (types.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, i := f.findSlot(slot.ID)
	if c == nil {
		return "", ErrNotFound
	}
	c.TimeBasedFees[i] = slot
	return c.ID, nil
}

func (f *fakeStore) DeleteSlot(_ context.Context, id types.ID) (types.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, i := f.findSlot(id)
	if c == nil {
		return "", ErrNotFound
	}
	c.TimeBasedFees = append(c.TimeBasedFees[:i], c.TimeBasedFees[i+1:]...)
	return c.ID, nil
}

func (f *fakeStore) ApplySurcharge(_ context.Context, id types.ID, surcharge types.Money) (types.Money, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet != nil {
		return 0, f.failSet
	}
	c, ok := f.configs[id]
	if !ok {
		return 0, ErrNotFound
	}
	c.InitialFee = c.BaseFee + surcharge
	f.setFees = append(f.setFees, c.InitialFee)
	return c.InitialFee, nil
}

func (f *fakeStore) initialFee(id types.ID) types.Money {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configs[id].InitialFee
}

func (f *fakeStore) writes() []types.Money {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Money{}, f.setFees...)
}

// memCache is an in-memory ConfigCache counting invalidations.
type memCache struct {
	mu          sync.Mutex
	configs     []FeeConfig
	ok          bool
	invalidated int
}

func (m *memCache) Get(context.Context) ([]FeeConfig, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configs, m.ok, nil
}

func (m *memCache) Set(_ context.Context, configs []FeeConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs, m.ok = configs, true
	return nil
}

func (m *memCache) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs, m.ok = nil, false
	m.invalidated++
	return nil
}

var errBoom = errors.New("boom")
