package usecase_selection

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
)

type fakeStrategyStore struct {
	loads atomic.Int64
	delay time.Duration
}

func (f *fakeStrategyStore) LoadStrategy(
	_ context.Context,
	channelID string,
	tier selection_models.EnergyTier,
) (*selection_models.Strategy, error) {
	f.loads.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return &selection_models.Strategy{
		ChannelID:  channelID,
		EnergyTier: tier,
		NumSlots:   3,
	}, nil
}

func TestStrategyCache_IdempotentLoad(t *testing.T) {
	store := &fakeStrategyStore{}
	cache := NewStrategyCache(store, 5*time.Second)

	first, err := cache.Get(context.Background(), "ch1", selection_models.EnergyTierLow)
	require.NoError(t, err)
	second, err := cache.Get(context.Background(), "ch1", selection_models.EnergyTierLow)
	require.NoError(t, err)

	// 未失效前返回同一内存实例，无重复外部加载
	assert.Same(t, first, second)
	assert.Equal(t, int64(1), store.loads.Load())
}

func TestStrategyCache_KeyedByChannelAndTier(t *testing.T) {
	store := &fakeStrategyStore{}
	cache := NewStrategyCache(store, 5*time.Second)

	low, err := cache.Get(context.Background(), "ch1", selection_models.EnergyTierLow)
	require.NoError(t, err)
	high, err := cache.Get(context.Background(), "ch1", selection_models.EnergyTierHigh)
	require.NoError(t, err)

	assert.NotSame(t, low, high)
	assert.Equal(t, int64(2), store.loads.Load())
}

func TestStrategyCache_InvalidateForcesReload(t *testing.T) {
	store := &fakeStrategyStore{}
	cache := NewStrategyCache(store, 5*time.Second)

	first, err := cache.Get(context.Background(), "ch1", selection_models.EnergyTierLow)
	require.NoError(t, err)

	cache.Invalidate("ch1", selection_models.EnergyTierLow)

	second, err := cache.Get(context.Background(), "ch1", selection_models.EnergyTierLow)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int64(2), store.loads.Load())
}

func TestStrategyCache_ConcurrentMissSingleLoad(t *testing.T) {
	store := &fakeStrategyStore{delay: 20 * time.Millisecond}
	cache := NewStrategyCache(store, 5*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(context.Background(), "ch1", selection_models.EnergyTierMedium)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), store.loads.Load())
}
