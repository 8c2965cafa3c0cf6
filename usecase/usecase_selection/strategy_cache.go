package usecase_selection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_interface"
	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
)

// StrategyCache 策略记忆化缓存，键为(channel_id, energy_tier)
// 冷加载需要多次配置往返（约5s），命中后降至毫秒级
// 缓存对象为不可变快照：命中方只读，换入换出整体替换，不存在半可见状态
// 进程内不设时限，外部编辑方变更配置后必须调用Invalidate，否则旧策略
// 会在进程生命周期内一直生效
type StrategyCache struct {
	store   selection_interface.StrategyStore
	timeout time.Duration

	mu      sync.RWMutex
	entries map[string]*selection_models.Strategy
	loads   singleflight.Group // 并发miss只触发一次外部加载
}

func NewStrategyCache(store selection_interface.StrategyStore, timeout time.Duration) *StrategyCache {
	return &StrategyCache{
		store:   store,
		timeout: timeout,
		entries: make(map[string]*selection_models.Strategy),
	}
}

func strategyKey(channelID string, tier selection_models.EnergyTier) string {
	return channelID + "/" + string(tier)
}

// Get 取策略：命中返回同一内存实例，miss时执行完整加载并缓存
func (c *StrategyCache) Get(
	ctx context.Context,
	channelID string,
	tier selection_models.EnergyTier,
) (*selection_models.Strategy, error) {
	key := strategyKey(channelID, tier)

	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	loaded, err, _ := c.loads.Do(key, func() (interface{}, error) {
		// double-check：等待期间可能已有别的加载完成
		c.mu.RLock()
		existing, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}

		loadCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		started := time.Now()
		strategy, err := c.store.LoadStrategy(loadCtx, channelID, tier)
		if err != nil {
			return nil, fmt.Errorf("加载策略[%s]失败: %w", key, err)
		}

		c.mu.Lock()
		c.entries[key] = strategy
		c.mu.Unlock()

		slog.Info("selection: 策略冷加载完成",
			"channel_id", channelID,
			"energy_tier", tier,
			"num_slots", strategy.NumSlots,
			"elapsed", time.Since(started),
		)
		return strategy, nil
	})
	if err != nil {
		return nil, err
	}
	return loaded.(*selection_models.Strategy), nil
}

// Invalidate 外部配置编辑方变更策略后的失效钩子
func (c *StrategyCache) Invalidate(channelID string, tier selection_models.EnergyTier) {
	key := strategyKey(channelID, tier)
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	slog.Info("selection: 策略缓存已失效", "channel_id", channelID, "energy_tier", tier)
}
