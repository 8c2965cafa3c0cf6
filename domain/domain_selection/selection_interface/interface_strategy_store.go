package selection_interface

import (
	"context"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
)

// StrategyStore 策略配置读取接口，由外部配置存储实现
// 配置编辑方变更后应调用缓存的Invalidate钩子
type StrategyStore interface {
	LoadStrategy(
		ctx context.Context,
		channelID string,
		energyTier selection_models.EnergyTier,
	) (*selection_models.Strategy, error)
}
