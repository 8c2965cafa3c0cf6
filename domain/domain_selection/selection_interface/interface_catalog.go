package selection_interface

import (
	"context"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
)

// CatalogProvider 候选轨道查询接口，由目录层实现
// pushDown为可下推到查询层的规则（如genre等标签等值过滤），
// 下推仅为性能优化，规则求值器仍会在客户端全量复查
type CatalogProvider interface {
	QueryCandidates(
		ctx context.Context,
		channelID string,
		energyTier selection_models.EnergyTier,
		pushDown []selection_models.Rule,
	) ([]selection_models.Candidate, error)

	// MarkPlayed 轨道提交播放后更新播放统计
	MarkPlayed(ctx context.Context, trackID string) error
}
