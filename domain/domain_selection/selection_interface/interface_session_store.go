package selection_interface

import (
	"context"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
)

// SessionStore 播放会话持久化接口
// 进程重启间的会话延续由外部实现负责，本引擎只消费已解析的会话状态
type SessionStore interface {
	LoadPlaybackState(
		ctx context.Context,
		userID string,
		channelID string,
		energyTier selection_models.EnergyTier,
	) (*selection_models.PlaybackSession, error)

	SavePlaybackState(ctx context.Context, session *selection_models.PlaybackSession) error
}
