package route_selection

import (
	"github.com/gin-gonic/gin"

	"github.com/trackflow-audio/trackflow/api/controller/controller_selection"
	"github.com/trackflow-audio/trackflow/usecase/usecase_selection"
)

func NewPlaylistRouter(
	group *gin.RouterGroup,
	sequencer *usecase_selection.PlaylistSequencer,
	cache *usecase_selection.StrategyCache,
) {
	sequencerCtrl := controller_selection.NewSequencerController(sequencer, cache)

	// 注册路由
	playlistGroup := group.Group("/playlist")
	{
		// 解析下一首（只读，不推进会话）
		// GET /playlist/next?user_id=u1&channel_id=chill&energy_tier=low
		playlistGroup.GET("/next", sequencerCtrl.NextTrack)

		// 轨道真正开播后提交（追加历史并推进播放计数）
		// POST /playlist/commit?user_id=u1&channel_id=chill&energy_tier=low&track_id=xxx
		playlistGroup.POST("/commit", sequencerCtrl.CommitPlayback)

		// 投递失败跳槽（推进播放计数但不追加历史）
		// POST /playlist/skip?user_id=u1&channel_id=chill&energy_tier=low
		playlistGroup.POST("/skip", sequencerCtrl.SkipSlot)
	}

	strategyGroup := group.Group("/strategy")
	{
		// 外部配置编辑方的缓存失效钩子
		// POST /strategy/invalidate?channel_id=chill&energy_tier=low
		strategyGroup.POST("/invalidate", sequencerCtrl.InvalidateStrategy)
	}
}
