package route_playback

import (
	"github.com/gin-gonic/gin"

	"github.com/trackflow-audio/trackflow/api/controller/controller_playback"
	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_interface"
	"github.com/trackflow-audio/trackflow/usecase/usecase_playback"
)

func NewDeliveryRouter(
	group *gin.RouterGroup,
	playback *usecase_playback.PlaybackController,
	origin playback_interface.ContentOrigin,
	classifier *usecase_playback.ErrorClassifier,
) {
	deliveryCtrl := controller_playback.NewDeliveryController(playback, origin, classifier)

	// 注册路由
	deliveryGroup := group.Group("/delivery")
	{
		// 外部播放端的投递结果上报，驱动熔断器记账
		// POST /delivery/outcome?track_id=xxx&success=false&error=timeout
		deliveryGroup.POST("/outcome", deliveryCtrl.ReportOutcome)

		// 轨道ID到投递地址的解析
		// GET /delivery/locator?track_id=xxx
		deliveryGroup.GET("/locator", deliveryCtrl.ResolveLocator)

		// 可靠性观测快照
		// GET /delivery/metrics
		deliveryGroup.GET("/metrics", deliveryCtrl.Metrics)
	}
}
