package route_library

import (
	"github.com/gin-gonic/gin"

	"github.com/trackflow-audio/trackflow/api/controller/controller_library"
	"github.com/trackflow-audio/trackflow/domain"
	"github.com/trackflow-audio/trackflow/mongo"
	"github.com/trackflow-audio/trackflow/repository/repository_library"
	"github.com/trackflow-audio/trackflow/usecase/usecase_library"
)

func NewIngestRouter(
	scanTimeoutMinutes int,
	db mongo.Database,
	group *gin.RouterGroup,
) {
	// 初始化repository
	trackRepo := repository_library.NewTrackRepository(db, domain.CollectionChannelCatalogTrack)

	// 初始化usecase
	ingestUsecase := usecase_library.NewCatalogIngestUsecase(trackRepo, scanTimeoutMinutes)

	// 初始化controller
	ingestCtrl := controller_library.NewIngestController(ingestUsecase)

	// 注册路由
	libraryGroup := group.Group("/library")
	{
		// 扫描媒体库目录并入库
		// POST /library/scan?root=/music/chill&channel_id=chill
		libraryGroup.POST("/scan", ingestCtrl.Scan)
	}
}
