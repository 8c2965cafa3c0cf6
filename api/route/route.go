package route

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trackflow-audio/trackflow/api/route/route_library"
	"github.com/trackflow-audio/trackflow/api/route/route_playback"
	"github.com/trackflow-audio/trackflow/api/route/route_selection"
	"github.com/trackflow-audio/trackflow/bootstrap"
	"github.com/trackflow-audio/trackflow/domain"
	"github.com/trackflow-audio/trackflow/domain/domain_library/library_interface"
	"github.com/trackflow-audio/trackflow/mongo"
	"github.com/trackflow-audio/trackflow/repository/repository_library"
	"github.com/trackflow-audio/trackflow/repository/repository_playback"
	"github.com/trackflow-audio/trackflow/repository/repository_selection"
	"github.com/trackflow-audio/trackflow/usecase/usecase_playback"
	"github.com/trackflow-audio/trackflow/usecase/usecase_selection"
	"github.com/trackflow-audio/trackflow/util/audio"
)

// Setup 组装全部路由
// 排序器与策略缓存全局唯一：HTTP选曲面与内嵌播放控制器
// 必须共享同一份会话句柄，否则播放计数会在两份内存副本间漂移
func Setup(env *bootstrap.Env, timeout time.Duration, db mongo.Database, engine *gin.Engine) {
	mongo.CreateIndexes(db)

	// 选曲栈
	catalogRepo := repository_selection.NewCatalogRepository(db, domain.CollectionChannelCatalogTrack)
	strategyRepo := repository_selection.NewStrategyRepository(db, domain.CollectionChannelStrategy)
	sessionRepo := repository_selection.NewSessionRepository(db, domain.CollectionChannelPlaybackSession)

	strategyCache := usecase_selection.NewStrategyCache(strategyRepo, timeout)
	selector := usecase_selection.NewSlotSelector(
		catalogRepo,
		usecase_selection.NewRuleGroupEvaluator(),
		usecase_selection.NewCandidateScorer(),
		timeout,
	)
	sequencer := usecase_selection.NewPlaylistSequencer(
		sessionRepo, strategyCache, selector, catalogRepo, timeout)

	// 投递可靠性栈
	retryPolicy := env.RetryPolicy()
	origin := repository_playback.NewHTTPOrigin(
		db,
		domain.CollectionChannelCatalogTrack,
		env.OriginBaseURL,
		env.OriginToken,
		&http.Client{Timeout: retryPolicy.PerAttemptTimeout},
	)
	classifier := usecase_playback.NewErrorClassifier()
	breaker := usecase_playback.NewCircuitBreaker(origin.OriginKey(), env.BreakerConfig())
	retry := usecase_playback.NewRetryController(retryPolicy, breaker, classifier)
	stall := usecase_playback.NewStallMonitor(env.StallPolicy())

	trackRepo := repository_library.NewTrackRepository(db, domain.CollectionChannelCatalogTrack)
	elementFactory := audio.NewClockElementFactory(
		durationResolver(env.OriginBaseURL, trackRepo))

	playback := usecase_playback.NewPlaybackController(
		sequencer, origin, retry, stall, breaker, elementFactory, env.Crossfade())

	publicRouter := engine.Group("")
	route_selection.NewPlaylistRouter(publicRouter, sequencer, strategyCache)
	route_playback.NewDeliveryRouter(publicRouter, playback, origin, classifier)
	route_library.NewIngestRouter(env.LibraryScanTimeout, db, publicRouter)
}

// durationResolver 挂钟播放元素的时长回查：投递地址还原为投递路径后查目录
func durationResolver(
	baseURL string,
	trackRepo library_interface.TrackRepository,
) audio.DurationResolver {
	prefix := strings.TrimRight(baseURL, "/") + "/"
	return func(ctx context.Context, locator string) float64 {
		streamPath := strings.TrimPrefix(locator, prefix)
		track, err := trackRepo.GetByStreamPath(ctx, streamPath)
		if err != nil || track == nil {
			return 0
		}
		return track.Duration
	}
}
