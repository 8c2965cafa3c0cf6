package controller_playback

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trackflow-audio/trackflow/api/controller"
	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_interface"
	"github.com/trackflow-audio/trackflow/usecase/usecase_playback"
)

// DeliveryController 投递可靠性侧的HTTP薄层：
// 外部播放端的结果上报、轨道定位解析与观测快照
type DeliveryController struct {
	playback   *usecase_playback.PlaybackController
	origin     playback_interface.ContentOrigin
	classifier *usecase_playback.ErrorClassifier
}

func NewDeliveryController(
	playback *usecase_playback.PlaybackController,
	origin playback_interface.ContentOrigin,
	classifier *usecase_playback.ErrorClassifier,
) *DeliveryController {
	return &DeliveryController{
		playback:   playback,
		origin:     origin,
		classifier: classifier,
	}
}

type outcomeRequest struct {
	TrackID string `form:"track_id" binding:"required"`
	Success bool   `form:"success"`
	Error   string `form:"error"`
}

type locatorRequest struct {
	TrackID string `form:"track_id" binding:"required"`
}

// ReportOutcome POST /delivery/outcome
// 失败上报携带错误描述文本，由分类器判定错误类别后驱动熔断器记账
func (c *DeliveryController) ReportOutcome(ctx *gin.Context) {
	var req outcomeRequest
	if err := ctx.ShouldBind(&req); err != nil {
		controller.ErrorResponse(ctx, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		return
	}

	kind := c.classifier.Classify(errors.New(req.Error))
	c.playback.ReportDeliveryOutcome(req.TrackID, req.Success, kind)

	controller.SuccessResponse(ctx, "kind", kind.String(), 1)
}

// ResolveLocator GET /delivery/locator
// 轨道ID到投递地址的解析，供直连源站的播放端使用
func (c *DeliveryController) ResolveLocator(ctx *gin.Context) {
	var req locatorRequest
	if err := ctx.ShouldBind(&req); err != nil {
		controller.ErrorResponse(ctx, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		return
	}

	locator, err := c.origin.ResolveURL(ctx, req.TrackID)
	if err != nil {
		controller.ErrorResponse(ctx, http.StatusNotFound, "RESOLVE_FAILED", err.Error())
		return
	}

	controller.SuccessResponse(ctx, "locator", locator, 1)
}

// Metrics GET /delivery/metrics
func (c *DeliveryController) Metrics(ctx *gin.Context) {
	snapshot := c.playback.Metrics()
	controller.SuccessResponse(ctx, "metrics", snapshot.Flatten(), 1)
}
