package controller_selection

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trackflow-audio/trackflow/api/controller"
	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
	"github.com/trackflow-audio/trackflow/usecase/usecase_selection"
)

// SequencerController 选曲序列的HTTP薄层
// 下一首解析与播放提交分离：客户端确认轨道真正开播后再提交
type SequencerController struct {
	sequencer *usecase_selection.PlaylistSequencer
	cache     *usecase_selection.StrategyCache
}

func NewSequencerController(
	sequencer *usecase_selection.PlaylistSequencer,
	cache *usecase_selection.StrategyCache,
) *SequencerController {
	return &SequencerController{
		sequencer: sequencer,
		cache:     cache,
	}
}

type sessionScopeRequest struct {
	UserID     string `form:"user_id" binding:"required"`
	ChannelID  string `form:"channel_id" binding:"required"`
	EnergyTier string `form:"energy_tier" binding:"required,oneof=low medium high"`
}

type commitRequest struct {
	sessionScopeRequest
	TrackID string `form:"track_id" binding:"required"`
}

type invalidateRequest struct {
	ChannelID  string `form:"channel_id" binding:"required"`
	EnergyTier string `form:"energy_tier" binding:"required,oneof=low medium high"`
}

// NextTrack GET /playlist/next
func (c *SequencerController) NextTrack(ctx *gin.Context) {
	var req sessionScopeRequest
	if err := ctx.ShouldBind(&req); err != nil {
		controller.ErrorResponse(ctx, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		return
	}
	tier, _ := selection_models.ParseEnergyTier(req.EnergyTier)

	next, err := c.sequencer.NextTrack(ctx, req.UserID, req.ChannelID, tier)
	if err != nil {
		var noCandidates *selection_models.NoCandidatesError
		if errors.As(err, &noCandidates) {
			controller.ErrorResponse(ctx, http.StatusNotFound, "NO_CANDIDATES", err.Error())
			return
		}
		controller.ErrorResponse(ctx, http.StatusInternalServerError, "SELECTION_FAILED", err.Error())
		return
	}

	controller.SuccessResponse(ctx, "track", next, 1)
}

// CommitPlayback POST /playlist/commit
func (c *SequencerController) CommitPlayback(ctx *gin.Context) {
	var req commitRequest
	if err := ctx.ShouldBind(&req); err != nil {
		controller.ErrorResponse(ctx, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		return
	}
	tier, _ := selection_models.ParseEnergyTier(req.EnergyTier)

	if err := c.sequencer.CommitPlayback(ctx, req.UserID, req.ChannelID, tier, req.TrackID); err != nil {
		controller.ErrorResponse(ctx, http.StatusInternalServerError, "COMMIT_FAILED", err.Error())
		return
	}

	controller.SuccessResponse(ctx, "track_id", req.TrackID, 1)
}

// SkipSlot POST /playlist/skip
func (c *SequencerController) SkipSlot(ctx *gin.Context) {
	var req sessionScopeRequest
	if err := ctx.ShouldBind(&req); err != nil {
		controller.ErrorResponse(ctx, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		return
	}
	tier, _ := selection_models.ParseEnergyTier(req.EnergyTier)

	if err := c.sequencer.SkipSlot(ctx, req.UserID, req.ChannelID, tier); err != nil {
		controller.ErrorResponse(ctx, http.StatusInternalServerError, "SKIP_FAILED", err.Error())
		return
	}

	controller.SuccessResponse(ctx, "slot_index",
		c.sequencer.CurrentSlotIndex(ctx, req.UserID, req.ChannelID, tier), 1)
}

// InvalidateStrategy POST /strategy/invalidate
// 外部配置编辑方变更策略后调用，下一次选曲回源重载
func (c *SequencerController) InvalidateStrategy(ctx *gin.Context) {
	var req invalidateRequest
	if err := ctx.ShouldBind(&req); err != nil {
		controller.ErrorResponse(ctx, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		return
	}
	tier, _ := selection_models.ParseEnergyTier(req.EnergyTier)

	c.cache.Invalidate(req.ChannelID, tier)
	controller.SuccessResponse(ctx, "invalidated", gin.H{
		"channel_id":  req.ChannelID,
		"energy_tier": req.EnergyTier,
	}, 1)
}
