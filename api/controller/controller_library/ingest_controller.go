package controller_library

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trackflow-audio/trackflow/api/controller"
	"github.com/trackflow-audio/trackflow/usecase/usecase_library"
)

// IngestController 目录扫描入库的HTTP薄层
type IngestController struct {
	ingest *usecase_library.CatalogIngestUsecase
}

func NewIngestController(ingest *usecase_library.CatalogIngestUsecase) *IngestController {
	return &IngestController{ingest: ingest}
}

type scanRequest struct {
	Root      string `form:"root" binding:"required"`
	ChannelID string `form:"channel_id" binding:"required"`
}

// Scan POST /library/scan
func (c *IngestController) Scan(ctx *gin.Context) {
	var req scanRequest
	if err := ctx.ShouldBind(&req); err != nil {
		controller.ErrorResponse(ctx, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		return
	}

	report, err := c.ingest.IngestDirectory(ctx, req.Root, req.ChannelID)
	if err != nil {
		controller.ErrorResponse(ctx, http.StatusInternalServerError, "SCAN_FAILED", err.Error())
		return
	}

	controller.SuccessResponse(ctx, "report", report, report.Ingested)
}
