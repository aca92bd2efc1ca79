package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Mortal/shiftplanner/internal/service"
	"github.com/Mortal/shiftplanner/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
	logger    *zap.Logger
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, logger *zap.Logger) *ExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{exportSvc: exportSvc, logger: logger}
}

// ExportWorkerStats 导出人员排班次数
// GET /api/v1/workplaces/:workplace/export/stats?by=month|week
func (h *ExportHandler) ExportWorkerStats(c *gin.Context) {
	wid, ok := workplaceID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportWorkerStats(c.Request.Context(), wid, c.DefaultQuery("by", service.ExportByMonth))
	if err != nil {
		if errors.Is(err, service.ErrExportGenerateFail) {
			h.logger.Error("导出统计失败", zap.Int64("workplace_id", wid), zap.Error(err))
			response.InternalError(c)
			return
		}
		handleError(c, err)
		return
	}

	// 设置下载响应头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
