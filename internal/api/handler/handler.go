package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Mortal/shiftplanner/internal/service"
	pkgerrors "github.com/Mortal/shiftplanner/pkg/errors"
	"github.com/Mortal/shiftplanner/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Workplace *WorkplaceHandler
	Worker    *WorkerHandler
	Shift     *ShiftHandler
	Stats     *StatsHandler
	Changelog *ChangelogHandler
	Export    *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Workplace: NewWorkplaceHandler(svc.Workplace),
		Worker:    NewWorkerHandler(svc.Worker),
		Shift:     NewShiftHandler(svc.Shift),
		Stats:     NewStatsHandler(svc.Stats, svc.Prune),
		Changelog: NewChangelogHandler(svc.Changelog),
		Export:    NewExportHandler(svc.Export, logger),
	}
}

// ── 错误码 ──
//
// 4xxxx 与 HTTP 状态一一对应，message 为业务错误的原文

const (
	codeBadRequest    = 40001
	codeNotFound      = 40401
	codeConflict      = 40901
	codeConfiguration = 42201
)

// handleError 按错误分类写响应
func handleError(c *gin.Context, err error) {
	var cfgErr *pkgerrors.ConfigurationError
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, codeBadRequest, err.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, codeNotFound, err.Error())
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, codeConflict, err.Error())
	case errors.As(err, &cfgErr):
		if cfgErr.Bucket != "" {
			response.ErrorWithDetails(c, http.StatusUnprocessableEntity, codeConfiguration, cfgErr.Reason, cfgErr.Bucket)
			return
		}
		response.UnprocessableEntity(c, codeConfiguration, cfgErr.Reason)
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
