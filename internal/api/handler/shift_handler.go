package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Mortal/shiftplanner/internal/dto"
	"github.com/Mortal/shiftplanner/internal/service"
	"github.com/Mortal/shiftplanner/pkg/response"
)

// ShiftHandler 班次与排班 HTTP 处理器
type ShiftHandler struct {
	shiftSvc service.ShiftService
}

// NewShiftHandler 创建 ShiftHandler
func NewShiftHandler(shiftSvc service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shiftSvc: shiftSvc}
}

// ListWeek 周视图，缺失的日期按模板生成
// GET /api/v1/workplaces/:workplace/shifts?week=2024w10
func (h *ShiftHandler) ListWeek(c *gin.Context) {
	wid, ok := workplaceID(c)
	if !ok {
		return
	}
	week := c.Query("week")
	if week == "" {
		response.BadRequest(c, codeBadRequest, "week 不能为空")
		return
	}
	resp, err := h.shiftSvc.ListWeek(c.Request.Context(), wid, week)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// Materialize 批量生成班次
// POST /api/v1/workplaces/:workplace/shifts/materialize
func (h *ShiftHandler) Materialize(c *gin.Context) {
	wid, ok := workplaceID(c)
	if !ok {
		return
	}
	var req dto.MaterializeRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	from, ok := parseDate(c, "from", req.From)
	if !ok {
		return
	}
	to, ok := parseDate(c, "to", req.To)
	if !ok {
		return
	}
	n, err := h.shiftSvc.MaterializeRange(c.Request.Context(), wid, from, to)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, dto.MaterializeResponse{Created: n})
}

// SetWorkers 管理员设置班次人员
// PUT /api/v1/workplaces/:workplace/shifts/:id/workers
func (h *ShiftHandler) SetWorkers(c *gin.Context) {
	wid, ok := workplaceID(c)
	if !ok {
		return
	}
	sid, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SetWorkersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	resp, err := h.shiftSvc.SetWorkers(c.Request.Context(), wid, sid, req.Workers, currentActor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// Register 报名
// POST /api/v1/workplaces/:workplace/shifts/:id/register
func (h *ShiftHandler) Register(c *gin.Context) {
	h.registration(c, h.shiftSvc.Register)
}

// Unregister 取消报名
// DELETE /api/v1/workplaces/:workplace/shifts/:id/register
func (h *ShiftHandler) Unregister(c *gin.Context) {
	h.registration(c, h.shiftSvc.Unregister)
}

type registrationFunc func(ctx context.Context, workplaceID, shiftID, workerID int64) (*dto.SetWorkersResponse, error)

func (h *ShiftHandler) registration(c *gin.Context, fn registrationFunc) {
	wid, ok := workplaceID(c)
	if !ok {
		return
	}
	sid, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	if !mustActAs(c, req.WorkerID) {
		return
	}
	resp, err := fn(c.Request.Context(), wid, sid, req.WorkerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// SetComment 设置本人对班次的备注，空字符串删除
// PUT /api/v1/workplaces/:workplace/shifts/:id/comment
func (h *ShiftHandler) SetComment(c *gin.Context) {
	wid, ok := workplaceID(c)
	if !ok {
		return
	}
	sid, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	if !mustActAs(c, req.WorkerID) {
		return
	}
	if err := h.shiftSvc.SetComment(c.Request.Context(), wid, sid, req.WorkerID, req.Comment); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}
