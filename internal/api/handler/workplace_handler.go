package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/Mortal/shiftplanner/internal/dto"
	"github.com/Mortal/shiftplanner/internal/service"
	"github.com/Mortal/shiftplanner/pkg/response"
)

// WorkplaceHandler 工作场所 HTTP 处理器
type WorkplaceHandler struct {
	workplaceSvc service.WorkplaceService
}

// NewWorkplaceHandler 创建 WorkplaceHandler
func NewWorkplaceHandler(workplaceSvc service.WorkplaceService) *WorkplaceHandler {
	return &WorkplaceHandler{workplaceSvc: workplaceSvc}
}

// Get 获取工作场所及模板配置
// GET /api/v1/workplaces/:workplace
func (h *WorkplaceHandler) Get(c *gin.Context) {
	id, ok := workplaceID(c)
	if !ok {
		return
	}
	wp, err := h.workplaceSvc.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, wp)
}

// UpdateSettings 整体替换模板配置
// PUT /api/v1/workplaces/:workplace/settings
//
// 请求体原样交给校验器，未知字段会被拒绝
func (h *WorkplaceHandler) UpdateSettings(c *gin.Context) {
	id, ok := workplaceID(c)
	if !ok {
		return
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, codeBadRequest, "读取请求体失败")
		return
	}
	wp, err := h.workplaceSvc.UpdateSettings(c.Request.Context(), id, raw, currentActor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, wp)
}

// WorkerHandler 值班人员 HTTP 处理器
type WorkerHandler struct {
	workerSvc service.WorkerService
}

// NewWorkerHandler 创建 WorkerHandler
func NewWorkerHandler(workerSvc service.WorkerService) *WorkerHandler {
	return &WorkerHandler{workerSvc: workerSvc}
}

// List 人员列表
// GET /api/v1/workers?include_inactive=true
func (h *WorkerHandler) List(c *gin.Context) {
	var req dto.WorkerListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	list, err := h.workerSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// Create 新建人员
// POST /api/v1/workers
func (h *WorkerHandler) Create(c *gin.Context) {
	var req dto.CreateWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	w, err := h.workerSvc.Create(c.Request.Context(), &req, currentActor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, w)
}

// Update 修改人员（含停用）
// PUT /api/v1/workers/:id
func (h *WorkerHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	w, err := h.workerSvc.Update(c.Request.Context(), id, &req, currentActor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, w)
}

// Delete 删除没有任何历史的人员
// DELETE /api/v1/workers/:id
func (h *WorkerHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.workerSvc.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}
