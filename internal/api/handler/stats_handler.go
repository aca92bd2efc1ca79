package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Mortal/shiftplanner/internal/dto"
	"github.com/Mortal/shiftplanner/internal/service"
	"github.com/Mortal/shiftplanner/internal/stats"
	"github.com/Mortal/shiftplanner/pkg/response"
)

// StatsHandler 统计与数据清理 HTTP 处理器
type StatsHandler struct {
	statsSvc service.StatsService
	pruneSvc service.PruneService
}

// NewStatsHandler 创建 StatsHandler
func NewStatsHandler(statsSvc service.StatsService, pruneSvc service.PruneService) *StatsHandler {
	return &StatsHandler{statsSvc: statsSvc, pruneSvc: pruneSvc}
}

// WorkerStats 人员排班次数
// GET /api/v1/workplaces/:workplace/stats?view=live|cached
func (h *StatsHandler) WorkerStats(c *gin.Context) {
	wid, ok := workplaceID(c)
	if !ok {
		return
	}
	var (
		list []stats.WorkerStats
		err  error
	)
	switch c.DefaultQuery("view", service.StatsViewCached) {
	case service.StatsViewCached:
		list, err = h.statsSvc.CachedStats(c.Request.Context(), wid)
	case service.StatsViewLive:
		list, err = h.statsSvc.LiveStats(c.Request.Context(), wid)
	default:
		response.BadRequest(c, codeBadRequest, "view 只支持 live 或 cached")
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// PreparePlan 预览统计刷新增量，不写入
// GET /api/v1/workplaces/:workplace/stats/plan
func (h *StatsHandler) PreparePlan(c *gin.Context) {
	wid, ok := workplaceID(c)
	if !ok {
		return
	}
	plan, err := h.statsSvc.PrepareUpdate(c.Request.Context(), wid)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, toPlanResponse(plan, false))
}

// Flush 计算并应用统计增量
// POST /api/v1/workplaces/:workplace/stats/flush
func (h *StatsHandler) Flush(c *gin.Context) {
	wid, ok := workplaceID(c)
	if !ok {
		return
	}
	plan, err := h.statsSvc.Flush(c.Request.Context(), wid, currentActor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, toPlanResponse(plan, true))
}

// Prune 清理截止日之前的原始排班数据；dry_run 只返回计划
// POST /api/v1/workplaces/:workplace/prune
func (h *StatsHandler) Prune(c *gin.Context) {
	wid, ok := workplaceID(c)
	if !ok {
		return
	}
	var req dto.PruneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	before, ok := parseDate(c, "before", req.Before)
	if !ok {
		return
	}

	plan, err := h.pruneSvc.PreparePrune(c.Request.Context(), wid, before)
	if err != nil {
		handleError(c, err)
		return
	}
	resp := dto.PrunePlanResponse{
		Before:       plan.Before.String(),
		Shifts:       plan.Shifts,
		WorkerShifts: plan.WorkerShifts,
		Comments:     plan.Comments,
	}
	if req.DryRun {
		response.OK(c, resp)
		return
	}
	if err := h.pruneSvc.Prune(c.Request.Context(), plan, currentActor(c)); err != nil {
		handleError(c, err)
		return
	}
	resp.Applied = true
	response.OK(c, resp)
}

func toPlanResponse(plan stats.UpdatePlan, applied bool) dto.UpdatePlanResponse {
	resp := dto.UpdatePlanResponse{
		Increased: plan.Increased,
		Unchanged: plan.Unchanged,
		Decreased: plan.Decreased,
		Deltas:    make([]dto.BucketDeltaResponse, 0, len(plan.Deltas)),
		Applied:   applied,
	}
	for _, d := range plan.Deltas {
		resp.Deltas = append(resp.Deltas, dto.BucketDeltaResponse{
			WorkerID: d.Bucket.WorkerID,
			ISOYear:  d.Bucket.ISOYear(),
			ISOWeek:  d.Bucket.ISOWeek(),
			Year:     d.Bucket.Year(),
			Month:    d.Bucket.Month(),
			Delta:    d.Delta,
			Exists:   d.RowID != nil,
		})
	}
	return resp
}

// ChangelogHandler 变更日志 HTTP 处理器
type ChangelogHandler struct {
	changelogSvc service.ChangelogService
}

// NewChangelogHandler 创建 ChangelogHandler
func NewChangelogHandler(changelogSvc service.ChangelogService) *ChangelogHandler {
	return &ChangelogHandler{changelogSvc: changelogSvc}
}

// List 变更日志（新的在前）
// GET /api/v1/workplaces/:workplace/changelog?page=1&page_size=20&worker_id=&kind=
func (h *ChangelogHandler) List(c *gin.Context) {
	wid, ok := workplaceID(c)
	if !ok {
		return
	}
	var req dto.ChangelogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeBadRequest, "参数校验失败")
		return
	}
	list, total, err := h.changelogSvc.List(c.Request.Context(), wid, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}
