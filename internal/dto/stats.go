package dto

// ── 统计 / 清理 / 日志模块 DTO ──

// BucketDeltaResponse 单个桶的待应用增量
type BucketDeltaResponse struct {
	WorkerID int64 `json:"worker_id"`
	ISOYear  int   `json:"isoyear"`
	ISOWeek  int   `json:"isoweek"`
	Year     int   `json:"year"`
	Month    int   `json:"month"`
	Delta    int64 `json:"delta"`
	Exists   bool  `json:"exists"`
}

// UpdatePlanResponse 统计刷新计划
type UpdatePlanResponse struct {
	Increased int                   `json:"increased"`
	Unchanged int                   `json:"unchanged"`
	Decreased int                   `json:"decreased"`
	Deltas    []BucketDeltaResponse `json:"deltas"`
	Applied   bool                  `json:"applied"`
}

// PruneRequest 清理请求
type PruneRequest struct {
	Before string `json:"before" binding:"required,datetime=2006-01-02"`
	DryRun bool   `json:"dry_run"`
}

// PrunePlanResponse 清理计划
type PrunePlanResponse struct {
	Before       string `json:"before"`
	Shifts       int64  `json:"shifts"`
	WorkerShifts int64  `json:"worker_shifts"`
	Comments     int64  `json:"comments"`
	Applied      bool   `json:"applied"`
}

// ChangelogListRequest 变更日志查询参数
type ChangelogListRequest struct {
	PaginationRequest
	WorkerID int64  `form:"worker_id" binding:"omitempty,gt=0"`
	Kind     string `form:"kind"      binding:"omitempty,max=150"`
}

// ChangelogResponse 变更日志
type ChangelogResponse struct {
	ID       int64                  `json:"id"`
	Time     string                 `json:"time"`
	WorkerID *int64                 `json:"worker_id,omitempty"`
	UserID   *int64                 `json:"user_id,omitempty"`
	Kind     string                 `json:"kind"`
	Data     map[string]interface{} `json:"data"`
}
