package dto

import "encoding/json"

// ── 工作场所 / 人员模块 DTO ──

// WorkplaceResponse 工作场所信息
type WorkplaceResponse struct {
	ID           int64           `json:"id"`
	Slug         string          `json:"slug"`
	Name         string          `json:"name"`
	Timezone     string          `json:"timezone"`
	Settings     json.RawMessage `json:"settings"`
	PrunedBefore string          `json:"pruned_before,omitempty"`
}

// CreateWorkerRequest 创建值班人员
type CreateWorkerRequest struct {
	Name  string  `json:"name"  binding:"required,min=1,max=150"`
	Phone *string `json:"phone" binding:"omitempty,max=40"`
}

// UpdateWorkerRequest 更新值班人员
type UpdateWorkerRequest struct {
	Name   *string `json:"name"   binding:"omitempty,min=1,max=150"`
	Phone  *string `json:"phone"  binding:"omitempty,max=40"`
	Active *bool   `json:"active"`
}

// WorkerListRequest 人员列表查询参数
type WorkerListRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}

// WorkerResponse 值班人员信息
type WorkerResponse struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Phone  *string `json:"phone,omitempty"`
	Active bool    `json:"active"`
}
