package dto

import "time"

// ── 班次模块 DTO ──

// SetWorkersRequest 设置班次值班人员（管理员编辑）
type SetWorkersRequest struct {
	Workers []int64 `json:"workers" binding:"omitempty,dive,gt=0"`
}

// RegisterRequest 值班人员自助报名 / 取消
type RegisterRequest struct {
	WorkerID int64 `json:"worker_id" binding:"required,gt=0"`
}

// CommentRequest 设置班次备注；空字符串表示删除
type CommentRequest struct {
	WorkerID int64  `json:"worker_id" binding:"required,gt=0"`
	Comment  string `json:"comment"   binding:"max=2000"`
}

// MaterializeRangeRequest 批量生成班次
type MaterializeRangeRequest struct {
	From string `json:"from" binding:"required,datetime=2006-01-02"`
	To   string `json:"to"   binding:"required,datetime=2006-01-02"`
}

// WorkerRef 班次中的值班人员
type WorkerRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// ShiftResponse 班次信息
type ShiftResponse struct {
	ID                   int64        `json:"id"`
	Date                 string       `json:"date"`
	Order                int          `json:"order"`
	Slug                 string       `json:"slug"`
	Name                 string       `json:"name"`
	RegistrationStarts   *time.Time   `json:"registration_starts,omitempty"`
	RegistrationDeadline *time.Time   `json:"registration_deadline,omitempty"`
	RegistrationOpen     bool         `json:"registration_open"`
	Workers              []WorkerRef  `json:"workers"`
	Comments             []CommentRef `json:"comments,omitempty"`
}

// CommentRef 班次中的备注
type CommentRef struct {
	WorkerID int64  `json:"worker_id"`
	Comment  string `json:"comment"`
}

// DayResponse 某天的全部班次
type DayResponse struct {
	Date    string          `json:"date"`
	Weekday string          `json:"weekday"`
	Shifts  []ShiftResponse `json:"shifts"`
}

// WeekResponse ISO 周视图
type WeekResponse struct {
	Week string        `json:"week"`
	Days []DayResponse `json:"days"`
}

// MaterializeResponse 生成结果
type MaterializeResponse struct {
	Created int `json:"created"`
}

// SetWorkersResponse 设置人员的结果
type SetWorkersResponse struct {
	Shift    ShiftResponse `json:"shift"`
	Inserted int           `json:"inserted"`
	Deleted  int           `json:"deleted"`
}
