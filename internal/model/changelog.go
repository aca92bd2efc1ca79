package model

import "time"

// 变更日志类型
const (
	ChangelogRegister        = "register"
	ChangelogUnregister      = "unregister"
	ChangelogEdit            = "edit"
	ChangelogComment         = "comment"
	ChangelogEditWorker      = "edit_worker"
	ChangelogCreateWorker    = "create_worker"
	ChangelogEditSettings    = "edit_workplace_settings"
	ChangelogFlushStatistics = "flush_statistics"
	ChangelogPrune           = "prune"
)

// Changelog 变更日志 — 对应 changelogs（只追加，不修改）
type Changelog struct {
	ID          int64     `gorm:"primaryKey"                 json:"id"`
	Time        time.Time `gorm:"not null;index"             json:"time"`
	WorkplaceID *int64    `gorm:"index"                      json:"workplace_id,omitempty"`
	WorkerID    *int64    `gorm:"index"                      json:"worker_id,omitempty"`
	UserID      *int64    `json:"user_id,omitempty"`
	Kind        string    `gorm:"type:varchar(150);not null;index" json:"kind"`
	Data        JSONMap   `gorm:"type:text;not null"         json:"data"`
}

// TableName 指定表名
func (Changelog) TableName() string { return "changelogs" }
