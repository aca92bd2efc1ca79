package model

import (
	"time"

	"github.com/Mortal/shiftplanner/pkg/dateutil"
)

// Shift 具体班次 — 对应 shifts
// (workplace_id, date, slug) 唯一；报名窗口在生成时计算后冻结，模板后续修改不影响已生成班次。
type Shift struct {
	ID                   int64         `gorm:"primaryKey"                                                   json:"id"`
	WorkplaceID          int64         `gorm:"not null;uniqueIndex:idx_shifts_workplace_date_slug,priority:1" json:"workplace_id"`
	Date                 dateutil.Date `gorm:"type:date;not null;index;uniqueIndex:idx_shifts_workplace_date_slug,priority:2" json:"date"`
	Order                int           `gorm:"column:sort_order;not null"                                   json:"order"`
	Slug                 string        `gorm:"type:varchar(150);not null;uniqueIndex:idx_shifts_workplace_date_slug,priority:3" json:"slug"`
	Name                 string        `gorm:"type:varchar(150);not null"                                   json:"name"`
	RegistrationStarts   *time.Time    `json:"registration_starts,omitempty"`
	RegistrationDeadline *time.Time    `json:"registration_deadline,omitempty"`
	Settings             JSONMap       `gorm:"type:text;not null"                                           json:"settings"`
	BaseModel

	// 关联
	Workers []WorkerShift `gorm:"foreignKey:ShiftID" json:"workers,omitempty"`
}

// TableName 指定表名
func (Shift) TableName() string { return "shifts" }

// RegistrationOpen now 是否处于报名窗口内；未设置的边界视为不限制
func (s *Shift) RegistrationOpen(now time.Time) bool {
	if s.RegistrationStarts != nil && now.Before(*s.RegistrationStarts) {
		return false
	}
	if s.RegistrationDeadline != nil && !now.Before(*s.RegistrationDeadline) {
		return false
	}
	return true
}

// WorkerShift 排班 — 对应 worker_shifts
// Order 在同一班次内严格递增；同一班次内值班人员不重复。
type WorkerShift struct {
	ID        int64     `gorm:"primaryKey"                                                                         json:"id"`
	ShiftID   int64     `gorm:"not null;uniqueIndex:idx_worker_shifts_shift_worker,priority:1;uniqueIndex:idx_worker_shifts_shift_order,priority:1" json:"shift_id"`
	WorkerID  int64     `gorm:"not null;index;uniqueIndex:idx_worker_shifts_shift_worker,priority:2"               json:"worker_id"`
	Order     int       `gorm:"column:sort_order;not null;uniqueIndex:idx_worker_shifts_shift_order,priority:2"    json:"order"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"                                                            json:"created_at"`

	// 关联
	Worker *Worker `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
	Shift  *Shift  `gorm:"foreignKey:ShiftID"  json:"-"`
}

// TableName 指定表名
func (WorkerShift) TableName() string { return "worker_shifts" }

// WorkerShiftComment 值班人员对班次的备注 — 对应 worker_shift_comments
type WorkerShiftComment struct {
	ID       int64  `gorm:"primaryKey"                                                     json:"id"`
	ShiftID  int64  `gorm:"not null;uniqueIndex:idx_worker_shift_comments_shift_worker,priority:1" json:"shift_id"`
	WorkerID int64  `gorm:"not null;uniqueIndex:idx_worker_shift_comments_shift_worker,priority:2" json:"worker_id"`
	Comment  string `gorm:"type:text;not null"                                             json:"comment"`
	BaseModel

	Shift *Shift `gorm:"foreignKey:ShiftID" json:"-"`
}

// TableName 指定表名
func (WorkerShiftComment) TableName() string { return "worker_shift_comments" }

// WorkerShiftAggregateCount 排班统计聚合 — 对应 worker_shift_aggregate_counts
// 按 (工作场所, 值班人员, ISO 周, 自然月) 分桶的累加器，只通过增量更新。
type WorkerShiftAggregateCount struct {
	ID          int64     `gorm:"primaryKey"                                                       json:"id"`
	WorkplaceID int64     `gorm:"not null;uniqueIndex:idx_aggregate_bucket,priority:1"            json:"workplace_id"`
	WorkerID    int64     `gorm:"not null;uniqueIndex:idx_aggregate_bucket,priority:2"            json:"worker_id"`
	ISOYearWeek int       `gorm:"column:isoyearweek;not null;uniqueIndex:idx_aggregate_bucket,priority:3" json:"isoyearweek"`
	YearMonth   int       `gorm:"column:yearmonth;not null;uniqueIndex:idx_aggregate_bucket,priority:4"   json:"yearmonth"`
	Count       int64     `gorm:"column:count;not null"                                           json:"count"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime"                                         json:"updated_at"`
}

// TableName 指定表名
func (WorkerShiftAggregateCount) TableName() string { return "worker_shift_aggregate_counts" }
