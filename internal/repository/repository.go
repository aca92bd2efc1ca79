package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Workplace   WorkplaceRepository
	Worker      WorkerRepository
	Shift       ShiftRepository
	WorkerShift WorkerShiftRepository
	Comment     CommentRepository
	Aggregate   AggregateRepository
	Changelog   ChangelogRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:          db,
		Workplace:   NewWorkplaceRepo(db),
		Worker:      NewWorkerRepo(db),
		Shift:       NewShiftRepo(db),
		WorkerShift: NewWorkerShiftRepo(db),
		Comment:     NewCommentRepo(db),
		Aggregate:   NewAggregateRepo(db),
		Changelog:   NewChangelogRepo(db),
	}
}

// WithTx 返回绑定到事务连接的 Repository
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在单个数据库事务中执行 fn；fn 返回错误或 panic 时回滚。
// fn 内只能使用传入的 txRepo，否则在单连接的 SQLite 上会死锁。
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
