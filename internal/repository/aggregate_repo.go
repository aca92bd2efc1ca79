package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Mortal/shiftplanner/internal/model"
)

// AggregateRepository 统计聚合数据访问接口
// 聚合行只通过增量更新，不做整体覆盖。
type AggregateRepository interface {
	List(ctx context.Context, workplaceID int64) ([]model.WorkerShiftAggregateCount, error)
	Insert(ctx context.Context, row *model.WorkerShiftAggregateCount) error
	// Increment 对指定行加 delta，返回受影响行数
	Increment(ctx context.Context, id int64, delta int64) (int64, error)
}

type aggregateRepo struct {
	db *gorm.DB
}

func NewAggregateRepo(db *gorm.DB) AggregateRepository {
	return &aggregateRepo{db: db}
}

func (r *aggregateRepo) List(ctx context.Context, workplaceID int64) ([]model.WorkerShiftAggregateCount, error) {
	var list []model.WorkerShiftAggregateCount
	err := r.db.WithContext(ctx).
		Where("workplace_id = ?", workplaceID).
		Order("worker_id ASC, isoyearweek ASC, yearmonth ASC").
		Find(&list).Error
	return list, err
}

func (r *aggregateRepo) Insert(ctx context.Context, row *model.WorkerShiftAggregateCount) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *aggregateRepo) Increment(ctx context.Context, id int64, delta int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.WorkerShiftAggregateCount{}).
		Where("id = ?", id).
		Update("count", gorm.Expr("count + ?", delta))
	return result.RowsAffected, result.Error
}
