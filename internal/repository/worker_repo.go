package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Mortal/shiftplanner/internal/model"
)

// WorkerRepository 值班人员数据访问接口
type WorkerRepository interface {
	Create(ctx context.Context, w *model.Worker) error
	GetByID(ctx context.Context, id int64) (*model.Worker, error)
	List(ctx context.Context, activeOnly bool) ([]model.Worker, error)
	CountByIDs(ctx context.Context, ids []int64) (int64, error)
	Update(ctx context.Context, w *model.Worker) error
	Delete(ctx context.Context, id int64) error
	HasHistory(ctx context.Context, id int64) (bool, error)
}

type workerRepo struct {
	db *gorm.DB
}

func NewWorkerRepo(db *gorm.DB) WorkerRepository {
	return &workerRepo{db: db}
}

func (r *workerRepo) Create(ctx context.Context, w *model.Worker) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *workerRepo) GetByID(ctx context.Context, id int64) (*model.Worker, error) {
	var w model.Worker
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *workerRepo) List(ctx context.Context, activeOnly bool) ([]model.Worker, error) {
	var list []model.Worker
	query := r.db.WithContext(ctx).Model(&model.Worker{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	err := query.Order("id ASC").Find(&list).Error
	return list, err
}

// CountByIDs 统计 ids 中实际存在的人员数（ids 应已去重）
func (r *workerRepo) CountByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Worker{}).Where("id IN ?", ids).Count(&n).Error
	return n, err
}

func (r *workerRepo) Update(ctx context.Context, w *model.Worker) error {
	result := r.db.WithContext(ctx).
		Model(&model.Worker{}).
		Where("id = ?", w.ID).
		Updates(map[string]interface{}{
			"name":   w.Name,
			"phone":  w.Phone,
			"active": w.Active,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *workerRepo) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Worker{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// HasHistory 人员是否仍被排班、备注或统计聚合引用
func (r *workerRepo) HasHistory(ctx context.Context, id int64) (bool, error) {
	for _, m := range []interface{}{&model.WorkerShift{}, &model.WorkerShiftComment{}, &model.WorkerShiftAggregateCount{}} {
		var n int64
		if err := r.db.WithContext(ctx).Model(m).Where("worker_id = ?", id).Limit(1).Count(&n).Error; err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}
