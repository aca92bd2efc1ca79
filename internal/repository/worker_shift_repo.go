package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/pkg/dateutil"
)

// WorkerDayCount 某人员某天的排班行数
type WorkerDayCount struct {
	WorkerID int64
	Date     dateutil.Date
	Count    int64
}

// WorkerShiftRepository 排班数据访问接口
type WorkerShiftRepository interface {
	// ListByShift 按 sort_order 升序返回，预加载 Worker
	ListByShift(ctx context.Context, shiftID int64) ([]model.WorkerShift, error)
	BatchCreate(ctx context.Context, rows []model.WorkerShift) error
	// DeleteByIDs 返回实际删除的行数，由调用方与预期比较
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	// DailyCounts 按 (worker_id, date) 分组统计工作场所的全部排班
	DailyCounts(ctx context.Context, workplaceID int64) ([]WorkerDayCount, error)
	CountBefore(ctx context.Context, workplaceID int64, cutoff dateutil.Date) (int64, error)
	DeleteBefore(ctx context.Context, workplaceID int64, cutoff dateutil.Date) (int64, error)
}

type workerShiftRepo struct {
	db *gorm.DB
}

func NewWorkerShiftRepo(db *gorm.DB) WorkerShiftRepository {
	return &workerShiftRepo{db: db}
}

func (r *workerShiftRepo) ListByShift(ctx context.Context, shiftID int64) ([]model.WorkerShift, error) {
	var list []model.WorkerShift
	err := r.db.WithContext(ctx).
		Preload("Worker").
		Where("shift_id = ?", shiftID).
		Order("sort_order ASC").
		Find(&list).Error
	return list, err
}

func (r *workerShiftRepo) BatchCreate(ctx context.Context, rows []model.WorkerShift) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Worker", "Shift").Create(&rows).Error
}

func (r *workerShiftRepo) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.WorkerShift{})
	return result.RowsAffected, result.Error
}

func (r *workerShiftRepo) DailyCounts(ctx context.Context, workplaceID int64) ([]WorkerDayCount, error) {
	var rows []WorkerDayCount
	err := r.grouped(ctx).
		Where("shifts.workplace_id = ?", workplaceID).
		Scan(&rows).Error
	return rows, err
}

func (r *workerShiftRepo) grouped(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.WorkerShift{}).
		Select("worker_shifts.worker_id AS worker_id, shifts.date AS date, COUNT(*) AS count").
		Joins("JOIN shifts ON shifts.id = worker_shifts.shift_id").
		Group("worker_shifts.worker_id, shifts.date")
}

func (r *workerShiftRepo) CountBefore(ctx context.Context, workplaceID int64, cutoff dateutil.Date) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.WorkerShift{}).
		Where("shift_id IN (?)", shiftsBefore(r.db.WithContext(ctx), workplaceID, cutoff)).
		Count(&n).Error
	return n, err
}

func (r *workerShiftRepo) DeleteBefore(ctx context.Context, workplaceID int64, cutoff dateutil.Date) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("shift_id IN (?)", shiftsBefore(r.db.WithContext(ctx), workplaceID, cutoff)).
		Delete(&model.WorkerShift{})
	return result.RowsAffected, result.Error
}

// shiftsBefore 截止日之前班次 id 的子查询
func shiftsBefore(db *gorm.DB, workplaceID int64, cutoff dateutil.Date) *gorm.DB {
	return db.Model(&model.Shift{}).
		Select("id").
		Where("workplace_id = ? AND date < ?", workplaceID, cutoff)
}
