package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/pkg/dateutil"
)

// CommentRepository 班次备注数据访问接口
type CommentRepository interface {
	// Upsert 同一 (班次, 人员) 只保留一条备注
	Upsert(ctx context.Context, c *model.WorkerShiftComment) error
	Get(ctx context.Context, shiftID, workerID int64) (*model.WorkerShiftComment, error)
	Delete(ctx context.Context, shiftID, workerID int64) (int64, error)
	ListByShifts(ctx context.Context, shiftIDs []int64) ([]model.WorkerShiftComment, error)
	CountBefore(ctx context.Context, workplaceID int64, cutoff dateutil.Date) (int64, error)
	DeleteBefore(ctx context.Context, workplaceID int64, cutoff dateutil.Date) (int64, error)
}

type commentRepo struct {
	db *gorm.DB
}

func NewCommentRepo(db *gorm.DB) CommentRepository {
	return &commentRepo{db: db}
}

func (r *commentRepo) Upsert(ctx context.Context, c *model.WorkerShiftComment) error {
	return r.db.WithContext(ctx).
		Omit("Shift").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shift_id"}, {Name: "worker_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"comment", "updated_at"}),
		}).
		Create(c).Error
}

func (r *commentRepo) Get(ctx context.Context, shiftID, workerID int64) (*model.WorkerShiftComment, error) {
	var c model.WorkerShiftComment
	err := r.db.WithContext(ctx).
		Where("shift_id = ? AND worker_id = ?", shiftID, workerID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *commentRepo) Delete(ctx context.Context, shiftID, workerID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("shift_id = ? AND worker_id = ?", shiftID, workerID).
		Delete(&model.WorkerShiftComment{})
	return result.RowsAffected, result.Error
}

func (r *commentRepo) ListByShifts(ctx context.Context, shiftIDs []int64) ([]model.WorkerShiftComment, error) {
	if len(shiftIDs) == 0 {
		return nil, nil
	}
	var list []model.WorkerShiftComment
	err := r.db.WithContext(ctx).
		Where("shift_id IN ?", shiftIDs).
		Order("shift_id ASC, worker_id ASC").
		Find(&list).Error
	return list, err
}

func (r *commentRepo) CountBefore(ctx context.Context, workplaceID int64, cutoff dateutil.Date) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.WorkerShiftComment{}).
		Where("shift_id IN (?)", shiftsBefore(r.db.WithContext(ctx), workplaceID, cutoff)).
		Count(&n).Error
	return n, err
}

func (r *commentRepo) DeleteBefore(ctx context.Context, workplaceID int64, cutoff dateutil.Date) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("shift_id IN (?)", shiftsBefore(r.db.WithContext(ctx), workplaceID, cutoff)).
		Delete(&model.WorkerShiftComment{})
	return result.RowsAffected, result.Error
}
