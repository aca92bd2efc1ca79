package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/pkg/dateutil"
)

// ShiftRepository 班次数据访问接口
type ShiftRepository interface {
	BatchCreate(ctx context.Context, shifts []model.Shift) error
	GetByID(ctx context.Context, id int64) (*model.Shift, error)
	CountByDate(ctx context.Context, workplaceID int64, date dateutil.Date) (int64, error)
	ListByDate(ctx context.Context, workplaceID int64, date dateutil.Date) ([]model.Shift, error)
	// ListRange 返回 [from, to] 闭区间内的班次，含按顺序排列的排班及人员
	ListRange(ctx context.Context, workplaceID int64, from, to dateutil.Date) ([]model.Shift, error)
	CountBefore(ctx context.Context, workplaceID int64, cutoff dateutil.Date) (int64, error)
	DeleteBefore(ctx context.Context, workplaceID int64, cutoff dateutil.Date) (int64, error)
}

type shiftRepo struct {
	db *gorm.DB
}

func NewShiftRepo(db *gorm.DB) ShiftRepository {
	return &shiftRepo{db: db}
}

func (r *shiftRepo) BatchCreate(ctx context.Context, shifts []model.Shift) error {
	if len(shifts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Workers").Create(&shifts).Error
}

func (r *shiftRepo) GetByID(ctx context.Context, id int64) (*model.Shift, error) {
	var s model.Shift
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *shiftRepo) CountByDate(ctx context.Context, workplaceID int64, date dateutil.Date) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("workplace_id = ? AND date = ?", workplaceID, date).
		Count(&n).Error
	return n, err
}

func (r *shiftRepo) ListByDate(ctx context.Context, workplaceID int64, date dateutil.Date) ([]model.Shift, error) {
	var list []model.Shift
	err := r.db.WithContext(ctx).
		Where("workplace_id = ? AND date = ?", workplaceID, date).
		Order("sort_order ASC").
		Find(&list).Error
	return list, err
}

func (r *shiftRepo) ListRange(ctx context.Context, workplaceID int64, from, to dateutil.Date) ([]model.Shift, error) {
	var list []model.Shift
	err := r.db.WithContext(ctx).
		Preload("Workers", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Workers.Worker").
		Where("workplace_id = ? AND date >= ? AND date <= ?", workplaceID, from, to).
		Order("date ASC, sort_order ASC").
		Find(&list).Error
	return list, err
}

func (r *shiftRepo) CountBefore(ctx context.Context, workplaceID int64, cutoff dateutil.Date) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("workplace_id = ? AND date < ?", workplaceID, cutoff).
		Count(&n).Error
	return n, err
}

// DeleteBefore 删除截止日之前的班次；调用方须先删除其排班与备注
func (r *shiftRepo) DeleteBefore(ctx context.Context, workplaceID int64, cutoff dateutil.Date) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("workplace_id = ? AND date < ?", workplaceID, cutoff).
		Delete(&model.Shift{})
	return result.RowsAffected, result.Error
}
