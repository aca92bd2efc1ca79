package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/pkg/dateutil"
)

// WorkplaceRepository 工作场所数据访问接口
type WorkplaceRepository interface {
	Create(ctx context.Context, wp *model.Workplace) error
	GetByID(ctx context.Context, id int64) (*model.Workplace, error)
	List(ctx context.Context) ([]model.Workplace, error)
	UpdateSettings(ctx context.Context, id int64, settings model.WorkplaceSettings) error
	SetPrunedBefore(ctx context.Context, id int64, cutoff dateutil.Date) error
}

type workplaceRepo struct {
	db *gorm.DB
}

func NewWorkplaceRepo(db *gorm.DB) WorkplaceRepository {
	return &workplaceRepo{db: db}
}

func (r *workplaceRepo) Create(ctx context.Context, wp *model.Workplace) error {
	return r.db.WithContext(ctx).Create(wp).Error
}

func (r *workplaceRepo) GetByID(ctx context.Context, id int64) (*model.Workplace, error) {
	var wp model.Workplace
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&wp).Error; err != nil {
		return nil, err
	}
	return &wp, nil
}

func (r *workplaceRepo) List(ctx context.Context) ([]model.Workplace, error) {
	var list []model.Workplace
	err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *workplaceRepo) UpdateSettings(ctx context.Context, id int64, settings model.WorkplaceSettings) error {
	result := r.db.WithContext(ctx).
		Model(&model.Workplace{}).
		Where("id = ?", id).
		Update("settings", settings)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetPrunedBefore 只允许水位前移
func (r *workplaceRepo) SetPrunedBefore(ctx context.Context, id int64, cutoff dateutil.Date) error {
	return r.db.WithContext(ctx).
		Model(&model.Workplace{}).
		Where("id = ? AND (pruned_before IS NULL OR pruned_before < ?)", id, cutoff).
		Update("pruned_before", cutoff).Error
}
