package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Mortal/shiftplanner/internal/model"
)

// ChangelogFilter 变更日志查询条件；零值字段不参与过滤。
// 按工作场所过滤时，不属于任何工作场所的日志（如人员变更）同样返回。
type ChangelogFilter struct {
	WorkplaceID int64
	WorkerID    int64
	Kind        string
}

// ChangelogRepository 变更日志数据访问接口（只追加）
type ChangelogRepository interface {
	Create(ctx context.Context, entry *model.Changelog) error
	List(ctx context.Context, filter ChangelogFilter, offset, limit int) ([]model.Changelog, int64, error)
}

type changelogRepo struct {
	db *gorm.DB
}

func NewChangelogRepo(db *gorm.DB) ChangelogRepository {
	return &changelogRepo{db: db}
}

func (r *changelogRepo) Create(ctx context.Context, entry *model.Changelog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *changelogRepo) List(ctx context.Context, filter ChangelogFilter, offset, limit int) ([]model.Changelog, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Changelog{})
	if filter.WorkplaceID != 0 {
		query = query.Where("(workplace_id = ? OR workplace_id IS NULL)", filter.WorkplaceID)
	}
	if filter.WorkerID != 0 {
		query = query.Where("worker_id = ?", filter.WorkerID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Changelog
	err := query.Order("time DESC, id DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}
