package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Mortal/shiftplanner/internal/dto"
	"github.com/Mortal/shiftplanner/internal/repository"
)

// ChangelogService 变更日志查询接口
type ChangelogService interface {
	List(ctx context.Context, workplaceID int64, req *dto.ChangelogListRequest) ([]dto.ChangelogResponse, int64, error)
}

type changelogService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewChangelogService 创建 ChangelogService 实例
func NewChangelogService(d Deps) ChangelogService {
	d.fill()
	return &changelogService{repo: d.Repo, logger: d.Logger}
}

func (s *changelogService) List(ctx context.Context, workplaceID int64, req *dto.ChangelogListRequest) ([]dto.ChangelogResponse, int64, error) {
	filter := repository.ChangelogFilter{WorkplaceID: workplaceID, WorkerID: req.WorkerID, Kind: req.Kind}
	rows, total, err := s.repo.Changelog.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询变更日志失败", zap.Error(err))
		return nil, 0, err
	}
	out := make([]dto.ChangelogResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.ChangelogResponse{
			ID:       r.ID,
			Time:     r.Time.UTC().Format(time.RFC3339),
			WorkerID: r.WorkerID,
			UserID:   r.UserID,
			Kind:     r.Kind,
			Data:     r.Data,
		})
	}
	return out, total, nil
}
