package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Mortal/shiftplanner/internal/changelog"
	"github.com/Mortal/shiftplanner/internal/dto"
	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/internal/repository"
	"github.com/Mortal/shiftplanner/pkg/clock"
	pkgerrors "github.com/Mortal/shiftplanner/pkg/errors"
)

// WorkerService 值班人员业务接口
type WorkerService interface {
	List(ctx context.Context, req *dto.WorkerListRequest) ([]dto.WorkerResponse, error)
	Create(ctx context.Context, req *dto.CreateWorkerRequest, actor changelog.Actor) (*dto.WorkerResponse, error)
	Update(ctx context.Context, id int64, req *dto.UpdateWorkerRequest, actor changelog.Actor) (*dto.WorkerResponse, error)
	// Delete 仍被排班、备注或统计引用的人员不可删除，应改为停用
	Delete(ctx context.Context, id int64) error
}

type workerService struct {
	repo     *repository.Repository
	recorder changelog.Recorder
	cache    StatsCache
	clock    clock.Clock
	logger   *zap.Logger
}

// NewWorkerService 创建 WorkerService 实例
func NewWorkerService(d Deps) WorkerService {
	d.fill()
	return &workerService{repo: d.Repo, recorder: d.Recorder, cache: d.Cache, clock: d.Clock, logger: d.Logger}
}

// ────────────────────── List ──────────────────────

func (s *workerService) List(ctx context.Context, req *dto.WorkerListRequest) ([]dto.WorkerResponse, error) {
	workers, err := s.repo.Worker.List(ctx, !req.IncludeInactive)
	if err != nil {
		s.logger.Error("列出值班人员失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.WorkerResponse, 0, len(workers))
	for i := range workers {
		result = append(result, toWorkerResponse(&workers[i]))
	}
	return result, nil
}

// ────────────────────── Create ──────────────────────

func (s *workerService) Create(ctx context.Context, req *dto.CreateWorkerRequest, actor changelog.Actor) (*dto.WorkerResponse, error) {
	w := &model.Worker{Name: req.Name, Phone: req.Phone, Active: true}
	if err := s.repo.Worker.Create(ctx, w); err != nil {
		s.logger.Error("创建值班人员失败", zap.Error(err))
		return nil, err
	}
	invalidateAllStats(ctx, s.repo, s.cache, s.logger)

	s.recorder.Record(ctx, changelog.Entry{
		Kind:  model.ChangelogCreateWorker,
		Data:  map[string]interface{}{"worker": w.ID, "name": w.Name},
		Actor: actor,
		Time:  s.clock.Now(),
	})

	resp := toWorkerResponse(w)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *workerService) Update(ctx context.Context, id int64, req *dto.UpdateWorkerRequest, actor changelog.Actor) (*dto.WorkerResponse, error) {
	w, err := s.repo.Worker.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("worker", id)
		}
		s.logger.Error("查询值班人员失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	changes := map[string]interface{}{}
	if req.Name != nil && *req.Name != w.Name {
		changes["name"] = []interface{}{w.Name, *req.Name}
		w.Name = *req.Name
	}
	if req.Phone != nil {
		w.Phone = req.Phone
		changes["phone"] = *req.Phone
	}
	if req.Active != nil && *req.Active != w.Active {
		changes["active"] = []interface{}{w.Active, *req.Active}
		w.Active = *req.Active
	}

	if err := s.repo.Worker.Update(ctx, w); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("worker", id)
		}
		s.logger.Error("更新值班人员失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	if len(changes) > 0 {
		invalidateAllStats(ctx, s.repo, s.cache, s.logger)
		changes["worker"] = w.ID
		s.recorder.Record(ctx, changelog.Entry{
			Kind:  model.ChangelogEditWorker,
			Data:  changes,
			Actor: actor,
			Time:  s.clock.Now(),
		})
	}

	resp := toWorkerResponse(w)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *workerService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Worker.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.NotFound("worker", id)
		}
		return err
	}
	has, err := s.repo.Worker.HasHistory(ctx, id)
	if err != nil {
		s.logger.Error("检查值班人员历史失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if has {
		return &pkgerrors.ConfigurationError{Reason: "值班人员仍有排班或统计记录，只能停用"}
	}
	if err := s.repo.Worker.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.NotFound("worker", id)
		}
		s.logger.Error("删除值班人员失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	invalidateAllStats(ctx, s.repo, s.cache, s.logger)
	return nil
}

func toWorkerResponse(w *model.Worker) dto.WorkerResponse {
	return dto.WorkerResponse{ID: w.ID, Name: w.Name, Phone: w.Phone, Active: w.Active}
}
