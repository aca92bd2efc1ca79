package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/Mortal/shiftplanner/internal/changelog"
	"github.com/Mortal/shiftplanner/internal/metrics"
	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/internal/repository"
	"github.com/Mortal/shiftplanner/internal/stats"
	"github.com/Mortal/shiftplanner/pkg/clock"
	pkgerrors "github.com/Mortal/shiftplanner/pkg/errors"
)

// 统计视图名，同时用作缓存键后缀
const (
	StatsViewLive   = "live"
	StatsViewCached = "cached"
)

// StatsService 排班统计业务接口
//
// 聚合表是只增不覆盖的累加器：PrepareUpdate 只读地计算增量，
// DoUpdate 逐桶插入新行或执行 count = count + delta。
type StatsService interface {
	// LiveStats 直接由排班行计算（含没有排班的人员）
	LiveStats(ctx context.Context, workplaceID int64) ([]stats.WorkerStats, error)
	// CachedStats 聚合表加上尚未折叠的实时增量，清理后的历史仍然可见
	CachedStats(ctx context.Context, workplaceID int64) ([]stats.WorkerStats, error)
	PrepareUpdate(ctx context.Context, workplaceID int64) (stats.UpdatePlan, error)
	DoUpdate(ctx context.Context, workplaceID int64, plan stats.UpdatePlan, actor changelog.Actor) error
	// Flush 在同一事务中计算并应用增量
	Flush(ctx context.Context, workplaceID int64, actor changelog.Actor) (stats.UpdatePlan, error)
}

type statsService struct {
	repo     *repository.Repository
	recorder changelog.Recorder
	cache    StatsCache
	metrics  *metrics.Metrics
	clock    clock.Clock
	logger   *zap.Logger
}

// NewStatsService 创建 StatsService 实例
func NewStatsService(d Deps) StatsService {
	d.fill()
	return &statsService{
		repo:     d.Repo,
		recorder: d.Recorder,
		cache:    d.Cache,
		metrics:  d.Metrics,
		clock:    d.Clock,
		logger:   d.Logger,
	}
}

// ────────────────────── 查询 ──────────────────────

func (s *statsService) LiveStats(ctx context.Context, workplaceID int64) ([]stats.WorkerStats, error) {
	return s.cachedView(ctx, workplaceID, StatsViewLive, func() ([]stats.WorkerStats, error) {
		if _, _, err := loadWorkplace(ctx, s.repo, workplaceID); err != nil {
			return nil, err
		}
		live, err := liveBuckets(ctx, s.repo, workplaceID)
		if err != nil {
			return nil, err
		}
		workers, err := s.repo.Worker.List(ctx, false)
		if err != nil {
			return nil, err
		}
		return stats.Build(workers, live), nil
	})
}

func (s *statsService) CachedStats(ctx context.Context, workplaceID int64) ([]stats.WorkerStats, error) {
	return s.cachedView(ctx, workplaceID, StatsViewCached, func() ([]stats.WorkerStats, error) {
		wp, _, err := loadWorkplace(ctx, s.repo, workplaceID)
		if err != nil {
			return nil, err
		}
		live, err := liveBuckets(ctx, s.repo, workplaceID)
		if err != nil {
			return nil, err
		}
		existing, err := s.repo.Aggregate.List(ctx, workplaceID)
		if err != nil {
			return nil, err
		}
		workers, err := s.repo.Worker.List(ctx, false)
		if err != nil {
			return nil, err
		}
		return stats.Build(workers, stats.Cached(live, existing, wp.PrunedBefore)), nil
	})
}

// cachedView 先读缓存，未命中时计算并回填；缓存故障只降级为直接计算
func (s *statsService) cachedView(ctx context.Context, workplaceID int64, view string, compute func() ([]stats.WorkerStats, error)) ([]stats.WorkerStats, error) {
	if s.cache != nil {
		b, ok, err := s.cache.GetStats(ctx, workplaceID, view)
		if err != nil {
			s.logger.Warn("读取统计缓存失败", zap.String("view", view), zap.Error(err))
		} else if ok {
			var out []stats.WorkerStats
			if err := json.Unmarshal(b, &out); err == nil {
				return out, nil
			}
		}
	}

	out, err := compute()
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("计算统计失败", zap.String("view", view), zap.Error(err))
		}
		return nil, err
	}

	if s.cache != nil {
		if b, err := json.Marshal(out); err == nil {
			if err := s.cache.SetStats(ctx, workplaceID, view, b); err != nil {
				s.logger.Warn("写入统计缓存失败", zap.String("view", view), zap.Error(err))
			}
		}
	}
	return out, nil
}

// ────────────────────── 刷新 ──────────────────────

func (s *statsService) PrepareUpdate(ctx context.Context, workplaceID int64) (stats.UpdatePlan, error) {
	wp, _, err := loadWorkplace(ctx, s.repo, workplaceID)
	if err != nil {
		return stats.UpdatePlan{}, err
	}
	return prepareStats(ctx, s.repo, wp)
}

func (s *statsService) DoUpdate(ctx context.Context, workplaceID int64, plan stats.UpdatePlan, actor changelog.Actor) error {
	if _, _, err := loadWorkplace(ctx, s.repo, workplaceID); err != nil {
		return err
	}
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return applyStats(ctx, tx, workplaceID, plan)
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("刷新统计失败", zap.Int64("workplace_id", workplaceID), zap.Error(err))
		}
		return err
	}
	s.afterFlush(ctx, workplaceID, plan, actor)
	return nil
}

func (s *statsService) Flush(ctx context.Context, workplaceID int64, actor changelog.Actor) (stats.UpdatePlan, error) {
	wp, _, err := loadWorkplace(ctx, s.repo, workplaceID)
	if err != nil {
		return stats.UpdatePlan{}, err
	}
	var plan stats.UpdatePlan
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		plan, err = prepareStats(ctx, tx, wp)
		if err != nil {
			return err
		}
		return applyStats(ctx, tx, workplaceID, plan)
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("刷新统计失败", zap.Int64("workplace_id", workplaceID), zap.Error(err))
		}
		return stats.UpdatePlan{}, err
	}
	s.afterFlush(ctx, workplaceID, plan, actor)
	return plan, nil
}

func (s *statsService) afterFlush(ctx context.Context, workplaceID int64, plan stats.UpdatePlan, actor changelog.Actor) {
	if len(plan.Deltas) == 0 {
		return
	}
	s.metrics.StatsFlushed(plan.Increased, plan.Decreased)
	invalidateStats(ctx, s.cache, s.logger, workplaceID)
	s.recorder.Record(ctx, changelog.Entry{
		WorkplaceID: workplaceID,
		Kind:        model.ChangelogFlushStatistics,
		Data: map[string]interface{}{
			"increased": plan.Increased,
			"unchanged": plan.Unchanged,
			"decreased": plan.Decreased,
		},
		Actor: actor,
		Time:  s.clock.Now(),
	})
}

// ── 辅助函数 ──

func liveBuckets(ctx context.Context, repo *repository.Repository, workplaceID int64) (map[stats.Bucket]int64, error) {
	rows, err := repo.WorkerShift.DailyCounts(ctx, workplaceID)
	if err != nil {
		return nil, err
	}
	return stats.Live(toDayCounts(rows)), nil
}

func toDayCounts(rows []repository.WorkerDayCount) []stats.DayCount {
	out := make([]stats.DayCount, len(rows))
	for i, r := range rows {
		out[i] = stats.DayCount{WorkerID: r.WorkerID, Date: r.Date, Count: r.Count}
	}
	return out
}

// prepareStats 只读计算刷新计划
func prepareStats(ctx context.Context, repo *repository.Repository, wp *model.Workplace) (stats.UpdatePlan, error) {
	live, err := liveBuckets(ctx, repo, wp.ID)
	if err != nil {
		return stats.UpdatePlan{}, err
	}
	existing, err := repo.Aggregate.List(ctx, wp.ID)
	if err != nil {
		return stats.UpdatePlan{}, err
	}
	return stats.Prepare(live, existing, wp.PrunedBefore), nil
}

// applyStats 逐桶应用增量；任何一行未按预期写入都使整个事务回滚
func applyStats(ctx context.Context, repo *repository.Repository, workplaceID int64, plan stats.UpdatePlan) error {
	for _, d := range plan.Deltas {
		if d.RowID == nil {
			row := &model.WorkerShiftAggregateCount{
				WorkplaceID: workplaceID,
				WorkerID:    d.Bucket.WorkerID,
				ISOYearWeek: d.Bucket.ISOYearWeek,
				YearMonth:   d.Bucket.YearMonth,
				Count:       d.Delta,
			}
			if err := repo.Aggregate.Insert(ctx, row); err != nil {
				return translateDuplicate(err, "worker_shift_aggregate_count", 1)
			}
			continue
		}
		n, err := repo.Aggregate.Increment(ctx, *d.RowID, d.Delta)
		if err != nil {
			return err
		}
		if n != 1 {
			return pkgerrors.Conflict("worker_shift_aggregate_count", 1, n)
		}
	}
	return nil
}
