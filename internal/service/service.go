package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Mortal/shiftplanner/config"
	"github.com/Mortal/shiftplanner/internal/changelog"
	"github.com/Mortal/shiftplanner/internal/metrics"
	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/internal/repository"
	"github.com/Mortal/shiftplanner/internal/settings"
	"github.com/Mortal/shiftplanner/pkg/clock"
	pkgerrors "github.com/Mortal/shiftplanner/pkg/errors"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Workplace WorkplaceService
	Worker    WorkerService
	Shift     ShiftService
	Stats     StatsService
	Prune     PruneService
	Changelog ChangelogService
	Export    ExportService
}

// StatsCache 统计结果缓存（pkg/redis.Client 实现）；为 nil 时不缓存
type StatsCache interface {
	GetStats(ctx context.Context, workplaceID int64, view string) ([]byte, bool, error)
	SetStats(ctx context.Context, workplaceID int64, view string, payload []byte) error
	InvalidateStats(ctx context.Context, workplaceID int64) error
}

// Deps 服务层公共依赖
type Deps struct {
	Repo     *repository.Repository
	Recorder changelog.Recorder
	Cache    StatsCache
	Metrics  *metrics.Metrics
	Clock    clock.Clock
	Logger   *zap.Logger

	// PruneMinAgeDays 清理截止日距今至少的天数
	PruneMinAgeDays int
}

func (d *Deps) fill() {
	if d.Recorder == nil {
		d.Recorder = changelog.Nop{}
	}
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache StatsCache,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return NewServiceWithDeps(Deps{
		Repo:            repo,
		Recorder:        changelog.NewRecorder(repo.Changelog, m, logger),
		Cache:           cache,
		Metrics:         m,
		Clock:           clock.Real{},
		Logger:          logger,
		PruneMinAgeDays: cfg.Prune.MinAgeDays,
	})
}

// NewServiceWithDeps 以显式依赖创建 Service 聚合（测试注入时钟等）
func NewServiceWithDeps(d Deps) *Service {
	d.fill()
	statsSvc := NewStatsService(d)
	return &Service{
		Workplace: NewWorkplaceService(d, settings.New()),
		Worker:    NewWorkerService(d),
		Shift:     NewShiftService(d),
		Stats:     statsSvc,
		Prune:     NewPruneService(d),
		Changelog: NewChangelogService(d),
		Export:    NewExportService(d, statsSvc),
	}
}

// ── 公共辅助 ──

// loadWorkplace 读取工作场所及其时区
func loadWorkplace(ctx context.Context, repo *repository.Repository, id int64) (*model.Workplace, *time.Location, error) {
	wp, err := repo.Workplace.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.NotFound("workplace", id)
		}
		return nil, nil, err
	}
	loc, err := wp.Location()
	if err != nil {
		return nil, nil, &pkgerrors.ConfigurationError{Reason: err.Error()}
	}
	return wp, loc, nil
}

// invalidateStats 排班数据变更后清除统计缓存；失败只记录日志
func invalidateStats(ctx context.Context, cache StatsCache, logger *zap.Logger, workplaceID int64) {
	if cache == nil {
		return
	}
	if err := cache.InvalidateStats(ctx, workplaceID); err != nil {
		logger.Warn("清除统计缓存失败", zap.Int64("workplace_id", workplaceID), zap.Error(err))
	}
}

// invalidateAllStats 值班人员是全局的，人员变更需清除所有工作场所的统计缓存
func invalidateAllStats(ctx context.Context, repo *repository.Repository, cache StatsCache, logger *zap.Logger) {
	if cache == nil {
		return
	}
	workplaces, err := repo.Workplace.List(ctx)
	if err != nil {
		logger.Warn("列出工作场所失败，统计缓存未清除", zap.Error(err))
		return
	}
	for _, wp := range workplaces {
		invalidateStats(ctx, cache, logger, wp.ID)
	}
}

// translateDuplicate 唯一索引冲突视为并发写入冲突
func translateDuplicate(err error, entity string, expected int64) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgerrors.Conflict(entity, expected, 0)
	}
	return err
}
