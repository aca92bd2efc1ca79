package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Mortal/shiftplanner/internal/changelog"
	"github.com/Mortal/shiftplanner/internal/metrics"
	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/internal/repository"
	"github.com/Mortal/shiftplanner/pkg/clock"
	"github.com/Mortal/shiftplanner/pkg/dateutil"
	pkgerrors "github.com/Mortal/shiftplanner/pkg/errors"
)

// defaultPruneMinAgeDays 截止日距今的最小天数
const defaultPruneMinAgeDays = 7

// PrunePlan 清理计划：删除 Before 之前的全部原始排班数据
type PrunePlan struct {
	WorkplaceID  int64
	Before       dateutil.Date
	Shifts       int64
	WorkerShifts int64
	Comments     int64
}

// PruneService 原始排班数据清理业务接口
//
// 清理分两步：PreparePrune 校验安全性并统计待删行数，
// Prune 按计划删除并逐表核对行数，不一致则整体回滚。
type PruneService interface {
	PreparePrune(ctx context.Context, workplaceID int64, before dateutil.Date) (*PrunePlan, error)
	Prune(ctx context.Context, plan *PrunePlan, actor changelog.Actor) error
}

type pruneService struct {
	repo       *repository.Repository
	recorder   changelog.Recorder
	cache      StatsCache
	metrics    *metrics.Metrics
	clock      clock.Clock
	logger     *zap.Logger
	minAgeDays int
}

// NewPruneService 创建 PruneService 实例
func NewPruneService(d Deps) PruneService {
	d.fill()
	minAge := d.PruneMinAgeDays
	if minAge <= 0 {
		minAge = defaultPruneMinAgeDays
	}
	return &pruneService{
		repo:       d.Repo,
		recorder:   d.Recorder,
		cache:      d.Cache,
		metrics:    d.Metrics,
		clock:      d.Clock,
		logger:     d.Logger,
		minAgeDays: minAge,
	}
}

// ────────────────────── PreparePrune ──────────────────────

func (s *pruneService) PreparePrune(ctx context.Context, workplaceID int64, before dateutil.Date) (*PrunePlan, error) {
	wp, loc, err := loadWorkplace(ctx, s.repo, workplaceID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCutoff(before, loc); err != nil {
		return nil, err
	}
	if err := checkFlushed(ctx, s.repo, wp, before); err != nil {
		return nil, err
	}
	plan, err := countPrunable(ctx, s.repo, workplaceID, before)
	if err != nil {
		s.logger.Error("统计待清理行数失败", zap.Int64("workplace_id", workplaceID), zap.Error(err))
		return nil, err
	}
	return plan, nil
}

// checkCutoff 截止日必须是周一，且距今（工作场所时区）不少于 minAgeDays 天
func (s *pruneService) checkCutoff(before dateutil.Date, loc *time.Location) error {
	if before.IsZero() {
		return pkgerrors.Validation("before", "截止日期不能为空")
	}
	if before.Weekday() != 0 {
		return pkgerrors.Validation("before", "截止日期 %s 必须是周一", before)
	}
	today := dateutil.DateOf(s.clock.Now().In(loc))
	if today.DaysSince(before) < s.minAgeDays {
		return pkgerrors.Validation("before", "截止日期 %s 距今不足 %d 天", before, s.minAgeDays)
	}
	return nil
}

// checkFlushed 截止周之前的统计桶若仍有未折叠的增量，删除原始行会丢失统计
func checkFlushed(ctx context.Context, repo *repository.Repository, wp *model.Workplace, before dateutil.Date) error {
	plan, err := prepareStats(ctx, repo, wp)
	if err != nil {
		return err
	}
	cutoffWeek := before.ISOYearWeek()
	for _, d := range plan.Deltas {
		if d.Bucket.ISOYearWeek < cutoffWeek {
			return &pkgerrors.ConfigurationError{
				Reason: fmt.Sprintf("截止日期 %s 之前存在未刷新的统计，请先刷新统计", before),
				Bucket: d.Bucket.String(),
			}
		}
	}
	return nil
}

func countPrunable(ctx context.Context, repo *repository.Repository, workplaceID int64, before dateutil.Date) (*PrunePlan, error) {
	plan := &PrunePlan{WorkplaceID: workplaceID, Before: before}
	var err error
	if plan.Shifts, err = repo.Shift.CountBefore(ctx, workplaceID, before); err != nil {
		return nil, err
	}
	if plan.WorkerShifts, err = repo.WorkerShift.CountBefore(ctx, workplaceID, before); err != nil {
		return nil, err
	}
	if plan.Comments, err = repo.Comment.CountBefore(ctx, workplaceID, before); err != nil {
		return nil, err
	}
	return plan, nil
}

// ────────────────────── Prune ──────────────────────

func (s *pruneService) Prune(ctx context.Context, plan *PrunePlan, actor changelog.Actor) error {
	wp, loc, err := loadWorkplace(ctx, s.repo, plan.WorkplaceID)
	if err != nil {
		return err
	}
	if err := s.checkCutoff(plan.Before, loc); err != nil {
		return err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 计划生成后可能又有新的排班写入
		if err := checkFlushed(ctx, tx, wp, plan.Before); err != nil {
			return err
		}

		n, err := tx.WorkerShift.DeleteBefore(ctx, plan.WorkplaceID, plan.Before)
		if err != nil {
			return err
		}
		if n != plan.WorkerShifts {
			return pkgerrors.Conflict("worker_shift", plan.WorkerShifts, n)
		}

		n, err = tx.Comment.DeleteBefore(ctx, plan.WorkplaceID, plan.Before)
		if err != nil {
			return err
		}
		if n != plan.Comments {
			return pkgerrors.Conflict("worker_shift_comment", plan.Comments, n)
		}

		n, err = tx.Shift.DeleteBefore(ctx, plan.WorkplaceID, plan.Before)
		if err != nil {
			return err
		}
		if n != plan.Shifts {
			return pkgerrors.Conflict("shift", plan.Shifts, n)
		}

		return tx.Workplace.SetPrunedBefore(ctx, plan.WorkplaceID, plan.Before)
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("清理排班数据失败", zap.Int64("workplace_id", plan.WorkplaceID), zap.Error(err))
		}
		return err
	}

	s.metrics.Pruned("worker_shifts", plan.WorkerShifts)
	s.metrics.Pruned("worker_shift_comments", plan.Comments)
	s.metrics.Pruned("shifts", plan.Shifts)
	invalidateStats(ctx, s.cache, s.logger, plan.WorkplaceID)

	s.logger.Info("清理排班数据完成",
		zap.Int64("workplace_id", plan.WorkplaceID),
		zap.String("before", plan.Before.String()),
		zap.Int64("shifts", plan.Shifts),
		zap.Int64("worker_shifts", plan.WorkerShifts),
	)
	s.recorder.Record(ctx, changelog.Entry{
		WorkplaceID: plan.WorkplaceID,
		Kind:        model.ChangelogPrune,
		Data: map[string]interface{}{
			"before":        plan.Before.String(),
			"shifts":        plan.Shifts,
			"worker_shifts": plan.WorkerShifts,
			"comments":      plan.Comments,
		},
		Actor: actor,
		Time:  s.clock.Now(),
	})
	return nil
}
