package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/Mortal/shiftplanner/pkg/errors"
)

func TestPruneService_CutoffChecks(t *testing.T) {
	e := newEnv(t, at(2024, time.March, 20, 12))
	ctx := context.Background()

	_, err := e.svc.Prune.PreparePrune(ctx, e.wp.ID, day(2024, time.March, 19))
	require.ErrorIs(t, err, pkgerrors.ErrValidation, "截止日必须是周一")

	_, err = e.svc.Prune.PreparePrune(ctx, e.wp.ID, day(2024, time.March, 18))
	require.ErrorIs(t, err, pkgerrors.ErrValidation, "截止日距今不足 7 天")

	plan, err := e.svc.Prune.PreparePrune(ctx, e.wp.ID, day(2024, time.March, 11))
	require.NoError(t, err)
	require.Zero(t, plan.Shifts)
}

func TestPruneService_RequiresFlush(t *testing.T) {
	e := newEnv(t, at(2024, time.April, 1, 12))
	ctx := context.Background()
	dv := e.shift(t, day(2024, time.March, 4), "DV")
	av := e.shift(t, day(2024, time.March, 4), "AV")
	e.assign(t, dv.ID, e.id(0), e.id(1))
	e.assign(t, av.ID, e.id(0))
	require.NoError(t, e.svc.Shift.SetComment(ctx, e.wp.ID, dv.ID, e.id(0), "x"))

	_, err := e.svc.Prune.PreparePrune(ctx, e.wp.ID, day(2024, time.March, 18))
	var cfgErr *pkgerrors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "期望 ConfigurationError，实际 %v", err)
	require.NotEmpty(t, cfgErr.Bucket)

	_, err = e.svc.Stats.Flush(ctx, e.wp.ID, admin)
	require.NoError(t, err)

	plan, err := e.svc.Prune.PreparePrune(ctx, e.wp.ID, day(2024, time.March, 18))
	require.NoError(t, err)
	require.EqualValues(t, 3, plan.Shifts)
	require.EqualValues(t, 3, plan.WorkerShifts)
	require.EqualValues(t, 1, plan.Comments)

	require.NoError(t, e.svc.Prune.Prune(ctx, plan, admin))

	wp, err := e.svc.Workplace.Get(ctx, e.wp.ID)
	require.NoError(t, err)
	require.Equal(t, "2024-03-18", wp.PrunedBefore)

	n, err := e.repo.Shift.CountBefore(ctx, e.wp.ID, day(2024, time.March, 18))
	require.NoError(t, err)
	require.Zero(t, n)

	// 历史只保留在聚合表中
	cached, err := e.svc.Stats.CachedStats(ctx, e.wp.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, countOf(cached, e.id(0)))
	require.EqualValues(t, 1, countOf(cached, e.id(1)))

	live, err := e.svc.Stats.LiveStats(ctx, e.wp.ID)
	require.NoError(t, err)
	require.Zero(t, countOf(live, e.id(0)))

	next, err := e.svc.Stats.PrepareUpdate(ctx, e.wp.ID)
	require.NoError(t, err)
	require.Empty(t, next.Deltas, "清理后的历史桶不应回落为 0")
}

func TestPruneService_WatermarkGuards(t *testing.T) {
	e := newEnv(t, at(2024, time.April, 1, 12))
	ctx := context.Background()
	e.shift(t, day(2024, time.March, 4), "DV")
	later := e.shift(t, day(2024, time.March, 18), "DV")

	plan, err := e.svc.Prune.PreparePrune(ctx, e.wp.ID, day(2024, time.March, 18))
	require.NoError(t, err)
	require.NoError(t, e.svc.Prune.Prune(ctx, plan, admin))

	// 水位之前不再生成班次
	shifts, created, err := e.svc.Shift.Materialize(ctx, e.wp.ID, day(2024, time.March, 11))
	require.NoError(t, err)
	require.Zero(t, created)
	require.Empty(t, shifts)

	// 水位当天及之后不受影响
	e.assign(t, later.ID, e.id(0))

	// 水位不回退
	e.clock.Set(at(2024, time.May, 1, 12))
	plan, err = e.svc.Prune.PreparePrune(ctx, e.wp.ID, day(2024, time.March, 11))
	require.NoError(t, err)
	require.NoError(t, e.svc.Prune.Prune(ctx, plan, admin))
	wp, err := e.svc.Workplace.Get(ctx, e.wp.ID)
	require.NoError(t, err)
	require.Equal(t, "2024-03-18", wp.PrunedBefore)
}

func TestPruneService_ConcurrentWriteConflict(t *testing.T) {
	e := newEnv(t, at(2024, time.April, 1, 12))
	ctx := context.Background()
	dv := e.shift(t, day(2024, time.March, 4), "DV")
	av := e.shift(t, day(2024, time.March, 4), "AV")
	e.assign(t, dv.ID, e.id(0))
	_, err := e.svc.Stats.Flush(ctx, e.wp.ID, admin)
	require.NoError(t, err)

	plan, err := e.svc.Prune.PreparePrune(ctx, e.wp.ID, day(2024, time.March, 18))
	require.NoError(t, err)
	require.EqualValues(t, 1, plan.WorkerShifts)

	// 计划生成后又有排班写入并已刷新
	e.assign(t, av.ID, e.id(1))
	_, err = e.svc.Stats.Flush(ctx, e.wp.ID, admin)
	require.NoError(t, err)

	err = e.svc.Prune.Prune(ctx, plan, admin)
	require.ErrorIs(t, err, pkgerrors.ErrConflict)

	n, err := e.repo.WorkerShift.CountBefore(ctx, e.wp.ID, day(2024, time.March, 18))
	require.NoError(t, err)
	require.EqualValues(t, 2, n, "冲突时整体回滚")
	wp, err := e.svc.Workplace.Get(ctx, e.wp.ID)
	require.NoError(t, err)
	require.Empty(t, wp.PrunedBefore)
}

func TestPruneService_UnflushedWriteAfterPlan(t *testing.T) {
	e := newEnv(t, at(2024, time.April, 1, 12))
	ctx := context.Background()
	dv := e.shift(t, day(2024, time.March, 4), "DV")

	plan, err := e.svc.Prune.PreparePrune(ctx, e.wp.ID, day(2024, time.March, 18))
	require.NoError(t, err)

	e.assign(t, dv.ID, e.id(0))
	err = e.svc.Prune.Prune(ctx, plan, admin)
	require.ErrorIs(t, err, pkgerrors.ErrConfiguration)
}
