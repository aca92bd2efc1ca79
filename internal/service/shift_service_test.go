package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Mortal/shiftplanner/internal/dto"
	pkgerrors "github.com/Mortal/shiftplanner/pkg/errors"
)

// ── 班次生成 ──

func TestShiftService_Materialize_MondayTemplate(t *testing.T) {
	e := newEnv(t, at(2024, time.March, 1, 12))
	ctx := context.Background()

	shifts, created, err := e.svc.Shift.Materialize(ctx, e.wp.ID, day(2024, time.March, 11))
	require.NoError(t, err)
	require.Equal(t, 3, created)
	require.Len(t, shifts, 3)

	wantDeadline := time.Date(2024, time.March, 8, 18, 0, 0, 0, time.UTC)
	wantStarts := time.Date(2024, time.January, 12, 18, 0, 0, 0, time.UTC)
	for i, slug := range []string{"DV", "AV", "NV"} {
		require.Equal(t, slug, shifts[i].Slug)
		require.Equal(t, i+1, shifts[i].Order)
		require.True(t, shifts[i].RegistrationDeadline.Equal(wantDeadline), "截止时间期望 %s，实际 %s", wantDeadline, shifts[i].RegistrationDeadline)
		require.True(t, shifts[i].RegistrationStarts.Equal(wantStarts), "开始时间期望 %s，实际 %s", wantStarts, shifts[i].RegistrationStarts)
	}

	// 周二没有模板
	shifts, created, err = e.svc.Shift.Materialize(ctx, e.wp.ID, day(2024, time.March, 12))
	require.NoError(t, err)
	require.Zero(t, created)
	require.Empty(t, shifts)
}

func TestShiftService_Materialize_Idempotent(t *testing.T) {
	e := newEnv(t, at(2024, time.March, 1, 12))
	ctx := context.Background()

	_, created, err := e.svc.Shift.Materialize(ctx, e.wp.ID, day(2024, time.March, 11))
	require.NoError(t, err)
	require.Equal(t, 3, created)

	shifts, created, err := e.svc.Shift.Materialize(ctx, e.wp.ID, day(2024, time.March, 11))
	require.NoError(t, err)
	require.Zero(t, created, "已生成的日期不应重复生成")
	require.Len(t, shifts, 3)

	n, err := e.svc.Shift.MaterializeRange(ctx, e.wp.ID, day(2024, time.March, 4), day(2024, time.March, 17))
	require.NoError(t, err)
	require.Equal(t, 3, n, "只有 3 月 4 日需要生成")
}

func TestShiftService_Materialize_TemplateChangeDoesNotTouchExisting(t *testing.T) {
	e := newEnv(t, at(2024, time.March, 1, 12))
	ctx := context.Background()
	e.shift(t, day(2024, time.March, 11), "DV")

	_, err := e.svc.Workplace.UpdateSettings(ctx, e.wp.ID,
		[]byte(`{"weekday_defaults":{"monday":{"registration_deadline":"-1dT12:00","shifts":["X"]}}}`), admin)
	require.NoError(t, err)

	shifts, created, err := e.svc.Shift.Materialize(ctx, e.wp.ID, day(2024, time.March, 11))
	require.NoError(t, err)
	require.Zero(t, created)
	require.Len(t, shifts, 3)

	shifts, created, err = e.svc.Shift.Materialize(ctx, e.wp.ID, day(2024, time.March, 18))
	require.NoError(t, err)
	require.Equal(t, 1, created)
	require.Equal(t, "X", shifts[0].Slug)
	require.Nil(t, shifts[0].RegistrationStarts)
}

func TestShiftService_MaterializeRange_Invalid(t *testing.T) {
	e := newEnv(t, at(2024, time.March, 1, 12))
	ctx := context.Background()

	_, err := e.svc.Shift.MaterializeRange(ctx, e.wp.ID, day(2024, time.March, 11), day(2024, time.March, 10))
	require.ErrorIs(t, err, pkgerrors.ErrValidation)

	_, err = e.svc.Shift.MaterializeRange(ctx, e.wp.ID, day(2024, time.January, 1), day(2025, time.January, 1))
	require.ErrorIs(t, err, pkgerrors.ErrValidation)

	_, err = e.svc.Shift.MaterializeRange(ctx, 999, day(2024, time.March, 11), day(2024, time.March, 11))
	require.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

// ── 周视图 ──

func TestShiftService_ListWeek(t *testing.T) {
	e := newEnv(t, at(2024, time.March, 1, 12))
	ctx := context.Background()

	week, err := e.svc.Shift.ListWeek(ctx, e.wp.ID, "2024w11")
	require.NoError(t, err)
	require.Equal(t, "2024w11", week.Week)
	require.Len(t, week.Days, 7)
	require.Equal(t, "2024-03-11", week.Days[0].Date)
	require.Equal(t, "monday", week.Days[0].Weekday)
	require.Len(t, week.Days[0].Shifts, 3)
	for i := 1; i < 7; i++ {
		require.Empty(t, week.Days[i].Shifts, "%s 不应有班次", week.Days[i].Date)
	}
	require.True(t, week.Days[0].Shifts[0].RegistrationOpen)

	dv := week.Days[0].Shifts[0]
	e.assign(t, dv.ID, e.id(1), e.id(0))
	require.NoError(t, e.svc.Shift.SetComment(ctx, e.wp.ID, dv.ID, e.id(0), "晚到半小时"))

	week, err = e.svc.Shift.ListWeek(ctx, e.wp.ID, "2024W11")
	require.NoError(t, err)
	got := week.Days[0].Shifts[0]
	require.Equal(t, []dto.WorkerRef{
		{ID: e.id(1), Name: "Bo", Order: 1},
		{ID: e.id(0), Name: "Anna", Order: 2},
	}, got.Workers)
	require.Equal(t, []dto.CommentRef{{WorkerID: e.id(0), Comment: "晚到半小时"}}, got.Comments)

	_, err = e.svc.Shift.ListWeek(ctx, e.wp.ID, "2024-11")
	require.ErrorIs(t, err, pkgerrors.ErrValidation)
}

func TestShiftService_SetComment_EmptyDeletes(t *testing.T) {
	e := newEnv(t, at(2024, time.March, 1, 12))
	ctx := context.Background()
	dv := e.shift(t, day(2024, time.March, 11), "DV")

	require.NoError(t, e.svc.Shift.SetComment(ctx, e.wp.ID, dv.ID, e.id(0), "a"))
	require.NoError(t, e.svc.Shift.SetComment(ctx, e.wp.ID, dv.ID, e.id(0), "b"))
	c, err := e.repo.Comment.Get(ctx, dv.ID, e.id(0))
	require.NoError(t, err)
	require.Equal(t, "b", c.Comment)

	require.NoError(t, e.svc.Shift.SetComment(ctx, e.wp.ID, dv.ID, e.id(0), ""))
	comments, err := e.repo.Comment.ListByShifts(ctx, []int64{dv.ID})
	require.NoError(t, err)
	require.Empty(t, comments)

	err = e.svc.Shift.SetComment(ctx, e.wp.ID, dv.ID, 999, "x")
	require.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

// ── 排班调整 ──

func TestShiftService_SetWorkers_MinimalChange(t *testing.T) {
	e := newEnv(t, at(2024, time.March, 1, 12))
	ctx := context.Background()
	dv := e.shift(t, day(2024, time.March, 11), "DV")
	a, b, c, d := e.id(0), e.id(1), e.id(2), e.id(3)

	resp, err := e.svc.Shift.SetWorkers(ctx, e.wp.ID, dv.ID, []int64{a, b, c}, admin)
	require.NoError(t, err)
	require.Equal(t, 3, resp.Inserted)
	require.Zero(t, resp.Deleted)

	before, err := e.repo.WorkerShift.ListByShift(ctx, dv.ID)
	require.NoError(t, err)

	resp, err = e.svc.Shift.SetWorkers(ctx, e.wp.ID, dv.ID, []int64{a, b, d}, admin)
	require.NoError(t, err)
	require.Equal(t, 1, resp.Inserted)
	require.Equal(t, 1, resp.Deleted)

	after, err := e.repo.WorkerShift.ListByShift(ctx, dv.ID)
	require.NoError(t, err)
	require.Len(t, after, 3)
	require.Equal(t, before[0].ID, after[0].ID, "公共前缀的行应保留")
	require.Equal(t, before[1].ID, after[1].ID, "公共前缀的行应保留")
	require.Equal(t, d, after[2].WorkerID)
	require.Equal(t, []int{1, 2, 4}, []int{after[0].Order, after[1].Order, after[2].Order}, "新行序号接在原最大序号 3 之后")

	// 相同列表不产生写操作
	resp, err = e.svc.Shift.SetWorkers(ctx, e.wp.ID, dv.ID, []int64{a, b, d}, admin)
	require.NoError(t, err)
	require.Zero(t, resp.Inserted)
	require.Zero(t, resp.Deleted)

	// 调换顺序
	_, err = e.svc.Shift.SetWorkers(ctx, e.wp.ID, dv.ID, []int64{a, d, b}, admin)
	require.NoError(t, err)
	require.Equal(t, []int64{a, d, b}, e.assigned(t, dv.ID))

	_, err = e.svc.Shift.SetWorkers(ctx, e.wp.ID, dv.ID, nil, admin)
	require.NoError(t, err)
	require.Empty(t, e.assigned(t, dv.ID))
}

func TestShiftService_SetWorkers_RejectedBeforeMutation(t *testing.T) {
	e := newEnv(t, at(2024, time.March, 1, 12))
	ctx := context.Background()
	dv := e.shift(t, day(2024, time.March, 11), "DV")
	a, b := e.id(0), e.id(1)
	e.assign(t, dv.ID, a, b)

	_, err := e.svc.Shift.SetWorkers(ctx, e.wp.ID, dv.ID, []int64{b, b}, admin)
	require.ErrorIs(t, err, pkgerrors.ErrValidation)
	require.Equal(t, []int64{a, b}, e.assigned(t, dv.ID))

	_, err = e.svc.Shift.SetWorkers(ctx, e.wp.ID, dv.ID, []int64{b, 999}, admin)
	require.ErrorIs(t, err, pkgerrors.ErrNotFound)
	require.Equal(t, []int64{a, b}, e.assigned(t, dv.ID), "失败的调整应整体回滚")

	_, err = e.svc.Shift.SetWorkers(ctx, e.wp.ID, 999, []int64{a}, admin)
	require.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestShiftService_SetWorkers_DeleteCountMismatch(t *testing.T) {
	e := newEnv(t, at(2024, time.March, 1, 12))
	ctx := context.Background()
	dv := e.shift(t, day(2024, time.March, 11), "DV")
	a, b, c, d := e.id(0), e.id(1), e.id(2), e.id(3)
	e.assign(t, dv.ID, a, b, c)
	invalidated := e.cache.invalidated

	rows, err := e.repo.WorkerShift.ListByShift(ctx, dv.ID)
	require.NoError(t, err)
	removed := rows[2].ID

	// 模拟并发写入：在同一事务中先删掉待删除的行，实际删除行数变为 0
	const name = "test:concurrent_delete"
	require.NoError(t, e.db.Callback().Delete().Before("gorm:delete").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table != "worker_shifts" {
			return
		}
		tx.Session(&gorm.Session{NewDB: true}).Exec("DELETE FROM worker_shifts WHERE id = ?", removed)
	}))
	_, err = e.svc.Shift.SetWorkers(ctx, e.wp.ID, dv.ID, []int64{a, b, d}, admin)
	require.NoError(t, e.db.Callback().Delete().Remove(name))

	require.ErrorIs(t, err, pkgerrors.ErrConflict)
	var conflict *pkgerrors.ConflictError
	require.True(t, errors.As(err, &conflict))
	require.EqualValues(t, 1, conflict.Expected)
	require.EqualValues(t, 0, conflict.Actual)

	require.Equal(t, []int64{a, b, c}, e.assigned(t, dv.ID), "删除行数不符时整个事务应回滚，新行不落库")
	require.Equal(t, invalidated, e.cache.invalidated, "失败的调整不应清除缓存")

	_, total, err := e.svc.Changelog.List(ctx, e.wp.ID, &dto.ChangelogListRequest{Kind: "edit"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total, "失败的调整不记录日志")
}

func TestShiftService_SetWorkers_RecordsChangelog(t *testing.T) {
	e := newEnv(t, at(2024, time.March, 1, 12))
	ctx := context.Background()
	dv := e.shift(t, day(2024, time.March, 11), "DV")
	e.assign(t, dv.ID, e.id(0))
	e.assign(t, dv.ID, e.id(0))

	logs, total, err := e.svc.Changelog.List(ctx, e.wp.ID, &dto.ChangelogListRequest{Kind: "edit"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total, "无变化的调整不记录日志")
	require.Equal(t, []interface{}{"Anna"}, logs[0].Data["new"])
	require.Equal(t, "2024-03-11", logs[0].Data["date"])
	require.NotNil(t, logs[0].UserID)
}

func TestShiftService_Register(t *testing.T) {
	e := newEnv(t, at(2024, time.March, 1, 12))
	ctx := context.Background()
	dv := e.shift(t, day(2024, time.March, 11), "DV")
	a, b := e.id(0), e.id(1)

	_, err := e.svc.Shift.Register(ctx, e.wp.ID, dv.ID, b)
	require.NoError(t, err)
	resp, err := e.svc.Shift.Register(ctx, e.wp.ID, dv.ID, a)
	require.NoError(t, err)
	require.Equal(t, 1, resp.Inserted)
	require.Equal(t, []int64{b, a}, e.assigned(t, dv.ID), "报名追加到末尾")

	_, err = e.svc.Shift.Register(ctx, e.wp.ID, dv.ID, a)
	require.True(t, errors.Is(err, ErrAlreadyRegistered), "期望 ErrAlreadyRegistered，实际 %v", err)

	_, err = e.svc.Shift.Unregister(ctx, e.wp.ID, dv.ID, b)
	require.NoError(t, err)
	require.Equal(t, []int64{a}, e.assigned(t, dv.ID))

	_, err = e.svc.Shift.Unregister(ctx, e.wp.ID, dv.ID, b)
	require.True(t, errors.Is(err, ErrNotRegistered), "期望 ErrNotRegistered，实际 %v", err)
}

func TestShiftService_Register_WindowFrozen(t *testing.T) {
	e := newEnv(t, at(2024, time.March, 1, 12))
	ctx := context.Background()
	dv := e.shift(t, day(2024, time.March, 11), "DV")
	a := e.id(0)

	// 截止时间 3 月 8 日 18:00（含）之后关闭
	e.clock.Set(at(2024, time.March, 8, 18))
	_, err := e.svc.Shift.Register(ctx, e.wp.ID, dv.ID, a)
	require.True(t, errors.Is(err, ErrRegistrationClosed), "期望 ErrRegistrationClosed，实际 %v", err)
	require.ErrorIs(t, err, pkgerrors.ErrValidation)

	// 开始时间 1 月 12 日 18:00 之前同样关闭
	e.clock.Set(at(2024, time.January, 12, 17))
	_, err = e.svc.Shift.Register(ctx, e.wp.ID, dv.ID, a)
	require.True(t, errors.Is(err, ErrRegistrationClosed))

	// 管理员不受窗口限制
	e.clock.Set(at(2024, time.March, 10, 12))
	e.assign(t, dv.ID, a)
	_, err = e.svc.Shift.Unregister(ctx, e.wp.ID, dv.ID, a)
	require.True(t, errors.Is(err, ErrRegistrationClosed))
	require.Equal(t, []int64{a}, e.assigned(t, dv.ID))
}
