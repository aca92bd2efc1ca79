package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Mortal/shiftplanner/internal/changelog"
	"github.com/Mortal/shiftplanner/internal/dto"
	"github.com/Mortal/shiftplanner/internal/materialize"
	"github.com/Mortal/shiftplanner/internal/metrics"
	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/internal/reconcile"
	"github.com/Mortal/shiftplanner/internal/repository"
	"github.com/Mortal/shiftplanner/pkg/clock"
	"github.com/Mortal/shiftplanner/pkg/dateutil"
	pkgerrors "github.com/Mortal/shiftplanner/pkg/errors"
)

// ── 班次模块业务错误 ──

var (
	ErrRegistrationClosed = &pkgerrors.ValidationError{Field: "registration", Reason: "不在报名时间内"}
	ErrAlreadyRegistered  = &pkgerrors.ValidationError{Field: "worker_id", Reason: "已在该班次中"}
	ErrNotRegistered      = &pkgerrors.ValidationError{Field: "worker_id", Reason: "不在该班次中"}
)

// maxMaterializeDays 单次批量生成的最大天数
const maxMaterializeDays = 366

// ShiftService 班次与排班业务接口
type ShiftService interface {
	// Materialize 按模板生成某天的班次；当天已有任意班次时视为已生成，原样返回
	Materialize(ctx context.Context, workplaceID int64, date dateutil.Date) ([]model.Shift, int, error)
	// MaterializeRange 生成 [from, to] 闭区间内每天的班次，返回新建数量
	MaterializeRange(ctx context.Context, workplaceID int64, from, to dateutil.Date) (int, error)
	// ListWeek 返回 ISO 周（如 "2024w10"）的班次视图，缺失的日期先按模板生成
	ListWeek(ctx context.Context, workplaceID int64, week string) (*dto.WeekResponse, error)

	// SetWorkers 管理员直接设置班次人员列表（不受报名窗口限制）
	SetWorkers(ctx context.Context, workplaceID, shiftID int64, workers []int64, actor changelog.Actor) (*dto.SetWorkersResponse, error)
	// Register 值班人员报名，追加到列表末尾
	Register(ctx context.Context, workplaceID, shiftID, workerID int64) (*dto.SetWorkersResponse, error)
	// Unregister 值班人员取消报名
	Unregister(ctx context.Context, workplaceID, shiftID, workerID int64) (*dto.SetWorkersResponse, error)
	// SetComment 设置值班人员对班次的备注，空字符串表示删除
	SetComment(ctx context.Context, workplaceID, shiftID, workerID int64, comment string) error
}

type shiftService struct {
	repo     *repository.Repository
	recorder changelog.Recorder
	cache    StatsCache
	metrics  *metrics.Metrics
	clock    clock.Clock
	logger   *zap.Logger
}

// NewShiftService 创建 ShiftService 实例
func NewShiftService(d Deps) ShiftService {
	d.fill()
	return &shiftService{
		repo:     d.Repo,
		recorder: d.Recorder,
		cache:    d.Cache,
		metrics:  d.Metrics,
		clock:    d.Clock,
		logger:   d.Logger,
	}
}

// ════════════════════════════════════════════════════════════
// 班次生成
// ════════════════════════════════════════════════════════════

func (s *shiftService) Materialize(ctx context.Context, workplaceID int64, date dateutil.Date) ([]model.Shift, int, error) {
	wp, loc, err := loadWorkplace(ctx, s.repo, workplaceID)
	if err != nil {
		return nil, 0, err
	}
	shifts, created, err := s.materializeDay(ctx, s.repo, wp, loc, date)
	if err != nil {
		return nil, 0, err
	}
	s.metrics.ShiftsMaterialized(created)
	return shifts, created, nil
}

func (s *shiftService) MaterializeRange(ctx context.Context, workplaceID int64, from, to dateutil.Date) (int, error) {
	if to.Before(from) {
		return 0, pkgerrors.Validation("to", "结束日期 %s 早于开始日期 %s", to, from)
	}
	if to.DaysSince(from) >= maxMaterializeDays {
		return 0, pkgerrors.Validation("to", "单次最多生成 %d 天", maxMaterializeDays)
	}
	wp, loc, err := loadWorkplace(ctx, s.repo, workplaceID)
	if err != nil {
		return 0, err
	}

	total := 0
	for d := from; !d.After(to); d = d.AddDays(1) {
		_, created, err := s.materializeDay(ctx, s.repo, wp, loc, d)
		if err != nil {
			return total, err
		}
		total += created
	}
	s.metrics.ShiftsMaterialized(total)
	if total == 0 {
		return 0, nil
	}
	s.logger.Info("批量生成班次完成",
		zap.Int64("workplace_id", workplaceID),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int("created", total),
	)
	return total, nil
}

// materializeDay 单日生成；清理水位之前的日期不再生成
func (s *shiftService) materializeDay(ctx context.Context, repo *repository.Repository, wp *model.Workplace, loc *time.Location, date dateutil.Date) ([]model.Shift, int, error) {
	if wp.PrunedBefore != nil && date.Before(*wp.PrunedBefore) {
		shifts, err := repo.Shift.ListByDate(ctx, wp.ID, date)
		return shifts, 0, err
	}

	n, err := repo.Shift.CountByDate(ctx, wp.ID, date)
	if err != nil {
		s.logger.Error("查询班次数量失败", zap.String("date", date.String()), zap.Error(err))
		return nil, 0, err
	}
	if n > 0 {
		shifts, err := repo.Shift.ListByDate(ctx, wp.ID, date)
		return shifts, 0, err
	}

	shifts, err := materialize.DayShifts(wp.ID, date, wp.Settings, loc)
	if err != nil {
		return nil, 0, err
	}
	if len(shifts) == 0 {
		return nil, 0, nil
	}

	if err := repo.Shift.BatchCreate(ctx, shifts); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发请求已生成同一天
			existing, err := repo.Shift.ListByDate(ctx, wp.ID, date)
			return existing, 0, err
		}
		s.logger.Error("生成班次失败", zap.String("date", date.String()), zap.Error(err))
		return nil, 0, err
	}
	return shifts, len(shifts), nil
}

// ────────────────────── ListWeek ──────────────────────

func (s *shiftService) ListWeek(ctx context.Context, workplaceID int64, week string) (*dto.WeekResponse, error) {
	monday, err := dateutil.ParseWeek(week)
	if err != nil {
		return nil, pkgerrors.Validation("week", "%v", err)
	}
	sunday := monday.AddDays(6)

	if _, err := s.MaterializeRange(ctx, workplaceID, monday, sunday); err != nil {
		return nil, err
	}

	shifts, err := s.repo.Shift.ListRange(ctx, workplaceID, monday, sunday)
	if err != nil {
		s.logger.Error("查询周班次失败", zap.String("week", week), zap.Error(err))
		return nil, err
	}

	ids := make([]int64, 0, len(shifts))
	for _, sh := range shifts {
		ids = append(ids, sh.ID)
	}
	comments, err := s.repo.Comment.ListByShifts(ctx, ids)
	if err != nil {
		s.logger.Error("查询班次备注失败", zap.String("week", week), zap.Error(err))
		return nil, err
	}
	byShift := make(map[int64][]dto.CommentRef)
	for _, c := range comments {
		byShift[c.ShiftID] = append(byShift[c.ShiftID], dto.CommentRef{WorkerID: c.WorkerID, Comment: c.Comment})
	}

	now := s.clock.Now()
	year, wk := monday.ISOWeek()
	resp := &dto.WeekResponse{Week: dateutil.FormatWeek(year, wk), Days: make([]dto.DayResponse, 7)}
	for i := range resp.Days {
		d := monday.AddDays(i)
		resp.Days[i] = dto.DayResponse{Date: d.String(), Weekday: model.Weekdays[i], Shifts: []dto.ShiftResponse{}}
	}
	for i := range shifts {
		idx := shifts[i].Date.DaysSince(monday)
		if idx < 0 || idx > 6 {
			continue
		}
		sr := toShiftResponse(&shifts[i], shifts[i].Workers, now)
		sr.Comments = byShift[shifts[i].ID]
		resp.Days[idx].Shifts = append(resp.Days[idx].Shifts, sr)
	}
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// 排班调整
// ════════════════════════════════════════════════════════════

func (s *shiftService) SetWorkers(ctx context.Context, workplaceID, shiftID int64, workers []int64, actor changelog.Actor) (*dto.SetWorkersResponse, error) {
	if dup, ok := reconcile.FirstDuplicate(workers); ok {
		return nil, pkgerrors.Validation("workers", "值班人员 %d 重复", dup)
	}
	return s.reconcileShift(ctx, workplaceID, shiftID, reconcileOptions{
		kind:  model.ChangelogEdit,
		actor: actor,
		desired: func([]int64) ([]int64, error) {
			return workers, nil
		},
	})
}

func (s *shiftService) Register(ctx context.Context, workplaceID, shiftID, workerID int64) (*dto.SetWorkersResponse, error) {
	return s.reconcileShift(ctx, workplaceID, shiftID, reconcileOptions{
		kind:        model.ChangelogRegister,
		actor:       changelog.WorkerActor(workerID),
		checkWindow: true,
		desired: func(current []int64) ([]int64, error) {
			for _, id := range current {
				if id == workerID {
					return nil, ErrAlreadyRegistered
				}
			}
			return append(append([]int64{}, current...), workerID), nil
		},
	})
}

func (s *shiftService) Unregister(ctx context.Context, workplaceID, shiftID, workerID int64) (*dto.SetWorkersResponse, error) {
	return s.reconcileShift(ctx, workplaceID, shiftID, reconcileOptions{
		kind:        model.ChangelogUnregister,
		actor:       changelog.WorkerActor(workerID),
		checkWindow: true,
		desired: func(current []int64) ([]int64, error) {
			out := make([]int64, 0, len(current))
			found := false
			for _, id := range current {
				if id == workerID {
					found = true
					continue
				}
				out = append(out, id)
			}
			if !found {
				return nil, ErrNotRegistered
			}
			return out, nil
		},
	})
}

type reconcileOptions struct {
	kind        string
	actor       changelog.Actor
	checkWindow bool
	// desired 由当前人员列表得出目标列表
	desired func(current []int64) ([]int64, error)
}

// reconcileShift 在单个事务内把班次人员调整为目标列表：
// 保留最长公共前缀，删除其后的旧行，按递增顺序插入新行。
// 删除行数与预期不符时整体回滚并返回 ConflictError。
func (s *shiftService) reconcileShift(ctx context.Context, workplaceID, shiftID int64, opts reconcileOptions) (*dto.SetWorkersResponse, error) {
	wp, _, err := loadWorkplace(ctx, s.repo, workplaceID)
	if err != nil {
		return nil, err
	}
	shift, err := s.loadShift(ctx, workplaceID, shiftID)
	if err != nil {
		return nil, err
	}
	if wp.PrunedBefore != nil && shift.Date.Before(*wp.PrunedBefore) {
		return nil, pkgerrors.Validation("shift", "班次 %s 早于已清理日期 %s", shift.Date, wp.PrunedBefore)
	}
	now := s.clock.Now()
	if opts.checkWindow && !shift.RegistrationOpen(now) {
		return nil, ErrRegistrationClosed
	}

	var (
		oldNames []string
		rows     []model.WorkerShift
		plan     reconcile.AssignmentPlan
	)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		old, err := tx.WorkerShift.ListByShift(ctx, shiftID)
		if err != nil {
			return err
		}
		current := make([]int64, len(old))
		assigned := make([]reconcile.Assigned, len(old))
		oldNames = make([]string, len(old))
		for i, ws := range old {
			current[i] = ws.WorkerID
			assigned[i] = reconcile.Assigned{RowID: ws.ID, WorkerID: ws.WorkerID, Order: ws.Order}
			oldNames[i] = workerName(ws)
		}

		desired, err := opts.desired(current)
		if err != nil {
			return err
		}
		plan, err = reconcile.Assignments(assigned, desired)
		if err != nil {
			return err
		}
		if plan.Empty() {
			rows = old
			return nil
		}

		if err := s.checkWorkersExist(ctx, tx, plan.Inserts); err != nil {
			return err
		}

		deleted, err := tx.WorkerShift.DeleteByIDs(ctx, plan.Deletes)
		if err != nil {
			return err
		}
		if deleted != int64(len(plan.Deletes)) {
			return pkgerrors.Conflict("worker_shift", int64(len(plan.Deletes)), deleted)
		}

		inserts := make([]model.WorkerShift, len(plan.Inserts))
		for i, ins := range plan.Inserts {
			inserts[i] = model.WorkerShift{ShiftID: shiftID, WorkerID: ins.WorkerID, Order: ins.Order}
		}
		if err := tx.WorkerShift.BatchCreate(ctx, inserts); err != nil {
			return translateDuplicate(err, "worker_shift", int64(len(inserts)))
		}

		rows, err = tx.WorkerShift.ListByShift(ctx, shiftID)
		return err
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("调整班次人员失败", zap.Int64("shift_id", shiftID), zap.Error(err))
		}
		return nil, err
	}

	resp := &dto.SetWorkersResponse{
		Shift:    toShiftResponse(shift, rows, now),
		Inserted: len(plan.Inserts),
		Deleted:  len(plan.Deletes),
	}
	if plan.Empty() {
		return resp, nil
	}

	s.metrics.Assignments(len(plan.Inserts), len(plan.Deletes))
	invalidateStats(ctx, s.cache, s.logger, workplaceID)

	newNames := make([]string, len(rows))
	for i, ws := range rows {
		newNames[i] = workerName(ws)
	}
	s.recorder.Record(ctx, changelog.Entry{
		WorkplaceID: workplaceID,
		Kind:        opts.kind,
		Data: map[string]interface{}{
			"shift": shift.ID,
			"date":  shift.Date.String(),
			"slug":  shift.Slug,
			"old":   oldNames,
			"new":   newNames,
		},
		Actor: opts.actor,
		Time:  now,
	})
	return resp, nil
}

func (s *shiftService) checkWorkersExist(ctx context.Context, repo *repository.Repository, inserts []reconcile.Insertion) error {
	if len(inserts) == 0 {
		return nil
	}
	ids := make([]int64, len(inserts))
	for i, ins := range inserts {
		ids[i] = ins.WorkerID
	}
	n, err := repo.Worker.CountByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return pkgerrors.NotFound("worker", ids)
	}
	return nil
}

// ────────────────────── SetComment ──────────────────────

func (s *shiftService) SetComment(ctx context.Context, workplaceID, shiftID, workerID int64, comment string) error {
	wp, _, err := loadWorkplace(ctx, s.repo, workplaceID)
	if err != nil {
		return err
	}
	shift, err := s.loadShift(ctx, workplaceID, shiftID)
	if err != nil {
		return err
	}
	if wp.PrunedBefore != nil && shift.Date.Before(*wp.PrunedBefore) {
		return pkgerrors.Validation("shift", "班次 %s 早于已清理日期 %s", shift.Date, wp.PrunedBefore)
	}
	if _, err := s.repo.Worker.GetByID(ctx, workerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.NotFound("worker", workerID)
		}
		return err
	}

	if comment == "" {
		if _, err := s.repo.Comment.Delete(ctx, shiftID, workerID); err != nil {
			s.logger.Error("删除班次备注失败", zap.Int64("shift_id", shiftID), zap.Error(err))
			return err
		}
	} else {
		c := &model.WorkerShiftComment{ShiftID: shiftID, WorkerID: workerID, Comment: comment}
		if err := s.repo.Comment.Upsert(ctx, c); err != nil {
			s.logger.Error("保存班次备注失败", zap.Int64("shift_id", shiftID), zap.Error(err))
			return err
		}
	}

	s.recorder.Record(ctx, changelog.Entry{
		WorkplaceID: workplaceID,
		Kind:        model.ChangelogComment,
		Data: map[string]interface{}{
			"shift":   shift.ID,
			"date":    shift.Date.String(),
			"slug":    shift.Slug,
			"comment": comment,
		},
		Actor: changelog.WorkerActor(workerID),
		Time:  s.clock.Now(),
	})
	return nil
}

// ── 辅助函数 ──

func (s *shiftService) loadShift(ctx context.Context, workplaceID, shiftID int64) (*model.Shift, error) {
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("shift", shiftID)
		}
		s.logger.Error("查询班次失败", zap.Int64("shift_id", shiftID), zap.Error(err))
		return nil, err
	}
	if shift.WorkplaceID != workplaceID {
		return nil, pkgerrors.NotFound("shift", shiftID)
	}
	return shift, nil
}

func workerName(ws model.WorkerShift) string {
	if ws.Worker != nil {
		return ws.Worker.Name
	}
	return ""
}

func toShiftResponse(shift *model.Shift, rows []model.WorkerShift, now time.Time) dto.ShiftResponse {
	workers := make([]dto.WorkerRef, 0, len(rows))
	for _, ws := range rows {
		workers = append(workers, dto.WorkerRef{ID: ws.WorkerID, Name: workerName(ws), Order: ws.Order})
	}
	return dto.ShiftResponse{
		ID:                   shift.ID,
		Date:                 shift.Date.String(),
		Order:                shift.Order,
		Slug:                 shift.Slug,
		Name:                 shift.Name,
		RegistrationStarts:   shift.RegistrationStarts,
		RegistrationDeadline: shift.RegistrationDeadline,
		RegistrationOpen:     shift.RegistrationOpen(now),
		Workers:              workers,
	}
}

// isDomainError 业务分类错误由调用方处理，不记错误日志
func isDomainError(err error) bool {
	return errors.Is(err, pkgerrors.ErrValidation) ||
		errors.Is(err, pkgerrors.ErrConflict) ||
		errors.Is(err, pkgerrors.ErrConfiguration) ||
		errors.Is(err, pkgerrors.ErrNotFound)
}
