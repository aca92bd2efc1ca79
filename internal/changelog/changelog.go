// Package changelog 记录只追加的审计日志。
//
// 记录失败只写日志，不影响触发它的业务操作。
package changelog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Mortal/shiftplanner/internal/metrics"
	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/internal/repository"
)

// Actor 操作者；两者都为空表示系统操作
type Actor struct {
	WorkerID *int64
	UserID   *int64
}

// WorkerActor 以值班人员身份操作
func WorkerActor(id int64) Actor { return Actor{WorkerID: &id} }

// UserActor 以管理员身份操作
func UserActor(id int64) Actor { return Actor{UserID: &id} }

// Entry 一条待记录的日志
type Entry struct {
	WorkplaceID int64
	Kind        string
	Data        map[string]interface{}
	Actor       Actor
	Time        time.Time
}

// Recorder 变更日志记录器
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

type gormRecorder struct {
	repo    repository.ChangelogRepository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRecorder 基于存储层的记录器
func NewRecorder(repo repository.ChangelogRepository, m *metrics.Metrics, logger *zap.Logger) Recorder {
	return &gormRecorder{repo: repo, metrics: m, logger: logger}
}

func (r *gormRecorder) Record(ctx context.Context, e Entry) {
	row := &model.Changelog{
		Time:     e.Time,
		WorkerID: e.Actor.WorkerID,
		UserID:   e.Actor.UserID,
		Kind:     e.Kind,
		Data:     model.JSONMap(e.Data),
	}
	if row.Time.IsZero() {
		row.Time = time.Now()
	}
	if e.WorkplaceID != 0 {
		wp := e.WorkplaceID
		row.WorkplaceID = &wp
	}
	if err := r.repo.Create(ctx, row); err != nil {
		r.metrics.ChangelogFailed()
		r.logger.Error("写入变更日志失败",
			zap.String("kind", e.Kind),
			zap.Int64("workplace_id", e.WorkplaceID),
			zap.Error(err),
		)
	}
}

// Nop 丢弃全部日志
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}
