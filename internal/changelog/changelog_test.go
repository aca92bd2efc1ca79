package changelog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Mortal/shiftplanner/internal/metrics"
	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/internal/repository"
)

type mockChangelogRepo struct {
	created []*model.Changelog
	err     error
}

func (m *mockChangelogRepo) Create(_ context.Context, entry *model.Changelog) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, entry)
	return nil
}

func (m *mockChangelogRepo) List(context.Context, repository.ChangelogFilter, int, int) ([]model.Changelog, int64, error) {
	return nil, 0, nil
}

func TestRecord_WritesRow(t *testing.T) {
	repo := &mockChangelogRepo{}
	rec := NewRecorder(repo, nil, zap.NewNop())
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	rec.Record(context.Background(), Entry{
		WorkplaceID: 3,
		Kind:        model.ChangelogRegister,
		Data:        map[string]interface{}{"shift": 7},
		Actor:       WorkerActor(11),
		Time:        at,
	})

	if len(repo.created) != 1 {
		t.Fatalf("期望写入 1 条，实际 %d", len(repo.created))
	}
	row := repo.created[0]
	if row.WorkplaceID == nil || *row.WorkplaceID != 3 {
		t.Errorf("workplace_id 不符: %v", row.WorkplaceID)
	}
	if row.WorkerID == nil || *row.WorkerID != 11 || row.UserID != nil {
		t.Errorf("操作者不符: worker=%v user=%v", row.WorkerID, row.UserID)
	}
	if !row.Time.Equal(at) || row.Kind != "register" {
		t.Errorf("时间或类型不符: %v %s", row.Time, row.Kind)
	}
}

func TestRecord_FailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	m := metrics.New(prometheus.NewRegistry())
	rec := NewRecorder(&mockChangelogRepo{err: errors.New("disk full")}, m, zap.New(core))

	rec.Record(context.Background(), Entry{Kind: model.ChangelogPrune, Actor: UserActor(1)})

	if logs.Len() != 1 {
		t.Fatalf("期望 1 条错误日志，实际 %d", logs.Len())
	}
	if logs.All()[0].ContextMap()["kind"] != "prune" {
		t.Errorf("日志应包含 kind 字段: %v", logs.All()[0].ContextMap())
	}
}
