package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Mortal/shiftplanner/internal/changelog"
	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/internal/repository"
	"github.com/Mortal/shiftplanner/pkg/database"
	"github.com/Mortal/shiftplanner/pkg/dateutil"
)

// ── 测试辅助 ──

// testClock 可调整的时钟
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// memCache 内存版统计缓存
type memCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	invalidated int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) key(workplaceID int64, view string) string {
	return fmt.Sprintf("%d:%s", workplaceID, view)
}

func (c *memCache) GetStats(_ context.Context, workplaceID int64, view string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[c.key(workplaceID, view)]
	return b, ok, nil
}

func (c *memCache) SetStats(_ context.Context, workplaceID int64, view string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[c.key(workplaceID, view)] = payload
	return nil
}

func (c *memCache) InvalidateStats(_ context.Context, workplaceID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, view := range []string{StatsViewLive, StatsViewCached} {
		delete(c.data, c.key(workplaceID, view))
	}
	c.invalidated++
	return nil
}

type env struct {
	db      *gorm.DB
	svc     *Service
	repo    *repository.Repository
	clock   *testClock
	cache   *memCache
	wp      *model.Workplace
	workers []model.Worker
}

var admin = changelog.UserActor(1)

func day(y int, m time.Month, d int) dateutil.Date { return dateutil.NewDate(y, m, d) }

func at(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

// mondayTemplate 周一三个班次，报名从 59 天前 18:00 开始，3 天前 18:00 截止
func mondayTemplate() model.WorkplaceSettings {
	return model.WorkplaceSettings{
		WeekdayDefaults: map[string]model.DaySettings{
			"monday": {
				RegistrationStarts:   "-59dT18:00",
				RegistrationDeadline: "-3dT18:00",
				Shifts:               []string{"DV", "AV", "NV"},
			},
		},
		Extra: map[string]json.RawMessage{"theme": json.RawMessage(`"dark"`)},
	}
}

// newEnv 内存 SQLite 上的完整服务；值班人员 Anna、Bo、Carl、Dina
func newEnv(t *testing.T, now time.Time) *env {
	t.Helper()
	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	repo := repository.NewRepository(db)
	ctx := context.Background()
	wp := &model.Workplace{Slug: "bar", Name: "Bar", Timezone: "UTC", Settings: mondayTemplate()}
	require.NoError(t, repo.Workplace.Create(ctx, wp))

	var workers []model.Worker
	for _, name := range []string{"Anna", "Bo", "Carl", "Dina"} {
		w := model.Worker{Name: name, Active: true}
		require.NoError(t, repo.Worker.Create(ctx, &w))
		workers = append(workers, w)
	}

	clk := &testClock{now: now}
	cache := newMemCache()
	svc := NewServiceWithDeps(Deps{
		Repo:     repo,
		Recorder: changelog.NewRecorder(repo.Changelog, nil, zap.NewNop()),
		Cache:    cache,
		Clock:    clk,
		Logger:   zap.NewNop(),
	})
	return &env{db: db, svc: svc, repo: repo, clock: clk, cache: cache, wp: wp, workers: workers}
}

func (e *env) id(i int) int64 { return e.workers[i].ID }

// shift 生成 date 当天的班次并返回 slug 对应的一个
func (e *env) shift(t *testing.T, date dateutil.Date, slug string) model.Shift {
	t.Helper()
	shifts, _, err := e.svc.Shift.Materialize(context.Background(), e.wp.ID, date)
	require.NoError(t, err)
	for _, s := range shifts {
		if s.Slug == slug {
			return s
		}
	}
	t.Fatalf("%s 没有班次 %s", date, slug)
	return model.Shift{}
}

func (e *env) assign(t *testing.T, shiftID int64, workers ...int64) {
	t.Helper()
	_, err := e.svc.Shift.SetWorkers(context.Background(), e.wp.ID, shiftID, workers, admin)
	require.NoError(t, err)
}

func (e *env) assigned(t *testing.T, shiftID int64) []int64 {
	t.Helper()
	rows, err := e.repo.WorkerShift.ListByShift(context.Background(), shiftID)
	require.NoError(t, err)
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.WorkerID)
	}
	return out
}
