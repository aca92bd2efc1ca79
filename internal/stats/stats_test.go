package stats

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/pkg/dateutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func d(y, m, day int) dateutil.Date {
	return dateutil.NewDate(y, time.Month(m), day)
}

func TestBucketOf_SplitsWeekAcrossMonths(t *testing.T) {
	// 2024-01-31 周三与 2024-02-01 周四同属 ISO 第 5 周
	a := BucketOf(1, d(2024, 1, 31))
	b := BucketOf(1, d(2024, 2, 1))
	if a.ISOYearWeek != 202405 || b.ISOYearWeek != 202405 {
		t.Fatalf("期望同一 ISO 周 202405，实际 %d / %d", a.ISOYearWeek, b.ISOYearWeek)
	}
	if a == b {
		t.Error("跨月的同一周应落在不同桶")
	}
}

func TestBucketOf_ISOYearDiffersFromCalendarYear(t *testing.T) {
	// 2024-12-30 属于 2025 年 ISO 第 1 周
	b := BucketOf(7, d(2024, 12, 30))
	if b.ISOYear() != 2025 || b.ISOWeek() != 1 {
		t.Errorf("期望 2025w01，实际 %dw%02d", b.ISOYear(), b.ISOWeek())
	}
	if b.Year() != 2024 || b.Month() != 12 {
		t.Errorf("期望 2024-12，实际 %d-%d", b.Year(), b.Month())
	}
	// 2021-01-03 属于 2020 年第 53 周
	b = BucketOf(7, d(2021, 1, 3))
	if b.ISOYearWeek != 202053 {
		t.Errorf("期望 202053，实际 %d", b.ISOYearWeek)
	}
}

func TestLive_SumsPerBucket(t *testing.T) {
	live := Live([]DayCount{
		{WorkerID: 1, Date: d(2024, 3, 4), Count: 1},
		{WorkerID: 1, Date: d(2024, 3, 5), Count: 2},
		{WorkerID: 2, Date: d(2024, 3, 4), Count: 1},
	})
	want := map[Bucket]int64{
		{WorkerID: 1, ISOYearWeek: 202410, YearMonth: 202403}: 3,
		{WorkerID: 2, ISOYearWeek: 202410, YearMonth: 202403}: 1,
	}
	if diff := cmp.Diff(want, live); diff != "" {
		t.Errorf("Live 结果不符 (-want +got):\n%s", diff)
	}
}

func TestPrepare_CountsAndDeltas(t *testing.T) {
	bA := Bucket{WorkerID: 1, ISOYearWeek: 202410, YearMonth: 202403}
	bC := Bucket{WorkerID: 3, ISOYearWeek: 202410, YearMonth: 202403}

	live := map[Bucket]int64{bA: 3, {WorkerID: 2, ISOYearWeek: 202410, YearMonth: 202403}: 1}
	existing := []model.WorkerShiftAggregateCount{
		{ID: 10, WorkerID: 2, ISOYearWeek: 202410, YearMonth: 202403, Count: 1},
		{ID: 11, WorkerID: 3, ISOYearWeek: 202410, YearMonth: 202403, Count: 2},
	}
	plan := Prepare(live, existing, nil)

	if plan.Increased != 1 || plan.Unchanged != 1 || plan.Decreased != 1 {
		t.Fatalf("期望 1/1/1，实际 %d/%d/%d", plan.Increased, plan.Unchanged, plan.Decreased)
	}
	id11 := int64(11)
	want := []BucketDelta{
		{Bucket: bA, Delta: 3},
		{Bucket: bC, RowID: &id11, Delta: -2},
	}
	if diff := cmp.Diff(want, plan.Deltas); diff != "" {
		t.Errorf("增量不符 (-want +got):\n%s", diff)
	}
}

func TestPrepare_RespectsPruneWatermark(t *testing.T) {
	existing := []model.WorkerShiftAggregateCount{
		{ID: 1, WorkerID: 1, ISOYearWeek: 202410, YearMonth: 202403, Count: 4},
		{ID: 2, WorkerID: 1, ISOYearWeek: 202412, YearMonth: 202403, Count: 1},
	}
	cutoff := d(2024, 3, 18) // 2024w12 周一
	plan := Prepare(map[Bucket]int64{}, existing, &cutoff)

	// 第 10 周早于水位，属于历史；第 12 周的原始行已不存在，应回落
	if plan.Unchanged != 0 || plan.Decreased != 1 || len(plan.Deltas) != 1 {
		t.Fatalf("期望只有 1 个减少桶，实际 %+v", plan)
	}
	if plan.Deltas[0].Bucket.ISOYearWeek != 202412 || plan.Deltas[0].Delta != -1 {
		t.Errorf("增量不符: %+v", plan.Deltas[0])
	}
}

func TestPrepare_ConvergesAfterApply(t *testing.T) {
	live := Live([]DayCount{
		{WorkerID: 1, Date: d(2024, 3, 4), Count: 1},
		{WorkerID: 2, Date: d(2024, 3, 31), Count: 1},
		{WorkerID: 2, Date: d(2024, 4, 1), Count: 1},
	})
	var existing []model.WorkerShiftAggregateCount
	next := int64(1)
	plan := Prepare(live, existing, nil)
	for _, delta := range plan.Deltas {
		existing = append(existing, model.WorkerShiftAggregateCount{
			ID: next, WorkerID: delta.Bucket.WorkerID,
			ISOYearWeek: delta.Bucket.ISOYearWeek, YearMonth: delta.Bucket.YearMonth, Count: delta.Delta,
		})
		next++
	}
	again := Prepare(live, existing, nil)
	if again.Increased != 0 || again.Decreased != 0 || len(again.Deltas) != 0 {
		t.Errorf("应用增量后应收敛，实际 %+v", again)
	}
	if again.Unchanged != 3 {
		t.Errorf("期望 3 个未变桶，实际 %d", again.Unchanged)
	}
}

func TestCached_FoldsPendingDeltas(t *testing.T) {
	live := map[Bucket]int64{{WorkerID: 1, ISOYearWeek: 202412, YearMonth: 202403}: 2}
	existing := []model.WorkerShiftAggregateCount{
		{ID: 1, WorkerID: 1, ISOYearWeek: 202410, YearMonth: 202403, Count: 4},
	}
	cutoff := d(2024, 3, 11)
	got := Cached(live, existing, &cutoff)
	want := map[Bucket]int64{
		{WorkerID: 1, ISOYearWeek: 202410, YearMonth: 202403}: 4,
		{WorkerID: 1, ISOYearWeek: 202412, YearMonth: 202403}: 2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Cached 不符 (-want +got):\n%s", diff)
	}
}

func TestBuild_IncludesIdleWorkersAndSkipsZero(t *testing.T) {
	workers := []model.Worker{{ID: 2, Name: "B", Active: true}, {ID: 1, Name: "A"}}
	counts := map[Bucket]int64{
		{WorkerID: 1, ISOYearWeek: 202410, YearMonth: 202403}: 2,
		{WorkerID: 1, ISOYearWeek: 202409, YearMonth: 202402}: 0,
	}
	got := Build(workers, counts)
	want := []WorkerStats{
		{ID: 1, Name: "A", Stats: []Entry{{ISOYear: 2024, ISOWeek: 10, Year: 2024, Month: 3, Count: 2}}},
		{ID: 2, Name: "B", Active: true, Stats: []Entry{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build 不符 (-want +got):\n%s", diff)
	}
}
