// Package stats 计算值班人员按 ISO 周 / 自然月分桶的排班次数，
// 并规划把实时统计折叠进聚合表所需的增量。
//
// 桶键是 (人员, isoyearweek, yearmonth) 的组合：同一 ISO 周跨月时会落到两个桶，
// 只有实际出现过的组合才会成为桶。
package stats

import (
	"fmt"
	"sort"

	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/internal/reconcile"
	"github.com/Mortal/shiftplanner/pkg/dateutil"
)

// Bucket 统计桶
type Bucket struct {
	WorkerID    int64
	ISOYearWeek int
	YearMonth   int
}

// BucketOf 由排班日期计算桶；ISO 年直接取自日期的 ISO 日历
func BucketOf(workerID int64, date dateutil.Date) Bucket {
	return Bucket{WorkerID: workerID, ISOYearWeek: date.ISOYearWeek(), YearMonth: date.YearMonth()}
}

func (b Bucket) ISOYear() int { return b.ISOYearWeek / 100 }
func (b Bucket) ISOWeek() int { return b.ISOYearWeek % 100 }
func (b Bucket) Year() int    { return b.YearMonth / 100 }
func (b Bucket) Month() int   { return b.YearMonth % 100 }

func (b Bucket) String() string {
	return fmt.Sprintf("worker=%d week=%s month=%d-%02d", b.WorkerID, dateutil.FormatWeek(b.ISOYear(), b.ISOWeek()), b.Year(), b.Month())
}

func (b Bucket) less(o Bucket) bool {
	if b.WorkerID != o.WorkerID {
		return b.WorkerID < o.WorkerID
	}
	if b.ISOYearWeek != o.ISOYearWeek {
		return b.ISOYearWeek < o.ISOYearWeek
	}
	return b.YearMonth < o.YearMonth
}

func sortBuckets(bs []Bucket) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].less(bs[j]) })
}

// DayCount 某人员某天的排班行数（由存储层按 worker_id, date 分组得到）
type DayCount struct {
	WorkerID int64
	Date     dateutil.Date
	Count    int64
}

// Live 将原始排班行数折叠成桶
func Live(rows []DayCount) map[Bucket]int64 {
	out := make(map[Bucket]int64)
	for _, r := range rows {
		out[BucketOf(r.WorkerID, r.Date)] += r.Count
	}
	return out
}

// BucketDelta 单个桶的待应用增量；RowID 为 nil 表示聚合表中尚无此桶
type BucketDelta struct {
	Bucket Bucket
	RowID  *int64
	Delta  int64
}

// UpdatePlan 聚合表刷新计划
type UpdatePlan struct {
	Increased int
	Unchanged int
	Decreased int
	Deltas    []BucketDelta
}

// Prepare 计算把实时统计折叠进聚合表所需的增量（纯计算）。
//
// 参与比较的桶：实时统计中出现的全部桶，以及聚合表中已无原始行、
// 且不早于清理水位 prunedBefore 所在周的桶（其原始行被删除，应回落到 0）。
// 早于水位的桶只存在于聚合表中，属于历史，不参与比较。
func Prepare(live map[Bucket]int64, existing []model.WorkerShiftAggregateCount, prunedBefore *dateutil.Date) UpdatePlan {
	observed := make(map[Bucket]int64, len(existing))
	rowIDs := make(map[Bucket]int64, len(existing))
	for _, row := range existing {
		b := Bucket{WorkerID: row.WorkerID, ISOYearWeek: row.ISOYearWeek, YearMonth: row.YearMonth}
		observed[b] += row.Count
		rowIDs[b] = row.ID
	}

	keys := make([]Bucket, 0, len(live))
	for b := range live {
		keys = append(keys, b)
	}
	for b := range observed {
		if _, ok := live[b]; ok {
			continue
		}
		if prunedBefore != nil && b.ISOYearWeek < prunedBefore.ISOYearWeek() {
			continue
		}
		keys = append(keys, b)
	}
	sortBuckets(keys)

	summary := reconcile.Deltas(keys, observed, live)
	plan := UpdatePlan{
		Increased: summary.Increased,
		Unchanged: summary.Unchanged,
		Decreased: summary.Decreased,
	}
	for _, c := range summary.Changes {
		d := BucketDelta{Bucket: c.Key, Delta: c.Delta}
		if id, ok := rowIDs[c.Key]; ok {
			id := id
			d.RowID = &id
		}
		plan.Deltas = append(plan.Deltas, d)
	}
	return plan
}

// Cached 聚合表计数加上尚未折叠的增量
func Cached(live map[Bucket]int64, existing []model.WorkerShiftAggregateCount, prunedBefore *dateutil.Date) map[Bucket]int64 {
	out := make(map[Bucket]int64, len(existing))
	for _, row := range existing {
		out[Bucket{WorkerID: row.WorkerID, ISOYearWeek: row.ISOYearWeek, YearMonth: row.YearMonth}] += row.Count
	}
	for _, d := range Prepare(live, existing, prunedBefore).Deltas {
		out[d.Bucket] += d.Delta
	}
	return out
}

// Entry 单个桶的对外表示
type Entry struct {
	ISOYear int   `json:"isoyear"`
	ISOWeek int   `json:"isoweek"`
	Year    int   `json:"year"`
	Month   int   `json:"month"`
	Count   int64 `json:"count"`
}

// WorkerStats 单个人员的统计
type WorkerStats struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Active bool    `json:"active"`
	Stats  []Entry `json:"stats"`
}

// Build 按人员汇总；没有排班的人员也会出现（Stats 为空），计数为 0 的桶被省略
func Build(workers []model.Worker, counts map[Bucket]int64) []WorkerStats {
	byWorker := make(map[int64][]Bucket)
	for b, n := range counts {
		if n == 0 {
			continue
		}
		byWorker[b.WorkerID] = append(byWorker[b.WorkerID], b)
	}

	out := make([]WorkerStats, 0, len(workers))
	for _, w := range workers {
		bs := byWorker[w.ID]
		sortBuckets(bs)
		entries := make([]Entry, 0, len(bs))
		for _, b := range bs {
			entries = append(entries, Entry{
				ISOYear: b.ISOYear(),
				ISOWeek: b.ISOWeek(),
				Year:    b.Year(),
				Month:   b.Month(),
				Count:   counts[b],
			})
		}
		out = append(out, WorkerStats{ID: w.ID, Name: w.Name, Active: w.Active, Stats: entries})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
