// Package metrics 暴露排班核心的 Prometheus 指标。
//
// *Metrics 为 nil 时所有方法都是空操作，服务层可以不注入指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 排班核心指标
type Metrics struct {
	shiftsMaterialized  prometheus.Counter
	assignmentsInserted prometheus.Counter
	assignmentsDeleted  prometheus.Counter
	statsBuckets        *prometheus.CounterVec
	prunedRows          *prometheus.CounterVec
	changelogFailures   prometheus.Counter
}

// New 使用给定的 Registerer 注册全部指标
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		shiftsMaterialized: factory.NewCounter(prometheus.CounterOpts{
			Name: "shiftplanner_shifts_materialized_total",
			Help: "按模板生成的班次数",
		}),
		assignmentsInserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "shiftplanner_assignments_inserted_total",
			Help: "新增的排班行数",
		}),
		assignmentsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "shiftplanner_assignments_deleted_total",
			Help: "删除的排班行数",
		}),
		statsBuckets: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftplanner_stats_flushed_buckets_total",
			Help: "统计刷新时按方向计数的桶数",
		}, []string{"direction"}),
		prunedRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftplanner_pruned_rows_total",
			Help: "清理删除的行数",
		}, []string{"table"}),
		changelogFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "shiftplanner_changelog_failures_total",
			Help: "写入变更日志失败的次数",
		}),
	}
}

func (m *Metrics) ShiftsMaterialized(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.shiftsMaterialized.Add(float64(n))
}

func (m *Metrics) Assignments(inserted, deleted int) {
	if m == nil {
		return
	}
	if inserted > 0 {
		m.assignmentsInserted.Add(float64(inserted))
	}
	if deleted > 0 {
		m.assignmentsDeleted.Add(float64(deleted))
	}
}

// StatsFlushed 记录一次刷新中增加/减少的桶数
func (m *Metrics) StatsFlushed(increased, decreased int) {
	if m == nil {
		return
	}
	m.statsBuckets.WithLabelValues("increased").Add(float64(increased))
	m.statsBuckets.WithLabelValues("decreased").Add(float64(decreased))
}

func (m *Metrics) Pruned(table string, rows int64) {
	if m == nil || rows <= 0 {
		return
	}
	m.prunedRows.WithLabelValues(table).Add(float64(rows))
}

func (m *Metrics) ChangelogFailed() {
	if m == nil {
		return
	}
	m.changelogFailures.Inc()
}
