package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Mortal/shiftplanner/internal/stats"
	"github.com/Mortal/shiftplanner/pkg/dateutil"
	pkgerrors "github.com/Mortal/shiftplanner/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// 导出的列粒度
const (
	ExportByMonth = "month"
	ExportByWeek  = "week"
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// 数据来自 CachedStats，已清理周的历史同样导出；只包含在职人员。
type ExportService interface {
	ExportWorkerStats(ctx context.Context, workplaceID int64, by string) (*bytes.Buffer, string, error)
}

type exportService struct {
	stats  StatsService
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(d Deps, statsSvc StatsService) ExportService {
	d.fill()
	return &exportService{stats: statsSvc, logger: d.Logger}
}

// ═══════════════════════════════════════════════════════════
// ExportWorkerStats 导出人员排班次数
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单个 Sheet "排班统计"
//   - 行：在职人员（按 id 排序）
//   - 列：月份 "2024-03" 或 ISO 周 "2024w10"，最后一列为合计

func (s *exportService) ExportWorkerStats(ctx context.Context, workplaceID int64, by string) (*bytes.Buffer, string, error) {
	var period func(e stats.Entry) string
	switch by {
	case ExportByMonth, "":
		by = ExportByMonth
		period = func(e stats.Entry) string { return fmt.Sprintf("%d-%02d", e.Year, e.Month) }
	case ExportByWeek:
		period = func(e stats.Entry) string { return dateutil.FormatWeek(e.ISOYear, e.ISOWeek) }
	default:
		return nil, "", pkgerrors.Validation("by", "只支持 month 或 week")
	}

	workers, err := s.stats.CachedStats(ctx, workplaceID)
	if err != nil {
		return nil, "", err
	}

	// 1. 按人员、列汇总
	periodSet := make(map[string]bool)
	type rowData struct {
		name   string
		counts map[string]int64
		total  int64
	}
	var rows []rowData
	for _, w := range workers {
		if !w.Active {
			continue
		}
		rd := rowData{name: w.Name, counts: make(map[string]int64)}
		for _, e := range w.Stats {
			p := period(e)
			periodSet[p] = true
			rd.counts[p] += e.Count
			rd.total += e.Count
		}
		rows = append(rows, rd)
	}
	periods := make([]string, 0, len(periodSet))
	for p := range periodSet {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "排班统计"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 20)
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, cell("A", 1), "值班人员")
	for i, p := range periods {
		f.SetCellValue(sheetName, cell(colName(1+i), 1), p)
	}
	totalCol := colName(1 + len(periods))
	f.SetCellValue(sheetName, cell(totalCol, 1), "合计")
	f.SetCellStyle(sheetName, "A1", cell(totalCol, 1), headerStyle)

	for r, rd := range rows {
		row := r + 2
		f.SetCellValue(sheetName, cell("A", row), rd.name)
		for i, p := range periods {
			f.SetCellValue(sheetName, cell(colName(1+i), row), rd.counts[p])
		}
		f.SetCellValue(sheetName, cell(totalCol, row), rd.total)
	}

	// 3. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("worker_stats_%d_%s.xlsx", workplaceID, by)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
