package dateutil

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const layout = "2006-01-02"

// Date 不带时区的日历日期，对应 PostgreSQL DATE 类型。
// 内部固定为 UTC 零点，只比较年月日。
type Date struct {
	t time.Time
}

// NewDate 由年月日构造日期（越界值按 time.Date 规则归一化）
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf 取时间点在其自身时区下的日历日期
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("无效的日期 %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool      { return d.t.IsZero() }
func (d Date) String() string    { return d.t.Format(layout) }
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }

// AddDays 返回 n 天后的日期（n 可为负）
func (d Date) AddDays(n int) Date {
	return NewDate(d.t.Year(), d.t.Month(), d.t.Day()+n)
}

// DaysSince 返回 d - other 的天数差
func (d Date) DaysSince(other Date) int {
	return int(d.t.Sub(other.t).Hours() / 24)
}

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

// Weekday 周一为 0、周日为 6
func (d Date) Weekday() int {
	return (int(d.t.Weekday()) + 6) % 7
}

// ISOWeek 返回 ISO 8601 周年与周数
func (d Date) ISOWeek() (year, week int) {
	return d.t.ISOWeek()
}

// ISOYearWeek 编码为 100*isoyear + isoweek
func (d Date) ISOYearWeek() int {
	y, w := d.t.ISOWeek()
	return 100*y + w
}

// YearMonth 编码为 100*year + month（按日历年月，与 ISO 周年无关）
func (d Date) YearMonth() int {
	return 100*d.t.Year() + int(d.t.Month())
}

// In 返回该日期在 loc 时区的 hour:minute 时刻
func (d Date) In(loc *time.Location, hour, minute int) time.Time {
	return time.Date(d.t.Year(), d.t.Month(), d.t.Day(), hour, minute, 0, 0, loc)
}

// ── 数据库 / JSON 序列化 ──

// Value 以 YYYY-MM-DD 文本写入，PostgreSQL DATE 与 SQLite TEXT 均可比较
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan 兼容驱动返回的 time.Time / 文本
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("Date.Scan: unsupported type %T", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) < len(layout) {
		return fmt.Errorf("Date.Scan: invalid value %q", s)
	}
	parsed, err := ParseDate(s[:len(layout)])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ── ISO 周 ──

// ISOWeekStart 返回 ISO 周年 year 第 week 周的周一；该周不存在时返回错误
func ISOWeekStart(year, week int) (Date, error) {
	// 1 月 4 日总在第 1 周
	jan4 := NewDate(year, time.January, 4)
	d := jan4.AddDays(-jan4.Weekday() + 7*(week-1))
	if y, w := d.ISOWeek(); y != year || w != week {
		return Date{}, fmt.Errorf("无效的周: %d-%d", year, week)
	}
	return d, nil
}

// ParseWeek 解析 "2024w10" 形式的周标识，返回该周周一
func ParseWeek(s string) (Date, error) {
	parts := strings.Split(strings.ToLower(s), "w")
	if len(parts) != 2 {
		return Date{}, fmt.Errorf("无效的周标识 %q", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Date{}, fmt.Errorf("无效的周标识 %q: %w", s, err)
	}
	week, err := strconv.Atoi(parts[1])
	if err != nil {
		return Date{}, fmt.Errorf("无效的周标识 %q: %w", s, err)
	}
	return ISOWeekStart(year, week)
}

// FormatWeek 格式化为 "2024w10"
func FormatWeek(year, week int) string {
	return fmt.Sprintf("%dw%02d", year, week)
}
