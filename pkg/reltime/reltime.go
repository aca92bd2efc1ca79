// Package reltime 解析形如 "-3dT18:00" 的相对时间表达式，
// 并以某个日期为基准换算成工作场所时区下的绝对时刻。
package reltime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Mortal/shiftplanner/pkg/dateutil"
	pkgerrors "github.com/Mortal/shiftplanner/pkg/errors"
)

const separator = "dT"

// Offset 相对偏移：基准日前 Days 天（Days < 0）的 Hour:Minute
type Offset struct {
	Days   int
	Hour   int
	Minute int
}

// Parse 解析 "-NdTHH:MM"，N 为正整数。失败时返回 ValidationError。
func Parse(s string) (Offset, error) {
	if strings.Count(s, separator) != 1 {
		return Offset{}, invalid(s, "缺少或重复的 dT 分隔符")
	}
	daysStr, clock, _ := strings.Cut(s, separator)

	if !strings.HasPrefix(daysStr, "-") {
		return Offset{}, invalid(s, "天数必须为负整数")
	}
	days, err := strconv.Atoi(daysStr)
	if err != nil || days >= 0 || !allDigits(daysStr[1:]) {
		return Offset{}, invalid(s, "天数必须为负整数")
	}

	hStr, mStr, ok := strings.Cut(clock, ":")
	if !ok || strings.Contains(mStr, ":") {
		return Offset{}, invalid(s, "时刻必须为 HH:MM")
	}
	if len(hStr) < 1 || len(hStr) > 2 || len(mStr) != 2 || !allDigits(hStr) || !allDigits(mStr) {
		return Offset{}, invalid(s, "时刻必须为 HH:MM")
	}
	hour, _ := strconv.Atoi(hStr)
	minute, _ := strconv.Atoi(mStr)
	if hour > 23 || minute > 59 {
		return Offset{}, invalid(s, "时刻超出 24 小时制范围")
	}

	return Offset{Days: days, Hour: hour, Minute: minute}, nil
}

// Resolve 以 base 为基准日，换算为 loc 时区下的绝对时刻
func (o Offset) Resolve(base dateutil.Date, loc *time.Location) time.Time {
	return base.AddDays(o.Days).In(loc, o.Hour, o.Minute)
}

// String 还原为 "-NdTHH:MM"
func (o Offset) String() string {
	return fmt.Sprintf("%ddT%02d:%02d", o.Days, o.Hour, o.Minute)
}

// Before 在同一基准日下 o 是否早于 other
func (o Offset) Before(other Offset) bool {
	return o.minutes() < other.minutes()
}

func (o Offset) minutes() int {
	return o.Days*24*60 + o.Hour*60 + o.Minute
}

// Resolve 解析并换算，等价于 Parse(s).Resolve(base, loc)
func Resolve(base dateutil.Date, s string, loc *time.Location) (time.Time, error) {
	o, err := Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return o.Resolve(base, loc), nil
}

func invalid(s, reason string) error {
	return pkgerrors.Validation("duration", "%q: %s", s, reason)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
