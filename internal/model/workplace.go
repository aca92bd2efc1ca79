package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Mortal/shiftplanner/pkg/dateutil"
)

// Weekdays 模板中的星期键，周一为 0
var Weekdays = [7]string{
	"monday",
	"tuesday",
	"wednesday",
	"thursday",
	"friday",
	"saturday",
	"sunday",
}

// DaySettings 某个星期几的默认班次
type DaySettings struct {
	RegistrationStarts   string   `json:"registration_starts,omitempty" validate:"omitempty,reltime"`
	RegistrationDeadline string   `json:"registration_deadline"         validate:"required,reltime"`
	Shifts               []string `json:"shifts"                        validate:"required,min=1,unique,dive,required"`
}

// WorkplaceSettings 工作场所配置（强类型字段 + 透传的未知字段）
type WorkplaceSettings struct {
	WeekdayDefaults map[string]DaySettings `json:"weekday_defaults,omitempty"`
	DefaultViewDay  string                 `json:"default_view_day,omitempty"`

	// Extra 保存已持久化但非本结构声明的键，读写时原样透传
	Extra map[string]json.RawMessage `json:"-"`
}

var knownSettingsKeys = map[string]bool{
	"weekday_defaults": true,
	"default_view_day": true,
}

// DayFor 返回 date 对应星期的模板；未配置时 ok 为 false
func (s WorkplaceSettings) DayFor(date dateutil.Date) (DaySettings, bool) {
	day, ok := s.WeekdayDefaults[Weekdays[date.Weekday()]]
	return day, ok
}

func (s WorkplaceSettings) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(s.Extra)+2)
	for k, v := range s.Extra {
		out[k] = v
	}
	if len(s.WeekdayDefaults) > 0 {
		out["weekday_defaults"] = s.WeekdayDefaults
	}
	if s.DefaultViewDay != "" {
		out["default_view_day"] = s.DefaultViewDay
	}
	return json.Marshal(out)
}

func (s *WorkplaceSettings) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = WorkplaceSettings{}
	if v, ok := raw["weekday_defaults"]; ok {
		if err := json.Unmarshal(v, &s.WeekdayDefaults); err != nil {
			return fmt.Errorf("weekday_defaults: %w", err)
		}
	}
	if v, ok := raw["default_view_day"]; ok {
		if err := json.Unmarshal(v, &s.DefaultViewDay); err != nil {
			return fmt.Errorf("default_view_day: %w", err)
		}
	}
	for k, v := range raw {
		if knownSettingsKeys[k] {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]json.RawMessage)
		}
		s.Extra[k] = v
	}
	return nil
}

// Scan 从 TEXT 列读取 JSON
func (s *WorkplaceSettings) Scan(src interface{}) error {
	b, err := textBytes(src)
	if err != nil {
		return fmt.Errorf("WorkplaceSettings.Scan: %w", err)
	}
	if len(b) == 0 {
		*s = WorkplaceSettings{}
		return nil
	}
	return json.Unmarshal(b, s)
}

// Value 写入 TEXT 列
func (s WorkplaceSettings) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Workplace 工作场所 — 对应 workplaces
type Workplace struct {
	ID       int64             `gorm:"primaryKey"                       json:"id"`
	Slug     string            `gorm:"type:varchar(150);not null"       json:"slug"`
	Name     string            `gorm:"type:varchar(150);not null"       json:"name"`
	Timezone string            `gorm:"type:varchar(64);not null"        json:"timezone"`
	Settings WorkplaceSettings `gorm:"type:text;not null"               json:"settings"`
	// PrunedBefore 已清理原始排班数据的截止日（不含），统计历史仅存在于聚合表
	PrunedBefore *dateutil.Date `gorm:"type:date" json:"pruned_before,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Workplace) TableName() string { return "workplaces" }

// Location 工作场所所在时区
func (w *Workplace) Location() (*time.Location, error) {
	if w.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 %q: %w", w.Timezone, err)
	}
	return loc, nil
}
