package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ── TEXT 列中的 JSON 对象 ──

// JSONMap 以 JSON 文本存储的自由键值，实现 GORM Scanner/Valuer 接口。
type JSONMap map[string]interface{}

// Scan 将数据库中的 JSON 文本解析为 map。
func (m *JSONMap) Scan(src interface{}) error {
	b, err := textBytes(src)
	if err != nil {
		return fmt.Errorf("JSONMap.Scan: %w", err)
	}
	if len(b) == 0 {
		*m = JSONMap{}
		return nil
	}
	out := JSONMap{}
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("JSONMap.Scan: %w", err)
	}
	*m = out
	return nil
}

// Value 将 map 序列化为 JSON 文本，nil 写为 "{}"。
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func textBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", src)
	}
}

// BaseModel 通用审计字段
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// MigrateModels SQLite 部署与测试使用 AutoMigrate 建表；PostgreSQL 走 SQL 迁移文件。
var MigrateModels = []interface{}{
	&Workplace{},
	&Worker{},
	&Shift{},
	&WorkerShift{},
	&WorkerShiftComment{},
	&WorkerShiftAggregateCount{},
	&Changelog{},
}
