package model

// Worker 值班人员 — 对应 workers
type Worker struct {
	ID           int64   `gorm:"primaryKey"                 json:"id"`
	Name         string  `gorm:"type:varchar(150);not null" json:"name"`
	Phone        *string `gorm:"type:varchar(40);index"     json:"phone,omitempty"`
	LoginSecret  *string `gorm:"type:varchar(150)"          json:"-"` // 由外部认证层使用
	CookieSecret *string `gorm:"type:varchar(150)"          json:"-"`
	Active       bool    `gorm:"not null"                   json:"active"`
	BaseModel
}

// TableName 指定表名
func (Worker) TableName() string { return "workers" }
