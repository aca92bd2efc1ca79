package clock

import "time"

// Clock 当前时间提供者，便于测试注入
type Clock interface {
	Now() time.Time
}

// Real 系统时钟
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed 固定时刻，仅用于测试与离线工具
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }
