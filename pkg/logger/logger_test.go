package logger

import (
	"testing"

	"github.com/Mortal/shiftplanner/config"
)

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := NewLogger(&config.LogConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("format=%s: 初始化失败: %v", format, err)
		}
		if !l.Core().Enabled(-1) {
			t.Errorf("format=%s: debug 级别应启用", format)
		}
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(&config.LogConfig{Level: "loud"}); err == nil {
		t.Error("无效级别应报错")
	}
}
