package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Mortal/shiftplanner/config"
)

func TestStatsKey(t *testing.T) {
	if got := statsKey(7, "live"); got != "shiftplanner:stats:7:live" {
		t.Errorf("键格式不符: %s", got)
	}
}

func TestNewClient_DefaultTTL(t *testing.T) {
	c := newClient(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"}), 0, zap.NewNop())
	defer c.Close()
	if c.ttl != 10*time.Minute {
		t.Errorf("期望默认 TTL 10m，实际 %v", c.ttl)
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := &config.RedisConfig{Addr: "127.0.0.1:1"}
	if _, err := NewClient(cfg, zap.NewNop()); err == nil {
		t.Error("无法连接时应返回错误")
	}
}

func TestGetStats_ErrorWhenUnreachable(t *testing.T) {
	c := newClient(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}), time.Minute, zap.NewNop())
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, ok, err := c.GetStats(ctx, 1, "live"); err == nil || ok {
		t.Errorf("期望连接错误，实际 ok=%v err=%v", ok, err)
	}
}

func TestCheckRateLimit_ErrorWhenUnreachable(t *testing.T) {
	c := newClient(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}), time.Minute, zap.NewNop())
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if ok, err := c.CheckRateLimit(ctx, "k", 1, time.Minute); err == nil || ok {
		t.Errorf("期望连接错误，实际 ok=%v err=%v", ok, err)
	}
}
