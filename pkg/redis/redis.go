package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Mortal/shiftplanner/config"
)

// Client Redis 客户端封装
// 用于统计结果缓存与报名接口限流
type Client struct {
	rdb    *goredis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return newClient(rdb, cfg.StatsTTL, logger), nil
}

func newClient(rdb *goredis.Client, ttl time.Duration, logger *zap.Logger) *Client {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Client{rdb: rdb, ttl: ttl, logger: logger}
}

// ── 统计缓存 ──

const statsPrefix = "shiftplanner:stats:"

// StatsViews 需要随排班变更一起失效的统计视图
var StatsViews = []string{"live", "cached"}

func statsKey(workplaceID int64, view string) string {
	return fmt.Sprintf("%s%d:%s", statsPrefix, workplaceID, view)
}

// GetStats 读取缓存的统计 JSON；未命中时 ok 为 false
func (c *Client) GetStats(ctx context.Context, workplaceID int64, view string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, statsKey(workplaceID, view)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// SetStats 写入统计 JSON
func (c *Client) SetStats(ctx context.Context, workplaceID int64, view string, payload []byte) error {
	return c.rdb.Set(ctx, statsKey(workplaceID, view), payload, c.ttl).Err()
}

// InvalidateStats 删除工作场所的全部统计缓存
func (c *Client) InvalidateStats(ctx context.Context, workplaceID int64) error {
	keys := make([]string, 0, len(StatsViews))
	for _, v := range StatsViews {
		keys = append(keys, statsKey(workplaceID, v))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// ── 限流 ──

// CheckRateLimit 滑动窗口限流：窗口内请求数未超过 limit 时返回 true
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	member := fmt.Sprintf("%d", now.UnixNano())

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now.Add(-window).UnixNano()))
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return count.Val() <= int64(limit), nil
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
