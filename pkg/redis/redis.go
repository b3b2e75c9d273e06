package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mintyspider/attendance-report/config"
)

// Client Redis 客户端封装
// 用于已生成报表的缓存与报表接口的速率限制
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
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr), zap.Duration("report_ttl", cfg.ReportTTL))

	return &Client{rdb: rdb, ttl: cfg.ReportTTL, logger: logger}, nil
}

// ── 报表缓存 ──

const reportPrefix = "report:"

// CachedReport 缓存中的报表文档
type CachedReport struct {
	Content     []byte   `json:"content"`
	Filename    string   `json:"filename"`
	ContentType string   `json:"content_type"`
	Pages       int      `json:"pages"`
	Warnings    []string `json:"warnings,omitempty"`
}

// ReportKey report:<subject>:<start>:<end>:<mode>:<format>
func ReportKey(subject, start, end, mode, format string) string {
	return reportPrefix + strings.Join([]string{subject, start, end, mode, format}, ":")
}

// subjectPattern 匹配某课程全部报表键的 SCAN 模式
func subjectPattern(subject string) string {
	return reportPrefix + escapeGlob(subject) + ":*"
}

// escapeGlob 转义 Redis glob 特殊字符
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// GetReport 读取缓存；未命中返回 (nil, false, nil)
func (c *Client) GetReport(ctx context.Context, key string) (*CachedReport, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rep CachedReport
	if err := json.Unmarshal(data, &rep); err != nil {
		// 无法解码的条目直接丢弃
		c.logger.Warn("报表缓存条目损坏，已删除", zap.String("key", key), zap.Error(err))
		c.rdb.Del(ctx, key)
		return nil, false, nil
	}
	return &rep, true, nil
}

// SetReport 写入缓存，TTL 取 redis.report_ttl
func (c *Client) SetReport(ctx context.Context, key string, rep *CachedReport) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, c.ttl).Err()
}

// InvalidateSubject 删除某课程的全部报表缓存（SCAN + DEL）
func (c *Client) InvalidateSubject(ctx context.Context, subject string) error {
	var (
		cursor  uint64
		deleted int
	)
	pattern := subjectPattern(subject)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("扫描报表缓存失败: %w", err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("删除报表缓存失败: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		c.logger.Debug("报表缓存已失效", zap.String("subject", subject), zap.Int("keys", deleted))
	}
	return nil
}

// ── 速率限制 ──

// CheckRateLimit 滑动窗口计数：窗口内请求数不超过 limit 时放行
// 每次调用都会记录本次请求
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(now.Add(-window).UnixNano(), 10))
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("速率限制计数失败: %w", err)
	}
	return count.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
