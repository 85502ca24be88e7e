package database

import (
	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-dds/internal/core/eventbus"
	"github.com/dep2p/go-dds/internal/core/metrics"
	"github.com/dep2p/go-dds/pkg/types"
)

// Config 发现数据库配置
type Config struct {
	// TombstoneSize 记住最近销毁实体的数量上限
	TombstoneSize int

	// OrphanSize 暂存所属参与者未知的端点变更的数量上限
	OrphanSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		TombstoneSize: 1024,
		OrphanSize:    256,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.TombstoneSize <= 0 || c.OrphanSize <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Option 构造选项
type Option func(*DB)

// WithClock 设置时钟
func WithClock(clk clock.Clock) Option {
	return func(db *DB) {
		db.clock = clk
	}
}

// WithStrategy 设置发现策略
func WithStrategy(s types.Strategy) Option {
	return func(db *DB) {
		db.strategy = s
	}
}

// WithPublisher 设置事件发布器
func WithPublisher(p *eventbus.Publisher) Option {
	return func(db *DB) {
		db.pub = p
	}
}

// WithReporter 设置指标
func WithReporter(r metrics.Reporter) Option {
	return func(db *DB) {
		db.reporter = r
	}
}
