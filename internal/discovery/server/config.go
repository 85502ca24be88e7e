package server

import (
	"fmt"
	"time"
)

// Config 发现服务器配置
type Config struct {
	// HistoryDepth PDP/EDP 写者历史容量
	HistoryDepth int

	// FlushPeriod 周期刷新间隔
	FlushPeriod time.Duration

	// FlushRate 立即刷新的每秒上限
	FlushRate float64

	// FlushBurst 立即刷新的突发上限
	FlushBurst int

	// AnnouncePeriod 参与者周期宣告间隔
	//
	// 应明显小于租约，默认取租约的三分之一。
	AnnouncePeriod time.Duration

	// LeaseCheckPeriod 租约检查间隔
	LeaseCheckPeriod time.Duration

	// AckRetryBase 未确认变更首次重传间隔
	AckRetryBase time.Duration

	// AckRetryMax 重传退避上限
	AckRetryMax time.Duration

	// BackupPeriod BACKUP 策略持久化间隔
	BackupPeriod time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		HistoryDepth:     256,
		FlushPeriod:      100 * time.Millisecond,
		FlushRate:        50,
		FlushBurst:       10,
		AnnouncePeriod:   10 * time.Second,
		LeaseCheckPeriod: time.Second,
		AckRetryBase:     200 * time.Millisecond,
		AckRetryMax:      5 * time.Second,
		BackupPeriod:     5 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.HistoryDepth <= 0 {
		return fmt.Errorf("%w: HistoryDepth must be positive", ErrInvalidConfig)
	}
	if c.FlushPeriod <= 0 {
		return fmt.Errorf("%w: FlushPeriod must be positive", ErrInvalidConfig)
	}
	if c.FlushRate <= 0 || c.FlushBurst <= 0 {
		return fmt.Errorf("%w: FlushRate and FlushBurst must be positive", ErrInvalidConfig)
	}
	if c.AnnouncePeriod <= 0 || c.LeaseCheckPeriod <= 0 {
		return fmt.Errorf("%w: AnnouncePeriod and LeaseCheckPeriod must be positive", ErrInvalidConfig)
	}
	if c.AckRetryBase <= 0 || c.AckRetryMax < c.AckRetryBase {
		return fmt.Errorf("%w: AckRetryMax must not be less than AckRetryBase", ErrInvalidConfig)
	}
	if c.BackupPeriod <= 0 {
		return fmt.Errorf("%w: BackupPeriod must be positive", ErrInvalidConfig)
	}
	return nil
}

// Clone 克隆配置
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
