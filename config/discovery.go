package config

import (
	"fmt"
	"time"
)

// DiscoveryConfig PDP/EDP 发现服务器配置
//
// 所有间隔为 0 时使用默认值；AnnouncePeriod 为 0 时取租约的三分之一。
type DiscoveryConfig struct {
	// HistoryDepth PDP/EDP 写者历史容量
	// 默认值: 256
	HistoryDepth int `json:"history_depth"`

	// FlushPeriod 周期刷新间隔
	// 默认值: 100ms
	FlushPeriod Duration `json:"flush_period"`

	// FlushRate 本地实体变化触发立即刷新的每秒上限
	// 默认值: 50
	FlushRate float64 `json:"flush_rate"`

	// FlushBurst 立即刷新的突发上限
	// 默认值: 10
	FlushBurst int `json:"flush_burst"`

	// AnnouncePeriod 参与者周期宣告间隔，0 表示租约的三分之一
	AnnouncePeriod Duration `json:"announce_period,omitempty"`

	// LeaseCheckPeriod 租约检查间隔
	// 默认值: 1s
	LeaseCheckPeriod Duration `json:"lease_check_period"`

	// AckRetryBase 未确认变更首次重传间隔
	// 默认值: 200ms
	AckRetryBase Duration `json:"ack_retry_base"`

	// AckRetryMax 重传退避上限
	// 默认值: 5s
	AckRetryMax Duration `json:"ack_retry_max"`

	// BackupPeriod BACKUP 策略持久化间隔
	// 默认值: 5s
	BackupPeriod Duration `json:"backup_period"`
}

// DefaultDiscoveryConfig 返回默认的发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		HistoryDepth:     256,
		FlushPeriod:      Duration(100 * time.Millisecond),
		FlushRate:        50,
		FlushBurst:       10,
		LeaseCheckPeriod: Duration(time.Second),
		AckRetryBase:     Duration(200 * time.Millisecond),
		AckRetryMax:      Duration(5 * time.Second),
		BackupPeriod:     Duration(5 * time.Second),
	}
}

// Validate 验证发现配置
func (c DiscoveryConfig) Validate() error {
	if c.HistoryDepth <= 0 {
		return fmt.Errorf("discovery: history_depth must be positive")
	}
	if c.FlushPeriod <= 0 || c.LeaseCheckPeriod <= 0 || c.BackupPeriod <= 0 {
		return fmt.Errorf("discovery: periods must be positive")
	}
	if c.FlushRate <= 0 || c.FlushBurst <= 0 {
		return fmt.Errorf("discovery: flush_rate and flush_burst must be positive")
	}
	if c.AnnouncePeriod < 0 {
		return fmt.Errorf("discovery: announce_period cannot be negative")
	}
	if c.AckRetryBase <= 0 || c.AckRetryMax < c.AckRetryBase {
		return fmt.Errorf("discovery: ack_retry_max must not be less than ack_retry_base")
	}
	return nil
}

// Announce 返回生效的宣告间隔
func (c DiscoveryConfig) Announce(lease time.Duration) time.Duration {
	if c.AnnouncePeriod > 0 {
		return c.AnnouncePeriod.Duration()
	}
	return lease / 3
}
