package config

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-dds/pkg/types"
)

// ValidateAll 验证整个配置的有效性
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// MustValidate 验证配置，如果失败则 panic
//
// 仅用于初始化阶段或测试代码。
func MustValidate(c *Config) {
	if err := ValidateAll(c); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}
}

// ValidateCompatibility 验证子配置之间的兼容性
//
//   - 宣告间隔必须小于租约，否则对端会在两次宣告之间移除本参与者
//   - 租约检查间隔不应超过租约
//   - 只有 BACKUP 策略需要同步写入
func ValidateCompatibility(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	lease := c.Participant.LeaseDuration.Duration()
	if announce := c.Discovery.Announce(lease); announce >= lease {
		return fmt.Errorf("discovery: announce period %s must be shorter than lease %s", announce, lease)
	}
	if c.Discovery.LeaseCheckPeriod.Duration() > lease {
		return fmt.Errorf("discovery: lease check period %s exceeds lease %s",
			c.Discovery.LeaseCheckPeriod, c.Participant.LeaseDuration)
	}
	if c.Storage.SyncWrites && c.Participant.StrategyValue() != types.StrategyBackup {
		return fmt.Errorf("storage: sync_writes requires the backup strategy")
	}
	return nil
}
