package config

import (
	"fmt"
	"time"

	"github.com/dep2p/go-dds/pkg/types"
)

// ParticipantConfig 参与者配置
type ParticipantConfig struct {
	// Name 参与者名称，随参与者宣告传播
	Name string `json:"name,omitempty"`

	// Strategy 发现策略：simple / server / client / backup
	// 默认值: "simple"
	Strategy string `json:"strategy"`

	// LeaseDuration 租约时长，对端超过该时长未收到本参与者的宣告即将其移除
	// 默认值: 10s
	LeaseDuration Duration `json:"lease_duration"`

	// Locators 单播定位器，格式为 "udp://host:port"
	Locators []string `json:"locators,omitempty"`
}

// DefaultParticipantConfig 返回默认的参与者配置
func DefaultParticipantConfig() ParticipantConfig {
	return ParticipantConfig{
		Strategy:      "simple",
		LeaseDuration: Duration(10 * time.Second),
	}
}

// Validate 验证参与者配置
func (c ParticipantConfig) Validate() error {
	if _, ok := types.ParseStrategy(c.Strategy); !ok {
		return fmt.Errorf("participant: unknown strategy %q", c.Strategy)
	}
	if c.LeaseDuration <= 0 {
		return fmt.Errorf("participant: lease_duration must be positive")
	}
	for _, l := range c.Locators {
		if _, err := types.ParseLocator(l); err != nil {
			return fmt.Errorf("participant: %w", err)
		}
	}
	return nil
}

// StrategyValue 返回解析后的发现策略
func (c ParticipantConfig) StrategyValue() types.Strategy {
	s, _ := types.ParseStrategy(c.Strategy)
	return s
}
