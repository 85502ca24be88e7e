package metrics

import (
	"go.uber.org/fx"
)

// Config 指标配置
type Config struct {
	// Enabled 是否启用指标收集
	Enabled bool

	// Participant 常量标签值
	Participant string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{Enabled: true}
}

// Params Metrics 依赖参数
type Params struct {
	fx.In

	Config Config `optional:"true"`
}

// Module 是 metrics 的 Fx 模块
var Module = fx.Module("metrics",
	fx.Provide(NewReporter),
)

// NewReporter 按配置创建 Reporter，禁用时返回 Nop
func NewReporter(p Params) Reporter {
	if !p.Config.Enabled {
		return Nop{}
	}
	return NewCollector(p.Config.Participant)
}
