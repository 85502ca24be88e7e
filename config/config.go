// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载和保存配置
//   - 支持预设配置（default/server/client/backup/test）
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Participant.Strategy = "server"
//
//	// 应用预设到现有配置
//	config.ApplyPreset(cfg, "server")
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

// Config 是 go-dds 参与者的完整配置结构
//
// 配置按照功能模块组织：
//   - Participant: 参与者身份、租约与发现策略
//   - Discovery: PDP/EDP 历史深度、刷新与重传节奏
//   - Database: 发现数据库缓存容量
//   - Storage: BACKUP 策略的持久化目录
//   - Metrics: 指标收集
//   - Diagnostics: 本地自省服务
type Config struct {
	// Participant 参与者配置
	Participant ParticipantConfig `json:"participant"`

	// Discovery 发现服务器配置
	Discovery DiscoveryConfig `json:"discovery"`

	// Database 发现数据库配置
	Database DatabaseConfig `json:"database"`

	// Storage 存储配置
	Storage StorageConfig `json:"storage"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Diagnostics 诊断服务配置
	Diagnostics DiagnosticsConfig `json:"diagnostics"`
}

// NewConfig 创建默认配置
//
// 默认配置为 SIMPLE 策略、内存存储、启用指标。
func NewConfig() *Config {
	return &Config{
		Participant: DefaultParticipantConfig(),
		Discovery:   DefaultDiscoveryConfig(),
		Database:    DefaultDatabaseConfig(),
		Storage:     DefaultStorageConfig(),
		Metrics:     DefaultMetricsConfig(),
		Diagnostics: DefaultDiagnosticsConfig(),
	}
}

// Validate 验证配置的有效性
//
// 依次检查所有子配置，再检查子配置之间的兼容性。
func (c *Config) Validate() error {
	if err := c.Participant.Validate(); err != nil {
		return err
	}
	if err := c.Discovery.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Diagnostics.Validate(); err != nil {
		return err
	}
	return ValidateCompatibility(c)
}

// Clone 深拷贝配置
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Participant.Locators = append([]string(nil), c.Participant.Locators...)
	return &cp
}
