package config

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否收集 Prometheus 指标
	// 默认值: true
	Enabled bool `json:"enabled"`
}

// DefaultMetricsConfig 返回默认的指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Enabled: true}
}
