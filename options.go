package dds

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-dds/config"
	"github.com/dep2p/go-dds/pkg/types"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// config 统一配置，选项按顺序覆盖其中的字段
	config *config.Config

	// prefix 参与者 GUID 前缀，空表示随机生成
	prefix types.GUIDPrefix

	// network 进程内投递网络，nil 表示私有网络
	network *Network

	// clock 注入时钟（测试使用 clock.Mock）
	clock clock.Clock

	// 用户自定义 Fx 选项
	fxOptions []fx.Option
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// WithConfig 使用完整配置替换默认配置
//
// 应放在其他选项之前，之后的选项在其基础上覆盖。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		o.config = cfg.Clone()
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithPreset 应用预设（default / server / client / backup / test）
func WithPreset(name string) Option {
	return func(o *options) error {
		return config.ApplyPreset(o.config, name)
	}
}

// WithStrategy 设置发现策略
func WithStrategy(s types.Strategy) Option {
	return func(o *options) error {
		if s.String() == "unknown" {
			return fmt.Errorf("unknown strategy %d", s)
		}
		o.config.Participant.Strategy = s.String()
		return nil
	}
}

// WithName 设置参与者名称
func WithName(name string) Option {
	return func(o *options) error {
		o.config.Participant.Name = name
		return nil
	}
}

// WithLease 设置租约时长
func WithLease(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("lease must be positive")
		}
		o.config.Participant.LeaseDuration = config.Duration(d)
		return nil
	}
}

// WithLocators 设置单播定位器（"udp://host:port"）
func WithLocators(locators ...string) Option {
	return func(o *options) error {
		o.config.Participant.Locators = append([]string(nil), locators...)
		return nil
	}
}

// WithDataDir 设置 BACKUP 策略的数据目录
func WithDataDir(dir string) Option {
	return func(o *options) error {
		o.config.Storage.DataDir = dir
		return nil
	}
}

// WithMetrics 启用或禁用指标收集
func WithMetrics(enabled bool) Option {
	return func(o *options) error {
		o.config.Metrics.Enabled = enabled
		return nil
	}
}

// WithIntrospect 在 addr 上启用本地自省 HTTP 服务
func WithIntrospect(addr string) Option {
	return func(o *options) error {
		o.config.Diagnostics.EnableIntrospect = true
		if addr != "" {
			o.config.Diagnostics.IntrospectAddr = addr
		}
		return nil
	}
}

// WithPrefix 指定参与者 GUID 前缀
func WithPrefix(prefix types.GUIDPrefix) Option {
	return func(o *options) error {
		if prefix.IsEmpty() {
			return errors.New("prefix is empty")
		}
		o.prefix = prefix
		return nil
	}
}

// WithNetwork 加入共享的进程内投递网络
func WithNetwork(n *Network) Option {
	return func(o *options) error {
		o.network = n
		return nil
	}
}

// WithClock 注入时钟
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		o.clock = clk
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
