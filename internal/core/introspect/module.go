package introspect

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-dds/internal/core/metrics"
	"github.com/dep2p/go-dds/internal/discovery/database"
)

// Module 返回自省服务 Fx 模块
//
// 未提供 *Config 时服务禁用。
func Module() fx.Option {
	return fx.Module("introspect",
		fx.Provide(NewFromParams),
		fx.Invoke(registerLifecycle),
	)
}

// Params 自省服务依赖参数
type Params struct {
	fx.In

	Config   *Config          `optional:"true"`
	DB       *database.DB     `optional:"true"`
	Reporter metrics.Reporter `optional:"true"`
}

// Output 自省服务输出
type Output struct {
	fx.Out

	Server *Server
}

// NewFromParams 从参数创建自省服务，禁用时返回 nil
func NewFromParams(p Params) Output {
	if p.Config == nil {
		return Output{}
	}
	cfg := *p.Config
	if cfg.Source == nil && p.DB != nil {
		cfg.Source = p.DB
	}
	if c, ok := p.Reporter.(*metrics.Collector); ok && cfg.Gatherer == nil {
		cfg.Gatherer = c.Registry()
	}
	return Output{Server: New(cfg)}
}

func registerLifecycle(lc fx.Lifecycle, server *Server) {
	if server == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return server.Stop()
		},
	})
}
