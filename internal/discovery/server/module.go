package server

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-dds/internal/core/metrics"
	"github.com/dep2p/go-dds/internal/core/storage/kv"
	"github.com/dep2p/go-dds/internal/discovery/database"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
)

// Params Server 依赖参数
type Params struct {
	fx.In

	DB        *database.DB
	Scheduler pkgif.Scheduler
	Transport Transport

	Config   *Config          `optional:"true"`
	Reporter metrics.Reporter `optional:"true"`
	Backup   *kv.Store        `name:"backup" optional:"true"`
}

// Result Server 导出结果
type Result struct {
	fx.Out

	Server    *Server
	Discovery pkgif.Discovery
}

// Module 发现服务器 Fx 模块
var Module = fx.Module("discovery_server",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// NewFromParams 从 Fx 参数创建 Server
func NewFromParams(p Params) (Result, error) {
	opts := []Option{WithReporter(p.Reporter)}
	if p.Backup != nil {
		opts = append(opts, WithBackup(p.Backup))
	}
	s, err := New(p.DB, p.Scheduler, p.Transport, p.Config, opts...)
	if err != nil {
		return Result{}, err
	}
	return Result{Server: s, Discovery: s}, nil
}

func registerLifecycle(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return s.Stop()
		},
	})
}
