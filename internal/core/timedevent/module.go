package timedevent

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
)

// Params 调度器依赖参数
type Params struct {
	fx.In

	// Clock 可选注入时钟，缺省使用系统时钟
	Clock clock.Clock `optional:"true"`
}

// Result 调度器导出结果
type Result struct {
	fx.Out

	Scheduler *Scheduler
	Timer     pkgif.Scheduler
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("timedevent",
		fx.Provide(ProvideScheduler),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideScheduler 提供调度器
func ProvideScheduler(p Params) Result {
	s := New(p.Clock)
	return Result{Scheduler: s, Timer: s}
}

func registerLifecycle(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return s.Stop()
		},
	})
}
