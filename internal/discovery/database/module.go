package database

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-dds/internal/core/eventbus"
	"github.com/dep2p/go-dds/internal/core/metrics"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

// Params DB 依赖参数
type Params struct {
	fx.In

	Local types.GUIDPrefix `name:"local"`

	Config   Config           `optional:"true"`
	Strategy types.Strategy   `optional:"true"`
	Clock    clock.Clock      `optional:"true"`
	EventBus pkgif.EventBus   `optional:"true"`
	Reporter metrics.Reporter `optional:"true"`
}

// Result DB 导出结果
type Result struct {
	fx.Out

	DB        *DB
	Publisher *eventbus.Publisher
}

// Module 发现数据库 Fx 模块
var Module = fx.Module("discovery_database",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// NewFromParams 从 Fx 参数创建 DB
//
// 提供 EventBus 时在其上创建发现事件发布器。
func NewFromParams(p Params) (Result, error) {
	cfg := p.Config
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}

	var pub *eventbus.Publisher
	if p.EventBus != nil {
		var err error
		if pub, err = eventbus.NewPublisher(p.EventBus, clk.Now); err != nil {
			return Result{}, err
		}
	}

	db, err := New(p.Local, cfg,
		WithClock(clk),
		WithStrategy(p.Strategy),
		WithPublisher(pub),
		WithReporter(p.Reporter))
	if err != nil {
		if pub != nil {
			_ = pub.Close()
		}
		return Result{}, err
	}
	return Result{DB: db, Publisher: pub}, nil
}

type lifecycleParams struct {
	fx.In

	DB        *DB
	Publisher *eventbus.Publisher
}

func registerLifecycle(lc fx.Lifecycle, r lifecycleParams) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			logger.Debug("发现数据库关闭", "local", r.DB.Local().ShortString())
			if r.Publisher == nil {
				return nil
			}
			return r.Publisher.Close()
		},
	})
}
