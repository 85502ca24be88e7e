package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
)

// TestModule_Load 测试 Fx 模块加载
func TestModule_Load(t *testing.T) {
	var (
		bus  pkgif.EventBus
		impl *Bus
	)
	app := fxtest.New(t,
		Module(),
		fx.NopLogger,
		fx.Populate(&bus, &impl),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.NotNil(t, bus)
	assert.Same(t, impl, bus)
}
