package database

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-dds/internal/core/eventbus"
	"github.com/dep2p/go-dds/pkg/types"
)

func TestModule_ProvidesDB(t *testing.T) {
	local := types.NewGUIDPrefix()
	var db *DB
	var bus *eventbus.Bus
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(fx.Annotate(local, fx.ResultTags(`name:"local"`))),
		fx.Supply(types.StrategyServer),
		fx.Supply(fx.Annotate(clock.NewMock(), fx.As(new(clock.Clock)))),
		eventbus.Module(),
		Module,
		fx.Populate(&db, &bus),
	)
	app.RequireStart()

	sub, err := bus.Subscribe(new(types.EvtParticipantDiscovered))
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, local, db.Local())
	assert.Equal(t, types.StrategyServer, db.Strategy())

	_, err = db.AddOrUpdateParticipant(&types.ParticipantProxy{
		GUID:          types.ParticipantGUID(local),
		LeaseDuration: 10 * time.Second,
	}, local, 0)
	require.NoError(t, err)

	evt := (<-sub.Out()).(types.EvtParticipantDiscovered)
	assert.Equal(t, types.ParticipantGUID(local), evt.Proxy.GUID)

	app.RequireStop()
}
