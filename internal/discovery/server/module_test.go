package server

import (
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-dds/internal/core/loopback"
	"github.com/dep2p/go-dds/internal/core/timedevent"
	"github.com/dep2p/go-dds/internal/discovery/database"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

func TestModule_Lifecycle(t *testing.T) {
	db, err := database.New(types.NewGUIDPrefix(), database.DefaultConfig())
	require.NoError(t, err)
	port, err := loopback.NewNetwork().Join(db.Local())
	require.NoError(t, err)

	var disc pkgif.Discovery
	var srv *Server
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(db),
		fx.Supply(fx.Annotate(clock.NewMock(), fx.As(new(clock.Clock)))),
		fx.Supply(fx.Annotate(port, fx.As(new(Transport)))),
		timedevent.Module(),
		Module,
		fx.Populate(&disc, &srv),
	)
	app.RequireStart()

	assert.Same(t, srv, disc)
	p := &types.ParticipantProxy{GUID: types.ParticipantGUID(db.Local()), LeaseDuration: lease}
	require.NoError(t, disc.OnLocalEntityCreated(p))
	assert.Equal(t, 1, srv.PDP().History().Len())

	app.RequireStop()
	assert.ErrorIs(t, disc.OnLocalEntityCreated(p), ErrClosed)
}
