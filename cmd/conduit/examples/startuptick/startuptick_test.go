package startuptick_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vectorframe/conduit/cmd/conduit/examples/startuptick"
	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/sim"
)

// TestStartupRunsOnceThenTick covers spec.md §8's "startup + tick" scenario:
// one run must apply the startup system exactly once, immediately followed
// by the tick system, producing A = (1*3)+1 = 4.
func TestStartupRunsOnceThenTick(t *testing.T) {
	world, startup, tick := startuptick.Build()

	we, err := sim.NewWorldExec(world, device.NewLocal(), nil, startup, tick, 8)
	require.NoError(t, err)

	require.NoError(t, we.Run(context.Background()))
	col, err := world.Column(startuptick.A.ID())
	require.NoError(t, err)
	values, ok := col.Float64View()
	require.True(t, ok)
	require.Equal(t, []float64{4}, values)

	// A second run must not re-apply startup: only the tick system fires.
	require.NoError(t, we.Run(context.Background()))
	values, ok = col.Float64View()
	require.True(t, ok)
	require.Equal(t, []float64{5}, values)
}
